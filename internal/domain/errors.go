package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSecretNotFound       = errors.New("secret not found")
	ErrSecretStoreReadOnly  = errors.New("secret store is read-only")
	ErrNoBrowserEnvironment = errors.New("ChatKit can only be loaded in a browser environment")
	ErrMissingClientSecret  = errors.New("ChatKit session response did not include a client secret")
)

// MissingServerSecretMessage is surfaced to clients when no trusted secret can be resolved.
// Clients match on it (case-insensitively) to offer the local developer override form.
const MissingServerSecretMessage = "OPENAI_API_KEY is not configured on the server."

type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message == "" {
		return MissingServerSecretMessage
	}
	return e.Message
}

// UpstreamError carries a non-success issuer response. Body must already be redacted.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Failed to create ChatKit session: %s", e.Body)
}

type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Reason == "" {
		return ErrMissingClientSecret.Error() + "."
	}
	return e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	if e.Reason == "" {
		return ErrMissingClientSecret
	}
	return nil
}

// AssetLoadError reports a widget script that failed to fetch or initialize.
// It is never cached; the next load attempt fetches again.
type AssetLoadError struct {
	URL     string
	Message string
	Err     error
}

func (e *AssetLoadError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}
