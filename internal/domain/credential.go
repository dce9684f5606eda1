package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const redactedCredential = "[redacted]"

// Credential is a short-lived client secret issued by the upstream session API.
// The zero value means "no credential".
type Credential struct {
	value string
}

func NewCredential(value string) Credential {
	return Credential{value: strings.TrimSpace(value)}
}

func (c Credential) Value() string {
	return c.value
}

func (c Credential) IsZero() bool {
	return c.value == ""
}

// String never prints the token so credentials cannot leak through logs.
func (c Credential) String() string {
	if c.IsZero() {
		return ""
	}
	return redactedCredential
}

func (c Credential) GoString() string {
	return "domain.Credential{" + c.String() + "}"
}

// ParseCredential accepts both shapes the issuer emits for client_secret:
// a plain string or an object of the form {"value": "..."}.
func ParseCredential(raw json.RawMessage) (Credential, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Credential{}, &MalformedResponseError{}
	}

	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return Credential{}, &MalformedResponseError{Reason: fmt.Sprintf("decode client_secret: %v", err)}
		}
		if strings.TrimSpace(value) == "" {
			return Credential{}, &MalformedResponseError{}
		}
		return NewCredential(value), nil
	case '{':
		var wrapped struct {
			Value *string `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return Credential{}, &MalformedResponseError{Reason: fmt.Sprintf("decode client_secret: %v", err)}
		}
		if wrapped.Value == nil || strings.TrimSpace(*wrapped.Value) == "" {
			return Credential{}, &MalformedResponseError{}
		}
		return NewCredential(*wrapped.Value), nil
	default:
		return Credential{}, &MalformedResponseError{Reason: "client_secret must be a string or an object with a value field"}
	}
}

// ExtractClientSecret reads the client_secret field of an issuer or broker response body.
func ExtractClientSecret(body []byte) (Credential, error) {
	var envelope struct {
		ClientSecret json.RawMessage `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Credential{}, &MalformedResponseError{Reason: fmt.Sprintf("decode session response: %v", err)}
	}
	return ParseCredential(envelope.ClientSecret)
}
