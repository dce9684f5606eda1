package domain

import "encoding/json"

// SessionRequest is the body accepted by the session endpoint. APIKey and WorkflowID
// are developer overrides and are ignored in production.
type SessionRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	WorkflowID   string `json:"workflowId,omitempty"`
	User         string `json:"user,omitempty"`
}

// SessionPayload is the body sent to the upstream issuer.
type SessionPayload struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
	Workflow     string `json:"workflow,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         string `json:"user,omitempty"`
}

type Session struct {
	// Raw is the issuer response, relayed to the caller without modification.
	Raw          json.RawMessage
	ClientSecret Credential
}
