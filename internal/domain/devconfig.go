package domain

import "strings"

const DevConfigStorageKey = "chatkit.devConfig"

// DeveloperConfig is a locally persisted override used when the server has no trusted secret.
type DeveloperConfig struct {
	APIKey     string `json:"apiKey"`
	WorkflowID string `json:"workflowId,omitempty"`
}

func (c *DeveloperConfig) SessionRequest() SessionRequest {
	if c == nil {
		return SessionRequest{}
	}
	return SessionRequest{
		APIKey:     strings.TrimSpace(c.APIKey),
		WorkflowID: strings.TrimSpace(c.WorkflowID),
	}
}
