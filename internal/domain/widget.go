package domain

// MountOptions configures one widget instance attached to a container.
type MountOptions struct {
	ElementID     string
	ClientSecret  Credential
	Layout        string
	Theme         string
	AssistantName string
}
