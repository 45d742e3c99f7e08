// Package chat provides interfaces and implementations for chat-completion clients.
package chat

import (
	"context"
	"encoding/json"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteOptions configures a completion request.
type CompleteOptions struct {
	// Model overrides the client's default model when non-empty.
	Model string

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float32

	// MaxTokens limits the response length (0 means provider default).
	MaxTokens int
}

// Tool describes a function the model is forced to call so that its output
// arrives as strictly parseable JSON arguments instead of free text.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON schema for the function arguments.
	Parameters map[string]any
}

// Client defines the interface for chat-completion services.
type Client interface {
	// Complete sends the messages and returns the generated text.
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)

	// CompleteTool sends the messages with a single tool the model must
	// invoke, and returns the raw JSON arguments of that call.
	CompleteTool(ctx context.Context, messages []Message, tool Tool, opts CompleteOptions) (json.RawMessage, error)
}
