// Package provider defines the interface for communicating with a language
// model: a single request/response operation taking a conversation plus a
// tool catalog and returning a turn containing text fragments and
// tool-invocation requests. Concrete implementations live in separate
// packages (e.g. provider.anthropic).
package provider

import "context"

// Provider is the language-model inference API consumed by the agent loop.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
