package provider

import "errors"

var (
	// ErrRateLimit indicates the provider rejected the request for quota
	// reasons; the call may succeed if retried later.
	ErrRateLimit = errors.New("provider: rate limited")

	// ErrProviderDown indicates the provider API is unreachable or
	// returned a server-side failure.
	ErrProviderDown = errors.New("provider: unavailable")

	// ErrContextLength indicates the conversation exceeds the model's
	// context window and cannot be completed as-is.
	ErrContextLength = errors.New("provider: context length exceeded")
)
