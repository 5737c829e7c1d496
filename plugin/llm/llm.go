// Package llm is the boundary around the external language-model call that
// produces agent replies.
package llm

import (
	"context"
	"errors"
)

// ErrAPIKeyMissing is returned when the provider has no credential configured.
// Callers classify it separately from transient API failures.
var ErrAPIKeyMissing = errors.New("llm: API key is not configured")

// Message is one turn of conversation context handed to the model.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Service produces a reply for the given context window. Implementations
// must honor ctx cancellation and deadlines; the caller owns the timeout.
type Service interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
