package assistant

import (
	"context"
	"errors"
)

// ErrUnavailable means the provider is unconfigured or could not be reached.
var ErrUnavailable = errors.New("assistant provider unavailable")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation, oldest first.
type Turn struct {
	Role    Role
	Content string
}

type Request struct {
	SystemPrompt string
	Turns        []Turn
	MaxTokens    int64
}

// Provider streams a completion. onDelta is called with each text fragment in order;
// an error returned from onDelta aborts the stream and is returned unchanged.
type Provider interface {
	Stream(ctx context.Context, req Request, onDelta func(string) error) error
}
