// Package inference talks to remote text-completion endpoints.
//
// A Provider is built once at startup around a single shared *http.Client and
// is safe for concurrent use. Providers never retry and never log; failures
// come back as *Error or ErrEmptyResponse.
package inference

import (
	"context"
	"errors"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the ordered prompt.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call. The model is part of the provider's
// configuration.
type Request struct {
	Messages    []Message
	Temperature float32
}

// Provider returns the text content of the first completion choice.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the endpoint answered successfully but
// without any choice or with empty content.
var ErrEmptyResponse = errors.New("inference: empty response")

// Error is a transport or provider failure. StatusCode is 0 when no HTTP
// response was received.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("inference %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("inference %s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FuncProvider adapts a plain function to Provider.
type FuncProvider func(ctx context.Context, req Request) (string, error)

func (f FuncProvider) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
