package extraction

import (
	"context"
	"fmt"
	"strings"

	"jizhang/internal/inference"
)

// Pipeline classifies utterances with one provider round-trip each. It holds
// no mutable state and may be shared across goroutines.
type Pipeline struct {
	provider    inference.Provider
	temperature float32
}

type Option func(*Pipeline)

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float32) Option {
	return func(p *Pipeline) {
		p.temperature = t
	}
}

func New(provider inference.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:    provider,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Classify returns Valid or Invalid for text. Errors are limited to provider
// failures (*inference.Error) and inference.ErrEmptyResponse; they are not
// retried.
func (p *Pipeline) Classify(ctx context.Context, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Invalid{Reason: ReasonEmptyInput}, nil
	}

	content, err := p.provider.Complete(ctx, inference.Request{
		Messages:    BuildMessages(text),
		Temperature: p.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("classify: %w", inference.ErrEmptyResponse)
	}

	outcome := Interpret(content)
	if pf, ok := outcome.(ParseFailure); ok {
		return Recover(pf), nil
	}
	return outcome, nil
}
