package inference

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind selects the wire protocol of the provider.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindGemini Kind = "gemini"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "deepseek/deepseek-chat"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultTimeout     = 30 * time.Second
)

func (k Kind) IsValid() bool {
	switch k {
	case KindOpenAI, KindGemini:
		return true
	default:
		return false
	}
}

// DefaultModelFor returns the model used when none is configured.
func DefaultModelFor(k Kind) string {
	if k == KindGemini {
		return DefaultGeminiModel
	}
	return DefaultModel
}

// DefaultBaseURLFor returns the endpoint used when none is configured. Gemini
// talks to the SDK's own endpoint, reported as "".
func DefaultBaseURLFor(k Kind) string {
	if k == KindGemini {
		return ""
	}
	return DefaultBaseURL
}

// Config holds everything needed to reach a provider.
type Config struct {
	Kind    Kind
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// Optional attribution headers understood by OpenRouter.
	Referer string
	Title   string
}

// NewHTTPClient builds the client shared by every call of a provider.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// New creates the provider selected by cfg.Kind.
func New(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModelFor(cfg.Kind)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURLFor(cfg.Kind)
	}
	httpClient := NewHTTPClient(cfg.Timeout)

	switch cfg.Kind {
	case KindOpenAI, "":
		return NewOpenAI(cfg, httpClient), nil
	case KindGemini:
		return NewGemini(ctx, cfg, httpClient)
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", cfg.Kind)
	}
}
