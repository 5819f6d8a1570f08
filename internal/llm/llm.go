// Package llm provides a provider-neutral text completion interface with
// OpenRouter, Anthropic, and Gemini backends.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

// Error classes shared by every backend.
var (
	ErrThrottled    = eris.New("llm: throttled")
	ErrUnauthorized = eris.New("llm: unauthorized")
)

// Request is a single system + user completion.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
	// JSON asks the provider to return a single JSON object.
	JSON bool
}

// Completer returns the model's text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClassifiedError tags a provider error with one of the error classes while
// keeping the original error in the chain.
type ClassifiedError struct {
	Class error
	Err   error
}

func (e *ClassifiedError) Error() string {
	return e.Class.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the class and the provider error to errors.Is/As.
func (e *ClassifiedError) Unwrap() []error {
	return []error{e.Class, e.Err}
}

// IsThrottled reports whether err is a throttling response from a provider.
func IsThrottled(err error) bool { return errors.Is(err, ErrThrottled) }

// IsUnauthorized reports whether the provider rejected our credentials.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// classifyStatus wraps err with msg and tags it by HTTP status. A zero
// status falls back to message inspection. The class stays outermost so
// errors.Is sees it without unwrapping through eris.
func classifyStatus(err error, status int, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := eris.Wrap(err, msg)
	switch status {
	case http.StatusTooManyRequests:
		return &ClassifiedError{Class: ErrThrottled, Err: wrapped}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ClassifiedError{Class: ErrUnauthorized, Err: wrapped}
	case 0:
		return classifyMessage(err, msg)
	default:
		return wrapped
	}
}

// classifyMessage inspects error text for providers that only surface the
// status code inside the message.
func classifyMessage(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := eris.Wrap(err, msg)
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "429"),
		strings.Contains(text, "rate limit"),
		strings.Contains(text, "too many requests"),
		strings.Contains(text, "resource_exhausted"):
		return &ClassifiedError{Class: ErrThrottled, Err: wrapped}
	case strings.Contains(text, "401"),
		strings.Contains(text, "403"),
		strings.Contains(text, "unauthorized"),
		strings.Contains(text, "invalid api key"),
		strings.Contains(text, "permission_denied"):
		return &ClassifiedError{Class: ErrUnauthorized, Err: wrapped}
	default:
		return wrapped
	}
}

// New builds the Completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case "openrouter", "":
		return NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterBaseURL)
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, eris.New("llm: anthropic key is required")
		}
		return NewAnthropic(anthropic.NewClient(cfg.AnthropicKey)), nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiKey, "")
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
