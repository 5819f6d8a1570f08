package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/config"
)

func TestClassifyStatus(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name         string
		status       int
		throttled    bool
		unauthorized bool
	}{
		{"429", http.StatusTooManyRequests, true, false},
		{"401", http.StatusUnauthorized, false, true},
		{"403", http.StatusForbidden, false, true},
		{"500", http.StatusInternalServerError, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(base, tt.status, "llm: test")
			require.Error(t, err)
			assert.Equal(t, tt.throttled, IsThrottled(err))
			assert.Equal(t, tt.unauthorized, IsUnauthorized(err))
			assert.Contains(t, err.Error(), "boom")
		})
	}

	assert.NoError(t, classifyStatus(nil, 429, "x"))
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg          string
		throttled    bool
		unauthorized bool
	}{
		{"API returned unexpected status code: 429: slow down", true, false},
		{"Rate limit exceeded", true, false},
		{"Error 429, Message: quota, Status: RESOURCE_EXHAUSTED", true, false},
		{"API returned unexpected status code: 401: No auth credentials found", false, true},
		{"invalid API key", false, true},
		{"connection reset by peer", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := classifyMessage(errors.New(tt.msg), "llm: openrouter complete")
			require.Error(t, err)
			assert.Equal(t, tt.throttled, IsThrottled(err))
			assert.Equal(t, tt.unauthorized, IsUnauthorized(err))
			assert.Contains(t, err.Error(), "llm: openrouter complete")
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestClassifyMessage_IgnoresLabel(t *testing.T) {
	err := classifyMessage(errors.New("boom"), "llm: 429 rate limit unauthorized")
	require.Error(t, err)
	assert.False(t, IsThrottled(err))
	assert.False(t, IsUnauthorized(err))

	assert.NoError(t, classifyMessage(nil, "llm: test"))
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, config.LLMConfig{Provider: "openrouter", OpenRouterKey: "k", OpenRouterBaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &OpenRouter{}, c)

	c, err = New(ctx, config.LLMConfig{Provider: "anthropic", AnthropicKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, c)

	c, err = New(ctx, config.LLMConfig{Provider: "gemini", GeminiKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, c)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, config.LLMConfig{Provider: "openrouter"})
	assert.Error(t, err)

	_, err = New(ctx, config.LLMConfig{Provider: "anthropic"})
	assert.Error(t, err)

	_, err = New(ctx, config.LLMConfig{Provider: "gemini"})
	assert.Error(t, err)

	_, err = New(ctx, config.LLMConfig{Provider: "cohere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "cohere"`)
}
