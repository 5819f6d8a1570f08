package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenRouter completes through an OpenAI-compatible chat endpoint.
type OpenRouter struct {
	model llms.Model
}

// NewOpenRouter creates a langchaingo OpenAI client pointed at baseURL.
func NewOpenRouter(apiKey, baseURL string) (*OpenRouter, error) {
	if apiKey == "" {
		return nil, eris.New("llm: openrouter key is required")
	}
	opts := []openai.Option{openai.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create openrouter client")
	}
	return &OpenRouter{model: m}, nil
}

// NewOpenRouterWithModel wraps an existing langchaingo model.
func NewOpenRouterWithModel(m llms.Model) *OpenRouter {
	return &OpenRouter{model: m}
}

// Complete sends a system + user chat and returns the first choice.
func (o *OpenRouter) Complete(ctx context.Context, req Request) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}

	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := o.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", classifyMessage(err, "llm: openrouter complete")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("llm: openrouter returned no choices")
	}
	return resp.Choices[0].Content, nil
}
