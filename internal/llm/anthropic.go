package llm

import (
	"context"

	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

const defaultAnthropicMaxTokens = 1024

// Anthropic completes through the Messages API.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic wraps an Anthropic client.
func NewAnthropic(client anthropic.Client) *Anthropic {
	return &Anthropic{client: client}
}

// Complete sends one user message. JSON output is requested through the
// system prompt since the Messages API has no JSON mode.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	if req.JSON {
		system += "\nRespond with a single JSON object and nothing else."
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", classifyStatus(err, anthropic.StatusCode(err), "llm: anthropic complete")
	}
	resp.Usage.Log(req.Model, "completion")
	return resp.Text(), nil
}
