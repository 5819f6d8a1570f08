package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

type mockAnthropic struct {
	createFunc func(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
	last       anthropic.MessageRequest
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.last = req
	return m.createFunc(ctx, req)
}

type mockModel struct {
	generateFunc func(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error)
}

func (m *mockModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	return m.generateFunc(ctx, msgs, opts...)
}

func (m *mockModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, opts...)
}
