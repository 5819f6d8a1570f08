package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Gemini completes through the Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini API client. baseURL overrides the API host.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.New("llm: gemini key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}
	return &Gemini{client: client}, nil
}

// Complete generates a single candidate.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{CandidateCount: 1}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), cfg)
	if err != nil {
		return "", classifyGemini(err, "llm: gemini complete")
	}
	return resp.Text(), nil
}

func classifyGemini(err error, msg string) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(err, apiErr.Code, msg)
	}
	return classifyMessage(err, msg)
}
