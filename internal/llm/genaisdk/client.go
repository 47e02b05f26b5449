// Package genaisdk implements llm.Generator on top of the Google generative-ai-go SDK.
package genaisdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"jobfit-backend/internal/llm"
)

type Client struct {
	client *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{client: c}, nil
}

// Generate runs one deterministic generateContent call.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	m := c.client.GenerativeModel(model)
	m.SetTemperature(llm.Sampling.Temperature)
	m.SetTopP(llm.Sampling.TopP)
	m.SetTopK(llm.Sampling.TopK)
	m.ResponseMIMEType = llm.Sampling.MIMEType

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return firstCandidateText(resp)
}

func (c *Client) Close() error {
	return c.client.Close()
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", llm.ErrEmptyResponse
	}
	return b.String(), nil
}

var _ llm.Generator = (*Client)(nil)
