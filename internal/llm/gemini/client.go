package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"jobfit-backend/internal/llm"
)

var apiURL = "https://generativelanguage.googleapis.com/v1beta/models"

// maxErrorBody caps how much of a failed response is echoed into the error.
const maxErrorBody = 2048

// Client implements llm.Generator against the Gemini generateContent REST endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a REST client. Timeouts come from the caller's context.
func NewClient(apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return &Client{apiKey: apiKey, httpClient: &http.Client{}}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"topP"`
	TopK             int32   `json:"topK"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

// Generate posts the prompt to one model and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: llm.Sampling.MIMEType,
			Temperature:      llm.Sampling.Temperature,
			TopP:             llm.Sampling.TopP,
			TopK:             llm.Sampling.TopK,
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", apiURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Drop the url.Error wrapper so the endpoint never reaches callers.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini request timeout: %w", err)
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(body))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, text)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini response parse: %w", err)
	}
	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", llm.ErrEmptyResponse
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

var _ llm.Generator = (*Client)(nil)
