// Package gemini implements the responder, evaluator, and enricher
// collaborator contracts on top of the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Client talks to the Gemini API. One client serves all three collaborator
// roles; constructing it is cheap and connection reuse is handled by the SDK.
type Client struct {
	genai *genai.Client
	model string
}

// NewClient creates a Gemini client. An empty model selects DefaultModel.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{genai: gc, model: model}, nil
}

// generate runs a single non-streaming completion and returns the text.
func (c *Client) generate(ctx context.Context, system, user string, jsonMode bool, maxTokens int32) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.6),
		MaxOutputTokens:   maxTokens,
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
		cfg.Temperature = genai.Ptr[float32](0.2)
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(user), cfg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// stripFences removes markdown code fences the model sometimes wraps JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
