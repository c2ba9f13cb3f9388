// Package gemini wraps the Google GenAI SDK for single-turn text generation.
package gemini

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Client defines the Gemini operations used by the advisor.
type Client interface {
	GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error)
}

// TextRequest is a single-turn generation request.
type TextRequest struct {
	Model           string
	System          string
	Prompt          string
	MaxOutputTokens int32
	Temperature     *float32
}

// TextResponse carries the generated text and token usage.
type TextResponse struct {
	Model        string
	Text         string
	FinishReason string
	InputTokens  int32
	OutputTokens int32
}

// Option customizes the underlying SDK client config.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini API client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, o := range opts {
		o(cfg)
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: new client")
	}
	return &sdkClient{client: c}, nil
}

func (c *sdkClient) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &TextResponse{
		Model: req.Model,
		Text:  resp.Text(),
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = resp.UsageMetadata.PromptTokenCount
		out.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return out, nil
}

// StatusCode extracts the HTTP status code of an API error returned by
// GenerateText, or 0 when err did not come from an HTTP response.
func StatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
