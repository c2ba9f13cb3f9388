package advisory

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/followup-cli/internal/resilience"
	"github.com/sells-group/followup-cli/pkg/anthropic"
	"github.com/sells-group/followup-cli/pkg/gemini"
)

// Completion is the raw text answer of a model.
type Completion struct {
	Text  string
	Model string
}

// Generator sends a prompt to a language model. Implementations classify
// failures into *resilience.RateLimitError, *resilience.TransientError or
// *ModelUnavailableError so the Advisor can decide whether to retry.
type Generator interface {
	Generate(ctx context.Context, modelID string, p Prompt) (Completion, error)
}

// GenerationOptions are the sampling settings shared by all generators.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
	// CacheTTL is the prompt-cache TTL for the system block ("5m" or "1h").
	// Only Anthropic honors it.
	CacheTTL string
}

// ModelUnavailableError means the endpoint does not serve the requested
// model (unknown, retired or decommissioned).
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	return "model " + e.Model + " unavailable: " + e.Err.Error()
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

var modelGonePatterns = []string{
	"decommissioned",
	"no longer available",
	"is not supported for generatecontent",
	"not_found_error",
}

func classifyGenerateErr(modelID string, err error, status int) error {
	if status == 404 {
		return &ModelUnavailableError{Model: modelID, Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range modelGonePatterns {
		if strings.Contains(msg, p) {
			return &ModelUnavailableError{Model: modelID, Err: err}
		}
	}
	return resilience.Classify(err, status)
}

// AnthropicGenerator generates advisories with the Anthropic Messages API.
// The system prompt is sent as a cached block.
type AnthropicGenerator struct {
	client anthropic.Client
	opts   GenerationOptions
}

// NewAnthropicGenerator wraps client.
func NewAnthropicGenerator(client anthropic.Client, opts GenerationOptions) *AnthropicGenerator {
	return &AnthropicGenerator{client: client, opts: opts}
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, modelID string, p Prompt) (Completion, error) {
	temp := g.opts.Temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   int64(g.opts.MaxTokens),
		System:      anthropic.BuildCachedSystemBlocks(p.System, g.opts.CacheTTL),
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	})
	if err != nil {
		return Completion{}, classifyGenerateErr(modelID, err, anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(modelID, "advise")

	out := Completion{Text: resp.Text(), Model: resp.Model}
	if out.Model == "" {
		out.Model = modelID
	}
	return out, nil
}

// GeminiGenerator generates advisories with the Gemini API.
type GeminiGenerator struct {
	client gemini.Client
	opts   GenerationOptions
}

// NewGeminiGenerator wraps client.
func NewGeminiGenerator(client gemini.Client, opts GenerationOptions) *GeminiGenerator {
	return &GeminiGenerator{client: client, opts: opts}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, modelID string, p Prompt) (Completion, error) {
	temp := float32(g.opts.Temperature)
	resp, err := g.client.GenerateText(ctx, gemini.TextRequest{
		Model:           modelID,
		System:          p.System,
		Prompt:          p.User,
		MaxOutputTokens: int32(g.opts.MaxTokens), //nolint:gosec // bounded by config
		Temperature:     &temp,
	})
	if err != nil {
		return Completion{}, classifyGenerateErr(modelID, err, gemini.StatusCode(err))
	}
	return Completion{Text: resp.Text, Model: resp.Model}, nil
}

// errEmptyResponse is returned (as transient) when a model answers with no text.
var errEmptyResponse = eris.New("advisory: empty model response")
