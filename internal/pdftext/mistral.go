package pdftext

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/followup-cli/internal/resilience"
)

const (
	mistralEndpoint     = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"
)

// Mistral extracts text from scanned or image-heavy PDFs with the Mistral
// OCR API.
type Mistral struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	retry    resilience.RetryConfig
}

// MistralOption configures a Mistral extractor.
type MistralOption func(*Mistral)

// WithEndpoint overrides the OCR endpoint URL.
func WithEndpoint(url string) MistralOption {
	return func(m *Mistral) { m.endpoint = url }
}

// WithModel overrides the OCR model.
func WithModel(model string) MistralOption {
	return func(m *Mistral) { m.model = model }
}

// WithRetry overrides the retry policy for rate-limited and 5xx responses.
func WithRetry(cfg resilience.RetryConfig) MistralOption {
	return func(m *Mistral) { m.retry = cfg }
}

// NewMistral creates a Mistral extractor.
func NewMistral(apiKey string, opts ...MistralOption) *Mistral {
	m := &Mistral{
		apiKey:   apiKey,
		model:    defaultMistralModel,
		endpoint: mistralEndpoint,
		client:   &http.Client{},
		retry:    resilience.FixedDelay(3, 2*time.Second),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.retry.OnRetry == nil {
		m.retry.OnRetry = resilience.RetryLogger("mistral", "ocr")
	}
	return m
}

type mistralRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// ExtractText uploads the PDF inline as a data URL and joins the returned
// pages with blank lines.
func (m *Mistral) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-configured directory
	if err != nil {
		return "", eris.Wrapf(err, "pdftext: read %s", path)
	}

	body, err := json.Marshal(mistralRequest{
		Model: m.model,
		Document: mistralDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "pdftext: marshal mistral request")
	}

	var respBody []byte
	err = resilience.Do(ctx, m.retry, func(ctx context.Context) error {
		var postErr error
		respBody, postErr = m.post(ctx, body)
		return postErr
	})
	if err != nil {
		return "", err
	}

	var parsed mistralResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", eris.Wrap(err, "pdftext: unmarshal mistral response")
	}

	pages := make([]string, 0, len(parsed.Pages))
	for _, p := range parsed.Pages {
		if text := strings.TrimSpace(p.Markdown); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// post sends one OCR request. Rate-limited and 5xx responses come back
// classified so the retry policy can tell them apart from permanent errors.
func (m *Mistral) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, resilience.Classify(eris.Wrap(err, "pdftext: mistral call"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: read mistral response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.Classify(
			eris.Errorf("pdftext: mistral returned %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode)
	}
	return respBody, nil
}
