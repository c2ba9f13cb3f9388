// Package pdftext reads the text of knowledge-base PDFs.
package pdftext

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/followup-cli/internal/config"
)

// Extractor returns the plain text of a PDF file.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// New returns the Extractor selected by cfg. The "none" provider returns a
// nil Extractor, which leaves PDFs out of the knowledge base.
func New(cfg config.PDFConfig, mistralKey string) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocal(cfg.PdfToTextPath), nil
	case "mistral":
		if mistralKey == "" {
			return nil, eris.New("pdftext: mistral provider requires mistral.key")
		}
		return NewMistral(mistralKey), nil
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("pdftext: unknown provider %q", cfg.Provider)
	}
}
