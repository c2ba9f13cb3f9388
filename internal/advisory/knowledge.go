package advisory

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultKnowledgeMaxChars bounds the knowledge text sent with every prompt.
const DefaultKnowledgeMaxChars = 10000

// PDFReader returns the text of a PDF file.
type PDFReader interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// LoadKnowledge concatenates the .txt, .md and .pdf files in dir, each under
// a header with its file name, and truncates the result to maxChars runes. A
// missing directory yields empty knowledge. PDFs are read with pdf; a nil
// pdf skips them, and a PDF that cannot be read is logged and skipped.
func LoadKnowledge(ctx context.Context, dir string, maxChars int, pdf PDFReader) (string, error) {
	if dir == "" {
		return "", nil
	}
	if maxChars <= 0 {
		maxChars = DefaultKnowledgeMaxChars
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		zap.L().Debug("knowledge base directory not found", zap.String("dir", dir))
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "advisory: read knowledge dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			names = append(names, e.Name())
		case ".pdf":
			if pdf == nil {
				zap.L().Debug("knowledge base: pdf skipped, no reader configured", zap.String("file", e.Name()))
				continue
			}
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var b strings.Builder
	loaded := 0
	for _, name := range names {
		body, err := readKnowledgeFile(ctx, filepath.Join(dir, name), pdf)
		if err != nil {
			if ctx.Err() != nil {
				return "", eris.Wrap(ctx.Err(), "advisory: load knowledge")
			}
			if strings.EqualFold(filepath.Ext(name), ".pdf") {
				zap.L().Warn("knowledge base: pdf unreadable, skipped", zap.String("file", name), zap.Error(err))
				continue
			}
			return "", eris.Wrapf(err, "advisory: read knowledge file %s", name)
		}
		if body == "" {
			continue
		}
		b.WriteString("=== ")
		b.WriteString(name)
		b.WriteString(" ===\n")
		b.WriteString(body)
		b.WriteString("\n\n")
		loaded++
	}

	text := strings.TrimSpace(b.String())
	if r := []rune(text); len(r) > maxChars {
		text = string(r[:maxChars])
	}
	zap.L().Info("knowledge base loaded",
		zap.String("dir", dir),
		zap.Int("files", loaded),
		zap.Int("chars", len([]rune(text))),
	)
	return text, nil
}

func readKnowledgeFile(ctx context.Context, path string, pdf PDFReader) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := pdf.ExtractText(ctx, path)
		return strings.TrimSpace(text), err
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-configured directory
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
