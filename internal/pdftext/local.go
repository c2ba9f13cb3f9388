package pdftext

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// Local extracts text with the poppler pdftotext CLI.
type Local struct {
	binPath string
}

// NewLocal creates a Local extractor. An empty binPath runs "pdftotext"
// from PATH.
func NewLocal(binPath string) *Local {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &Local{binPath: binPath}
}

// ExtractText runs pdftotext in UTF-8 mode and joins the pages with blank
// lines.
func (l *Local) ExtractText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, l.binPath, "-enc", "UTF-8", path, "-") //nolint:gosec // operator-configured binary

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftext: pdftotext failed for %s: %s", path, strings.TrimSpace(stderr.String()))
	}

	pages := strings.Split(stdout.String(), "\f")
	kept := pages[:0]
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n"), nil
}
