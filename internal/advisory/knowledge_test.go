package advisory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePDFReader map[string]string

func (f fakePDFReader) ExtractText(_ context.Context, path string) (string, error) {
	text, ok := f[filepath.Base(path)]
	if !ok {
		return "", errors.New("unreadable pdf")
	}
	return text, nil
}

func writeKnowledge(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoadKnowledge(t *testing.T) {
	dir := writeKnowledge(t, map[string]string{
		"b_pricing.md":   "# Pricing\nPlans start at 99.",
		"a_products.txt": "Fleet telematics.",
		"deck.pdf":       "%PDF",
		"empty.txt":      "  \n",
		"notes.docx":     "ignored",
	})

	text, err := LoadKnowledge(context.Background(), dir, 0, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "=== a_products.txt ===\nFleet telematics."))
	assert.Contains(t, text, "=== b_pricing.md ===\n# Pricing\nPlans start at 99.")
	assert.NotContains(t, text, "deck.pdf")
	assert.NotContains(t, text, "empty.txt")
	assert.NotContains(t, text, "notes.docx")
}

func TestLoadKnowledge_PDFs(t *testing.T) {
	dir := writeKnowledge(t, map[string]string{
		"a_playbook.pdf": "%PDF",
		"b_scanned.pdf":  "%PDF",
		"c_faq.txt":      "Trial lasts 14 days.",
	})
	reader := fakePDFReader{"a_playbook.pdf": "  Always propose a date.\n"}

	text, err := LoadKnowledge(context.Background(), dir, 0, reader)
	require.NoError(t, err)
	assert.Equal(t, "=== a_playbook.pdf ===\nAlways propose a date.\n\n=== c_faq.txt ===\nTrial lasts 14 days.", text)
}

func TestLoadKnowledge_Canceled(t *testing.T) {
	dir := writeKnowledge(t, map[string]string{"deck.pdf": "%PDF"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadKnowledge(ctx, dir, 0, fakePDFReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadKnowledge_Truncates(t *testing.T) {
	dir := writeKnowledge(t, map[string]string{"long.txt": strings.Repeat("é", 500)})

	text, err := LoadKnowledge(context.Background(), dir, 100, nil)
	require.NoError(t, err)
	assert.Len(t, []rune(text), 100)
}

func TestLoadKnowledge_MissingDir(t *testing.T) {
	text, err := LoadKnowledge(context.Background(), filepath.Join(t.TempDir(), "nope"), 100, nil)
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = LoadKnowledge(context.Background(), "", 100, nil)
	require.NoError(t, err)
	assert.Empty(t, text)
}
