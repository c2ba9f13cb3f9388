package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSections_Plain(t *testing.T) {
	text := `DIAGNOSIS: The client is interested but worried about price.
STRATEGY: Send a short ROI comparison.
Offer a pilot.
RECOMMENDED ACTION: Book a 20 minute call this week.`

	out := ParseSections(text)
	require.True(t, out.OK(), out.Reason)
	assert.Equal(t, "The client is interested but worried about price.", out.Sections.Diagnosis)
	assert.Equal(t, "Send a short ROI comparison.\nOffer a pilot.", out.Sections.Strategy)
	assert.Equal(t, "Book a 20 minute call this week.", out.Sections.RecommendedAction)
}

func TestParseSections_MarkdownVariants(t *testing.T) {
	tests := map[string]string{
		"bold labels": "**DIAGNOSIS:** cooling off\n**STRATEGY:** case study\n**RECOMMENDED ACTION:** call",
		"bold with colon outside": "**Diagnosis**: cooling off\n**Strategy**: case study\n**Recommended Action**: call",
		"headings": "## DIAGNOSIS\ncooling off\n\n## STRATEGY\ncase study\n\n## RECOMMENDED ACTION\ncall",
		"numbered": "1. DIAGNOSIS: cooling off\n2. STRATEGY: case study\n3. RECOMMENDED ACTION: call",
		"next action alias": "DIAGNOSIS: cooling off\nSTRATEGY: case study\nNEXT ACTION: call",
		"preamble ignored": "Here is my analysis.\n\nDIAGNOSIS: cooling off\nSTRATEGY: case study\nRECOMMENDED ACTION: call",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			out := ParseSections(text)
			require.True(t, out.OK(), out.Reason)
			assert.Equal(t, "cooling off", out.Sections.Diagnosis)
			assert.Equal(t, "case study", out.Sections.Strategy)
			assert.Equal(t, "call", out.Sections.RecommendedAction)
		})
	}
}

func TestParseSections_Malformed(t *testing.T) {
	tests := map[string]string{
		"missing action": "DIAGNOSIS: a\nSTRATEGY: b",
		"duplicate":      "DIAGNOSIS: a\nDIAGNOSIS: again\nSTRATEGY: b\nRECOMMENDED ACTION: c",
		"empty section":  "DIAGNOSIS:\nSTRATEGY: b\nRECOMMENDED ACTION: c",
		"free text":      "Call the client tomorrow and offer a discount.",
		"empty":          "",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			out := ParseSections(text)
			assert.False(t, out.OK())
			assert.Equal(t, ParseMalformed, out.Kind)
			assert.Equal(t, text, out.Raw)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

func TestParseSections_LabelInsideSentenceIsText(t *testing.T) {
	text := "DIAGNOSIS: a\nStrategy is what matters here.\nSTRATEGY: b\nRECOMMENDED ACTION: c"
	out := ParseSections(text)
	require.True(t, out.OK(), out.Reason)
	assert.Equal(t, "a\nStrategy is what matters here.", out.Sections.Diagnosis)
}
