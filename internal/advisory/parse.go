package advisory

import (
	"regexp"
	"strings"
)

// ParseKind tags the result of ParseSections.
type ParseKind int

const (
	// ParseOK means all three sections were found exactly once.
	ParseOK ParseKind = iota
	// ParseMalformed means the text could not be split; Raw holds it.
	ParseMalformed
)

// Sections is a parsed advisory.
type Sections struct {
	Diagnosis         string
	Strategy          string
	RecommendedAction string
}

// ParseOutcome is either ParseOK with Sections or ParseMalformed with Raw.
type ParseOutcome struct {
	Kind     ParseKind
	Sections Sections
	Raw      string
	// Reason explains a malformed result.
	Reason string
}

// OK reports whether the text was split into three sections.
func (p ParseOutcome) OK() bool { return p.Kind == ParseOK }

const labelPattern = `(DIAGNOSIS|STRATEGY|RECOMMENDED\s+ACTION|NEXT\s+ACTION)`

// labelLineRe matches "LABEL: text" at the start of a line, tolerating list
// numbering, markdown headings and bold markers around the label.
var labelLineRe = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?(?:\*\*|__)?\s*(?:\d+\s*[.)]\s*)?(?:\*\*|__)?\s*` + labelPattern + `\s*(?:\*\*|__)?\s*:\s*(?:\*\*|__)?\s*(.*)$`)

// headingLineRe matches a label standing alone as a markdown heading or in
// bold, without a colon.
var headingLineRe = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*|\*\*|__)(?:\d+\s*[.)]\s*)?` + labelPattern + `\s*(?:\*\*|__)?\s*()$`)

func matchHeading(line string) []string {
	if m := labelLineRe.FindStringSubmatch(line); m != nil {
		return m
	}
	return headingLineRe.FindStringSubmatch(line)
}

func sectionKey(label string) string {
	label = strings.ToUpper(strings.Join(strings.Fields(label), " "))
	if label == "NEXT ACTION" {
		return LabelAction
	}
	return label
}

// ParseSections splits model output into diagnosis, strategy and recommended
// action. Any missing, repeated or empty section yields ParseMalformed.
func ParseSections(text string) ParseOutcome {
	malformed := func(reason string) ParseOutcome {
		return ParseOutcome{Kind: ParseMalformed, Raw: text, Reason: reason}
	}

	bodies := make(map[string]*strings.Builder, 3)
	var current *strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if m := matchHeading(line); m != nil {
			key := sectionKey(m[1])
			if _, dup := bodies[key]; dup {
				return malformed("section " + key + " appears more than once")
			}
			current = &strings.Builder{}
			bodies[key] = current
			current.WriteString(m[2])
			current.WriteString("\n")
			continue
		}
		if current != nil {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	var s Sections
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{LabelDiagnosis, &s.Diagnosis},
		{LabelStrategy, &s.Strategy},
		{LabelAction, &s.RecommendedAction},
	} {
		b, ok := bodies[f.label]
		if !ok {
			return malformed("missing section " + f.label)
		}
		*f.dst = strings.TrimSpace(b.String())
		if *f.dst == "" {
			return malformed("empty section " + f.label)
		}
	}

	return ParseOutcome{Kind: ParseOK, Sections: s, Raw: text}
}
