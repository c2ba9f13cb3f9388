package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/followup-cli/internal/model"
)

// WriteMarkdown writes a printable report of b: the summary, then each
// owner's leads with their recommendation, then the failures.
func WriteMarkdown(w io.Writer, b *model.Batch, opts Options) error {
	v := Dashboard(b, opts)
	var sb strings.Builder

	title := "Follow-up Advisory Report"
	if opts.Owner != "" {
		title += ": " + opts.Owner
	}
	fmt.Fprintf(&sb, "# %s\n", title)
	if v.Source != "" {
		fmt.Fprintf(&sb, "Source: %s\n", v.Source)
	}
	fmt.Fprintf(&sb, "Batch: %s\n", v.BatchID)
	if !v.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "Generated: %s\n", v.FinishedAt.Format("2006-01-02 15:04 MST"))
	}
	sb.WriteString("\n")

	s := v.Summary
	sb.WriteString("## Summary\n")
	fmt.Fprintf(&sb, "- Leads: %d\n", s.Total)
	fmt.Fprintf(&sb, "- Recommendations: %d (%d from cache, %d degraded)\n", s.Recommended, s.CacheHits, s.Degraded)
	fmt.Fprintf(&sb, "- Follow-ups exhausted: %d\n", s.Exhausted)
	fmt.Fprintf(&sb, "- Failed: %d\n", s.Failed)
	if v.Hidden > 0 {
		fmt.Fprintf(&sb, "- Hidden by filters: %d\n", v.Hidden)
	}
	sb.WriteString("\n")

	for _, g := range v.Owners {
		fmt.Fprintf(&sb, "## %s\n", g.Owner)
		fmt.Fprintf(&sb, "%d leads: %d recommended, %d exhausted, %d failed\n\n", g.Total, g.Recommended, g.Exhausted, g.Failed)
		for _, o := range g.Outcomes {
			writeOutcome(&sb, o)
		}
	}

	if len(s.Failures) > 0 {
		sb.WriteString("## Failures\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&sb, "- Row %d (%s): %s: %s\n", f.Row, f.DealName, f.Kind, f.Message)
		}
		sb.WriteString("\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return eris.Wrap(err, "report: write markdown")
	}
	return nil
}

func writeOutcome(sb *strings.Builder, o model.Outcome) {
	name := o.Lead.Company
	if name == "" {
		name = o.Lead.DealName
	}
	fmt.Fprintf(sb, "### %s\n", name)
	if o.Lead.DealName != "" && o.Lead.DealName != name {
		fmt.Fprintf(sb, "- Deal: %s\n", o.Lead.DealName)
	}
	fmt.Fprintf(sb, "- Phase: %s\n", o.Lead.Phase)
	fmt.Fprintf(sb, "- Temperature: %s\n", o.Lead.CurrentTemperature(o.Position).Label())

	switch o.Status {
	case model.OutcomeExhausted:
		fmt.Fprintf(sb, "- Follow-ups: all %d completed, no further follow-up planned\n\n", model.MaxFollowUps)
		return
	case model.OutcomeFailed:
		fmt.Fprintf(sb, "- Follow-up %d: no recommendation (%s)\n\n", o.Position.Next, o.ErrorKind)
		return
	}

	fmt.Fprintf(sb, "- Last completed follow-up: %d, next: %d\n\n", o.Position.LastCompleted, o.Position.Next)
	if o.Advisory == nil {
		return
	}
	a := o.Advisory
	if a.Degraded {
		sb.WriteString("_The answer could not be split into sections; raw text follows._\n\n")
		sb.WriteString(a.Strategy)
		sb.WriteString("\n\n")
		return
	}
	fmt.Fprintf(sb, "**Diagnosis:** %s\n\n", a.Diagnosis)
	fmt.Fprintf(sb, "**Strategy:** %s\n\n", a.Strategy)
	fmt.Fprintf(sb, "**Recommended action:** %s\n\n", a.RecommendedAction)
}
