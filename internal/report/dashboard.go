// Package report renders batch results as a dashboard view and as printable
// or exportable reports.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/sells-group/followup-cli/internal/lead"
	"github.com/sells-group/followup-cli/internal/model"
)

// DefaultHiddenPhases are early-funnel phases left out of reports: leads
// there have no meaningful follow-up history yet.
var DefaultHiddenPhases = []string{"oportunidade", "contato", "conectado", "reunião"}

// UnassignedOwner groups outcomes whose lead has no owner.
const UnassignedOwner = "Unassigned"

// Options selects which outcomes a report shows.
type Options struct {
	// HiddenPhases are matched accent- and case-insensitively as substrings
	// of the lead phase.
	HiddenPhases []string
	// Owner restricts the report to one salesperson; empty shows all.
	Owner string
}

// Visible reports whether o passes the phase and owner filters.
func (opts Options) Visible(o model.Outcome) bool {
	phase := fold(o.Lead.Phase)
	for _, h := range opts.HiddenPhases {
		if h = fold(h); h != "" && strings.Contains(phase, h) {
			return false
		}
	}
	if opts.Owner != "" && fold(ownerName(o)) != fold(opts.Owner) {
		return false
	}
	return true
}

// OwnerGroup is the dashboard section of one salesperson.
type OwnerGroup struct {
	Owner        string          `json:"owner" yaml:"owner"`
	Total        int             `json:"total" yaml:"total"`
	Recommended  int             `json:"recommended" yaml:"recommended"`
	Exhausted    int             `json:"exhausted" yaml:"exhausted"`
	Failed       int             `json:"failed" yaml:"failed"`
	Temperatures map[string]int  `json:"temperatures" yaml:"temperatures"`
	Outcomes     []model.Outcome `json:"outcomes" yaml:"outcomes"`
}

// View is the dashboard of a batch after filtering.
type View struct {
	BatchID    string        `json:"batch_id" yaml:"batch_id"`
	Source     string        `json:"source,omitempty" yaml:"source,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Summary    model.Summary `json:"summary" yaml:"summary"`
	// Hidden counts outcomes removed by the filters.
	Hidden int          `json:"hidden" yaml:"hidden"`
	Owners []OwnerGroup `json:"owners" yaml:"owners"`
}

// Dashboard groups the visible outcomes of b by owner. Owner names are
// matched accent- and case-insensitively, and a group keeps the first
// spelling seen. Owners are sorted by name; outcomes keep batch order.
func Dashboard(b *model.Batch, opts Options) View {
	v := View{
		BatchID:    b.ID,
		Source:     b.Source,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
		Owners:     []OwnerGroup{},
	}

	visible := make([]model.Outcome, 0, len(b.Outcomes))
	groups := map[string]*OwnerGroup{}
	for _, o := range b.Outcomes {
		if !opts.Visible(o) {
			v.Hidden++
			continue
		}
		visible = append(visible, o)

		name := ownerName(o)
		key := fold(name)
		g, ok := groups[key]
		if !ok {
			g = &OwnerGroup{Owner: name, Temperatures: map[string]int{}}
			groups[key] = g
		}
		g.Total++
		switch o.Status {
		case model.OutcomeRecommended:
			g.Recommended++
		case model.OutcomeExhausted:
			g.Exhausted++
		case model.OutcomeFailed:
			g.Failed++
		}
		g.Temperatures[o.Lead.CurrentTemperature(o.Position).Label()]++
		g.Outcomes = append(g.Outcomes, o)
	}
	v.Summary = model.Summarize(visible)

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Owners = append(v.Owners, *groups[k])
	}
	return v
}

// Owner returns the group of the named owner, matched accent-insensitively.
func (v View) Owner(name string) (OwnerGroup, bool) {
	for _, g := range v.Owners {
		if fold(g.Owner) == fold(name) {
			return g, true
		}
	}
	return OwnerGroup{}, false
}

func ownerName(o model.Outcome) string {
	if n := strings.TrimSpace(o.Lead.Owner); n != "" {
		return n
	}
	return UnassignedOwner
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(lead.Fold(s)))
}
