package model

import "time"

// OutcomeStatus is the per-row result of a batch.
type OutcomeStatus string

const (
	OutcomeRecommended OutcomeStatus = "recommended"
	OutcomeExhausted   OutcomeStatus = "exhausted"
	OutcomeFailed      OutcomeStatus = "failed"
)

// ErrorKind classifies why a row failed or was degraded.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindSchema              ErrorKind = "schema"
	ErrorKindParse               ErrorKind = "parse"
	ErrorKindAdvisoryUnavailable ErrorKind = "advisory_unavailable"
	ErrorKindRateLimited         ErrorKind = "rate_limited"
	ErrorKindCanceled            ErrorKind = "canceled"
)

// Outcome is what happened to one input row.
type Outcome struct {
	Row       int             `json:"row" yaml:"row"`
	Lead      Lead            `json:"lead" yaml:"lead"`
	Position  Position        `json:"position" yaml:"position"`
	Status    OutcomeStatus   `json:"status" yaml:"status"`
	Advisory  *AdvisoryResult `json:"advisory,omitempty" yaml:"advisory,omitempty"`
	ErrorKind ErrorKind       `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failure is the diagnostic entry for one failed row.
type Failure struct {
	Row      int       `json:"row" yaml:"row"`
	DealName string    `json:"deal_name" yaml:"deal_name"`
	Kind     ErrorKind `json:"kind" yaml:"kind"`
	Message  string    `json:"message" yaml:"message"`
}

// Summary aggregates outcome counts for a batch.
type Summary struct {
	Total       int       `json:"total" yaml:"total"`
	Recommended int       `json:"recommended" yaml:"recommended"`
	Exhausted   int       `json:"exhausted" yaml:"exhausted"`
	Failed      int       `json:"failed" yaml:"failed"`
	Degraded    int       `json:"degraded" yaml:"degraded"`
	CacheHits   int       `json:"cache_hits" yaml:"cache_hits"`
	Failures    []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Summarize counts outcomes by status.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeRecommended:
			s.Recommended++
			if o.Advisory != nil {
				if o.Advisory.Degraded {
					s.Degraded++
				}
				if o.Advisory.Source == SourceCache {
					s.CacheHits++
				}
			}
		case OutcomeExhausted:
			s.Exhausted++
		case OutcomeFailed:
			s.Failed++
			s.Failures = append(s.Failures, Failure{
				Row:      o.Row,
				DealName: o.Lead.DealName,
				Kind:     o.ErrorKind,
				Message:  o.Error,
			})
		}
	}
	return s
}

// Batch is the aggregate result of one pipeline run.
type Batch struct {
	ID         string    `json:"id" yaml:"id"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
	Summary    Summary   `json:"summary" yaml:"summary"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}
