// Package pipeline runs a batch of CRM rows through normalization, position
// resolution and advisory generation.
package pipeline

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/followup-cli/internal/advisory"
	"github.com/sells-group/followup-cli/internal/lead"
	"github.com/sells-group/followup-cli/internal/model"
)

// Advisor produces the advisory for one request. *advisory.Advisor
// implements it.
type Advisor interface {
	Advise(ctx context.Context, req model.AdvisoryRequest) (model.AdvisoryResult, error)
}

// Options configures a Pipeline.
type Options struct {
	// Concurrency is the number of rows processed at once. Values below 1
	// mean sequential processing.
	Concurrency int
	// Source names the input (file name) on the resulting batch.
	Source string
}

// Pipeline sequences the per-row stages and aggregates the results.
type Pipeline struct {
	advisor Advisor
	opts    Options
}

// New creates a Pipeline that asks advisor for recommendations.
func New(advisor Advisor, opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{advisor: advisor, opts: opts}
}

// Run processes records and returns one outcome per record, in input order.
//
// The column set of every record is validated first; a *lead.SchemaError
// aborts the batch before any row is processed. Row failures never abort
// the batch. When ctx ends, rows not yet started are marked canceled and Run
// returns the partial batch together with the context error.
func (p *Pipeline) Run(ctx context.Context, records []map[string]string) (*model.Batch, error) {
	if err := validateRecords(records); err != nil {
		return nil, eris.Wrap(err, "pipeline: validate columns")
	}

	batch := &model.Batch{
		ID:        uuid.NewString(),
		Source:    p.opts.Source,
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(zap.String("batch_id", batch.ID), zap.String("source", batch.Source))
	log.Info("pipeline: starting batch",
		zap.Int("rows", len(records)),
		zap.Int("concurrency", p.opts.Concurrency),
	)

	outcomes := make([]model.Outcome, len(records))
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, rec := range records {
		row := i + 1
		if ctx.Err() != nil {
			outcomes[i] = canceledOutcome(row, rec)
			continue
		}
		g.Go(func() error {
			outcomes[i] = p.processRow(ctx, row, rec)
			return nil
		})
	}
	_ = g.Wait()

	batch.Outcomes = outcomes
	batch.Summary = model.Summarize(outcomes)
	batch.FinishedAt = time.Now().UTC()

	s := batch.Summary
	log.Info("pipeline: batch complete",
		zap.Int("total", s.Total),
		zap.Int("recommended", s.Recommended),
		zap.Int("exhausted", s.Exhausted),
		zap.Int("failed", s.Failed),
		zap.Int("degraded", s.Degraded),
		zap.Int("cache_hits", s.CacheHits),
		zap.Duration("elapsed", batch.FinishedAt.Sub(batch.StartedAt)),
	)
	for _, f := range s.Failures {
		log.Warn("pipeline: row failed",
			zap.Int("row", f.Row),
			zap.String("deal", f.DealName),
			zap.String("kind", string(f.Kind)),
			zap.String("error", f.Message),
		)
	}

	if err := ctx.Err(); err != nil {
		return batch, eris.Wrap(err, "pipeline: batch interrupted")
	}
	return batch, nil
}

func (p *Pipeline) processRow(ctx context.Context, row int, rec map[string]string) model.Outcome {
	if ctx.Err() != nil {
		return canceledOutcome(row, rec)
	}

	l, err := lead.Normalize(rec)
	if err != nil {
		return model.Outcome{
			Row:       row,
			Lead:      l,
			Status:    model.OutcomeFailed,
			ErrorKind: model.ErrorKindSchema,
			Error:     err.Error(),
		}
	}

	pos := lead.Resolve(l)
	o := model.Outcome{Row: row, Lead: l, Position: pos}
	if pos.Exhausted() {
		o.Status = model.OutcomeExhausted
		return o
	}

	res, err := p.advisor.Advise(ctx, model.NewAdvisoryRequest(l, pos))
	switch {
	case err == nil:
		o.Status = model.OutcomeRecommended
		o.Advisory = &res
	case res.Degraded:
		o.Status = model.OutcomeRecommended
		o.Advisory = &res
		o.ErrorKind = advisory.Kind(err)
		o.Error = err.Error()
	default:
		o.Status = model.OutcomeFailed
		o.ErrorKind = advisory.Kind(err)
		o.Error = err.Error()
	}
	return o
}

func canceledOutcome(row int, rec map[string]string) model.Outcome {
	l, _ := lead.Normalize(rec)
	return model.Outcome{
		Row:       row,
		Lead:      l,
		Position:  lead.Resolve(l),
		Status:    model.OutcomeFailed,
		ErrorKind: model.ErrorKindCanceled,
		Error:     "canceled before processing",
	}
}

// validateRecords checks the column set of every record, once per distinct
// set.
func validateRecords(records []map[string]string) error {
	seen := make(map[string]struct{})
	for _, rec := range records {
		headers := make([]string, 0, len(rec))
		for h := range rec {
			headers = append(headers, h)
		}
		sort.Strings(headers)
		key := strings.Join(headers, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		if err := lead.ValidateColumns(headers); err != nil {
			return err
		}
		seen[key] = struct{}{}
	}
	return nil
}
