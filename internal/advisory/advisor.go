package advisory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/followup-cli/internal/model"
	"github.com/sells-group/followup-cli/internal/resilience"
)

// Options configures an Advisor.
type Options struct {
	// Models lists the model identifiers in preference order. The first is
	// used until the endpoint reports it unavailable.
	Models []string
	// Retry is the retry policy for live calls. ShouldRetry defaults to
	// resilience.IsRetriable.
	Retry resilience.RetryConfig
	// MinInterval is the minimum spacing between live calls, shared by all
	// callers of the Advisor. Zero disables pacing.
	MinInterval time.Duration
	// CallTimeout bounds a single live attempt. Zero means no per-call bound.
	CallTimeout time.Duration
	// Knowledge is appended to the system prompt.
	Knowledge string
}

// Advisor produces advisories for follow-up requests. It consults the cache,
// paces and retries live calls, and parses the model's answer.
type Advisor struct {
	gen         Generator
	cache       Cache
	retry       resilience.RetryConfig
	limiter     *rate.Limiter
	callTimeout time.Duration
	knowledge   string

	mu       sync.Mutex
	models   []string
	modelIdx int

	flight singleflight.Group
}

// NewAdvisor creates an Advisor. A nil cache is replaced by an unbounded
// in-memory cache.
func NewAdvisor(gen Generator, cache Cache, opts Options) (*Advisor, error) {
	if gen == nil {
		return nil, eris.New("advisory: generator is required")
	}
	models := make([]string, 0, len(opts.Models))
	for _, m := range opts.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return nil, eris.New("advisory: at least one model is required")
	}
	if cache == nil {
		mc, err := NewMemoryCache(CacheOptions{Policy: EvictNone})
		if err != nil {
			return nil, err
		}
		cache = mc
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	retry := opts.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = resilience.IsRetriable
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("advisor", "generate")
	}

	return &Advisor{
		gen:         gen,
		cache:       cache,
		retry:       retry,
		limiter:     rate.NewLimiter(limit, 1),
		callTimeout: opts.CallTimeout,
		knowledge:   opts.Knowledge,
		models:      models,
	}, nil
}

// Model returns the model identifier currently in use.
func (a *Advisor) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.models[a.modelIdx]
}

// Cache returns the advisory cache.
func (a *Advisor) Cache() Cache { return a.cache }

type flightResult struct {
	res model.AdvisoryResult
	err error
	// abandoned is set when the leader's own context ended the call.
	abandoned bool
}

// Advise returns the advisory for req. A cached answer is returned with
// Source=cache and no live call. Otherwise the model is called under the
// retry policy and pacing; a well-formed answer is cached and returned with
// Source=live.
//
// When the answer stays malformed after one stricter retry, Advise returns a
// degraded result together with a *ParseError. When no answer can be
// obtained it returns an *UnavailableError.
func (a *Advisor) Advise(ctx context.Context, req model.AdvisoryRequest) (model.AdvisoryResult, error) {
	fp := Fingerprint(req)
	if res, ok := a.cache.Get(fp); ok {
		res.Source = model.SourceCache
		return res, nil
	}

	for {
		leader := false
		v, _, _ := a.flight.Do(fp, func() (any, error) {
			leader = true
			res, err := a.adviseLive(ctx, req, fp)
			return flightResult{res: res, err: err, abandoned: err != nil && ctx.Err() != nil}, nil
		})
		fr := v.(flightResult)
		if leader {
			return fr.res, fr.err
		}
		// The leader's caller went away; a follower still waiting takes over.
		if fr.abandoned && ctx.Err() == nil {
			continue
		}
		if fr.err == nil {
			fr.res.Source = model.SourceCache
		}
		return fr.res, fr.err
	}
}

func (a *Advisor) adviseLive(ctx context.Context, req model.AdvisoryRequest, fp string) (model.AdvisoryResult, error) {
	log := zap.L().With(zap.String("deal", req.DealName), zap.Int("follow_up", req.NextIndex))

	c, err := a.generate(ctx, BuildPrompt(req, a.knowledge, false))
	if err != nil {
		return model.AdvisoryResult{}, err
	}

	parsed := ParseSections(c.Text)
	if !parsed.OK() {
		log.Warn("advisor: malformed answer, retrying with strict prompt", zap.String("reason", parsed.Reason))
		strict, serr := a.generate(ctx, BuildPrompt(req, a.knowledge, true))
		switch {
		case serr == nil:
			c = strict
			parsed = ParseSections(strict.Text)
		case ctx.Err() != nil:
			return model.AdvisoryResult{}, serr
		default:
			log.Warn("advisor: strict retry failed, keeping first answer", zap.Error(serr))
		}
	}

	if !parsed.OK() {
		log.Warn("advisor: returning degraded advisory", zap.String("reason", parsed.Reason))
		return model.AdvisoryResult{
			Strategy: strings.TrimSpace(parsed.Raw),
			Source:   model.SourceLive,
			Model:    c.Model,
			Degraded: true,
		}, &ParseError{Reason: parsed.Reason, Raw: parsed.Raw}
	}

	res := model.AdvisoryResult{
		Diagnosis:         parsed.Sections.Diagnosis,
		Strategy:          parsed.Sections.Strategy,
		RecommendedAction: parsed.Sections.RecommendedAction,
		Source:            model.SourceLive,
		Model:             c.Model,
	}
	a.cache.Put(fp, res)
	return res, nil
}

// generate performs one logical model call: paced, retried, with model
// fallback. Exhausted or non-retriable failures become *UnavailableError.
func (a *Advisor) generate(ctx context.Context, p Prompt) (Completion, error) {
	attempts := 0
	c, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (Completion, error) {
		attempts++
		if err := a.limiter.Wait(ctx); err != nil {
			return Completion{}, eris.Wrap(err, "advisor: wait for rate limiter")
		}
		return a.callWithFallback(ctx, p)
	})
	if err == nil {
		return c, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Completion{}, eris.Wrap(ctxErr, "advisor: generate")
	}
	return Completion{}, newUnavailable(attempts, err)
}

// callWithFallback calls the current model and moves on to the next
// configured model when the endpoint reports the current one unavailable.
// Switching models does not count as a retry attempt.
func (a *Advisor) callWithFallback(ctx context.Context, p Prompt) (Completion, error) {
	for {
		modelID := a.Model()
		c, err := a.call(ctx, modelID, p)
		var mu *ModelUnavailableError
		if errors.As(err, &mu) && a.advanceModel(modelID) {
			continue
		}
		return c, err
	}
}

func (a *Advisor) call(ctx context.Context, modelID string, p Prompt) (Completion, error) {
	callCtx := ctx
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	c, err := a.gen.Generate(callCtx, modelID, p)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Completion{}, resilience.NewTransientError(
				eris.Wrapf(err, "advisor: call timed out after %s", a.callTimeout), 0)
		}
		return Completion{}, err
	}
	if strings.TrimSpace(c.Text) == "" {
		return Completion{}, resilience.NewTransientError(errEmptyResponse, 0)
	}
	if c.Model == "" {
		c.Model = modelID
	}
	return c, nil
}

// advanceModel switches away from failed if it is still the current model.
// It reports whether a different model is now current.
func (a *Advisor) advanceModel(failed string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.models[a.modelIdx] != failed {
		return true
	}
	if a.modelIdx+1 >= len(a.models) {
		return false
	}
	a.modelIdx++
	zap.L().Warn("advisor: model unavailable, switching to fallback",
		zap.String("from", failed),
		zap.String("to", a.models[a.modelIdx]),
	)
	return true
}
