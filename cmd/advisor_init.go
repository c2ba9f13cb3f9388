package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/followup-cli/internal/advisory"
	"github.com/sells-group/followup-cli/internal/pdftext"
	"github.com/sells-group/followup-cli/internal/resilience"
	"github.com/sells-group/followup-cli/pkg/anthropic"
	"github.com/sells-group/followup-cli/pkg/gemini"
)

const offlineModel = "offline-stub"

// initAdvisor builds the advisor described by cfg. Offline advisors use the
// canned generator and skip pacing.
func initAdvisor(ctx context.Context, offline bool) (*advisory.Advisor, error) {
	cache, err := initCache()
	if err != nil {
		return nil, err
	}

	pdf, err := pdftext.New(cfg.PDF, cfg.Mistral.Key)
	if err != nil {
		return nil, eris.Wrap(err, "init pdf reader")
	}
	knowledge, err := advisory.LoadKnowledge(ctx, cfg.Advisor.KnowledgeDir, cfg.Advisor.KnowledgeMaxChars, pdf)
	if err != nil {
		return nil, eris.Wrap(err, "load knowledge base")
	}

	opts := advisory.Options{
		Models:      cfg.Advisor.Models(),
		Retry:       resilience.FixedDelay(cfg.Advisor.MaxAttempts, cfg.Advisor.RetryDelay()),
		MinInterval: cfg.Advisor.MinCallInterval(),
		CallTimeout: cfg.Advisor.CallTimeout(),
		Knowledge:   knowledge,
	}

	var gen advisory.Generator
	if offline {
		gen = advisory.StubGenerator{}
		opts.Models = []string{offlineModel}
		opts.Retry = resilience.FixedDelay(1, 0)
		opts.MinInterval = 0
	} else {
		gen, err = initGenerator(ctx)
		if err != nil {
			return nil, err
		}
	}

	adv, err := advisory.NewAdvisor(gen, cache, opts)
	if err != nil {
		return nil, eris.Wrap(err, "init advisor")
	}

	zap.L().Info("advisor ready",
		zap.String("provider", providerName(offline)),
		zap.String("model", adv.Model()),
		zap.Strings("fallback_models", opts.Models[1:]),
		zap.String("cache_policy", cfg.Cache.Policy),
		zap.Int("knowledge_chars", len([]rune(knowledge))),
	)
	return adv, nil
}

func initCache() (*advisory.MemoryCache, error) {
	policy, err := advisory.ParseEvictionPolicy(cfg.Cache.Policy)
	if err != nil {
		return nil, err
	}
	cache, err := advisory.NewMemoryCache(advisory.CacheOptions{
		Policy:     policy,
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init advisory cache")
	}
	return cache, nil
}

func initGenerator(ctx context.Context) (advisory.Generator, error) {
	genOpts := advisory.GenerationOptions{
		MaxTokens:   cfg.Advisor.MaxTokens,
		Temperature: cfg.Advisor.Temperature,
		CacheTTL:    cfg.Advisor.PromptCacheTTL,
	}

	switch cfg.Advisor.Provider {
	case "anthropic":
		return advisory.NewAnthropicGenerator(anthropic.NewClient(cfg.Anthropic.Key), genOpts), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, eris.Wrap(err, "init gemini client")
		}
		return advisory.NewGeminiGenerator(client, genOpts), nil
	}
	return nil, eris.Errorf("unsupported advisor provider %q", cfg.Advisor.Provider)
}

func providerName(offline bool) string {
	if offline {
		return "offline"
	}
	return cfg.Advisor.Provider
}
