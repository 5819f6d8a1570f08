package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/discovery"
	"github.com/sells-group/leadgen-cli/internal/extraction"
	"github.com/sells-group/leadgen-cli/internal/ledger"
	"github.com/sells-group/leadgen-cli/internal/llm"
	"github.com/sells-group/leadgen-cli/internal/scrape"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/internal/synthesis"
	"github.com/sells-group/leadgen-cli/pkg/customsearch"
	"github.com/sells-group/leadgen-cli/pkg/firecrawl"
)

// stageEnv holds the clients shared by the stage commands. Store may be nil
// when run history cannot be opened.
type stageEnv struct {
	Ledger ledger.Ledger
	Store  store.Store
}

// Close releases resources held by the environment.
func (e *stageEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
	if e.Ledger != nil {
		_ = e.Ledger.Close()
	}
}

// initEnv validates cfg for mode and opens the ledger and run store.
// Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*stageEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	l, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}

	return &stageEnv{Ledger: l, Store: openRunStore(ctx, cfg.Store)}, nil
}

// openRunStore opens run history. History is optional: failures are logged
// and batches run untracked.
func openRunStore(ctx context.Context, sc config.StoreConfig) store.Store {
	st, err := store.Open(ctx, sc)
	if err != nil {
		zap.L().Warn("run history unavailable", zap.String("driver", sc.Driver), zap.Error(err))
		return nil
	}
	return st
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func newDiscoveryEngine(ctx context.Context, c *config.Config, l ledger.Ledger) (*discovery.Engine, error) {
	var opts []customsearch.Option
	if c.Google.BaseURL != "" {
		opts = append(opts, customsearch.WithBaseURL(c.Google.BaseURL))
	}
	searcher, err := customsearch.NewClient(ctx, c.Google.APIKey, c.Google.SearchEngineID, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "init search client")
	}
	return discovery.NewEngine(searcher, l, discovery.Config{
		PageSize:      c.Discovery.PageSize,
		MaxResults:    c.Discovery.MaxResults,
		DefaultTarget: c.Discovery.DefaultTarget,
		PageDelay:     ms(c.Discovery.PageDelayMs),
	}), nil
}

func extractionConfig(c *config.Config) extraction.Config {
	return extraction.Config{
		MaxAttempts:    c.Extraction.MaxAttempts,
		AttemptTimeout: secs(c.Extraction.AttemptTimeoutSecs),
		Backoff:        ms(c.Extraction.BackoffMs),
		RecordDelay:    ms(c.Extraction.RecordDelayMs),
	}
}

func newExtractionPipeline(c *config.Config, l ledger.Ledger) *extraction.Pipeline {
	fc := firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
	var pollOpts []firecrawl.PollOption
	if c.Firecrawl.PollIntervalMs > 0 {
		pollOpts = append(pollOpts, firecrawl.WithPollInterval(ms(c.Firecrawl.PollIntervalMs)))
	}
	return extraction.New(l, extraction.NewFirecrawlExtractor(fc, pollOpts...), extractionConfig(c))
}

func synthesisConfig(c *config.Config) synthesis.Config {
	return synthesis.Config{
		Model:           c.LLM.Model,
		MaxTokens:       c.LLM.MaxTokens,
		MaxAttempts:     c.Synthesis.MaxAttempts,
		Backoff:         ms(c.Synthesis.BackoffMs),
		ThrottleBackoff: ms(c.Synthesis.ThrottleBackoffMs),
		RecordDelay:     ms(c.Synthesis.RecordDelayMs),
	}
}

func newSynthesisPipeline(ctx context.Context, c *config.Config, l ledger.Ledger) (*synthesis.Pipeline, error) {
	completer, err := llm.New(ctx, c.LLM)
	if err != nil {
		return nil, eris.Wrap(err, "init completion provider")
	}
	tmpl, err := synthesis.LoadTemplate(c.Synthesis.TemplateFile, c.Synthesis.SenderName)
	if err != nil {
		return nil, err
	}
	fetcher := scrape.NewHTTPFetcher(secs(c.Synthesis.FetchTimeoutSecs), scrape.WithMaxChars(c.Synthesis.MaxChars))
	return synthesis.New(l, fetcher, completer, tmpl, synthesisConfig(c)), nil
}
