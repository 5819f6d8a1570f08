// Package synthesis writes a personalized outreach email for each ledger
// record that has contact data but no email yet.
package synthesis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/ledger"
	"github.com/sells-group/leadgen-cli/internal/llm"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/scrape"
)

var errNoAdmiration = eris.New("synthesis: completion has no admiration")

// Config holds the completion and pacing parameters.
type Config struct {
	Model           string
	MaxTokens       int
	MaxAttempts     int
	Backoff         time.Duration
	ThrottleBackoff time.Duration
	RecordDelay     time.Duration
}

// DefaultConfig returns three attempts with a 3s backoff, 10s when the
// provider throttles, and 2s between records.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		Backoff:         3 * time.Second,
		ThrottleBackoff: 10 * time.Second,
		RecordDelay:     2 * time.Second,
	}
}

// Summary reports what a batch did.
type Summary struct {
	Range                  model.Range   `json:"range"`
	Processed              int           `json:"processed"`
	SuccessCount           int           `json:"success_count"`
	FailCount              int           `json:"fail_count"`
	SkippedNoLinkOrName    int           `json:"skipped_no_link_or_name"`
	SkippedAlreadyHasEmail int           `json:"skipped_already_has_email"`
	Duration               time.Duration `json:"duration"`
}

type completion struct {
	Admiration string `json:"admiration"`
}

// Pipeline runs email synthesis over ledger ranges.
type Pipeline struct {
	ledger    ledger.Ledger
	fetcher   scrape.PageFetcher
	completer llm.Completer
	tmpl      *Template
	cfg       Config
	pacer     *resilience.Pacer
	sleeper   resilience.Sleeper
}

// New creates a Pipeline. A nil template uses the built-in one.
func New(l ledger.Ledger, f scrape.PageFetcher, c llm.Completer, tmpl *Template, cfg Config) *Pipeline {
	if tmpl == nil {
		tmpl = DefaultTemplate("")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Pipeline{
		ledger:    l,
		fetcher:   f,
		completer: c,
		tmpl:      tmpl,
		cfg:       cfg,
		pacer:     resilience.NewPacer(cfg.RecordDelay),
		sleeper:   resilience.TimerSleeper,
	}
}

// WithSleeper replaces the sleeper used between attempts.
func (p *Pipeline) WithSleeper(s resilience.Sleeper) *Pipeline {
	p.sleeper = s
	return p
}

// Run processes records r.Start..r.End in order. Writing the sales email is
// the completion marker for a record. Rejected provider credentials and
// failed ledger writes abort the batch; the summary so far is returned with
// the error.
func (p *Pipeline) Run(ctx context.Context, r model.Range) (*Summary, error) {
	sum := &Summary{Range: r}
	if err := r.Validate(); err != nil {
		return sum, err
	}

	began := time.Now()
	defer func() { sum.Duration = time.Since(began) }()

	recs, err := p.ledger.ReadRange(ctx, r.Start, r.End)
	if err != nil {
		return sum, eris.Wrap(err, "synthesis: read range")
	}

	log := zap.L().With(zap.String("stage", "synthesis"), zap.Stringer("range", r))
	log.Info("batch started", zap.Int("records", len(recs)))

	for _, rec := range recs {
		rlog := log.With(zap.Int("row", rec.RowKey), zap.String("company", rec.CompanyName))

		if rec.SalesEmail != "" {
			sum.SkippedAlreadyHasEmail++
			continue
		}
		if rec.URL == "" || rec.CompanyName == "" {
			sum.SkippedNoLinkOrName++
			continue
		}

		if err := p.pacer.Wait(ctx); err != nil {
			return sum, eris.Wrap(err, "synthesis: pace")
		}
		sum.Processed++

		content, err := p.fetcher.Fetch(ctx, rec.URL)
		if err != nil {
			if ctx.Err() != nil {
				return sum, eris.Wrap(ctx.Err(), "synthesis: cancelled")
			}
			sum.FailCount++
			rlog.Warn("page fetch failed", zap.Error(err))
			continue
		}

		admiration, err := p.admire(ctx, rec.CompanyName, content)
		if err != nil {
			if llm.IsUnauthorized(err) {
				return sum, eris.Wrap(err, "synthesis: completion provider rejected credentials")
			}
			if ctx.Err() != nil {
				return sum, eris.Wrap(ctx.Err(), "synthesis: cancelled")
			}
			sum.FailCount++
			rlog.Warn("completion failed", zap.Error(err))
			continue
		}

		email, err := p.tmpl.Email(rec.CompanyName, admiration)
		if err != nil {
			return sum, err
		}
		if err := p.ledger.UpdateFields(ctx, rec.RowKey, model.Fields{model.ColSalesEmail: email}); err != nil {
			return sum, eris.Wrapf(err, "synthesis: update row %d", rec.RowKey)
		}
		sum.SuccessCount++
		rlog.Info("email written")
	}

	log.Info("batch complete",
		zap.Int("processed", sum.Processed),
		zap.Int("success", sum.SuccessCount),
		zap.Int("failed", sum.FailCount),
	)
	return sum, nil
}

// admire asks the model for one admiration sentence. Throttled attempts back
// off longer; rejected credentials are not retried.
func (p *Pipeline) admire(ctx context.Context, company, content string) (string, error) {
	prompt, err := p.tmpl.Prompt(company, content)
	if err != nil {
		return "", err
	}
	req := llm.Request{
		Model:     p.cfg.Model,
		System:    p.tmpl.System,
		User:      prompt,
		MaxTokens: p.cfg.MaxTokens,
		JSON:      true,
	}

	cfg := resilience.RetryConfig{
		MaxAttempts: p.cfg.MaxAttempts,
		Sleeper:     p.sleeper,
		ShouldRetry: func(err error) bool { return !llm.IsUnauthorized(err) },
		Backoff: func(_ int, err error) time.Duration {
			if llm.IsThrottled(err) {
				return p.cfg.ThrottleBackoff
			}
			return p.cfg.Backoff
		},
		OnRetry: resilience.RetryLogger("llm", "admiration"),
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		out, err := p.completer.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		return parseAdmiration(out)
	})
}

// parseAdmiration reads the admiration sentence from the model output,
// tolerating a Markdown code fence around the JSON.
func parseAdmiration(out string) (string, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")

	var c completion
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &c); err != nil {
		return "", eris.Wrap(err, "synthesis: decode completion")
	}
	a := strings.TrimSpace(c.Admiration)
	if a == "" {
		return "", errNoAdmiration
	}
	return a, nil
}
