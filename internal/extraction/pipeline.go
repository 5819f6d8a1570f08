// Package extraction fills contact fields for ledger records, one record at
// a time, with bounded retries and a per-attempt timeout.
package extraction

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/ledger"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

var errEmptyResult = eris.New("extraction: no contact fields found")

// Outcome is the result of processing one record.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
)

// Config holds the retry and pacing parameters.
type Config struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
	RecordDelay    time.Duration
}

// DefaultConfig returns two 20s attempts, 2s apart, with 1s between records.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    2,
		AttemptTimeout: 20 * time.Second,
		Backoff:        2 * time.Second,
		RecordDelay:    time.Second,
	}
}

// Summary reports what a batch did.
type Summary struct {
	Range                   model.Range   `json:"range"`
	Processed               int           `json:"processed"`
	SuccessCount            int           `json:"success_count"`
	FailCount               int           `json:"fail_count"`
	TimeoutCount            int           `json:"timeout_count"`
	SkippedNoLink           int           `json:"skipped_no_link"`
	SkippedAlreadyAttempted int           `json:"skipped_already_attempted"`
	Duration                time.Duration `json:"duration"`
}

// Pipeline runs contact extraction over ledger ranges.
type Pipeline struct {
	ledger    ledger.Ledger
	extractor Extractor
	cfg       Config
	pacer     *resilience.Pacer
	sleeper   resilience.Sleeper
}

// New creates a Pipeline.
func New(l ledger.Ledger, ex Extractor, cfg Config) *Pipeline {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Pipeline{
		ledger:    l,
		extractor: ex,
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

// Run processes records r.Start..r.End in order. Every attempted record gets
// its contact cells and the attempted flag written, even when nothing was
// found. A failed ledger write aborts the batch; the summary so far is
// returned with the error.
func (p *Pipeline) Run(ctx context.Context, r model.Range) (*Summary, error) {
	sum := &Summary{Range: r}
	if err := r.Validate(); err != nil {
		return sum, err
	}

	began := time.Now()
	defer func() { sum.Duration = time.Since(began) }()

	recs, err := p.ledger.ReadRange(ctx, r.Start, r.End)
	if err != nil {
		return sum, eris.Wrap(err, "extraction: read range")
	}

	log := zap.L().With(zap.String("stage", "extraction"), zap.Stringer("range", r))
	log.Info("batch started", zap.Int("records", len(recs)))

	for _, rec := range recs {
		rlog := log.With(zap.Int("row", rec.RowKey), zap.String("url", rec.URL))

		if rec.URL == "" {
			sum.SkippedNoLink++
			rlog.Debug("skipped: no link")
			continue
		}
		if rec.Attempted() {
			sum.SkippedAlreadyAttempted++
			rlog.Debug("skipped: already attempted")
			continue
		}

		if err := p.pacer.Wait(ctx); err != nil {
			return sum, eris.Wrap(err, "extraction: pace")
		}

		contact, timedOut, err := p.extract(ctx, rec.URL)
		if err != nil {
			return sum, err
		}

		if err := p.ledger.UpdateFields(ctx, rec.RowKey, model.ContactFields(contact)); err != nil {
			return sum, eris.Wrapf(err, "extraction: update row %d", rec.RowKey)
		}
		sum.Processed++

		outcome := OutcomeSuccess
		if contact.Empty() {
			outcome = OutcomeEmpty
			sum.FailCount++
			if timedOut {
				sum.TimeoutCount++
			}
		} else {
			sum.SuccessCount++
		}
		rlog.Info("record extracted",
			zap.String("outcome", string(outcome)),
			zap.Bool("timed_out", timedOut),
			zap.String("company", contact.CompanyName),
		)
	}

	log.Info("batch complete",
		zap.Int("processed", sum.Processed),
		zap.Int("success", sum.SuccessCount),
		zap.Int("failed", sum.FailCount),
		zap.Int("timeouts", sum.TimeoutCount),
	)
	return sum, nil
}

// extract runs the bounded attempts for one URL. Exhausted attempts degrade
// to an empty contact; only cancellation of ctx is returned as an error.
func (p *Pipeline) extract(ctx context.Context, url string) (model.Contact, bool, error) {
	cfg := resilience.FixedRetryConfig(p.cfg.MaxAttempts, p.cfg.Backoff)
	cfg.AttemptTimeout = p.cfg.AttemptTimeout
	cfg.Sleeper = p.sleeper
	cfg.OnRetry = resilience.RetryLogger("firecrawl", "extract")

	contact, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (model.Contact, error) {
		c, err := p.extractor.Extract(ctx, url)
		if err != nil {
			return model.Contact{}, err
		}
		c = c.Trimmed()
		if c.Empty() {
			return model.Contact{}, errEmptyResult
		}
		return c, nil
	})
	if err == nil {
		return contact, false, nil
	}
	if ctx.Err() != nil {
		return model.Contact{}, false, eris.Wrap(ctx.Err(), "extraction: cancelled")
	}
	zap.L().Warn("extraction: attempts exhausted", zap.String("url", url), zap.Error(err))
	return model.Contact{}, errors.Is(err, resilience.ErrAttemptTimeout), nil
}
