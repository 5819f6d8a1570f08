// Package discovery finds new lead URLs through a ranked search API and
// records them in the ledger, skipping any URL the ledger already holds.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/ledger"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/customsearch"
)

// Searcher is the paged search provider.
type Searcher interface {
	Search(ctx context.Context, q customsearch.Query) (*customsearch.Page, error)
}

// StopReason explains why paging ended.
type StopReason string

const (
	StopTargetReached StopReason = "target_reached"
	StopNoNextPage    StopReason = "no_next_page"
	StopEmptyPage     StopReason = "empty_page"
	StopHorizon       StopReason = "horizon"
	StopRateLimited   StopReason = "rate_limited"
	StopBadRequest    StopReason = "bad_request"
)

// Config bounds paging.
type Config struct {
	// PageSize is the number of results requested per page.
	PageSize int
	// MaxResults is the provider's result horizon and the target cap.
	MaxResults int
	// DefaultTarget applies when a request has no positive target.
	DefaultTarget int
	// PageDelay is the minimum spacing between page requests.
	PageDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 || c.PageSize > customsearch.MaxPageSize {
		c.PageSize = customsearch.MaxPageSize
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 100
	}
	if c.DefaultTarget <= 0 {
		c.DefaultTarget = 30
	}
	return c
}

// Request describes one discovery batch.
type Request struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	Target   int    `json:"target"`
}

// Text returns the search text sent to the provider.
func (r Request) Text() string {
	return strings.TrimSpace(strings.TrimSpace(r.Query) + " " + strings.TrimSpace(r.Location))
}

// Result summarizes a discovery batch.
type Result struct {
	Items         []customsearch.Item `json:"items"`
	TotalFetched  int                 `json:"total_fetched"`
	TotalSkipped  int                 `json:"total_skipped"`
	NewCount      int                 `json:"new_count"`
	Target        int                 `json:"target"`
	ReachedTarget bool                `json:"reached_target"`
	StopReason    StopReason          `json:"stop_reason"`
	Saved         bool                `json:"saved"`
}

// Engine pages through search results and deduplicates against the ledger.
type Engine struct {
	searcher Searcher
	ledger   ledger.Ledger
	cfg      Config
	pacer    *resilience.Pacer
	now      func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(s Searcher, l ledger.Ledger, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		searcher: s,
		ledger:   l,
		cfg:      cfg,
		pacer:    resilience.NewPacer(cfg.PageDelay),
		now:      time.Now,
	}
}

// NormalizeTarget applies the default and the provider cap to target.
func (e *Engine) NormalizeTarget(target int) int {
	if target <= 0 {
		target = e.cfg.DefaultTarget
	}
	if target > e.cfg.MaxResults {
		target = e.cfg.MaxResults
	}
	return target
}

// Search collects up to the target number of URLs not yet in the ledger.
// It does not write to the ledger.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	text := req.Text()
	if text == "" {
		return nil, eris.New("discovery: query is required")
	}
	target := e.NormalizeTarget(req.Target)
	log := zap.L().With(zap.String("stage", "discovery"), zap.String("query", text), zap.Int("target", target))

	existing, err := e.ledger.ListExistingKeys(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: list existing keys")
	}
	log.Info("loaded existing keys", zap.Int("count", len(existing)))

	res := &Result{Target: target, StopReason: StopHorizon}

	for start := 1; start <= e.cfg.MaxResults; start += e.cfg.PageSize {
		if err := e.pacer.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "discovery: pace")
		}

		page, err := e.searcher.Search(ctx, customsearch.Query{Text: text, Start: start, Num: e.cfg.PageSize})
		if err != nil {
			switch {
			case customsearch.IsRateLimited(err):
				res.StopReason = StopRateLimited
			case customsearch.IsBadRequest(err):
				res.StopReason = StopBadRequest
			default:
				return res, eris.Wrapf(err, "discovery: search page at %d", start)
			}
			log.Warn("search stopped by provider", zap.Int("start", start), zap.Error(err))
			break
		}

		if len(page.Items) == 0 {
			res.StopReason = StopEmptyPage
			break
		}

		res.TotalFetched += len(page.Items)
		for _, item := range page.Items {
			item.Link = strings.TrimSpace(item.Link)
			if item.Link == "" || existing.Has(item.Link) {
				res.TotalSkipped++
				continue
			}
			existing.Add(item.Link)
			res.Items = append(res.Items, item)
		}
		log.Debug("page fetched",
			zap.Int("start", start),
			zap.Int("items", len(page.Items)),
			zap.Int("new_so_far", len(res.Items)),
		)

		if len(res.Items) >= target {
			res.Items = res.Items[:target]
			res.StopReason = StopTargetReached
			break
		}
		if !page.HasNextPage {
			res.StopReason = StopNoNextPage
			break
		}
	}

	res.NewCount = len(res.Items)
	res.ReachedTarget = res.NewCount >= target

	log.Info("search complete",
		zap.Int("fetched", res.TotalFetched),
		zap.Int("skipped", res.TotalSkipped),
		zap.Int("new", res.NewCount),
		zap.String("stop_reason", string(res.StopReason)),
	)
	return res, nil
}

// Run searches and appends the new items to the ledger, stamped with one
// timestamp and the search text.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := e.Search(ctx, req)
	if err != nil {
		return res, err
	}
	if len(res.Items) == 0 {
		return res, nil
	}

	if err := e.ledger.EnsureHeader(ctx); err != nil {
		return res, eris.Wrap(err, "discovery: ensure header")
	}
	if err := e.ledger.AppendRecords(ctx, e.Records(req, res.Items)); err != nil {
		return res, eris.Wrap(err, "discovery: append records")
	}
	res.Saved = true

	zap.L().Info("discovery: records appended", zap.Int("count", len(res.Items)))
	return res, nil
}

// Records converts search items into new ledger records.
func (e *Engine) Records(req Request, items []customsearch.Item) []model.Record {
	ts := e.now().UTC().Format(time.RFC3339)
	text := req.Text()
	out := make([]model.Record, len(items))
	for i, it := range items {
		out[i] = model.Record{
			Timestamp:   ts,
			SearchQuery: text,
			Title:       it.Title,
			URL:         it.Link,
			Snippet:     it.Snippet,
			Extraction:  model.ExtractionNotAttempted,
		}
	}
	return out
}
