package synthesis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/llm"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

func testConfig() Config {
	return Config{
		Model:           "deepseek/deepseek-chat",
		MaxAttempts:     3,
		Backoff:         3 * time.Second,
		ThrottleBackoff: 10 * time.Second,
	}
}

func ledgerOf(recs ...model.Record) *mockLedger {
	for i := range recs {
		recs[i].RowKey = i + 1
	}
	return &mockLedger{records: recs}
}

func throttled() error {
	return &llm.ClassifiedError{Class: llm.ErrThrottled, Err: errors.New("429 too many requests")}
}

func TestPipeline_ThrottledTwiceThenSuccess(t *testing.T) {
	l := ledgerOf(model.Record{URL: "https://acme.example", CompanyName: "Acme"})
	f := &mockFetcher{pages: map[string]string{"https://acme.example": "Acme builds solar roofs."}}
	c := &mockCompleter{results: []completionResult{
		{err: throttled()},
		{err: throttled()},
		{text: `{"admiration":"Your solar roofs are impressive."}`},
	}}
	sleeper := &recordingSleeper{}

	sum, err := New(l, f, c, nil, testConfig()).WithSleeper(sleeper).Run(context.Background(), model.Range{Start: 1, End: 1})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, sleeper.delays)
	assert.Equal(t, 1, sum.SuccessCount)
	assert.Zero(t, sum.FailCount)
	require.Len(t, c.requests, 3)
	assert.True(t, c.requests[0].JSON)
	assert.Equal(t, "deepseek/deepseek-chat", c.requests[0].Model)
	assert.Contains(t, c.requests[0].User, "Company Name: Acme")
	assert.Contains(t, c.requests[0].User, "Acme builds solar roofs.")

	email := l.records[0].SalesEmail
	assert.Contains(t, email, "Hi Acme,")
	assert.Contains(t, email, "I've long admired your company. Your solar roofs are impressive.")
	assert.Contains(t, email, "Best regards,\nJordan")
	assert.Equal(t, model.Fields{model.ColSalesEmail: email}, l.updates[1])
}

func TestPipeline_OpenRouterThrottleUsesLongBackoff(t *testing.T) {
	l := ledgerOf(model.Record{URL: "https://acme.example", CompanyName: "Acme"})
	f := &mockFetcher{pages: map[string]string{"https://acme.example": "Acme builds solar roofs."}}
	m := &scriptedModel{results: []completionResult{
		{err: errors.New("API returned unexpected status code: 429: Rate limit exceeded")},
		{err: errors.New("API returned unexpected status code: 429: Rate limit exceeded")},
		{text: `{"admiration":"Your solar roofs are impressive."}`},
	}}
	sleeper := &recordingSleeper{}

	p := New(l, f, llm.NewOpenRouterWithModel(m), nil, testConfig()).WithSleeper(sleeper)
	sum, err := p.Run(context.Background(), model.Range{Start: 1, End: 1})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, sleeper.delays)
	assert.Equal(t, 3, m.calls)
	assert.Equal(t, 1, sum.SuccessCount)
	assert.Contains(t, l.records[0].SalesEmail, "Your solar roofs are impressive.")
}

func TestPipeline_OpenRouterUnauthorizedAbortsBatch(t *testing.T) {
	l := ledgerOf(
		model.Record{URL: "https://a.example", CompanyName: "A"},
		model.Record{URL: "https://b.example", CompanyName: "B"},
	)
	f := &mockFetcher{pages: map[string]string{"https://a.example": "a", "https://b.example": "b"}}
	m := &scriptedModel{results: []completionResult{
		{err: errors.New("API returned unexpected status code: 401: No auth credentials found")},
	}}
	sleeper := &recordingSleeper{}

	sum, err := New(l, f, llm.NewOpenRouterWithModel(m), nil, testConfig()).WithSleeper(sleeper).Run(context.Background(), model.Range{Start: 1, End: 2})
	require.Error(t, err)
	assert.True(t, llm.IsUnauthorized(err))
	assert.Equal(t, 1, m.calls)
	assert.Empty(t, sleeper.delays)
	assert.Zero(t, sum.SuccessCount)
}

func TestPipeline_FetchFailureCountsAndContinues(t *testing.T) {
	l := ledgerOf(
		model.Record{URL: "https://down.example", CompanyName: "Down"},
		model.Record{URL: "https://up.example", CompanyName: "Up"},
	)
	f := &mockFetcher{
		pages: map[string]string{"https://up.example": "We fix bikes."},
		errs:  map[string]error{"https://down.example": errors.New("dial tcp: connection reset by peer")},
	}
	c := &mockCompleter{results: []completionResult{{text: `{"admiration":"Great bikes."}`}}}

	sleeper := &recordingSleeper{}
	sum, err := New(l, f, c, nil, testConfig()).WithSleeper(sleeper).Run(context.Background(), model.Range{Start: 1, End: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.FailCount)
	assert.Equal(t, []string{"https://down.example", "https://up.example"}, f.calls, "page fetch is never retried")
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, 1, sum.SuccessCount)
	assert.Len(t, c.requests, 1, "no completion for a page that failed to load")
	assert.Empty(t, l.records[0].SalesEmail)
	assert.NotEmpty(t, l.records[1].SalesEmail)
}

func TestPipeline_ServerErrorPageNotRetried(t *testing.T) {
	l := ledgerOf(model.Record{URL: "https://busy.example", CompanyName: "Busy"})
	f := &mockFetcher{errs: map[string]error{
		"https://busy.example": resilience.NewStatusError("scrape", 503, nil),
	}}
	c := &mockCompleter{}
	sleeper := &recordingSleeper{}

	sum, err := New(l, f, c, nil, testConfig()).WithSleeper(sleeper).Run(context.Background(), model.Range{Start: 1, End: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FailCount)
	assert.Len(t, f.calls, 1)
	assert.Empty(t, sleeper.delays)
	assert.Empty(t, c.requests)
	assert.Empty(t, l.updates)
}

func TestPipeline_Skips(t *testing.T) {
	l := ledgerOf(
		model.Record{URL: "https://a.example", CompanyName: "A", SalesEmail: "already"},
		model.Record{URL: "", CompanyName: "B"},
		model.Record{URL: "https://c.example"},
	)
	f := &mockFetcher{}
	c := &mockCompleter{}

	sum, err := New(l, f, c, nil, testConfig()).Run(context.Background(), model.Range{Start: 1, End: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.SkippedAlreadyHasEmail)
	assert.Equal(t, 2, sum.SkippedNoLinkOrName)
	assert.Zero(t, sum.Processed)
	assert.Empty(t, f.calls)
	assert.Empty(t, l.updates)
	assert.Equal(t, "already", l.records[0].SalesEmail)
}

func TestPipeline_UnauthorizedAbortsBatch(t *testing.T) {
	l := ledgerOf(
		model.Record{URL: "https://a.example", CompanyName: "A"},
		model.Record{URL: "https://b.example", CompanyName: "B"},
	)
	f := &mockFetcher{pages: map[string]string{"https://a.example": "a", "https://b.example": "b"}}
	c := &mockCompleter{results: []completionResult{
		{err: &llm.ClassifiedError{Class: llm.ErrUnauthorized, Err: errors.New("401")}},
	}}
	sleeper := &recordingSleeper{}

	sum, err := New(l, f, c, nil, testConfig()).WithSleeper(sleeper).Run(context.Background(), model.Range{Start: 1, End: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected credentials")
	assert.Len(t, c.requests, 1, "credentials errors are not retried")
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, []string{"https://a.example"}, f.calls)
	assert.Zero(t, sum.SuccessCount)
}

func TestPipeline_MalformedOutputRetriesThenFails(t *testing.T) {
	l := ledgerOf(model.Record{URL: "https://a.example", CompanyName: "A"})
	f := &mockFetcher{pages: map[string]string{"https://a.example": "text"}}
	c := &mockCompleter{results: []completionResult{
		{text: "not json"},
		{text: `{"admiration":"   "}`},
		{text: `{"email":"Hi"}`},
	}}
	sleeper := &recordingSleeper{}

	sum, err := New(l, f, c, nil, testConfig()).WithSleeper(sleeper).Run(context.Background(), model.Range{Start: 1, End: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FailCount)
	assert.Len(t, c.requests, 3)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeper.delays)
	assert.Empty(t, l.records[0].SalesEmail)
}

func TestPipeline_UpdateFailureAborts(t *testing.T) {
	l := ledgerOf(
		model.Record{URL: "https://a.example", CompanyName: "A"},
		model.Record{URL: "https://b.example", CompanyName: "B"},
	)
	l.updateErr = errors.New("sheets: 503")
	f := &mockFetcher{pages: map[string]string{"https://a.example": "a", "https://b.example": "b"}}
	c := &mockCompleter{results: []completionResult{{text: `{"admiration":"Nice."}`}}}

	sum, err := New(l, f, c, nil, testConfig()).Run(context.Background(), model.Range{Start: 1, End: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis: update row 1")
	assert.Equal(t, 1, sum.Processed)
	assert.Zero(t, sum.SuccessCount)
	assert.Equal(t, []string{"https://a.example"}, f.calls)
}

func TestPipeline_InvalidRange(t *testing.T) {
	_, err := New(ledgerOf(), &mockFetcher{}, &mockCompleter{}, nil, testConfig()).Run(context.Background(), model.Range{Start: 0, End: 1})
	assert.ErrorIs(t, err, model.ErrInvalidRange)
}

func TestParseAdmiration(t *testing.T) {
	a, err := parseAdmiration("```json\n{\"admiration\": \" Bold design. \", \"email\": \"ignored\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Bold design.", a)

	_, err = parseAdmiration(`{"admiration": ""}`)
	assert.ErrorIs(t, err, errNoAdmiration)

	_, err = parseAdmiration(`{`)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Backoff)
	assert.Equal(t, 10*time.Second, cfg.ThrottleBackoff)
	assert.Equal(t, 2*time.Second, cfg.RecordDelay)
}
