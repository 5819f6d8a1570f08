package api

import (
	"context"
	"time"

	"github.com/sells-group/leadgen-cli/internal/discovery"
	"github.com/sells-group/leadgen-cli/internal/extraction"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/synthesis"
	"github.com/sells-group/leadgen-cli/pkg/customsearch"
)

type mockLedger struct {
	count int
	err   error
}

func (m *mockLedger) Count(context.Context) (int, error) { return m.count, m.err }

type mockDiscoverer struct {
	searchCalls []discovery.Request
	runCalls    []discovery.Request
	err         error
}

func (m *mockDiscoverer) result(req discovery.Request, saved bool) *discovery.Result {
	return &discovery.Result{
		Items:         []customsearch.Item{{Title: "Acme", Link: "https://acme.example"}},
		TotalFetched:  10,
		TotalSkipped:  9,
		NewCount:      1,
		Target:        req.Target,
		ReachedTarget: req.Target <= 1,
		StopReason:    discovery.StopNoNextPage,
		Saved:         saved,
	}
}

func (m *mockDiscoverer) Search(_ context.Context, req discovery.Request) (*discovery.Result, error) {
	m.searchCalls = append(m.searchCalls, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result(req, false), nil
}

func (m *mockDiscoverer) Run(_ context.Context, req discovery.Request) (*discovery.Result, error) {
	m.runCalls = append(m.runCalls, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result(req, true), nil
}

type mockExtractor struct {
	ranges []model.Range
	sum    *extraction.Summary
	err    error
}

func (m *mockExtractor) Run(_ context.Context, r model.Range) (*extraction.Summary, error) {
	m.ranges = append(m.ranges, r)
	return m.sum, m.err
}

type mockSynthesizer struct {
	ranges []model.Range
	sum    *synthesis.Summary
	err    error
}

func (m *mockSynthesizer) Run(_ context.Context, r model.Range) (*synthesis.Summary, error) {
	m.ranges = append(m.ranges, r)
	return m.sum, m.err
}

func extractionSummary(r model.Range) *extraction.Summary {
	return &extraction.Summary{
		Range:                   r,
		Processed:               3,
		SuccessCount:            2,
		FailCount:               1,
		TimeoutCount:            1,
		SkippedAlreadyAttempted: 1,
		Duration:                1500 * time.Millisecond,
	}
}
