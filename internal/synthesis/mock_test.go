package synthesis

import (
	"context"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/sells-group/leadgen-cli/internal/llm"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// mockLedger implements ledger.Ledger in memory and records updates.
type mockLedger struct {
	records   []model.Record
	updates   map[int]model.Fields
	updateErr error
}

func (m *mockLedger) EnsureHeader(context.Context) error { return nil }

func (m *mockLedger) ListExistingKeys(context.Context) (model.KeySet, error) {
	return model.NewKeySet(), nil
}

func (m *mockLedger) AppendRecords(_ context.Context, recs []model.Record) error {
	m.records = append(m.records, recs...)
	return nil
}

func (m *mockLedger) ReadRange(_ context.Context, start, end int) ([]model.Record, error) {
	if end > len(m.records) {
		end = len(m.records)
	}
	if start > end {
		return nil, nil
	}
	return append([]model.Record(nil), m.records[start-1:end]...), nil
}

func (m *mockLedger) UpdateFields(_ context.Context, rowKey int, fields model.Fields) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.updates == nil {
		m.updates = map[int]model.Fields{}
	}
	m.updates[rowKey] = fields
	if v, ok := fields[model.ColSalesEmail]; ok {
		m.records[rowKey-1].SalesEmail = v
	}
	return nil
}

func (m *mockLedger) Count(context.Context) (int, error) { return len(m.records), nil }

func (m *mockLedger) Close() error { return nil }

// mockFetcher serves page text per URL.
type mockFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (string, error) {
	m.calls = append(m.calls, url)
	if err := m.errs[url]; err != nil {
		return "", err
	}
	return m.pages[url], nil
}

type completionResult struct {
	text string
	err  error
}

// mockCompleter returns queued results in order, then repeats the last one.
type mockCompleter struct {
	mu       sync.Mutex
	results  []completionResult
	requests []llm.Request
}

func (m *mockCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	i := len(m.requests) - 1
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	return m.results[i].text, m.results[i].err
}

// scriptedModel is a langchaingo model that replays queued results.
type scriptedModel struct {
	results []completionResult
	calls   int
}

func (m *scriptedModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	r := m.results[min(m.calls, len(m.results)-1)]
	m.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r.text}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, opts...)
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}
