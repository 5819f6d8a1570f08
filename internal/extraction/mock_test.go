package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/firecrawl"
)

// mockLedger implements ledger.Ledger in memory and records updates.
type mockLedger struct {
	records   []model.Record
	updates   []update
	updateErr map[int]error
	readErr   error
}

type update struct {
	rowKey int
	fields model.Fields
}

func (m *mockLedger) EnsureHeader(context.Context) error { return nil }

func (m *mockLedger) ListExistingKeys(context.Context) (model.KeySet, error) {
	keys := model.NewKeySet()
	for _, r := range m.records {
		keys.Add(r.URL)
	}
	return keys, nil
}

func (m *mockLedger) AppendRecords(_ context.Context, recs []model.Record) error {
	m.records = append(m.records, recs...)
	return nil
}

func (m *mockLedger) ReadRange(_ context.Context, start, end int) ([]model.Record, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if end > len(m.records) {
		end = len(m.records)
	}
	if start > end {
		return nil, nil
	}
	return append([]model.Record(nil), m.records[start-1:end]...), nil
}

func (m *mockLedger) UpdateFields(_ context.Context, rowKey int, fields model.Fields) error {
	if err := m.updateErr[rowKey]; err != nil {
		return err
	}
	m.updates = append(m.updates, update{rowKey: rowKey, fields: fields})
	r := &m.records[rowKey-1]
	for col, v := range fields {
		switch col {
		case model.ColCompanyName:
			r.CompanyName = v
		case model.ColTelephone:
			r.Telephone = v
		case model.ColContactEmail:
			r.ContactEmail = v
		case model.ColSalesEmail:
			r.SalesEmail = v
		case model.ColExtractionAttempted:
			r.Extraction = model.ParseExtractionState(v)
		}
	}
	return nil
}

func (m *mockLedger) Count(context.Context) (int, error) { return len(m.records), nil }

func (m *mockLedger) Close() error { return nil }

// scriptedExtractor returns queued results per URL, one per call.
type scriptedExtractor struct {
	mu     sync.Mutex
	script map[string][]func(ctx context.Context) (model.Contact, error)
	calls  map[string]int
}

func newScriptedExtractor() *scriptedExtractor {
	return &scriptedExtractor{
		script: map[string][]func(ctx context.Context) (model.Contact, error){},
		calls:  map[string]int{},
	}
}

func (s *scriptedExtractor) on(url string, steps ...func(ctx context.Context) (model.Contact, error)) *scriptedExtractor {
	s.script[url] = append(s.script[url], steps...)
	return s
}

func (s *scriptedExtractor) Extract(ctx context.Context, url string) (model.Contact, error) {
	s.mu.Lock()
	n := s.calls[url]
	s.calls[url] = n + 1
	steps := s.script[url]
	s.mu.Unlock()

	if n < len(steps) {
		return steps[n](ctx)
	}
	return model.Contact{}, nil
}

func (s *scriptedExtractor) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func found(c model.Contact) func(context.Context) (model.Contact, error) {
	return func(context.Context) (model.Contact, error) { return c, nil }
}

func fails(err error) func(context.Context) (model.Contact, error) {
	return func(context.Context) (model.Contact, error) { return model.Contact{}, err }
}

// hangs blocks until the attempt context ends.
func hangs() func(context.Context) (model.Contact, error) {
	return func(ctx context.Context) (model.Contact, error) {
		<-ctx.Done()
		return model.Contact{}, ctx.Err()
	}
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// mockFirecrawl implements firecrawl.Client.
type mockFirecrawl struct {
	startFunc  func(ctx context.Context, req firecrawl.ExtractRequest) (*firecrawl.ExtractResponse, error)
	statusFunc func(ctx context.Context, id string) (*firecrawl.ExtractStatusResponse, error)
}

func (m *mockFirecrawl) StartExtract(ctx context.Context, req firecrawl.ExtractRequest) (*firecrawl.ExtractResponse, error) {
	return m.startFunc(ctx, req)
}

func (m *mockFirecrawl) GetExtractStatus(ctx context.Context, id string) (*firecrawl.ExtractStatusResponse, error) {
	return m.statusFunc(ctx, id)
}
