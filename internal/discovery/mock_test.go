package discovery

import (
	"context"
	"fmt"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/customsearch"
)

// mockSearcher serves pages keyed by start offset.
type mockSearcher struct {
	pages   map[int]*customsearch.Page
	errs    map[int]error
	queries []customsearch.Query
}

func (m *mockSearcher) Search(_ context.Context, q customsearch.Query) (*customsearch.Page, error) {
	m.queries = append(m.queries, q)
	if err, ok := m.errs[q.Start]; ok {
		return nil, err
	}
	if p, ok := m.pages[q.Start]; ok {
		return p, nil
	}
	return &customsearch.Page{}, nil
}

// mockLedger implements ledger.Ledger in memory.
type mockLedger struct {
	records     []model.Record
	headerCalls int
	appendCalls int
	keysErr     error
	appendErr   error
}

func (m *mockLedger) EnsureHeader(context.Context) error {
	m.headerCalls++
	return nil
}

func (m *mockLedger) ListExistingKeys(context.Context) (model.KeySet, error) {
	if m.keysErr != nil {
		return nil, m.keysErr
	}
	keys := model.NewKeySet()
	for _, r := range m.records {
		keys.Add(r.URL)
	}
	return keys, nil
}

func (m *mockLedger) AppendRecords(_ context.Context, recs []model.Record) error {
	m.appendCalls++
	if m.appendErr != nil {
		return m.appendErr
	}
	for _, r := range recs {
		r.RowKey = len(m.records) + 1
		m.records = append(m.records, r)
	}
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

func (m *mockLedger) UpdateFields(_ context.Context, rowKey int, _ model.Fields) error {
	return fmt.Errorf("unexpected update of row %d", rowKey)
}

func (m *mockLedger) Count(context.Context) (int, error) { return len(m.records), nil }

func (m *mockLedger) Close() error { return nil }

func items(links ...string) []customsearch.Item {
	out := make([]customsearch.Item, len(links))
	for i, l := range links {
		out[i] = customsearch.Item{Title: "Title " + l, Link: l, Snippet: "about " + l}
	}
	return out
}

func ledgerWith(urls ...string) *mockLedger {
	m := &mockLedger{}
	for i, u := range urls {
		m.records = append(m.records, model.Record{RowKey: i + 1, URL: u})
	}
	return m
}
