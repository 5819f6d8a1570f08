// Package ledger persists lead records and their processing flags. It is the
// single source of truth for deduplication and for resuming interrupted
// batches.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrRowNotFound is returned by UpdateFields when rowKey has no record.
var ErrRowNotFound = eris.New("ledger: row not found")

// Ledger is the row-oriented record store shared by all pipeline stages.
// Row keys are 1-based data indexes; the header row is not counted.
type Ledger interface {
	// EnsureHeader writes the header row when missing and fills blank header
	// cells. It never moves data rows.
	EnsureHeader(ctx context.Context) error

	// ListExistingKeys returns every URL currently stored.
	ListExistingKeys(ctx context.Context) (model.KeySet, error)

	// AppendRecords adds records after the last row. The call is all or nothing.
	AppendRecords(ctx context.Context, records []model.Record) error

	// ReadRange returns records start..end inclusive. end is clamped to Count;
	// a start past the end yields an empty slice.
	ReadRange(ctx context.Context, start, end int) ([]model.Record, error)

	// UpdateFields replaces the given cells of one row in a single request.
	UpdateFields(ctx context.Context, rowKey int, fields model.Fields) error

	// Count returns the number of data rows.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Locator is implemented by backends that can link to the stored data.
type Locator interface {
	URL() string
}

// clampRange validates start/end and clamps end to total. ok is false when
// there is nothing to read.
func clampRange(start, end, total int) (model.Range, bool, error) {
	r := model.Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return r, false, err
	}
	r = r.Clamp(total)
	return r, r.Len() > 0, nil
}

func validateUpdate(rowKey int, fields model.Fields) error {
	if rowKey < 1 {
		return eris.Wrapf(model.ErrInvalidRange, "row %d", rowKey)
	}
	if len(fields) == 0 {
		return eris.New("ledger: no fields to update")
	}
	return nil
}
