// Package export writes ledger records to an xlsx workbook.
package export

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// DefaultSheetName is used when Options.SheetName is empty.
const DefaultSheetName = "Leads"

// RangeReader is the ledger subset needed for export.
type RangeReader interface {
	ReadRange(ctx context.Context, start, end int) ([]model.Record, error)
	Count(ctx context.Context) (int, error)
}

// Options configures an export.
type Options struct {
	SheetName string
	// OnlyWithEmail drops records that have no generated sales email.
	OnlyWithEmail bool
}

// WriteXLSX reads rng from src and saves it, with a header row, to path.
// A zero End exports through the last row. It returns the number of data
// rows written.
func WriteXLSX(ctx context.Context, src RangeReader, rng model.Range, path string, opts Options) (int, error) {
	log := zap.L().With(zap.String("path", path), zap.Stringer("range", rng))

	if rng.End == 0 {
		total, err := src.Count(ctx)
		if err != nil {
			return 0, eris.Wrap(err, "export: count")
		}
		if rng.Start < 1 {
			rng.Start = 1
		}
		rng.End = max(total, rng.Start)
	}

	records, err := src.ReadRange(ctx, rng.Start, rng.End)
	if err != nil {
		return 0, eris.Wrapf(err, "export: read range %s", rng)
	}

	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return 0, eris.Wrapf(err, "export: add sheet %q", sheetName)
	}

	addRow(sheet, append([]string{"Row"}, model.Header...))

	n := 0
	for _, rec := range records {
		if opts.OnlyWithEmail && rec.SalesEmail == "" {
			continue
		}
		addRow(sheet, append([]string{strconv.Itoa(rec.RowKey)}, rec.Values()...))
		n++
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrap(err, "export: save workbook")
	}
	log.Info("export: workbook written", zap.Int("rows", n))
	return n, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
