package ledger

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// recordColumns maps model.Column positions to SQL column names.
var recordColumns = [model.NumColumns]string{
	model.ColTimestamp:           "timestamp",
	model.ColSearchQuery:         "search_query",
	model.ColTitle:               "title",
	model.ColURL:                 "url",
	model.ColSnippet:             "snippet",
	model.ColCompanyName:         "company_name",
	model.ColTelephone:           "telephone",
	model.ColContactEmail:        "contact_email",
	model.ColSalesEmail:          "sales_email",
	model.ColExtractionAttempted: "extraction_attempted",
}

// selectColumns is the column list for reading whole records.
var selectColumns = "row_key, " + strings.Join(recordColumns[:], ", ")

// insertColumns lists the columns written by AppendRecords.
func insertColumns() []string {
	return append([]string{"row_key"}, recordColumns[:]...)
}

// insertArgs returns the values for one inserted row in insertColumns order.
func insertArgs(rowKey int, r model.Record) []any {
	return []any{
		rowKey,
		r.Timestamp,
		r.SearchQuery,
		r.Title,
		r.URL,
		r.Snippet,
		r.CompanyName,
		r.Telephone,
		r.ContactEmail,
		r.SalesEmail,
		int(r.Extraction),
	}
}

// columnValue converts a Fields cell to its SQL value.
func columnValue(c model.Column, v string) any {
	if c == model.ColExtractionAttempted {
		return int(model.ParseExtractionState(v))
	}
	return v
}

// updateStatement builds "UPDATE records SET a = $1, b = $2 WHERE row_key = $3"
// for the given fields. placeholder renders the n-th (1-based) bind marker.
func updateStatement(rowKey int, fields model.Fields, placeholder func(n int) string) (string, []any) {
	cols := fields.Columns()
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = %s", recordColumns[c], placeholder(i+1)))
		args = append(args, columnValue(c, fields[c]))
	}
	args = append(args, rowKey)
	query := fmt.Sprintf("UPDATE records SET %s WHERE row_key = %s",
		strings.Join(sets, ", "), placeholder(len(cols)+1))
	return query, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (model.Record, error) {
	var r model.Record
	var flag int
	err := row.Scan(
		&r.RowKey,
		&r.Timestamp,
		&r.SearchQuery,
		&r.Title,
		&r.URL,
		&r.Snippet,
		&r.CompanyName,
		&r.Telephone,
		&r.ContactEmail,
		&r.SalesEmail,
		&flag,
	)
	if flag != 0 {
		r.Extraction = model.ExtractionAttempted
	}
	return r, err
}
