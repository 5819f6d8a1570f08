package model

import (
	"strings"
)

// Column identifies a field position in the ledger row layout.
type Column int

// Ledger columns in row order. The spreadsheet backend maps these to A..J.
const (
	ColTimestamp Column = iota
	ColSearchQuery
	ColTitle
	ColURL
	ColSnippet
	ColCompanyName
	ColTelephone
	ColContactEmail
	ColSalesEmail
	ColExtractionAttempted

	// NumColumns is the width of a ledger row.
	NumColumns = int(ColExtractionAttempted) + 1
)

// Header holds the column names written to the first ledger row.
var Header = []string{
	"Timestamp",
	"Search Query",
	"Title",
	"Link",
	"Snippet",
	"Company Name",
	"Telephone",
	"Contact Email",
	"Sales Email",
	"if ever extract",
}

// Name returns the header label of the column.
func (c Column) Name() string {
	if c < 0 || int(c) >= NumColumns {
		return ""
	}
	return Header[c]
}

// Letter returns the spreadsheet column letter (A for ColTimestamp).
func (c Column) Letter() string {
	return string(rune('A' + int(c)))
}

// ExtractionState records whether contact extraction has been tried for a
// record. It is kept apart from the contact fields so that "empty because not
// tried" and "empty because nothing was found" stay distinguishable.
type ExtractionState int

const (
	ExtractionNotAttempted ExtractionState = iota
	ExtractionAttempted
)

// String returns the persisted cell value for the state.
func (s ExtractionState) String() string {
	if s == ExtractionAttempted {
		return "1"
	}
	return "0"
}

// ParseExtractionState reads a persisted flag cell. Anything other than a
// recognised truthy value is treated as not attempted.
func ParseExtractionState(v string) ExtractionState {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return ExtractionAttempted
	default:
		return ExtractionNotAttempted
	}
}

// Record is one discovered URL plus everything derived from it.
type Record struct {
	RowKey       int             `json:"row_key"`
	Timestamp    string          `json:"timestamp"`
	SearchQuery  string          `json:"search_query"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	Snippet      string          `json:"snippet"`
	CompanyName  string          `json:"company_name"`
	Telephone    string          `json:"telephone"`
	ContactEmail string          `json:"contact_email"`
	SalesEmail   string          `json:"sales_email"`
	Extraction   ExtractionState `json:"extraction_attempted"`
}

// Attempted reports whether extraction already ran for this record.
func (r Record) Attempted() bool {
	return r.Extraction == ExtractionAttempted
}

// HasContactData reports whether any contact field is populated.
func (r Record) HasContactData() bool {
	return r.CompanyName != "" || r.Telephone != "" || r.ContactEmail != ""
}

// Values returns the record as a ledger row in column order.
func (r Record) Values() []string {
	return []string{
		r.Timestamp,
		r.SearchQuery,
		r.Title,
		r.URL,
		r.Snippet,
		r.CompanyName,
		r.Telephone,
		r.ContactEmail,
		r.SalesEmail,
		r.Extraction.String(),
	}
}

// RecordFromValues builds a record from a ledger row. Short rows are padded
// with empty cells, which is how spreadsheet APIs return trailing blanks.
func RecordFromValues(rowKey int, values []string) Record {
	cell := func(c Column) string {
		if int(c) < len(values) {
			return strings.TrimSpace(values[c])
		}
		return ""
	}
	return Record{
		RowKey:       rowKey,
		Timestamp:    cell(ColTimestamp),
		SearchQuery:  cell(ColSearchQuery),
		Title:        cell(ColTitle),
		URL:          cell(ColURL),
		Snippet:      cell(ColSnippet),
		CompanyName:  cell(ColCompanyName),
		Telephone:    cell(ColTelephone),
		ContactEmail: cell(ColContactEmail),
		SalesEmail:   cell(ColSalesEmail),
		Extraction:   ParseExtractionState(cell(ColExtractionAttempted)),
	}
}

// Fields is a partial row update keyed by column.
type Fields map[Column]string

// Columns returns the updated columns in ascending order.
func (f Fields) Columns() []Column {
	cols := make([]Column, 0, len(f))
	for c := Column(0); int(c) < NumColumns; c++ {
		if _, ok := f[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// ContactFields builds the extraction write: the three contact cells plus the
// attempted flag, always written together.
func ContactFields(c Contact) Fields {
	return Fields{
		ColCompanyName:         c.CompanyName,
		ColTelephone:           c.Telephone,
		ColContactEmail:        c.ContactEmail,
		ColExtractionAttempted: ExtractionAttempted.String(),
	}
}

// Contact is the structured output of contact extraction.
type Contact struct {
	CompanyName  string `json:"company_name"`
	Telephone    string `json:"telephone"`
	ContactEmail string `json:"contact_email"`
}

// Empty reports whether no contact field was found.
func (c Contact) Empty() bool {
	return c.CompanyName == "" && c.Telephone == "" && c.ContactEmail == ""
}

// Trimmed returns a copy with surrounding whitespace removed.
func (c Contact) Trimmed() Contact {
	return Contact{
		CompanyName:  strings.TrimSpace(c.CompanyName),
		Telephone:    strings.TrimSpace(c.Telephone),
		ContactEmail: strings.TrimSpace(c.ContactEmail),
	}
}

// KeySet is the set of URLs already present in the ledger.
type KeySet map[string]struct{}

// NewKeySet builds a set from the given URLs, ignoring blanks.
func NewKeySet(urls ...string) KeySet {
	s := make(KeySet, len(urls))
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Has reports whether url is in the set.
func (s KeySet) Has(url string) bool {
	_, ok := s[url]
	return ok
}

// Add inserts url into the set. Blank URLs are ignored.
func (s KeySet) Add(url string) {
	if url == "" {
		return
	}
	s[url] = struct{}{}
}
