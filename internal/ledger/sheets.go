package ledger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sells-group/leadgen-cli/internal/model"
)

const (
	defaultSheetTitle = "Sheet1"
	valueInputRaw     = "RAW"
)

// SheetsConfig identifies a spreadsheet and the service account used to reach it.
type SheetsConfig struct {
	SpreadsheetID string
	// SheetName pins the tab; empty selects the first tab.
	SheetName           string
	CredentialsFile     string
	ServiceAccountEmail string
	PrivateKey          string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Sheets is a Ledger backed by a Google Sheets tab. Row 1 holds the header;
// record N lives on sheet row N+1.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	title         string
	log           *zap.Logger
}

// NewSheets authenticates with the configured service account and resolves
// the target tab.
func NewSheets(ctx context.Context, cfg SheetsConfig) (*Sheets, error) {
	ts, err := serviceAccountTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	return NewSheetsWithOptions(ctx, cfg.SpreadsheetID, cfg.SheetName, opts...)
}

// NewSheetsWithOptions builds a Sheets ledger from explicit client options.
func NewSheetsWithOptions(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*Sheets, error) {
	if spreadsheetID == "" {
		return nil, eris.New("sheets: spreadsheet id is required")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	s := &Sheets{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		title:         sheetName,
		log:           zap.L().With(zap.String("ledger", "sheets"), zap.String("spreadsheet_id", spreadsheetID)),
	}
	if s.title == "" {
		s.title = s.firstSheetTitle(ctx)
	}
	return s, nil
}

func serviceAccountTokenSource(ctx context.Context, cfg SheetsConfig) (oauth2.TokenSource, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, eris.Wrap(err, "sheets: read credentials file")
		}
		jwtCfg, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, eris.Wrap(err, "sheets: parse credentials file")
		}
		return jwtCfg.TokenSource(ctx), nil
	}
	if cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return nil, eris.New("sheets: service account credentials are required")
	}
	jwtCfg := &jwt.Config{
		Email: cfg.ServiceAccountEmail,
		// Keys pasted into env vars usually carry literal \n sequences.
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	return jwtCfg.TokenSource(ctx), nil
}

// firstSheetTitle returns the first tab's title, falling back to Sheet1 when
// the metadata cannot be read.
func (s *Sheets) firstSheetTitle(ctx context.Context) string {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		s.log.Warn("sheets: read spreadsheet metadata, using default tab", zap.Error(err))
		return defaultSheetTitle
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil || ss.Sheets[0].Properties.Title == "" {
		return defaultSheetTitle
	}
	return ss.Sheets[0].Properties.Title
}

// Title returns the tab the ledger reads and writes.
func (s *Sheets) Title() string { return s.title }

// URL returns the browser link to the spreadsheet.
func (s *Sheets) URL() string {
	return SpreadsheetURL(s.spreadsheetID)
}

// SpreadsheetURL returns the browser link for a spreadsheet id.
func SpreadsheetURL(id string) string {
	return "https://docs.google.com/spreadsheets/d/" + id
}

// a1 formats an A1 range on the ledger tab. A zero row leaves the row open.
func (s *Sheets) a1(from model.Column, fromRow int, to model.Column, toRow int) string {
	rowPart := func(n int) string {
		if n <= 0 {
			return ""
		}
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("'%s'!%s%s:%s%s",
		strings.ReplaceAll(s.title, "'", "''"),
		from.Letter(), rowPart(fromRow),
		to.Letter(), rowPart(toRow),
	)
}

func (s *Sheets) get(ctx context.Context, rng string) ([][]string, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: get %s", rng)
	}
	rows := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows, nil
}

func (s *Sheets) EnsureHeader(ctx context.Context) error {
	lastCol := model.Column(model.NumColumns - 1)
	rng := s.a1(model.ColTimestamp, 1, lastCol, 1)
	rows, err := s.get(ctx, rng)
	if err != nil {
		return err
	}

	var current []string
	if len(rows) > 0 {
		current = rows[0]
	}
	merged, changed := mergeHeader(current)
	if !changed {
		return nil
	}

	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]any{toAny(merged)},
	}).ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return eris.Wrap(err, "sheets: write header")
	}
	s.log.Info("sheets: header written", zap.Strings("header", merged))
	return nil
}

// mergeHeader keeps existing header labels and fills blank or missing cells.
func mergeHeader(current []string) ([]string, bool) {
	merged := make([]string, model.NumColumns)
	changed := false
	for i := range merged {
		if i < len(current) && strings.TrimSpace(current[i]) != "" {
			merged[i] = current[i]
			continue
		}
		merged[i] = model.Header[i]
		changed = true
	}
	return merged, changed
}

func (s *Sheets) ListExistingKeys(ctx context.Context) (model.KeySet, error) {
	rows, err := s.get(ctx, s.a1(model.ColURL, 2, model.ColURL, 0))
	if err != nil {
		return nil, err
	}
	keys := make(model.KeySet, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			keys.Add(strings.TrimSpace(row[0]))
		}
	}
	return keys, nil
}

func (s *Sheets) AppendRecords(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	values := make([][]any, len(records))
	for i, r := range records {
		values[i] = toAny(r.Values())
	}

	lastCol := model.Column(model.NumColumns - 1)
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.a1(model.ColTimestamp, 0, lastCol, 0), &sheets.ValueRange{
		Values: values,
	}).ValueInputOption(valueInputRaw).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return eris.Wrapf(err, "sheets: append %d records", len(records))
	}
	return nil
}

func (s *Sheets) ReadRange(ctx context.Context, start, end int) ([]model.Record, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	r, ok, err := clampRange(start, end, total)
	if err != nil || !ok {
		return nil, err
	}

	lastCol := model.Column(model.NumColumns - 1)
	rows, err := s.get(ctx, s.a1(model.ColTimestamp, r.Start+1, lastCol, r.End+1))
	if err != nil {
		return nil, err
	}

	// Trailing empty rows are omitted by the API; blank rows inside the span
	// come back as empty slices.
	records := make([]model.Record, 0, r.Len())
	for i := 0; i < r.Len(); i++ {
		var row []string
		if i < len(rows) {
			row = rows[i]
		}
		records = append(records, model.RecordFromValues(r.Start+i, row))
	}
	return records, nil
}

func (s *Sheets) UpdateFields(ctx context.Context, rowKey int, fields model.Fields) error {
	if err := validateUpdate(rowKey, fields); err != nil {
		return err
	}

	sheetRow := rowKey + 1
	var data []*sheets.ValueRange
	for _, span := range contiguousSpans(fields.Columns()) {
		cells := make([]string, 0, len(span))
		for _, c := range span {
			cells = append(cells, fields[c])
		}
		data = append(data, &sheets.ValueRange{
			Range:  s.a1(span[0], sheetRow, span[len(span)-1], sheetRow),
			Values: [][]any{toAny(cells)},
		})
	}

	_, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputRaw,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return eris.Wrapf(err, "sheets: update row %d", rowKey)
	}
	return nil
}

// Count reads only the link column. Every appended row carries a link, and
// the API omits trailing blank rows, so the row count is the data length.
func (s *Sheets) Count(ctx context.Context) (int, error) {
	rows, err := s.get(ctx, s.a1(model.ColURL, 2, model.ColURL, 0))
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *Sheets) Close() error { return nil }

// contiguousSpans groups sorted columns into runs of adjacent columns so a
// partial update becomes one range per run.
func contiguousSpans(cols []model.Column) [][]model.Column {
	var spans [][]model.Column
	for _, c := range cols {
		n := len(spans)
		if n > 0 {
			last := spans[n-1]
			if last[len(last)-1]+1 == c {
				spans[n-1] = append(last, c)
				continue
			}
		}
		spans = append(spans, []model.Column{c})
	}
	return spans
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
