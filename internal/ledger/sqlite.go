package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLite is a Ledger stored in a local SQLite file.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens the database at dsn, configures WAL mode, and creates the
// records table.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite ledger: open")
	}
	// database/sql pools connections; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite ledger: exec %s", pragma)
		}
	}
	l := &SQLite{db: db, path: dsn}
	if err := l.EnsureHeader(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

const sqliteLedgerSchema = `
CREATE TABLE IF NOT EXISTS records (
	row_key              INTEGER PRIMARY KEY,
	timestamp            TEXT NOT NULL DEFAULT '',
	search_query         TEXT NOT NULL DEFAULT '',
	title                TEXT NOT NULL DEFAULT '',
	url                  TEXT NOT NULL UNIQUE,
	snippet              TEXT NOT NULL DEFAULT '',
	company_name         TEXT NOT NULL DEFAULT '',
	telephone            TEXT NOT NULL DEFAULT '',
	contact_email        TEXT NOT NULL DEFAULT '',
	sales_email          TEXT NOT NULL DEFAULT '',
	extraction_attempted INTEGER NOT NULL DEFAULT 0
);
`

// EnsureHeader creates the records table; the schema plays the header's role.
func (l *SQLite) EnsureHeader(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, sqliteLedgerSchema)
	return eris.Wrap(err, "sqlite ledger: migrate")
}

// URL returns the database path.
func (l *SQLite) URL() string { return l.path }

func (l *SQLite) ListExistingKeys(ctx context.Context) (model.KeySet, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT url FROM records`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite ledger: list keys")
	}
	defer rows.Close()

	keys := make(model.KeySet)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "sqlite ledger: scan key")
		}
		keys.Add(u)
	}
	return keys, eris.Wrap(rows.Err(), "sqlite ledger: list keys iterate")
}

func (l *SQLite) AppendRecords(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite ledger: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var last int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(row_key), 0) FROM records`).Scan(&last); err != nil {
		return eris.Wrap(err, "sqlite ledger: next row key")
	}

	cols := insertColumns()
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO records (%s) VALUES (%s)", strings.Join(cols, ", "), marks))
	if err != nil {
		return eris.Wrap(err, "sqlite ledger: prepare insert")
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, insertArgs(last+i+1, r)...); err != nil {
			return eris.Wrapf(err, "sqlite ledger: insert %s", r.URL)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite ledger: commit append")
}

func (l *SQLite) ReadRange(ctx context.Context, start, end int) ([]model.Record, error) {
	total, err := l.Count(ctx)
	if err != nil {
		return nil, err
	}
	r, ok, err := clampRange(start, end, total)
	if err != nil || !ok {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE row_key BETWEEN ? AND ? ORDER BY row_key`,
		r.Start, r.End,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite ledger: read range %s", r)
	}
	defer rows.Close()

	records := make([]model.Record, 0, r.Len())
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite ledger: scan record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite ledger: read range iterate")
}

func (l *SQLite) UpdateFields(ctx context.Context, rowKey int, fields model.Fields) error {
	if err := validateUpdate(rowKey, fields); err != nil {
		return err
	}
	query, args := updateStatement(rowKey, fields, func(int) string { return "?" })
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite ledger: update row %d", rowKey)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite ledger: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRowNotFound, "row %d", rowKey)
	}
	return nil
}

func (l *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, eris.Wrap(err, "sqlite ledger: count")
}

func (l *SQLite) Close() error {
	return l.db.Close()
}
