package ledger

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Postgres is a Ledger stored in a Postgres table.
type Postgres struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to connString and creates the records table.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := db.Connect(ctx, connString, nil)
	if err != nil {
		return nil, eris.Wrap(err, "postgres ledger: connect")
	}
	l := &Postgres{pool: pool, closeFn: pool.Close}
	if err := l.EnsureHeader(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

// NewPostgresWithPool wraps an existing pool. The caller owns the pool.
func NewPostgresWithPool(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresLedgerSchema = `
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

// EnsureHeader creates the records table.
func (l *Postgres) EnsureHeader(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, postgresLedgerSchema)
	return eris.Wrap(err, "postgres ledger: migrate")
}

func (l *Postgres) ListExistingKeys(ctx context.Context) (model.KeySet, error) {
	rows, err := l.pool.Query(ctx, `SELECT url FROM records`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres ledger: list keys")
	}
	defer rows.Close()

	keys := make(model.KeySet)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "postgres ledger: scan key")
		}
		keys.Add(u)
	}
	return keys, eris.Wrap(rows.Err(), "postgres ledger: list keys iterate")
}

// AppendRecords locks the table, numbers the new rows after the current
// maximum, and bulk-loads them with COPY in one transaction.
func (l *Postgres) AppendRecords(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres ledger: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `LOCK TABLE records IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return eris.Wrap(err, "postgres ledger: lock records")
	}

	var last int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(row_key), 0) FROM records`).Scan(&last); err != nil {
		return eris.Wrap(err, "postgres ledger: next row key")
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = insertArgs(last+i+1, r)
	}
	if _, err := db.CopyFrom(ctx, tx, "records", insertColumns(), rows); err != nil {
		return eris.Wrap(err, "postgres ledger: append")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres ledger: commit append")
}

func (l *Postgres) ReadRange(ctx context.Context, start, end int) ([]model.Record, error) {
	total, err := l.Count(ctx)
	if err != nil {
		return nil, err
	}
	r, ok, err := clampRange(start, end, total)
	if err != nil || !ok {
		return nil, err
	}

	rows, err := l.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM records WHERE row_key BETWEEN $1 AND $2 ORDER BY row_key`,
		r.Start, r.End,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres ledger: read range %s", r)
	}
	defer rows.Close()

	records := make([]model.Record, 0, r.Len())
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres ledger: scan record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres ledger: read range iterate")
}

func (l *Postgres) UpdateFields(ctx context.Context, rowKey int, fields model.Fields) error {
	if err := validateUpdate(rowKey, fields); err != nil {
		return err
	}
	query, args := updateStatement(rowKey, fields, func(n int) string { return fmt.Sprintf("$%d", n) })
	tag, err := l.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres ledger: update row %d", rowKey)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRowNotFound, "row %d", rowKey)
	}
	return nil
}

func (l *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, eris.Wrap(err, "postgres ledger: count")
}

func (l *Postgres) Close() error {
	if l.closeFn != nil {
		l.closeFn()
	}
	return nil
}
