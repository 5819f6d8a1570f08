package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// PostgresStore implements Store using PostgreSQL via pgx.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to Postgres and returns a store.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	params     JSONB,
	status     TEXT NOT NULL,
	summary    JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, stage model.Stage, params any) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := marshalOptional(params)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, stage, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(stage), paramsJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Stage:     stage,
		Params:    paramsJSON,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, id string, summary any) error {
	return s.finish(ctx, id, model.RunStatusComplete, summary, "")
}

func (s *PostgresStore) FailRun(ctx context.Context, id string, summary any, runErr error) error {
	return s.finish(ctx, id, model.RunStatusFailed, summary, errString(runErr))
}

func (s *PostgresStore) finish(ctx context.Context, id string, status model.RunStatus, summary any, msg string) error {
	summaryJSON, err := marshalOptional(summary)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(status), summaryJSON, msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "id %s", id)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, stage, params, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`, id,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, stage, params, status, summary, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	argN := 1

	if filter.Stage != "" {
		query += ` AND stage = $` + strconv.Itoa(argN)
		args = append(args, string(filter.Stage))
		argN++
	}
	if filter.Status != "" {
		query += ` AND status = $` + strconv.Itoa(argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT $` + strconv.Itoa(argN)
	args = append(args, limit)
	argN++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var stage, status string
	var params, summary []byte

	if err := row.Scan(&r.ID, &stage, &params, &status, &summary, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Stage = model.Stage(stage)
	r.Status = model.RunStatus(status)
	r.Params = params
	r.Summary = summary
	return &r, nil
}
