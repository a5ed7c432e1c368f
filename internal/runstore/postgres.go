package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: postgres parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: postgres connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          UUID PRIMARY KEY,
	document_id UUID NOT NULL,
	user_id     UUID NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS pipeline_stages (
	run_id      UUID NOT NULL REFERENCES pipeline_runs(id),
	stage       TEXT NOT NULL,
	success     BOOLEAN NOT NULL,
	error       TEXT,
	duration_ms BIGINT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_document ON pipeline_runs(document_id);
CREATE INDEX IF NOT EXISTS idx_pipeline_stages_run ON pipeline_stages(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "runstore: postgres migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, documentID, userID uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, document_id, user_id, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, documentID, userID, string(RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, eris.Wrap(err, "runstore: postgres insert run")
	}
	return id, nil
}

func (s *PostgresStore) RecordStage(ctx context.Context, rec StageRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_stages (run_id, stage, success, error, duration_ms, recorded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.RunID, rec.Stage, rec.Success, rec.Error, rec.DurationMS, time.Now().UTC(),
	)
	return eris.Wrap(err, "runstore: postgres insert stage")
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID uuid.UUID, status RunStatus, errMessage string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(status), errMessage, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "runstore: postgres complete run")
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID uuid.UUID) (*RunRecord, error) {
	var rec RunRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, user_id, status, COALESCE(error, ''), started_at, finished_at FROM pipeline_runs WHERE id = $1`,
		runID,
	).Scan(&rec.ID, &rec.DocumentID, &rec.UserID, &rec.Status, &rec.Error, &rec.StartedAt, &rec.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "runstore: postgres get run")
	}
	return &rec, nil
}

func (s *PostgresStore) ListStages(ctx context.Context, runID uuid.UUID) ([]StageRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, stage, success, COALESCE(error, ''), duration_ms, recorded_at FROM pipeline_stages WHERE run_id = $1 ORDER BY recorded_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: postgres list stages")
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var rec StageRecord
		if err := rows.Scan(&rec.RunID, &rec.Stage, &rec.Success, &rec.Error, &rec.DurationMS, &rec.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "runstore: postgres scan stage")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "runstore: postgres iterate stages")
}
