package runstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = eris.New("runstore: run not found")

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runstore: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS pipeline_stages (
	run_id      TEXT NOT NULL REFERENCES pipeline_runs(id),
	stage       TEXT NOT NULL,
	success     INTEGER NOT NULL,
	error       TEXT,
	duration_ms INTEGER NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_document ON pipeline_runs(document_id);
CREATE INDEX IF NOT EXISTS idx_pipeline_stages_run ON pipeline_stages(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "runstore: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, documentID, userID uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, document_id, user_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), documentID.String(), userID.String(), string(RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, eris.Wrap(err, "runstore: sqlite insert run")
	}
	return id, nil
}

func (s *SQLiteStore) RecordStage(ctx context.Context, rec StageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_stages (run_id, stage, success, error, duration_ms, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID.String(), rec.Stage, boolInt(rec.Success), rec.Error, rec.DurationMS, time.Now().UTC(),
	)
	return eris.Wrap(err, "runstore: sqlite insert stage")
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID uuid.UUID, status RunStatus, errMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), errMessage, time.Now().UTC(), runID.String(),
	)
	if err != nil {
		return eris.Wrap(err, "runstore: sqlite complete run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID uuid.UUID) (*RunRecord, error) {
	var (
		rec                     RunRecord
		id, documentID, userID  string
		errMsg                  sql.NullString
		finishedAt              sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, user_id, status, error, started_at, finished_at FROM pipeline_runs WHERE id = ?`,
		runID.String(),
	).Scan(&id, &documentID, &userID, &rec.Status, &errMsg, &rec.StartedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "runstore: sqlite get run")
	}

	rec.ID, _ = uuid.Parse(id)
	rec.DocumentID, _ = uuid.Parse(documentID)
	rec.UserID, _ = uuid.Parse(userID)
	rec.Error = errMsg.String
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	return &rec, nil
}

func (s *SQLiteStore) ListStages(ctx context.Context, runID uuid.UUID) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage, success, error, duration_ms, recorded_at FROM pipeline_stages WHERE run_id = ? ORDER BY recorded_at`,
		runID.String(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: sqlite list stages")
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var (
			rec     StageRecord
			id      string
			success int
			errMsg  sql.NullString
		)
		if err := rows.Scan(&id, &rec.Stage, &success, &errMsg, &rec.DurationMS, &rec.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "runstore: sqlite scan stage")
		}
		rec.RunID, _ = uuid.Parse(id)
		rec.Success = success != 0
		rec.Error = errMsg.String
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "runstore: sqlite iterate stages")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
