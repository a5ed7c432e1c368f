package runstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCreateRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), string(RunStatusRunning), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	runID, err := s.CreateRun(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runID := uuid.New()
	mock.ExpectExec(`INSERT INTO pipeline_stages`).
		WithArgs(runID, "quality_checker", false, "429 from provider", int64(75), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	err = s.RecordStage(context.Background(), StageRecord{
		RunID: runID, Stage: "quality_checker", Success: false,
		Error: "429 from provider", DurationMS: 75,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRunNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runID := uuid.New()
	mock.ExpectExec(`UPDATE pipeline_runs`).
		WithArgs(string(RunStatusFailed), "boom", pgxmock.AnyArg(), runID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s := NewPostgresWithPool(mock)
	err = s.CompleteRun(context.Background(), runID, RunStatusFailed, "boom")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestPostgresGetRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runID, docID, userID := uuid.New(), uuid.New(), uuid.New()
	started := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "document_id", "user_id", "status", "error", "started_at", "finished_at"}).
		AddRow(runID, docID, userID, RunStatusSucceeded, "", started, (*time.Time)(nil))

	mock.ExpectQuery(`SELECT id, document_id`).
		WithArgs(runID).
		WillReturnRows(rows)

	s := NewPostgresWithPool(mock)
	rec, err := s.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, runID, rec.ID)
	assert.Equal(t, RunStatusSucceeded, rec.Status)
	assert.Nil(t, rec.FinishedAt)
}

func TestPostgresListStages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runID := uuid.New()
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"run_id", "stage", "success", "error", "duration_ms", "recorded_at"}).
		AddRow(runID, "paper_processor", true, "", int64(900), now).
		AddRow(runID, "content_summarizer", false, "timeout", int64(120), now)

	mock.ExpectQuery(`SELECT run_id, stage`).
		WithArgs(runID).
		WillReturnRows(rows)

	s := NewPostgresWithPool(mock)
	stages, err := s.ListStages(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.True(t, stages[0].Success)
	assert.Equal(t, "timeout", stages[1].Error)
}
