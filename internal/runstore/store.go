// Package runstore records pipeline run and stage outcomes for diagnostics.
// It is an operational log, not the domain paper store.
package runstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus tracks a recorded run's lifecycle.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is one pipeline run's log entry.
type RunRecord struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StageRecord is one stage outcome within a run. Failures are recorded the
// same as successes.
type StageRecord struct {
	RunID      uuid.UUID
	Stage      string
	Success    bool
	Error      string
	DurationMS int64
	RecordedAt time.Time
}

// Store persists run and stage outcomes.
type Store interface {
	CreateRun(ctx context.Context, documentID, userID uuid.UUID) (uuid.UUID, error)
	RecordStage(ctx context.Context, rec StageRecord) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status RunStatus, errMessage string) error
	GetRun(ctx context.Context, runID uuid.UUID) (*RunRecord, error)
	ListStages(ctx context.Context, runID uuid.UUID) ([]StageRecord, error)
	Close() error
}

// Noop discards everything. Used when no run log is configured.
type Noop struct{}

func (Noop) CreateRun(context.Context, uuid.UUID, uuid.UUID) (uuid.UUID, error) {
	return uuid.New(), nil
}
func (Noop) RecordStage(context.Context, StageRecord) error { return nil }
func (Noop) CompleteRun(context.Context, uuid.UUID, RunStatus, string) error {
	return nil
}
func (Noop) GetRun(context.Context, uuid.UUID) (*RunRecord, error) { return nil, ErrRunNotFound }
func (Noop) ListStages(context.Context, uuid.UUID) ([]StageRecord, error) {
	return nil, nil
}
func (Noop) Close() error { return nil }
