// Package paper defines the narrow interfaces through which the pipeline
// touches externally-owned domain entities. Persistence of papers, users,
// and credits lives outside this service.
package paper

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status tracks a document's position in its processing lifecycle.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusAnalyzed   Status = "analyzed"
	StatusFailed     Status = "failed"
)

// Document is the slice of the paper record the pipeline reads and writes.
type Document struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	TextContent string
	Status      Status
	UploadedAt  time.Time
}

// Store is the document collaborator. Implementations live with the owning
// service; the pipeline only consumes this interface.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// UpdateTextContent persists extracted text. Idempotent; called only
	// after a successful extraction result.
	UpdateTextContent(ctx context.Context, id uuid.UUID, text string) error
	// UpdateStatus transitions the document between lifecycle states.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

// CreditService gates full-pipeline processing on the requesting user's
// balance. Consulted once at launch.
type CreditService interface {
	HasEnoughCredits(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
}
