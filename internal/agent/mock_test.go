package agent

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
)

// --- Gateway Mock ---

type mockGateway struct {
	mock.Mock
	provider string
}

func (m *mockGateway) ProviderID() string { return m.provider }

func (m *mockGateway) Invoke(ctx context.Context, p gateway.Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

// --- Paper Store Mock ---

type mockPaperStore struct {
	mock.Mock
}

func (m *mockPaperStore) GetByID(ctx context.Context, id uuid.UUID) (*paper.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paper.Document), args.Error(1)
}

func (m *mockPaperStore) UpdateTextContent(ctx context.Context, id uuid.UUID, text string) error {
	args := m.Called(ctx, id, text)
	return args.Error(0)
}

func (m *mockPaperStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to paper.Status) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}
