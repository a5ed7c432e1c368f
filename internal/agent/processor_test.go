package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scholarly-group/paper-pipeline/internal/gateway"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
	"github.com/scholarly-group/paper-pipeline/internal/resilience"
)

func TestPaperProcessorProcess(t *testing.T) {
	paperID := uuid.New()
	doc := &paper.Document{
		ID:          paperID,
		Title:       "Attention Is All You Need",
		TextContent: "raw pdf text",
		Status:      paper.StatusUploaded,
	}

	gw := &mockGateway{provider: gateway.ProviderAnthropic}
	gw.On("Invoke", mock.Anything, mock.Anything).Return("structured text", nil)

	store := &mockPaperStore{}
	store.On("GetByID", mock.Anything, paperID).Return(doc, nil)
	store.On("UpdateTextContent", mock.Anything, paperID, "structured text").Return(nil)

	a := NewPaperProcessor(gw, store, "system prompt")
	task := NewTask(TypePaperProcessor, map[string]any{KeyPaperID: paperID.String()})
	require.True(t, a.CanHandle(task))

	res, err := a.Process(context.Background(), task)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, task.TaskID, res.TaskID)
	assert.Equal(t, "structured text", res.DataString(KeyTextContent))
	assert.Equal(t, "Attention Is All You Need", res.DataString(KeyTitle))
	assert.Equal(t, paperID.String(), res.DataString(KeyPaperID))
	store.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestPaperProcessorInvalidPaperID(t *testing.T) {
	gw := &mockGateway{provider: gateway.ProviderAnthropic}
	store := &mockPaperStore{}
	a := NewPaperProcessor(gw, store, "")

	task := NewTask(TypePaperProcessor, map[string]any{KeyPaperID: "not-a-uuid"})
	assert.False(t, a.CanHandle(task))

	res, err := a.Process(context.Background(), task)
	require.NoError(t, err)
	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "not-a-uuid")
	gw.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestPaperProcessorMissingPaper(t *testing.T) {
	paperID := uuid.New()
	gw := &mockGateway{provider: gateway.ProviderAnthropic}
	store := &mockPaperStore{}
	store.On("GetByID", mock.Anything, paperID).Return(nil, paper.ErrNotFound)

	a := NewPaperProcessor(gw, store, "")
	task := NewTask(TypePaperProcessor, map[string]any{KeyPaperID: paperID.String()})

	res, err := a.Process(context.Background(), task)
	require.NoError(t, err)
	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "not found")
	gw.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestPaperProcessorEmptyContent(t *testing.T) {
	paperID := uuid.New()
	gw := &mockGateway{provider: gateway.ProviderAnthropic}
	store := &mockPaperStore{}
	store.On("GetByID", mock.Anything, paperID).Return(&paper.Document{ID: paperID}, nil)

	a := NewPaperProcessor(gw, store, "")
	task := NewTask(TypePaperProcessor, map[string]any{KeyPaperID: paperID.String()})

	res, err := a.Process(context.Background(), task)
	require.NoError(t, err)
	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "no content available")
}

func TestPaperProcessorProviderErrorPropagates(t *testing.T) {
	paperID := uuid.New()
	gw := &mockGateway{provider: gateway.ProviderAnthropic}
	gw.On("Invoke", mock.Anything, mock.Anything).
		Return("", resilience.NewTransientError(assert.AnError, 429))

	store := &mockPaperStore{}
	store.On("GetByID", mock.Anything, paperID).
		Return(&paper.Document{ID: paperID, TextContent: "text"}, nil)

	a := NewPaperProcessor(gw, store, "")
	task := NewTask(TypePaperProcessor, map[string]any{KeyPaperID: paperID.String()})

	res, err := a.Process(context.Background(), task)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, a.IsRetryable(err))
	store.AssertNotCalled(t, "UpdateTextContent", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaperProcessorWriteBackFailureIsNonFatal(t *testing.T) {
	paperID := uuid.New()
	gw := &mockGateway{provider: gateway.ProviderAnthropic}
	gw.On("Invoke", mock.Anything, mock.Anything).Return("structured", nil)

	store := &mockPaperStore{}
	store.On("GetByID", mock.Anything, paperID).
		Return(&paper.Document{ID: paperID, TextContent: "raw"}, nil)
	store.On("UpdateTextContent", mock.Anything, paperID, "structured").Return(assert.AnError)

	a := NewPaperProcessor(gw, store, "")
	task := NewTask(TypePaperProcessor, map[string]any{KeyPaperID: paperID.String()})

	res, err := a.Process(context.Background(), task)
	require.NoError(t, err)
	assert.True(t, res.Success)
}
