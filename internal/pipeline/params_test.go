package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDocumentIDAcceptsAllAliases(t *testing.T) {
	want := uuid.New()
	for _, alias := range []string{"paperId", "paper", "paperGuid", "paper_id", "documentId"} {
		t.Run(alias, func(t *testing.T) {
			got, err := ResolveDocumentID(nil, RunParams{alias: want.String()})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestResolveUserIDAcceptsAllAliases(t *testing.T) {
	want := uuid.New()
	for _, alias := range []string{"userId", "user", "userGuid", "user_id"} {
		t.Run(alias, func(t *testing.T) {
			got, err := ResolveUserID(nil, RunParams{alias: want.String()})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestResolveTrimsWhitespace(t *testing.T) {
	want := uuid.New()
	got, err := ResolveDocumentID(nil, RunParams{"paperId": "  " + want.String() + "\n"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolvePrefersTypedContextValue(t *testing.T) {
	want := uuid.New()
	ec := NewExecutionContext()
	ec.Set(ctxKeyPaperID, want)

	got, err := ResolveDocumentID(ec, RunParams{"paperId": uuid.New().String()})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolvePrimaryKeyBeatsFallbacks(t *testing.T) {
	primary, fallback := uuid.New(), uuid.New()
	got, err := ResolveDocumentID(nil, RunParams{
		"paperId":    primary.String(),
		"documentId": fallback.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, primary, got)
}

func TestResolveMissingDistinctFromUnparseable(t *testing.T) {
	_, missingErr := ResolveDocumentID(nil, RunParams{"unrelated": "x"})
	require.Error(t, missingErr)
	assert.ErrorIs(t, missingErr, ErrParamMissing)
	assert.Contains(t, missingErr.Error(), "paperId")

	_, parseErr := ResolveDocumentID(nil, RunParams{"paperId": "not-a-uuid"})
	require.Error(t, parseErr)
	assert.ErrorIs(t, parseErr, ErrParamUnparseable)
	assert.Contains(t, parseErr.Error(), "paperId")
	assert.Contains(t, parseErr.Error(), "not-a-uuid")
	assert.NotErrorIs(t, parseErr, ErrParamMissing)
}

func TestResolveSkipsBlankValues(t *testing.T) {
	want := uuid.New()
	got, err := ResolveDocumentID(nil, RunParams{
		"paperId":    "   ",
		"documentId": want.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveRejectsUnsupportedType(t *testing.T) {
	_, err := ResolveUserID(nil, RunParams{"userId": 42})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParamUnparseable)
}

func TestResolveAcceptsTypedUUIDParam(t *testing.T) {
	want := uuid.New()
	got, err := ResolveUserID(nil, RunParams{"user": want})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
