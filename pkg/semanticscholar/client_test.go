package semanticscholar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPapers_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "attention mechanisms", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		_ = json.NewEncoder(w).Encode(SearchResponse{
			Total: 1,
			Data: []Paper{{
				PaperID:  "abc",
				Title:    "Attention Is All You Need",
				Year:     2017,
				Authors:  []Author{{Name: "A. Vaswani"}},
				Abstract: "The dominant sequence transduction models...",
			}},
		})
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL))
	resp, err := c.SearchPapers(context.Background(), "attention mechanisms", 5)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Attention Is All You Need", resp.Data[0].Title)
}

func TestSearchPapers_DefaultLimitAndNoKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Empty(t, r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.SearchPapers(context.Background(), "q", 0)
	require.NoError(t, err)
}

func TestSearchPapers_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL))
	_, err := c.SearchPapers(context.Background(), "q", 3)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
