package customsearch

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

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), "test-key", "engine-1",
		WithBaseURL(srv.URL+"/"),
		WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func TestSearch_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "roofing contractors Denver", q.Get("q"))
		assert.Equal(t, "engine-1", q.Get("cx"))
		assert.Equal(t, "11", q.Get("start"))
		assert.Equal(t, "10", q.Get("num"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"title": "Acme Roofing", "link": "https://acme.example", "snippet": "Best roofs"},
				{"title": "Beta Roofs", "link": "https://beta.example", "snippet": "Also roofs"},
			},
			"queries":           map[string]any{"nextPage": []map[string]any{{"startIndex": 21}}},
			"searchInformation": map[string]any{"totalResults": "1234"},
		})
	})

	page, err := c.Search(context.Background(), Query{Text: "roofing contractors Denver", Start: 11, Num: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, Item{Title: "Acme Roofing", Link: "https://acme.example", Snippet: "Best roofs"}, page.Items[0])
	assert.True(t, page.HasNextPage)
	assert.Equal(t, int64(1234), page.TotalResults)
}

func TestSearch_LastPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("start"))
		assert.Equal(t, "10", r.URL.Query().Get("num"), "num is capped at the page maximum")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"title":"Only","link":"https://only.example"}]}`))
	})

	page, err := c.Search(context.Background(), Query{Text: "x", Start: 0, Num: 50})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasNextPage)
}

func TestSearch_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, IsRateLimited},
		{"bad request", http.StatusBadRequest, IsBadRequest},
		{"forbidden", http.StatusForbidden, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			_, err := c.Search(context.Background(), Query{Text: "x", Start: 91})
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestSearch_ServerErrorIsNotClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Search(context.Background(), Query{Text: "x", Start: 1})
	require.Error(t, err)
	assert.False(t, IsRateLimited(err))
	assert.False(t, IsBadRequest(err))
	assert.Contains(t, err.Error(), "customsearch: search start 1")
}
