package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPagePrimary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/scrape", r.URL.Path)
		require.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		var req scrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"markdown"}, req.Formats)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"markdown": "# Hello\n\nContent."},
		})
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), nil, srv.URL, []string{"key-1"}, 100)
	res, err := f.FetchPage(context.Background(), "https://docs.example.com/page")
	require.NoError(t, err)
	assert.Equal(t, ContentMarkdown, res.ContentType)
	assert.False(t, res.Fallback)
	assert.Contains(t, res.Content, "# Hello")
}

func TestFetchPageRotatesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		calls.Add(1)
		if auth == "Bearer key-1" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"markdown": "# From key 2"},
		})
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), nil, srv.URL, []string{"key-1", "key-2"}, 100)

	res, err := f.FetchPage(context.Background(), "https://docs.example.com/a")
	require.NoError(t, err)
	assert.Equal(t, ContentMarkdown, res.ContentType)
	assert.Contains(t, res.Content, "key 2")

	// key-1 stays retired for subsequent fetches.
	before := calls.Load()
	_, err = f.FetchPage(context.Background(), "https://docs.example.com/b")
	require.NoError(t, err)
	assert.Equal(t, before+1, calls.Load(), "exhausted key must not be retried")
}

func TestFetchPageFallbackWhenPoolExhausted(t *testing.T) {
	var pageSrv *httptest.Server
	pageSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fallbackUserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<html><body><h1>Page</h1></body></html>")
	}))
	defer pageSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer apiSrv.Close()

	f := NewFetcher(pageSrv.Client(), nil, apiSrv.URL, []string{"key-1"}, 100)
	res, err := f.FetchPage(context.Background(), pageSrv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, ContentHTML, res.ContentType)
	assert.True(t, res.Fallback)
	assert.True(t, strings.Contains(res.Content, "<h1>Page</h1>"))
}

func TestFetchPageNoKeysGoesDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>direct</html>")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), nil, "http://unused.invalid", nil, 100)
	res, err := f.FetchPage(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
}

func TestFetchPageTotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), nil, "http://unused.invalid", nil, 100)
	_, err := f.FetchPage(context.Background(), srv.URL+"/page")
	assert.Error(t, err)
}

func TestKeyPoolRoundRobin(t *testing.T) {
	p := newKeyPool([]string{"a", "b", "c"})

	k1, _, err := p.get()
	require.NoError(t, err)
	k2, _, err := p.get()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "round robin advances")

	p.markExhausted(0)
	p.markExhausted(1)
	p.markExhausted(2)
	_, _, err = p.get()
	assert.ErrorIs(t, err, errPoolExhausted)
	assert.Equal(t, 0, p.live())
}

func TestKeyPoolUsageCounts(t *testing.T) {
	p := newKeyPool([]string{"a", "b"})

	for i := 0; i < 3; i++ {
		_, _, err := p.get()
		require.NoError(t, err)
	}
	p.markExhausted(1)

	usage := p.usage()
	require.Len(t, usage, 2)
	assert.Equal(t, 2, usage[0].Uses)
	assert.Equal(t, 1, usage[1].Uses)
	assert.False(t, usage[0].Exhausted)
	assert.True(t, usage[1].Exhausted)
}