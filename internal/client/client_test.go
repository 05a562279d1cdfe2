package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitDoc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/docs", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://docs.example.com", body["url"])
		assert.Equal(t, "sess-1", body["session_id"])

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(SubmitResult{
			Status: "queued", JobID: "job1", DocName: "example", URL: body["url"],
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.SubmitDoc(context.Background(), "https://docs.example.com", "", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "queued", res.Status)
	assert.Equal(t, "job1", res.JobID)
}

func TestSearchQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "webhooks", q.Get("q"))
		assert.Equal(t, "sess-1", q.Get("session_id"))
		assert.Equal(t, "5", q.Get("limit"))

		json.NewEncoder(w).Encode(SearchResult{
			Hits:       []SearchHit{{ID: "a", Score: 0.9, Content: "retry with backoff"}},
			Confidence: 0.9,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.Search(context.Background(), "webhooks", SearchOptions{SessionID: "sess-1", Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 0.9, res.Confidence)
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "url is required"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.SubmitDoc(context.Background(), "https://docs.example.com", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestFollowJobStopsOnTerminalEvent(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/progress", r.URL.Path)
		assert.Equal(t, "job1", r.URL.Query().Get("job_id"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		events := []ProgressEvent{
			{JobID: "job1", Status: "crawling", Progress: 40},
			{JobID: "job1", Status: "complete", Progress: 100},
		}
		for _, ev := range events {
			require.NoError(t, conn.WriteJSON(ev))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	var got []ProgressEvent
	err := c.FollowJob(context.Background(), "job1", func(ev ProgressEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "complete", got[1].Status)
}
