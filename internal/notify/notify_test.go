package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/askdocs-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestMultiFansOut(t *testing.T) {
	a := &recorder{}
	b := &recorder{}
	m := Multi{a, b}

	m.Publish(context.Background(), Event{JobID: "j1", Status: models.JobStatusCrawling, Progress: 40})

	require.Len(t, a.all(), 1)
	require.Len(t, b.all(), 1)
	assert.Equal(t, "j1", a.all()[0].JobID)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "crawl-u42", Channel("u42"))
	assert.Equal(t, "crawl-events", Channel(""))
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for registration
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ClientCount())

	hub.Publish(context.Background(), Event{
		JobID:    "job-1",
		Status:   models.JobStatusEmbedding,
		Stage:    "Embedding sections",
		Progress: 80,
		Sections: 120,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, models.JobStatusEmbedding, got.Status)
	assert.Equal(t, 80, got.Progress)
}

func TestHubConcurrentPublish(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ClientCount())

	const publishers = 8
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				hub.Publish(context.Background(), Event{
					JobID:    "job-1",
					Status:   models.JobStatusCrawling,
					Progress: p*perPublisher + i,
				})
			}
		}(p)
	}
	wg.Wait()

	// Every frame must arrive whole; interleaved writes would corrupt
	// the stream and fail the JSON decode.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < publishers*perPublisher; i++ {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		var got Event
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, "job-1", got.JobID)
	}
}

func TestHubJobFilter(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?job_id=job-2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// Event for a different job must not reach this client
	hub.Publish(context.Background(), Event{JobID: "job-1", Progress: 10})
	hub.Publish(context.Background(), Event{JobID: "job-2", Progress: 20})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "job-2", got.JobID)
}
