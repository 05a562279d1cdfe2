// Package client provides a JSON HTTP client for the askdocs server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to the askdocs HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses ASKDOCS_SERVER_URL env var or defaults to localhost:8090.
// Timeout can be configured via ASKDOCS_CLIENT_TIMEOUT env var (default 2m; crawls run
// server-side, so requests themselves are short).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("ASKDOCS_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 2 * time.Minute
	if t := os.Getenv("ASKDOCS_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the error payload the server returns for non-2xx responses.
type apiError struct {
	Error string `json:"error"`
}

// do sends a request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s", apiErr.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(raw))
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// SubmitResult is the outcome of a document submission.
type SubmitResult struct {
	Status    string `json:"status"` // "ready", "indexing", "queued"
	JobID     string `json:"job_id,omitempty"`
	DocName   string `json:"doc_name"`
	URL       string `json:"url"`
	Message   string `json:"message,omitempty"`
	FromCache bool   `json:"from_cache"`
}

// SubmitDoc registers a documentation site for indexing.
func (c *Client) SubmitDoc(ctx context.Context, docURL, userID, sessionID string) (*SubmitResult, error) {
	body := map[string]string{"url": docURL}
	if userID != "" {
		body["user_id"] = userID
	}
	if sessionID != "" {
		body["session_id"] = sessionID
	}

	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/docs", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IndexedDoc is a registered documentation site.
type IndexedDoc struct {
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Pages     int       `json:"pages"`
	Sections  int       `json:"sections"`
	Error     *string   `json:"error,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}

// ListDocs returns all registered documentation sites.
func (c *Client) ListDocs(ctx context.Context) ([]IndexedDoc, error) {
	var result struct {
		Docs []IndexedDoc `json:"docs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/docs", nil, &result); err != nil {
		return nil, err
	}
	return result.Docs, nil
}

// RemoveDoc deletes an indexed documentation site and its sections.
func (c *Client) RemoveDoc(ctx context.Context, docURL string) error {
	return c.do(ctx, http.MethodDelete, "/api/docs?url="+url.QueryEscape(docURL), nil, nil)
}

// SearchHit is a matching documentation section.
type SearchHit struct {
	ID            string  `json:"id"`
	Score         float64 `json:"score"`
	Content       string  `json:"content"`
	Heading       string  `json:"heading"`
	ParentHeading string  `json:"parent_heading,omitempty"`
	CodeSnippet   string  `json:"code_snippet,omitempty"`
	Language      string  `json:"language,omitempty"`
	SourceURL     string  `json:"source_url"`
	BaseURL       string  `json:"base_url"`
	DocName       string  `json:"doc_name"`
	Category      string  `json:"category"`
}

// SearchOptions configures a search request.
type SearchOptions struct {
	Doc       string // restrict to a single doc by base URL
	SessionID string // restrict to the session's attached docs
	Limit     int
}

// SearchResult carries hits plus multi-doc scoping metadata when the
// search was session-scoped.
type SearchResult struct {
	Hits       []SearchHit `json:"hits"`
	TargetDocs []string    `json:"target_docs,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
}

// Search queries the section index.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if opts.Doc != "" {
		q.Set("doc", opts.Doc)
	}
	if opts.SessionID != "" {
		q.Set("session_id", opts.SessionID)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var result SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/search?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Job is the state of a crawl job.
type Job struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	DocName     string     `json:"doc_name"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Stage       string     `json:"stage,omitempty"`
	PagesFound  int        `json:"pages_found"`
	PagesDone   int        `json:"pages_done"`
	Sections    int        `json:"sections"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has finished.
func (j *Job) Terminal() bool {
	return j.Status == "complete" || j.Status == "failed"
}

// GetJob retrieves a crawl job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var result Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs returns the known crawl jobs.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var result struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// Stats returns the server's runtime statistics as raw JSON keyed by
// section, since the shape varies with what the server has wired.
func (c *Client) Stats(ctx context.Context) (map[string]json.RawMessage, error) {
	var result map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ProgressEvent is a crawl progress update pushed over the WebSocket.
type ProgressEvent struct {
	JobID      string `json:"job_id"`
	UserID     string `json:"user_id,omitempty"`
	DocName    string `json:"doc_name"`
	Status     string `json:"status"`
	Stage      string `json:"stage,omitempty"`
	Message    string `json:"message,omitempty"`
	Progress   int    `json:"progress"`
	PagesFound int    `json:"pages_found"`
	PagesDone  int    `json:"pages_done"`
	Sections   int    `json:"sections"`
	Error      string `json:"error,omitempty"`
}

// Terminal reports whether the event marks the end of the job.
func (e *ProgressEvent) Terminal() bool {
	return e.Status == "complete" || e.Status == "failed"
}

// FollowJob subscribes to progress events for a job and invokes onEvent
// for each one. Returns when the job reaches a terminal state, the
// context is cancelled, or onEvent returns an error.
func (c *Client) FollowJob(ctx context.Context, jobID string, onEvent func(ProgressEvent) error) error {
	wsURL := c.baseURL
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/api/progress?job_id=" + url.QueryEscape(jobID)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var ev ProgressEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := onEvent(ev); err != nil {
			return err
		}
		if ev.Terminal() {
			return nil
		}
	}
}
