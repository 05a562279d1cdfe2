// Package db provides SurrealDB query functions for the documentation registry.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphaelgruber/askdocs-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// Stats aggregates registry-wide counts.
type Stats struct {
	Docs       int `json:"docs"`
	Pages      int `json:"pages"`
	Sections   int `json:"sections"`
	ActiveJobs int `json:"active_jobs"`
}

// ==========================================================================
// Indexed documents
// ==========================================================================

// CreateIndexedDoc inserts a registry entry for a documentation site.
// The unique url index rejects duplicates, so concurrent submissions of
// the same site race on this call and exactly one caller wins the claim.
// Losers get ErrAlreadyExists and should read the existing entry instead.
func (c *Client) CreateIndexedDoc(ctx context.Context, url, name, jobID, indexedBy string) (*models.IndexedDocument, error) {
	results, err := surrealdb.Query[[]models.IndexedDocument](ctx, c.db, `
		CREATE indexed_doc SET
			url = $url,
			name = $name,
			status = $status,
			job_id = $job_id,
			indexed_by = $indexed_by
	`, map[string]any{
		"url":        url,
		"name":       name,
		"status":     string(models.DocStatusIndexing),
		"job_id":     jobID,
		"indexed_by": indexedBy,
	})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create indexed doc: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetIndexedDocByURL retrieves a registry entry by its normalized base URL.
// Returns nil if not found.
func (c *Client) GetIndexedDocByURL(ctx context.Context, url string) (*models.IndexedDocument, error) {
	results, err := surrealdb.Query[[]models.IndexedDocument](ctx, c.db, `
		SELECT * FROM indexed_doc WHERE url = $url LIMIT 1
	`, map[string]any{"url": url})
	if err != nil {
		return nil, fmt.Errorf("get indexed doc: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// UpdateIndexedDoc updates the status and counters of a registry entry.
// errMsg may be nil to clear any previous error.
func (c *Client) UpdateIndexedDoc(ctx context.Context, url string, status models.DocStatus, pages, sections int, errMsg *string) error {
	vars := map[string]any{
		"url":      url,
		"status":   string(status),
		"pages":    pages,
		"sections": sections,
	}
	errClause := "error = NONE"
	if errMsg != nil {
		errClause = "error = $error"
		vars["error"] = *errMsg
	}

	sql := fmt.Sprintf(`
		UPDATE indexed_doc SET
			status = $status,
			pages = $pages,
			sections = $sections,
			%s,
			updated_at = time::now()
		WHERE url = $url
	`, errClause)

	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("update indexed doc: %w", err)
	}
	return nil
}

// ReclaimFailedDoc flips a failed registry entry back to indexing so a
// resubmitted crawl can retry it. The status guard in the WHERE clause
// makes the reclaim atomic. Returns nil if the entry was not failed
// (someone else reclaimed it first, or it completed meanwhile).
func (c *Client) ReclaimFailedDoc(ctx context.Context, url, jobID, indexedBy string) (*models.IndexedDocument, error) {
	results, err := surrealdb.Query[[]models.IndexedDocument](ctx, c.db, `
		UPDATE indexed_doc SET
			status = $status,
			job_id = $job_id,
			indexed_by = $indexed_by,
			error = NONE,
			updated_at = time::now()
		WHERE url = $url AND status = $failed
		RETURN AFTER
	`, map[string]any{
		"url":        url,
		"status":     string(models.DocStatusIndexing),
		"failed":     string(models.DocStatusFailed),
		"job_id":     jobID,
		"indexed_by": indexedBy,
	})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListIndexedDocs returns all registry entries, newest first.
func (c *Client) ListIndexedDocs(ctx context.Context) ([]models.IndexedDocument, error) {
	results, err := surrealdb.Query[[]models.IndexedDocument](ctx, c.db, `
		SELECT * FROM indexed_doc ORDER BY indexed_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list indexed docs: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.IndexedDocument{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteIndexedDoc removes a registry entry by URL. Vector points for the
// doc are cleaned up separately by the caller.
func (c *Client) DeleteIndexedDoc(ctx context.Context, url string) error {
	if _, err := surrealdb.Query[any](ctx, c.db, `
		DELETE indexed_doc WHERE url = $url
	`, map[string]any{"url": url}); err != nil {
		return fmt.Errorf("delete indexed doc: %w", err)
	}
	return nil
}

// ==========================================================================
// Crawl jobs
// ==========================================================================

// CreateCrawlJob persists a new crawl job in queued state.
func (c *Client) CreateCrawlJob(ctx context.Context, url, docName, userID string) (*models.CrawlJob, error) {
	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		CREATE crawl_job SET
			url = $url,
			doc_name = $doc_name,
			user_id = $user_id,
			status = $status
	`, map[string]any{
		"url":      url,
		"doc_name": docName,
		"user_id":  userID,
		"status":   string(models.JobStatusQueued),
	})
	if err != nil {
		return nil, wrapQueryError(err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create crawl job: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetCrawlJob retrieves a crawl job by ID.
// Returns nil if not found.
func (c *Client) GetCrawlJob(ctx context.Context, id string) (*models.CrawlJob, error) {
	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		SELECT * FROM type::record("crawl_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get crawl job: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// UpdateCrawlJobProgress writes the current stage and counters of a
// running job. Called from the orchestrator on every progress tick, so
// it touches only the mutable fields.
func (c *Client) UpdateCrawlJobProgress(ctx context.Context, id string, status models.JobStatus, progress int, stage string, pagesFound, pagesDone, sections int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("crawl_job", $id) SET
			status = $status,
			progress = $progress,
			stage = $stage,
			pages_found = $pages_found,
			pages_done = $pages_done,
			sections = $sections
	`, map[string]any{
		"id":          id,
		"status":      string(status),
		"progress":    progress,
		"stage":       stage,
		"pages_found": pagesFound,
		"pages_done":  pagesDone,
		"sections":    sections,
	})
	if err != nil {
		return fmt.Errorf("update crawl job: %w", err)
	}
	return nil
}

// FinishCrawlJob marks a job terminal and stamps completed_at.
// errMsg is nil for successful completion.
func (c *Client) FinishCrawlJob(ctx context.Context, id string, status models.JobStatus, progress int, errMsg *string) error {
	vars := map[string]any{
		"id":       id,
		"status":   string(status),
		"progress": progress,
	}
	errClause := "error = NONE"
	if errMsg != nil {
		errClause = "error = $error"
		vars["error"] = *errMsg
	}

	sql := fmt.Sprintf(`
		UPDATE type::record("crawl_job", $id) SET
			status = $status,
			progress = $progress,
			%s,
			completed_at = time::now()
	`, errClause)

	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("finish crawl job: %w", err)
	}
	return nil
}

// ListCrawlJobs returns recent jobs, newest first. A zero limit
// defaults to 50.
func (c *Client) ListCrawlJobs(ctx context.Context, userID string, limit int) ([]models.CrawlJob, error) {
	if limit <= 0 {
		limit = 50
	}

	userClause := ""
	vars := map[string]any{"limit": limit}
	if userID != "" {
		userClause = "WHERE user_id = $user_id"
		vars["user_id"] = userID
	}

	sql := fmt.Sprintf(`
		SELECT * FROM crawl_job %s ORDER BY started_at DESC LIMIT $limit
	`, userClause)

	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list crawl jobs: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.CrawlJob{}, nil
	}
	return (*results)[0].Result, nil
}

// ListIncompleteJobs returns jobs that were interrupted mid-flight,
// oldest first so resume picks them up in submission order.
func (c *Client) ListIncompleteJobs(ctx context.Context) ([]models.CrawlJob, error) {
	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		SELECT * FROM crawl_job
		WHERE status NOT IN [$complete, $failed]
		ORDER BY started_at ASC
	`, map[string]any{
		"complete": string(models.JobStatusComplete),
		"failed":   string(models.JobStatusFailed),
	})
	if err != nil {
		return nil, fmt.Errorf("list incomplete jobs: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.CrawlJob{}, nil
	}
	return (*results)[0].Result, nil
}

// ==========================================================================
// Session docs
// ==========================================================================

// AttachSessionDoc links an indexed doc to a session. Attaching the same
// doc twice is a no-op thanks to the unique (session_id, doc_url) index.
func (c *Client) AttachSessionDoc(ctx context.Context, sessionID, docURL, docName string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE session_doc SET
			session_id = $session_id,
			doc_url = $doc_url,
			doc_name = $doc_name
	`, map[string]any{
		"session_id": sessionID,
		"doc_url":    docURL,
		"doc_name":   docName,
	})
	if err != nil {
		wrapped := wrapQueryError(err)
		if errors.Is(wrapped, ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("attach session doc: %w", wrapped)
	}
	return nil
}

// ListSessionDocs returns the docs attached to a session, in attach order.
func (c *Client) ListSessionDocs(ctx context.Context, sessionID string) ([]models.SessionDoc, error) {
	results, err := surrealdb.Query[[]models.SessionDoc](ctx, c.db, `
		SELECT * FROM session_doc WHERE session_id = $session_id ORDER BY attached_at ASC
	`, map[string]any{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("list session docs: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.SessionDoc{}, nil
	}
	return (*results)[0].Result, nil
}

// ==========================================================================
// Stats
// ==========================================================================

// QueryStats returns registry-wide counts for the stats endpoint.
func (c *Client) QueryStats(ctx context.Context) (*Stats, error) {
	type docTotals struct {
		Docs     int `json:"docs"`
		Pages    int `json:"pages"`
		Sections int `json:"sections"`
	}
	docResults, err := surrealdb.Query[[]docTotals](ctx, c.db, `
		SELECT count() AS docs, math::sum(pages) AS pages, math::sum(sections) AS sections
		FROM indexed_doc GROUP ALL
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("stats docs: %w", err)
	}

	stats := &Stats{}
	if docResults != nil && len(*docResults) > 0 && len((*docResults)[0].Result) > 0 {
		t := (*docResults)[0].Result[0]
		stats.Docs = t.Docs
		stats.Pages = t.Pages
		stats.Sections = t.Sections
	}

	type activeCount struct {
		C int `json:"c"`
	}
	jobResults, err := surrealdb.Query[[]activeCount](ctx, c.db, `
		SELECT count() AS c FROM crawl_job
		WHERE status NOT IN [$complete, $failed] GROUP ALL
	`, map[string]any{
		"complete": string(models.JobStatusComplete),
		"failed":   string(models.JobStatusFailed),
	})
	if err != nil {
		return nil, fmt.Errorf("stats jobs: %w", err)
	}
	if jobResults != nil && len(*jobResults) > 0 && len((*jobResults)[0].Result) > 0 {
		stats.ActiveJobs = (*jobResults)[0].Result[0].C
	}

	return stats, nil
}
