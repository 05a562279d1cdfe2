// Package models defines data structures for the askdocs indexing pipeline.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusDiscovering JobStatus = "discovering"
	JobStatusCrawling    JobStatus = "crawling"
	JobStatusEmbedding   JobStatus = "embedding"
	JobStatusComplete    JobStatus = "complete"
	JobStatusFailed      JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// CrawlJob represents a persisted async documentation crawl.
type CrawlJob struct {
	ID          surrealmodels.RecordID `json:"id"`
	URL         string                 `json:"url"` // normalized base URL
	DocName     string                 `json:"doc_name"`
	UserID      string                 `json:"user_id,omitempty"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"` // 0-100
	Stage       string                 `json:"stage,omitempty"`
	PagesFound  int                    `json:"pages_found"`
	PagesDone   int                    `json:"pages_done"`
	Sections    int                    `json:"sections"`
	Error       *string                `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// DocStatus is the indexing state of a documentation site.
type DocStatus string

const (
	DocStatusIndexing DocStatus = "indexing"
	DocStatusComplete DocStatus = "complete"
	DocStatusFailed   DocStatus = "failed"
)

// IndexedDocument is the registry entry for a documentation site.
// The URL field carries a unique index; creating a duplicate entry
// is how concurrent crawls of the same site are fenced off.
type IndexedDocument struct {
	ID        surrealmodels.RecordID `json:"id"`
	URL       string                 `json:"url"` // normalized base URL
	Name      string                 `json:"name"`
	Status    DocStatus              `json:"status"`
	JobID     string                 `json:"job_id,omitempty"`
	IndexedBy string                 `json:"indexed_by,omitempty"` // first indexer pays the cost
	Pages     int                    `json:"pages"`
	Sections  int                    `json:"sections"`
	Error     *string                `json:"error,omitempty"`
	IndexedAt time.Time              `json:"indexed_at"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
}

// SessionDoc attaches an indexed document to a user session so that
// searches can default to the docs the session has been working with.
type SessionDoc struct {
	ID         surrealmodels.RecordID `json:"id"`
	SessionID  string                 `json:"session_id"`
	DocURL     string                 `json:"doc_url"`
	DocName    string                 `json:"doc_name"`
	AttachedAt time.Time              `json:"attached_at"`
}
