// Package service provides the crawl orchestration and retrieval logic.
package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/raphaelgruber/askdocs-go/internal/models"
	"github.com/raphaelgruber/askdocs-go/internal/notify"
)

// Registry is the subset of the database client the service layer uses.
type Registry interface {
	CreateIndexedDoc(ctx context.Context, url, name, jobID, indexedBy string) (*models.IndexedDocument, error)
	GetIndexedDocByURL(ctx context.Context, url string) (*models.IndexedDocument, error)
	UpdateIndexedDoc(ctx context.Context, url string, status models.DocStatus, pages, sections int, errMsg *string) error
	ReclaimFailedDoc(ctx context.Context, url, jobID, indexedBy string) (*models.IndexedDocument, error)
	ListIndexedDocs(ctx context.Context) ([]models.IndexedDocument, error)
	DeleteIndexedDoc(ctx context.Context, url string) error
	CreateCrawlJob(ctx context.Context, url, docName, userID string) (*models.CrawlJob, error)
	GetCrawlJob(ctx context.Context, id string) (*models.CrawlJob, error)
	UpdateCrawlJobProgress(ctx context.Context, id string, status models.JobStatus, progress int, stage string, pagesFound, pagesDone, sections int) error
	FinishCrawlJob(ctx context.Context, id string, status models.JobStatus, progress int, errMsg *string) error
	ListIncompleteJobs(ctx context.Context) ([]models.CrawlJob, error)
	AttachSessionDoc(ctx context.Context, sessionID, docURL, docName string) error
	ListSessionDocs(ctx context.Context, sessionID string) ([]models.SessionDoc, error)
}

// Job is the in-memory state of a crawl job. The database row is the
// durable record; this copy feeds progress events without a DB read.
type Job struct {
	ID          string
	URL         string
	DocName     string
	UserID      string
	SessionID   string
	Status      models.JobStatus
	Progress    int
	Stage       string
	PagesFound  int
	PagesDone   int
	Sections    int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu          sync.RWMutex
	lastPersist time.Time
}

// JobManager tracks running crawl jobs and persists their state.
type JobManager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	registry Registry
	notifier notify.Notifier
}

// NewJobManager creates a job manager. notifier may be nil.
func NewJobManager(registry Registry, notifier notify.Notifier) *JobManager {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &JobManager{
		jobs:     make(map[string]*Job),
		registry: registry,
		notifier: notifier,
	}
}

// CreateJob persists a new queued job and registers it in memory.
func (m *JobManager) CreateJob(ctx context.Context, url, docName, userID, sessionID string) (*Job, error) {
	row, err := m.registry.CreateCrawlJob(ctx, url, docName, userID)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        models.MustRecordIDString(row.ID),
		URL:       url,
		DocName:   docName,
		UserID:    userID,
		SessionID: sessionID,
		Status:    models.JobStatusQueued,
		StartedAt: row.StartedAt,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	slog.Info("crawl job created", "job_id", job.ID, "url", url, "doc", docName)
	return job, nil
}

// GetJob retrieves a job by ID, falling back to the database for jobs
// from previous runs.
func (m *JobManager) GetJob(ctx context.Context, id string) (*Job, error) {
	m.mu.RLock()
	job := m.jobs[id]
	m.mu.RUnlock()
	if job != nil {
		return job, nil
	}

	row, err := m.registry.GetCrawlJob(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return jobFromRow(row), nil
}

// ListJobs returns in-memory jobs, most recent first.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}

	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return jobs
}

// SetStage moves the job into a new stage and always persists.
func (m *JobManager) SetStage(ctx context.Context, job *Job, status models.JobStatus, progress int, stage string) {
	job.mu.Lock()
	job.Status = status
	job.Progress = progress
	job.Stage = stage
	job.lastPersist = time.Now()
	snap := job.snapshotLocked()
	job.mu.Unlock()

	m.persist(ctx, snap)
	m.publish(ctx, snap, "")
}

// UpdateProgress records per-page progress with debounced persistence.
// Every event is published; the DB is written at most every 2 seconds
// unless the counters just reached a boundary.
func (m *JobManager) UpdateProgress(ctx context.Context, job *Job, progress, pagesFound, pagesDone, sections int) {
	job.mu.Lock()
	job.Progress = progress
	job.PagesFound = pagesFound
	job.PagesDone = pagesDone
	job.Sections = sections

	shouldPersist := time.Since(job.lastPersist) > 2*time.Second ||
		pagesDone == pagesFound || pagesDone%10 == 0
	if shouldPersist {
		job.lastPersist = time.Now()
	}
	snap := job.snapshotLocked()
	job.mu.Unlock()

	if shouldPersist {
		m.persist(ctx, snap)
	}
	m.publish(ctx, snap, "")
}

// Complete marks the job finished and publishes the terminal event.
func (m *JobManager) Complete(ctx context.Context, job *Job, pages, sections int) {
	job.mu.Lock()
	job.Status = models.JobStatusComplete
	job.Progress = 100
	job.Stage = "Complete"
	job.PagesDone = pages
	job.Sections = sections
	now := time.Now()
	job.CompletedAt = &now
	snap := job.snapshotLocked()
	job.mu.Unlock()

	if err := m.registry.FinishCrawlJob(ctx, snap.ID, models.JobStatusComplete, 100, nil); err != nil {
		slog.Warn("failed to persist job completion", "job_id", snap.ID, "error", err)
	}

	m.publish(ctx, snap, "")
	slog.Info("crawl job complete", "job_id", snap.ID, "pages", pages, "sections", sections)
}

// Fail marks the job failed and publishes the terminal event.
func (m *JobManager) Fail(ctx context.Context, job *Job, failure error) {
	job.mu.Lock()
	job.Status = models.JobStatusFailed
	job.Error = failure.Error()
	now := time.Now()
	job.CompletedAt = &now
	snap := job.snapshotLocked()
	job.mu.Unlock()

	msg := failure.Error()
	if err := m.registry.FinishCrawlJob(ctx, snap.ID, models.JobStatusFailed, snap.Progress, &msg); err != nil {
		slog.Warn("failed to persist job failure", "job_id", snap.ID, "error", err)
	}

	m.publish(ctx, snap, msg)
	slog.Error("crawl job failed", "job_id", snap.ID, "error", failure)
}

// FailInterruptedJobs marks jobs left incomplete by a previous process
// as failed. Crawl inputs are remote and partial stage state is not
// persisted, so a restart cannot safely resume mid-flight; the failed
// document can be reclaimed by resubmitting the URL.
func (m *JobManager) FailInterruptedJobs(ctx context.Context) error {
	incomplete, err := m.registry.ListIncompleteJobs(ctx)
	if err != nil {
		return err
	}
	if len(incomplete) == 0 {
		return nil
	}

	slog.Info("failing jobs interrupted by restart", "count", len(incomplete))
	msg := "interrupted by server restart"
	for _, row := range incomplete {
		id := models.MustRecordIDString(row.ID)
		if err := m.registry.FinishCrawlJob(ctx, id, models.JobStatusFailed, row.Progress, &msg); err != nil {
			slog.Warn("failed to mark interrupted job failed", "job_id", id, "error", err)
			continue
		}
		if err := m.registry.UpdateIndexedDoc(ctx, row.URL, models.DocStatusFailed, row.PagesDone, row.Sections, &msg); err != nil {
			slog.Warn("failed to mark interrupted doc failed", "url", row.URL, "error", err)
		}
	}
	return nil
}

func (m *JobManager) persist(ctx context.Context, snap Job) {
	err := m.registry.UpdateCrawlJobProgress(ctx, snap.ID, snap.Status, snap.Progress,
		snap.Stage, snap.PagesFound, snap.PagesDone, snap.Sections)
	if err != nil {
		slog.Warn("failed to persist job progress", "job_id", snap.ID, "error", err)
	}
}

func (m *JobManager) publish(ctx context.Context, snap Job, errMsg string) {
	m.notifier.Publish(ctx, notify.Event{
		JobID:      snap.ID,
		UserID:     snap.UserID,
		DocName:    snap.DocName,
		Status:     snap.Status,
		Stage:      snap.Stage,
		Progress:   snap.Progress,
		PagesFound: snap.PagesFound,
		PagesDone:  snap.PagesDone,
		Sections:   snap.Sections,
		Error:      errMsg,
	})
}

// Snapshot returns a thread-safe copy of the job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Job {
	return Job{
		ID:          j.ID,
		URL:         j.URL,
		DocName:     j.DocName,
		UserID:      j.UserID,
		SessionID:   j.SessionID,
		Status:      j.Status,
		Progress:    j.Progress,
		Stage:       j.Stage,
		PagesFound:  j.PagesFound,
		PagesDone:   j.PagesDone,
		Sections:    j.Sections,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

func jobFromRow(row *models.CrawlJob) *Job {
	job := &Job{
		ID:          models.MustRecordIDString(row.ID),
		URL:         row.URL,
		DocName:     row.DocName,
		UserID:      row.UserID,
		Status:      row.Status,
		Progress:    row.Progress,
		Stage:       row.Stage,
		PagesFound:  row.PagesFound,
		PagesDone:   row.PagesDone,
		Sections:    row.Sections,
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}
	if row.Error != nil {
		job.Error = *row.Error
	}
	return job
}
