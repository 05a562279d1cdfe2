package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/askdocs-go/internal/config"
	"github.com/raphaelgruber/askdocs-go/internal/crawler"
	"github.com/raphaelgruber/askdocs-go/internal/db"
	"github.com/raphaelgruber/askdocs-go/internal/embedding"
	"github.com/raphaelgruber/askdocs-go/internal/extract"
	"github.com/raphaelgruber/askdocs-go/internal/metrics"
	"github.com/raphaelgruber/askdocs-go/internal/models"
	"github.com/raphaelgruber/askdocs-go/internal/vector"
)

// PageDiscoverer finds the crawlable page URLs of a documentation site.
type PageDiscoverer interface {
	Discover(ctx context.Context, baseURL string) ([]string, error)
}

// PageFetcher retrieves a single page as markdown or HTML.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*crawler.FetchResult, error)
}

// SectionStore is the vector index the pipeline writes to and reads from.
type SectionStore interface {
	Upsert(ctx context.Context, points []vector.Point) error
	Search(ctx context.Context, vec []float32, limit uint64) ([]models.SearchHit, error)
	Count(ctx context.Context) (uint64, error)
	DeleteByBaseURL(ctx context.Context, baseURL string) error
}

// SubmitStatus is the outcome of a crawl submission.
type SubmitStatus string

const (
	SubmitReady    SubmitStatus = "ready"    // already indexed, nothing to do
	SubmitIndexing SubmitStatus = "indexing" // a crawl is already running
	SubmitQueued   SubmitStatus = "queued"   // new job started
)

// SubmitResult is returned from SubmitCrawl.
type SubmitResult struct {
	Status    SubmitStatus `json:"status"`
	JobID     string       `json:"job_id,omitempty"`
	DocName   string       `json:"doc_name"`
	URL       string       `json:"url"`
	Message   string       `json:"message,omitempty"`
	FromCache bool         `json:"from_cache"`
}

// CrawlService runs the discover/fetch/extract/embed pipeline as
// durable background jobs.
type CrawlService struct {
	registry   Registry
	jobs       *JobManager
	discoverer PageDiscoverer
	fetcher    PageFetcher
	store      SectionStore
	embedder   embedding.Embedder
	metrics    *metrics.Collector
	cfg        config.Config
}

// NewCrawlService wires the pipeline. metrics may be nil.
func NewCrawlService(
	registry Registry,
	jobs *JobManager,
	discoverer PageDiscoverer,
	fetcher PageFetcher,
	store SectionStore,
	embedder embedding.Embedder,
	collector *metrics.Collector,
	cfg config.Config,
) *CrawlService {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &CrawlService{
		registry:   registry,
		jobs:       jobs,
		discoverer: discoverer,
		fetcher:    fetcher,
		store:      store,
		embedder:   embedder,
		metrics:    collector,
		cfg:        cfg,
	}
}

// Jobs exposes the job manager for the API layer.
func (s *CrawlService) Jobs() *JobManager {
	return s.jobs
}

// RemoveDoc deletes an indexed site: its vector points first, then the
// registry entry, so a half-failed removal leaves the doc resubmittable
// rather than orphaning points.
func (s *CrawlService) RemoveDoc(ctx context.Context, rawURL string) error {
	normalized, err := models.NormalizeURL(rawURL)
	if err != nil {
		return err
	}

	doc, err := s.registry.GetIndexedDocByURL(ctx, normalized)
	if err != nil {
		return err
	}
	if doc == nil {
		return db.ErrNotFound
	}
	if doc.Status == models.DocStatusIndexing {
		return fmt.Errorf("doc %s is currently being indexed", normalized)
	}

	if err := s.store.DeleteByBaseURL(ctx, normalized); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	if err := s.registry.DeleteIndexedDoc(ctx, normalized); err != nil {
		return fmt.Errorf("delete registry entry: %w", err)
	}
	slog.Info("removed indexed doc", "url", normalized, "pages", doc.Pages, "sections", doc.Sections)
	return nil
}

// SubmitCrawl registers a documentation site for indexing. The same URL
// is never crawled twice concurrently: the registry's unique url index
// arbitrates races between submitters.
func (s *CrawlService) SubmitCrawl(ctx context.Context, rawURL, userID, sessionID string) (*SubmitResult, error) {
	baseURL, err := models.NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	docName := models.DocNameFromURL(baseURL)

	// Fast path: already known
	doc, err := s.registry.GetIndexedDocByURL(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("lookup doc: %w", err)
	}
	if doc != nil {
		switch doc.Status {
		case models.DocStatusComplete:
			s.attachSession(ctx, sessionID, baseURL, doc.Name)
			return &SubmitResult{
				Status:    SubmitReady,
				DocName:   doc.Name,
				URL:       baseURL,
				Message:   fmt.Sprintf("%s is already indexed (%d sections)", doc.Name, doc.Sections),
				FromCache: true,
			}, nil
		case models.DocStatusIndexing:
			return &SubmitResult{
				Status:  SubmitIndexing,
				JobID:   doc.JobID,
				DocName: doc.Name,
				URL:     baseURL,
				Message: fmt.Sprintf("%s is currently being indexed", doc.Name),
			}, nil
		case models.DocStatusFailed:
			return s.resubmit(ctx, baseURL, docName, userID, sessionID)
		}
	}

	job, err := s.jobs.CreateJob(ctx, baseURL, docName, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// Claim the URL. Losing the race means another submitter got here
	// between our lookup and now.
	if _, err := s.registry.CreateIndexedDoc(ctx, baseURL, docName, job.ID, userID); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			s.jobs.Fail(ctx, job, errors.New("duplicate submission"))
			return s.SubmitCrawl(ctx, baseURL, userID, sessionID)
		}
		s.jobs.Fail(ctx, job, err)
		return nil, fmt.Errorf("claim doc: %w", err)
	}

	go s.runJob(job)

	return &SubmitResult{
		Status:  SubmitQueued,
		JobID:   job.ID,
		DocName: docName,
		URL:     baseURL,
		Message: fmt.Sprintf("Crawling %s", baseURL),
	}, nil
}

// resubmit reclaims a failed document for a fresh crawl.
func (s *CrawlService) resubmit(ctx context.Context, baseURL, docName, userID, sessionID string) (*SubmitResult, error) {
	job, err := s.jobs.CreateJob(ctx, baseURL, docName, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	doc, err := s.registry.ReclaimFailedDoc(ctx, baseURL, job.ID, userID)
	if err != nil {
		s.jobs.Fail(ctx, job, err)
		return nil, fmt.Errorf("reclaim doc: %w", err)
	}
	if doc == nil {
		// Someone else reclaimed or completed it while we were creating
		// the job; report the current state instead.
		s.jobs.Fail(ctx, job, errors.New("duplicate submission"))
		return s.SubmitCrawl(ctx, baseURL, userID, sessionID)
	}

	go s.runJob(job)

	return &SubmitResult{
		Status:  SubmitQueued,
		JobID:   job.ID,
		DocName: docName,
		URL:     baseURL,
		Message: fmt.Sprintf("Retrying crawl of %s", baseURL),
	}, nil
}

func (s *CrawlService) attachSession(ctx context.Context, sessionID, baseURL, docName string) {
	if sessionID == "" {
		return
	}
	if err := s.registry.AttachSessionDoc(ctx, sessionID, baseURL, docName); err != nil {
		slog.Warn("failed to attach session doc", "session", sessionID, "url", baseURL, "error", err)
	}
}

// runJob drives a crawl job through its stages. Runs in its own
// goroutine; uses a background context bounded by the job timeout so a
// disconnecting submitter cannot cancel the crawl.
func (s *CrawlService) runJob(job *Job) {
	timeout := s.cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("crawl job panicked", "job_id", job.ID, "panic", r)
			s.failJob(context.Background(), job, fmt.Errorf("internal panic: %v", r))
		}
	}()

	if err := s.execute(ctx, job); err != nil {
		// Report timeouts in wall-clock terms, not context jargon
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("crawl timed out after %s", timeout)
		}
		s.failJob(context.Background(), job, err)
	}
}

func (s *CrawlService) execute(ctx context.Context, job *Job) error {
	// Stage 1: discovery (0 -> 10%)
	s.jobs.SetStage(ctx, job, models.JobStatusDiscovering, 0, "Discovering pages")

	var urls []string
	err := s.withRetry(ctx, "discover", func() error {
		var derr error
		urls, derr = s.discoverer.Discover(ctx, job.URL)
		if errors.Is(derr, crawler.ErrNoPages) {
			// Nothing to retry: the site has no reachable pages
			return nil
		}
		return derr
	})
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if len(urls) == 0 {
		return errors.New("no pages found to crawl")
	}

	job.mu.Lock()
	job.PagesFound = len(urls)
	job.mu.Unlock()
	s.jobs.SetStage(ctx, job, models.JobStatusCrawling, 10, "Fetching pages")

	// Stage 2: fetch + extract (10 -> 70%)
	sections, pagesDone := s.crawlPages(ctx, job, urls)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	sections = extract.Deduplicate(sections, s.maxSections(), s.dedupKeyChars())

	if len(sections) == 0 {
		slog.Warn("crawl produced no sections", "job_id", job.ID, "pages", pagesDone)
		s.completeJob(ctx, job, pagesDone, 0)
		return nil
	}

	// Stage 3: embed + store (70 -> 100%)
	s.jobs.SetStage(ctx, job, models.JobStatusEmbedding, 70, "Embedding sections")

	stored, err := s.embedSections(ctx, job, sections)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	s.completeJob(ctx, job, pagesDone, stored)
	return nil
}

// crawlPages fans page fetches out over a bounded worker pool. Results
// keep their page ordinal so section order is stable across runs.
func (s *CrawlService) crawlPages(ctx context.Context, job *Job, urls []string) ([]models.Section, int) {
	workers := s.cfg.CrawlWorkers
	if workers <= 0 {
		workers = 4
	}
	opts := extract.Options{
		MinCodeChars: s.cfg.MinCodeChars,
		MaxCodeChars: s.cfg.MaxCodeChars,
	}
	if opts.MinCodeChars == 0 && opts.MaxCodeChars == 0 {
		opts = extract.DefaultOptions()
	}

	perPage := make([][]models.Section, len(urls))
	var pagesDone atomic.Int32

	type workItem struct {
		ordinal int
		url     string
	}
	work := make(chan workItem, len(urls))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				if ctx.Err() != nil {
					return
				}

				start := time.Now()
				result, err := s.fetcher.FetchPage(ctx, item.url)
				s.metrics.RecordTiming("fetch", time.Since(start))
				if err != nil {
					slog.Warn("page fetch failed", "url", item.url, "error", err)
				} else {
					page := extract.Page{
						SourceURL: item.url,
						BaseURL:   job.URL,
						DocName:   job.DocName,
					}
					extractStart := time.Now()
					if result.ContentType == crawler.ContentHTML {
						perPage[item.ordinal] = extract.FromHTML(result.Content, page, opts)
					} else {
						perPage[item.ordinal] = extract.FromMarkdown(result.Content, page, opts)
					}
					s.metrics.RecordTiming("extract", time.Since(extractStart))
				}

				done := int(pagesDone.Add(1))
				progress := 10 + 60*done/len(urls)
				s.jobs.UpdateProgress(ctx, job, progress, len(urls), done, 0)
			}
		}()
	}

	for i, u := range urls {
		work <- workItem{ordinal: i, url: u}
	}
	close(work)
	wg.Wait()

	var sections []models.Section
	for _, pageSections := range perPage {
		sections = append(sections, pageSections...)
	}

	slog.Info("crawl stage complete",
		"job_id", job.ID,
		"pages", pagesDone.Load(),
		"sections", len(sections))

	if tracker, ok := s.fetcher.(interface{ Usage() []crawler.KeyUsage }); ok {
		for _, ku := range tracker.Usage() {
			if ku.Uses == 0 {
				continue
			}
			slog.Debug("extraction service key usage",
				"job_id", job.ID,
				"key_index", ku.Index,
				"calls", ku.Uses,
				"rate_limited", ku.Exhausted)
		}
	}

	return sections, int(pagesDone.Load())
}

// embedSections embeds sections in batches and upserts them. A failed
// batch is logged and skipped so one bad batch cannot sink the job.
func (s *CrawlService) embedSections(ctx context.Context, job *Job, sections []models.Section) (int, error) {
	batchSize := s.cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	stored := 0
	failedBatches := 0
	total := len(sections)

	for start := 0; start < total; start += batchSize {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}

		end := min(start+batchSize, total)
		batch := sections[start:end]

		inputs := make([]string, len(batch))
		for i := range batch {
			inputs[i] = embedding.BuildInput(&batch[i])
		}

		var batchTokens int64
		for i := range batch {
			batchTokens += int64(batch[i].TokenEstimate())
		}

		var vectors [][]float32
		err := s.withRetry(ctx, "embed batch", func() error {
			embedStart := time.Now()
			var berr error
			vectors, berr = s.embedder.EmbedBatch(ctx, inputs)
			s.metrics.RecordEmbedding(time.Since(embedStart), batchTokens)
			return berr
		})
		if err != nil {
			slog.Warn("embedding batch failed, skipping", "job_id", job.ID, "batch_start", start, "error", err)
			failedBatches++
			continue
		}

		points := make([]vector.Point, len(batch))
		for i := range batch {
			points[i] = vector.NewPoint(batch[i], vectors[i], job.UserID)
		}

		err = s.withRetry(ctx, "upsert batch", func() error {
			upsertStart := time.Now()
			uerr := s.store.Upsert(ctx, points)
			s.metrics.RecordTiming("vector_upsert", time.Since(upsertStart))
			return uerr
		})
		if err != nil {
			slog.Warn("vector upsert failed, skipping", "job_id", job.ID, "batch_start", start, "error", err)
			failedBatches++
			continue
		}

		stored += len(points)
		progress := 70 + 30*end/total
		s.jobs.UpdateProgress(ctx, job, progress, job.Snapshot().PagesFound, job.Snapshot().PagesDone, stored)
	}

	if stored == 0 && failedBatches > 0 {
		return 0, fmt.Errorf("all %d embedding batches failed", failedBatches)
	}
	return stored, nil
}

func (s *CrawlService) completeJob(ctx context.Context, job *Job, pages, sections int) {
	if err := s.registry.UpdateIndexedDoc(ctx, job.URL, models.DocStatusComplete, pages, sections, nil); err != nil {
		slog.Warn("failed to mark doc complete", "url", job.URL, "error", err)
	}
	s.attachSession(ctx, job.SessionID, job.URL, job.DocName)
	s.jobs.Complete(ctx, job, pages, sections)
}

func (s *CrawlService) failJob(ctx context.Context, job *Job, failure error) {
	msg := failure.Error()
	if err := s.registry.UpdateIndexedDoc(ctx, job.URL, models.DocStatusFailed, job.Snapshot().PagesDone, job.Snapshot().Sections, &msg); err != nil {
		slog.Warn("failed to mark doc failed", "url", job.URL, "error", err)
	}
	s.jobs.Fail(ctx, job, failure)
}

// withRetry runs fn up to StageRetries+1 times with doubling backoff.
func (s *CrawlService) withRetry(ctx context.Context, op string, fn func() error) error {
	retries := s.cfg.StageRetries
	if retries < 0 {
		retries = 0
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			slog.Debug("retrying stage", "op", op, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

func (s *CrawlService) maxSections() int {
	if s.cfg.MaxSections > 0 {
		return s.cfg.MaxSections
	}
	return extract.DefaultMaxSections
}

func (s *CrawlService) dedupKeyChars() int {
	if s.cfg.DedupKeyChars > 0 {
		return s.cfg.DedupKeyChars
	}
	return extract.DefaultDedupKeyChars
}
