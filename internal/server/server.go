// Package server exposes the indexing pipeline over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/raphaelgruber/askdocs-go/internal/db"
	"github.com/raphaelgruber/askdocs-go/internal/metrics"
	"github.com/raphaelgruber/askdocs-go/internal/models"
	"github.com/raphaelgruber/askdocs-go/internal/notify"
	"github.com/raphaelgruber/askdocs-go/internal/service"
)

// Server wraps the HTTP API with lifecycle management.
type Server struct {
	http      *http.Server
	crawl     *service.CrawlService
	retriever *service.Retriever
	registry  service.Registry
	store     service.SectionStore
	hub       *notify.Hub
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// New assembles the API server. hub and collector may be nil.
func New(
	addr string,
	crawl *service.CrawlService,
	retriever *service.Retriever,
	registry service.Registry,
	store service.SectionStore,
	hub *notify.Hub,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = notify.NewHub(logger)
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	s := &Server{
		crawl:     crawl,
		retriever: retriever,
		registry:  registry,
		store:     store,
		hub:       hub,
		metrics:   collector,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/docs", s.handleSubmit)
	mux.HandleFunc("GET /api/docs", s.handleListDocs)
	mux.HandleFunc("DELETE /api/docs", s.handleRemoveDoc)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.Handle("GET /api/progress", s.hub)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run starts the server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		return s.http.Shutdown(shutdownCtx)
	}
}

type submitRequest struct {
	URL       string `json:"url"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := s.crawl.SubmitCrawl(r.Context(), req.URL, req.UserID, req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if res.Status == service.SubmitQueued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	docs, err := s.registry.ListIndexedDocs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"docs": docs})
}

func (s *Server) handleRemoveDoc(w http.ResponseWriter, r *http.Request) {
	docURL := r.URL.Query().Get("url")
	if docURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := s.crawl.RemoveDoc(r.Context(), docURL); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			writeError(w, http.StatusNotFound, "doc not found")
		default:
			writeError(w, http.StatusConflict, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "url": docURL})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 10
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	// session scoping: search across the session's attached docs unless
	// an explicit doc filter narrows it to one
	if sessionID := q.Get("session_id"); sessionID != "" && q.Get("doc") == "" {
		attached, err := s.registry.ListSessionDocs(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		docURLs := make([]string, len(attached))
		for i, d := range attached {
			docURLs[i] = d.DocURL
		}
		res, err := s.retriever.SearchDocs(r.Context(), query, docURLs, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	hits, err := s.retriever.Search(r.Context(), query, q.Get("doc"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

type jobResponse struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	DocName     string           `json:"doc_name"`
	Status      models.JobStatus `json:"status"`
	Progress    int              `json:"progress"`
	Stage       string           `json:"stage,omitempty"`
	PagesFound  int              `json:"pages_found"`
	PagesDone   int              `json:"pages_done"`
	Sections    int              `json:"sections"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func jobToResponse(job service.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		URL:         job.URL,
		DocName:     job.DocName,
		Status:      job.Status,
		Progress:    job.Progress,
		Stage:       job.Stage,
		PagesFound:  job.PagesFound,
		PagesDone:   job.PagesDone,
		Sections:    job.Sections,
		Error:       job.Error,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.crawl.Jobs().GetJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, jobToResponse(job.Snapshot()))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.crawl.Jobs().ListJobs()
	out := make([]jobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = jobToResponse(job.Snapshot())
	}

	// The in-memory list only covers this process; fall back to the
	// registry for jobs from before the last restart.
	if len(out) == 0 {
		if lister, ok := s.registry.(interface {
			ListCrawlJobs(ctx context.Context, userID string, limit int) ([]models.CrawlJob, error)
		}); ok {
			rows, err := lister.ListCrawlJobs(r.Context(), r.URL.Query().Get("user"), 50)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			for _, row := range rows {
				out = append(out, jobRowToResponse(&row))
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func jobRowToResponse(row *models.CrawlJob) jobResponse {
	resp := jobResponse{
		ID:          models.MustRecordIDString(row.ID),
		URL:         row.URL,
		DocName:     row.DocName,
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
		resp.Error = *row.Error
	}
	return resp
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"operations": s.metrics.Snapshot(),
	}

	if counter, ok := s.registry.(interface {
		QueryStats(context.Context) (*db.Stats, error)
	}); ok {
		if regStats, err := counter.QueryStats(r.Context()); err == nil {
			stats["registry"] = regStats
		}
	} else {
		docs, err := s.registry.ListIndexedDocs(r.Context())
		if err == nil {
			stats["docs"] = len(docs)
		}
	}

	if s.store != nil {
		if points, err := s.store.Count(r.Context()); err == nil {
			stats["points"] = points
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
