// Package notify fans out crawl progress events to interested listeners.
package notify

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// Event is a progress update emitted by the crawl orchestrator.
type Event struct {
	JobID      string           `json:"job_id"`
	UserID     string           `json:"user_id,omitempty"`
	DocName    string           `json:"doc_name,omitempty"`
	Status     models.JobStatus `json:"status"`
	Stage      string           `json:"stage,omitempty"`
	Message    string           `json:"message,omitempty"`
	Progress   int              `json:"progress"` // 0-100
	PagesFound int              `json:"pages_found,omitempty"`
	PagesDone  int              `json:"pages_done,omitempty"`
	Sections   int              `json:"sections,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Notifier delivers progress events. Implementations must be safe for
// concurrent use; delivery is best-effort and must not block the crawl.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
}

// Multi fans a single event out to several notifiers.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Publish(ctx, ev)
	}
}

// SlogNotifier writes progress events to structured logs. It is always
// wired so progress is observable even without connected clients.
type SlogNotifier struct {
	log *slog.Logger
}

func NewSlogNotifier(log *slog.Logger) *SlogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &SlogNotifier{log: log}
}

func (n *SlogNotifier) Publish(_ context.Context, ev Event) {
	if ev.Error != "" {
		n.log.Error("crawl progress",
			"job_id", ev.JobID,
			"status", ev.Status,
			"progress", ev.Progress,
			"error", ev.Error)
		return
	}
	n.log.Info("crawl progress",
		"job_id", ev.JobID,
		"status", ev.Status,
		"stage", ev.Stage,
		"progress", ev.Progress,
		"pages_done", ev.PagesDone,
		"pages_found", ev.PagesFound,
		"sections", ev.Sections)
}
