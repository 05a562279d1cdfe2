package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/raphaelgruber/askdocs-go/internal/config"
	"github.com/raphaelgruber/askdocs-go/internal/embedding"
	"github.com/raphaelgruber/askdocs-go/internal/metrics"
	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// Retriever answers search queries against the section index, scoping
// results to one or more documentation sites.
type Retriever struct {
	store    SectionStore
	embedder embedding.Embedder
	metrics  *metrics.Collector
	cfg      config.SearchConfig
}

// NewRetriever creates a retriever. collector may be nil.
func NewRetriever(store SectionStore, embedder embedding.Embedder, collector *metrics.Collector, cfg config.SearchConfig) *Retriever {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		metrics:  collector,
		cfg:      cfg,
	}
}

// MultiSearchResult is the outcome of a session-scoped search.
type MultiSearchResult struct {
	Hits       []models.SearchHit `json:"hits"`
	TargetDocs []string           `json:"target_docs,omitempty"`
	Confidence float64            `json:"confidence"`
}

// Search retrieves the best-matching sections. docFilter, when set,
// restricts results to a single documentation site by its base URL.
// The index has no server-side URL filter, so a filtered search fetches
// a superset and narrows it here.
func (r *Retriever) Search(ctx context.Context, query, docFilter string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	fetchLimit := uint64(limit)
	if docFilter != "" {
		fetchLimit = uint64(limit * 5)
	}

	hits, err := r.search(ctx, vec, fetchLimit)
	if err != nil {
		return nil, err
	}

	if docFilter != "" {
		filtered := hits[:0]
		for _, h := range hits {
			if matchesDocument(h, docFilter) {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SearchDocs runs a query across several documentation sites with a
// fair per-site result quota, so a verbose site cannot crowd out the
// others. When the query names one of the sites, the search narrows to
// it with high confidence.
func (r *Retriever) SearchDocs(ctx context.Context, query string, docURLs []string, limit int) (*MultiSearchResult, error) {
	if len(docURLs) == 0 {
		hits, err := r.Search(ctx, query, "", limit)
		if err != nil {
			return nil, err
		}
		return &MultiSearchResult{Hits: hits, Confidence: r.cfg.FallbackConfidence}, nil
	}
	if len(docURLs) == 1 {
		hits, err := r.Search(ctx, query, docURLs[0], limit)
		if err != nil {
			return nil, err
		}
		return &MultiSearchResult{
			Hits:       hits,
			TargetDocs: docURLs,
			Confidence: r.cfg.TargetedConfidence,
		}, nil
	}

	targets, confidence, threshold := r.identifyTargets(query, docURLs)

	budget := r.cfg.ResultBudget
	if budget <= 0 {
		budget = 12
	}
	if limit > 0 && limit < budget {
		budget = limit
	}
	quota := budget / len(targets)
	if minQuota := r.cfg.MinPerDocQuota; quota < minQuota {
		quota = minQuota
	}
	if quota < 3 {
		quota = 3
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	fetchLimit := len(targets) * quota * 4
	if fetchLimit < 50 {
		fetchLimit = 50
	}
	hits, err := r.search(ctx, vec, uint64(fetchLimit))
	if err != nil {
		return nil, err
	}

	// Bucket hits by owning site
	buckets := make(map[string][]models.SearchHit, len(targets))
	unmatched := 0
	for _, h := range hits {
		owned := false
		for _, docURL := range targets {
			if matchesDocument(h, docURL) {
				buckets[docURL] = append(buckets[docURL], h)
				owned = true
				break
			}
		}
		if !owned {
			unmatched++
		}
	}
	if unmatched > 0 {
		slog.Debug("search hits outside attached docs", "count", unmatched, "query", query)
	}

	// Per-site quota, then merge by score
	var merged []models.SearchHit
	for _, docURL := range targets {
		bucket := buckets[docURL]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Score > bucket[j].Score
		})
		if len(bucket) > quota {
			bucket = bucket[:quota]
		}
		merged = append(merged, bucket...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	// Score floor, then global cap
	kept := merged[:0]
	for _, h := range merged {
		if h.Score >= threshold {
			kept = append(kept, h)
		}
	}
	maxHits := limit
	if maxHits <= 0 {
		maxHits = 10
	}
	if len(kept) > maxHits {
		kept = kept[:maxHits]
	}

	return &MultiSearchResult{
		Hits:       kept,
		TargetDocs: targets,
		Confidence: confidence,
	}, nil
}

// identifyTargets checks whether the query names a subset of the
// attached sites. Matching narrows the search with high confidence;
// otherwise all sites stay in scope.
func (r *Retriever) identifyTargets(query string, docURLs []string) (targets []string, confidence, threshold float64) {
	q := strings.ToLower(query)
	for _, docURL := range docURLs {
		for _, id := range models.DocIdentifiers(docURL) {
			if wordBoundaryMatch(q, id) {
				targets = append(targets, docURL)
				break
			}
		}
	}

	if len(targets) > 0 && len(targets) < len(docURLs) {
		confidence = r.cfg.TargetedConfidence
		threshold = r.cfg.TargetedThreshold
		if confidence == 0 {
			confidence = 0.9
		}
		if threshold == 0 {
			threshold = 0.45
		}
		return targets, confidence, threshold
	}

	confidence = r.cfg.FallbackConfidence
	threshold = r.cfg.BroadThreshold
	if confidence == 0 {
		confidence = 0.5
	}
	if threshold == 0 {
		threshold = 0.5
	}
	return docURLs, confidence, threshold
}

func wordBoundaryMatch(text, word string) bool {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// matchesDocument decides whether a hit belongs to a documentation
// site. Points written by older pipeline versions may carry only a
// source URL, so several strategies are tried in order.
func matchesDocument(hit models.SearchHit, docURL string) bool {
	if hit.BaseURL == docURL {
		return true
	}
	if hit.SourceURL != "" && strings.HasPrefix(hit.SourceURL, docURL) {
		return true
	}

	docHost := hostOf(docURL)
	if docHost != "" {
		if h := hostOf(hit.BaseURL); h != "" && strings.Contains(h, docHost) {
			return true
		}
		if h := hostOf(hit.SourceURL); h != "" && strings.Contains(h, docHost) {
			return true
		}
	}

	// Reverse prefix: the stored base URL may be broader than the
	// attached one (site indexed at the root, attached at /docs).
	if hit.BaseURL != "" && strings.HasPrefix(docURL, hit.BaseURL) {
		return true
	}
	return false
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	start := time.Now()
	vec, err := r.embedder.Embed(ctx, query)
	r.metrics.RecordTiming("embedding", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

func (r *Retriever) search(ctx context.Context, vec []float32, limit uint64) ([]models.SearchHit, error) {
	start := time.Now()
	hits, err := r.store.Search(ctx, vec, limit)
	r.metrics.RecordTiming("vector_search", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}
