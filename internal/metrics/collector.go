// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token metrics (only for embedding operations)
	TotalTokens int64
	MinTokens   int64
	MaxTokens   int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64    `json:"count"`
	TotalTimeMs int64    `json:"total_time_ms"`
	AvgTimeMs   float64  `json:"avg_time_ms"`
	MinTimeMs   int64    `json:"min_time_ms"`
	MaxTimeMs   int64    `json:"max_time_ms"`
	TotalTokens *int64   `json:"total_tokens,omitempty"`
	AvgTokens   *float64 `json:"avg_tokens,omitempty"`
	MinTokens   *int64   `json:"min_tokens,omitempty"`
	MaxTokens   *int64   `json:"max_tokens,omitempty"`
}

// Snapshot represents the full pipeline statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Fetch         *OperationSnapshot `json:"fetch,omitempty"`
	Extract       *OperationSnapshot `json:"extract,omitempty"`
	Embedding     *OperationSnapshot `json:"embedding,omitempty"`
	VectorUpsert  *OperationSnapshot `json:"vector_upsert,omitempty"`
	VectorSearch  *OperationSnapshot `json:"vector_search,omitempty"`
}

// Operation names for the collector.
const (
	OpFetch        = "fetch"
	OpExtract      = "extract"
	OpEmbedding    = "embedding"
	OpVectorUpsert = "vector_upsert"
	OpVectorSearch = "vector_search"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:   time.Duration(math.MaxInt64),
			MinTokens: math.MaxInt64,
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordEmbedding records timing and token usage for an embedding call.
func (c *Collector) RecordEmbedding(duration time.Duration, tokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(OpEmbedding)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalTokens += tokens
	if tokens < m.MinTokens {
		m.MinTokens = tokens
	}
	if tokens > m.MaxTokens {
		m.MaxTokens = tokens
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeTokens bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeTokens && m.TotalTokens > 0 {
		total := m.TotalTokens
		avg := float64(m.TotalTokens) / float64(m.Count)
		minT := m.MinTokens
		maxT := m.MaxTokens

		// Reset sentinel value for display
		if minT == math.MaxInt64 {
			minT = 0
		}

		snap.TotalTokens = &total
		snap.AvgTokens = &avg
		snap.MinTokens = &minT
		snap.MaxTokens = &maxT
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Fetch:         snapshotOp(c.ops[OpFetch], false),
		Extract:       snapshotOp(c.ops[OpExtract], false),
		Embedding:     snapshotOp(c.ops[OpEmbedding], true),
		VectorUpsert:  snapshotOp(c.ops[OpVectorUpsert], false),
		VectorSearch:  snapshotOp(c.ops[OpVectorSearch], false),
	}
}
