package router

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "router",
			Name:      "queries_total",
			Help:      "Total router queries by configured strategy and outcome.",
		},
		[]string{"strategy", "result"},
	)

	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragd",
			Subsystem: "router",
			Name:      "query_duration_seconds",
			Help:      "Router query latency by configured strategy.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "router",
			Name:      "cache_hits_total",
			Help:      "Router query-result cache hits and misses.",
		},
		[]string{"result"},
	)
)

// liveMetrics tracks cumulative per-strategy counters and latency totals
// in-process since construction (there is no rolling window and no latency
// distribution), for Metrics() to expose read-only to callers that
// don't scrape Prometheus directly (e.g. the orchestrator's health/metrics
// surface).
type liveMetrics struct {
	mu         sync.Mutex
	byStrategy map[Strategy]*strategyStats
}

type strategyStats struct {
	count      int64
	totalNanos int64
	cacheHits  int64
	cacheMiss  int64
}

func newLiveMetrics() *liveMetrics {
	return &liveMetrics{byStrategy: make(map[Strategy]*strategyStats)}
}

func (m *liveMetrics) record(strategy Strategy, d time.Duration, cacheHit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byStrategy[strategy]
	if !ok {
		s = &strategyStats{}
		m.byStrategy[strategy] = s
	}
	s.count++
	s.totalNanos += d.Nanoseconds()
	if cacheHit {
		s.cacheHits++
	} else {
		s.cacheMiss++
	}
}

// Snapshot is a read-only view of router metrics for a single strategy.
type Snapshot struct {
	Strategy      Strategy
	QueryCount    int64
	AvgLatencyMs  float64
	CacheHitRate  float64
}

func (m *liveMetrics) snapshot() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.byStrategy))
	for strategy, s := range m.byStrategy {
		snap := Snapshot{Strategy: strategy, QueryCount: s.count}
		if s.count > 0 {
			snap.AvgLatencyMs = float64(s.totalNanos) / float64(s.count) / 1e6
		}
		if total := s.cacheHits + s.cacheMiss; total > 0 {
			snap.CacheHitRate = float64(s.cacheHits) / float64(total)
		}
		out = append(out, snap)
	}
	return out
}
