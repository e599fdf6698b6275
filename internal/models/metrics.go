package models

import "time"

// MetricsSnapshot is a lightweight view over the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	Accumulations            uint64    `json:"accumulations"`
	AccumulationFailures     uint64    `json:"accumulation_failures"`
	StaleSelections          uint64    `json:"stale_selections"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
