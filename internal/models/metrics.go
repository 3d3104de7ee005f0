package models

import "time"

// SystemMetrics is a point-in-time snapshot of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	ScansAccepted            uint64    `json:"scans_accepted"`
	ScansRejected            uint64    `json:"scans_rejected"`
	SessionsCompleted        uint64    `json:"sessions_completed"`
	AbsencesBackfilled       uint64    `json:"absences_backfilled"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
