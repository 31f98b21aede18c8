package models

import "time"

// MetricsSnapshot aggregates process counters for the status display.
type MetricsSnapshot struct {
	RecordsImported      uint64    `json:"records_imported"`
	RecordsFailed        uint64    `json:"records_failed"`
	RelationalOperations uint64    `json:"relational_operations"`
	LegacyOperations     uint64    `json:"legacy_operations"`
	ProbeFailures        uint64    `json:"probe_failures"`
	Goroutines           int       `json:"goroutines"`
	GeneratedAt          time.Time `json:"generated_at"`
}
