// backend/models/discovery.go
package models

import "time"

// DiscoveryResult summarizes one discovery pass. It is transient: the
// identifier sets drive catalog admission and are then discarded, with
// only a DiscoveryRun audit row kept.
type DiscoveryResult struct {
	TotalFound  int      `json:"total_found"`
	Known       int      `json:"known"`
	New         int      `json:"new"`
	NewSample   []string `json:"new_sample,omitempty"`
	FullScan    bool     `json:"full_scan"`
	DurationSec float64  `json:"duration_sec"`
}

// DiscoveryRun is the persisted audit entry for one discovery pass.
type DiscoveryRun struct {
	ID         int64     `db:"id" json:"id"`
	FullScan   bool      `db:"full_scan" json:"full_scan"`
	TotalFound int       `db:"total_found" json:"total_found"`
	NewCount   int       `db:"new_count" json:"new_count"`
	NewSample  string    `db:"new_sample" json:"new_sample,omitempty"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// SyncSummary is the terminal report of a full metadata sync pass.
type SyncSummary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	DurationSec float64 `json:"duration_sec"`
}
