// backend/database/discovery_store.go
package database

import (
	"fmt"
	"log"
	"time"

	"github.com/openharvest/portal/backend/models"
)

// LogDiscoveryRun records the audit entry for one finished discovery
// pass: counts plus a truncated sample of the new identifiers. The full
// identifier set is deliberately not persisted.
func LogDiscoveryRun(run *models.DiscoveryRun) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	query := `
		INSERT INTO discovery_runs (full_scan, total_found, new_count, new_sample, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := DB.Exec(query,
		run.FullScan, run.TotalFound, run.NewCount, run.NewSample,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		log.Printf("ERROR Database: Failed to log discovery run: %v", err)
		return fmt.Errorf("failed to log discovery run: %w", err)
	}

	log.Printf("Database: Logged discovery run (full_scan=%v, found=%d, new=%d, took=%s)\n",
		run.FullScan, run.TotalFound, run.NewCount, run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	return nil
}

// GetRecentDiscoveryRuns returns the latest audit entries, newest first.
func GetRecentDiscoveryRuns(limit int) ([]models.DiscoveryRun, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := DB.Query(`
		SELECT id, full_scan, total_found, new_count, new_sample, started_at, finished_at
		FROM discovery_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query discovery runs: %w", err)
	}
	defer rows.Close()

	var runs []models.DiscoveryRun
	for rows.Next() {
		var r models.DiscoveryRun
		if err := rows.Scan(&r.ID, &r.FullScan, &r.TotalFound, &r.NewCount,
			&r.NewSample, &r.StartedAt, &r.FinishedAt); err != nil {
			log.Printf("ERROR Database: Failed to scan discovery run row: %v", err)
			continue
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
