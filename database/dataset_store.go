// backend/database/dataset_store.go
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openharvest/portal/backend/models"
)

// InsertDatasetPlaceholder creates the initial catalog row for a newly
// discovered identifier. The insert is keyed on the unique identifier
// column, so calling it again for a known identifier is a no-op rather
// than a duplicate row. Returns true when a new row was created.
func InsertDatasetPlaceholder(identifier, name, category string) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database connection is not initialized")
	}

	query := `
		INSERT INTO datasets (identifier, name, category, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE identifier = identifier
	`
	res, err := DB.Exec(query, identifier, name, category, models.SyncStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to insert placeholder for %s: %w", identifier, err)
	}
	affected, _ := res.RowsAffected()
	// MySQL reports 1 for a fresh insert and 0 for the duplicate no-op.
	return affected == 1, nil
}

// DatasetExists reports whether the identifier is already cataloged.
func DatasetExists(identifier string) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database connection is not initialized")
	}
	var n int
	err := DB.QueryRow(`SELECT COUNT(*) FROM datasets WHERE identifier = ?`, identifier).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check existence of %s: %w", identifier, err)
	}
	return n > 0, nil
}

// KnownIdentifiers returns the set of every cataloged identifier, used by
// discovery to split a pass result into known vs. new.
func KnownIdentifiers() (map[string]bool, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	rows, err := DB.Query(`SELECT identifier FROM datasets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifiers: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identifier row: %w", err)
		}
		known[id] = true
	}
	return known, rows.Err()
}

// ListIdentifiersInCreationOrder returns every identifier plus the sync
// bookkeeping the metadata scheduler needs to apply its retry policy.
func ListIdentifiersInCreationOrder() ([]models.Dataset, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	rows, err := DB.Query(`
		SELECT identifier, sync_status, sync_fail_count, last_sync_at, last_attempt_at
		FROM datasets
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets for sync: %w", err)
	}
	defer rows.Close()

	var datasets []models.Dataset
	for rows.Next() {
		var d models.Dataset
		var lastSync, lastAttempt sql.NullTime
		if err := rows.Scan(&d.Identifier, &d.SyncStatus, &d.SyncFailCount, &lastSync, &lastAttempt); err != nil {
			log.Printf("ERROR Database: Failed to scan dataset sync row: %v", err)
			continue
		}
		if lastSync.Valid {
			d.LastSyncAt = &lastSync.Time
		}
		if lastAttempt.Valid {
			d.LastAttemptAt = &lastAttempt.Time
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// UpdateDatasetMetadata writes the descriptive fields a successful
// metadata sync produced and resets the failure bookkeeping.
func UpdateDatasetMetadata(d *models.Dataset) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	resourcesJSON, err := json.Marshal(d.Resources)
	if err != nil {
		return fmt.Errorf("failed to marshal resources for %s: %w", d.Identifier, err)
	}

	query := `
		UPDATE datasets SET
			name = ?, localized_name = ?, category = ?, organization = ?,
			description = ?, declared_record_count = ?, resources = ?,
			sync_status = ?, sync_fail_count = 0, last_sync_at = NOW(),
			last_attempt_at = NOW(), last_error = '', updated_at = NOW()
		WHERE identifier = ?
	`
	_, err = DB.Exec(query,
		d.Name, d.LocalizedName, d.Category, d.Organization,
		d.Description, d.DeclaredRecordCount, resourcesJSON,
		models.SyncStatusSuccess, d.Identifier,
	)
	if err != nil {
		return fmt.Errorf("failed to update metadata for %s: %w", d.Identifier, err)
	}
	return nil
}

// SetDatasetSyncStatus records a status transition. For FAILED the error
// message is retained and the consecutive-failure counter incremented;
// a move to SYNCING leaves the counter alone.
func SetDatasetSyncStatus(identifier, status, errMsg string) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	var query string
	if status == models.SyncStatusFailed {
		// last_sync_at is left alone: it only moves on success.
		query = `
			UPDATE datasets SET sync_status = ?, last_error = ?,
				sync_fail_count = sync_fail_count + 1,
				last_attempt_at = NOW(), updated_at = NOW()
			WHERE identifier = ?
		`
	} else {
		query = `
			UPDATE datasets SET sync_status = ?, last_error = ?, updated_at = NOW()
			WHERE identifier = ?
		`
	}
	if _, err := DB.Exec(query, status, errMsg, identifier); err != nil {
		return fmt.Errorf("failed to set sync status for %s: %w", identifier, err)
	}
	return nil
}

// UpdateDeclaredRecordCount refreshes the record-count estimate after a
// successful on-demand fetch observed the real row count.
func UpdateDeclaredRecordCount(identifier string, count int64) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	_, err := DB.Exec(
		`UPDATE datasets SET declared_record_count = ?, updated_at = NOW() WHERE identifier = ?`,
		count, identifier,
	)
	if err != nil {
		return fmt.Errorf("failed to update record count for %s: %w", identifier, err)
	}
	return nil
}

// GetDataset fetches one catalog row by identifier.
func GetDataset(identifier string) (*models.Dataset, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	row := DB.QueryRow(`
		SELECT id, identifier, name, localized_name, category, organization,
		       description, declared_record_count, resources, sync_status,
		       sync_fail_count, last_sync_at, last_attempt_at, last_error,
		       created_at, updated_at
		FROM datasets WHERE identifier = ?
	`, identifier)

	d, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*models.Dataset, error) {
	var d models.Dataset
	var localizedName, category, organization, description, lastError sql.NullString
	var resourcesJSON sql.NullString
	var lastSync, lastAttempt sql.NullTime

	err := row.Scan(
		&d.ID, &d.Identifier, &d.Name, &localizedName, &category, &organization,
		&description, &d.DeclaredRecordCount, &resourcesJSON, &d.SyncStatus,
		&d.SyncFailCount, &lastSync, &lastAttempt, &lastError, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.LocalizedName = localizedName.String
	d.Category = category.String
	d.Organization = organization.String
	d.Description = description.String
	d.LastError = lastError.String
	if lastSync.Valid {
		d.LastSyncAt = &lastSync.Time
	}
	if lastAttempt.Valid {
		d.LastAttemptAt = &lastAttempt.Time
	}
	if resourcesJSON.Valid && resourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(resourcesJSON.String), &d.Resources); err != nil {
			log.Printf("WARN Database: Failed to unmarshal resources for %s: %v", d.Identifier, err)
		}
	}
	return &d, nil
}

// ListDatasets returns one page of the catalog, filtered by category,
// sync status and a name/identifier search term.
func ListDatasets(filter models.CatalogFilter) ([]models.Dataset, int64, error) {
	if DB == nil {
		return nil, 0, fmt.Errorf("database connection is not initialized")
	}

	var conds []string
	var args []interface{}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conds = append(conds, "sync_status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conds = append(conds, "(name LIKE ? OR localized_name LIKE ? OR identifier LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := DB.QueryRow(`SELECT COUNT(*) FROM datasets`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count datasets: %w", err)
	}

	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.PerPage

	query := `
		SELECT id, identifier, name, localized_name, category, organization,
		       description, declared_record_count, resources, sync_status,
		       sync_fail_count, last_sync_at, last_attempt_at, last_error,
		       created_at, updated_at
		FROM datasets` + where + ` ORDER BY id ASC LIMIT ? OFFSET ?`
	rows, err := DB.Query(query, append(args, filter.PerPage, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []models.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			log.Printf("ERROR Database: Failed to scan dataset row: %v", err)
			continue
		}
		datasets = append(datasets, *d)
	}
	return datasets, total, rows.Err()
}

// GetCatalogStats aggregates dataset counts by category and sync status.
func GetCatalogStats() (*models.CatalogStats, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	stats := &models.CatalogStats{
		ByCategory: make(map[string]int64),
		ByStatus:   make(map[string]int64),
	}

	if err := DB.QueryRow(`SELECT COUNT(*) FROM datasets`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count datasets: %w", err)
	}

	rows, err := DB.Query(`SELECT COALESCE(NULLIF(category, ''), 'uncategorized'), COUNT(*) FROM datasets GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category aggregate: %w", err)
		}
		stats.ByCategory[cat] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := DB.Query(`SELECT sync_status, COUNT(*) FROM datasets GROUP BY sync_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sync statuses: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var n int64
		if err := statusRows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status aggregate: %w", err)
		}
		stats.ByStatus[status] = n
	}
	return stats, statusRows.Err()
}

// ExportDatasets returns every catalog row flattened for the CSV export.
func ExportDatasets() ([]models.DatasetExportRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	rows, err := DB.Query(`
		SELECT identifier, name, COALESCE(category, ''), COALESCE(organization, ''),
		       declared_record_count, sync_status, last_sync_at
		FROM datasets ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets for export: %w", err)
	}
	defer rows.Close()

	var out []models.DatasetExportRow
	for rows.Next() {
		var r models.DatasetExportRow
		var lastSync sql.NullTime
		if err := rows.Scan(&r.Identifier, &r.Name, &r.Category, &r.Organization,
			&r.DeclaredRecordCount, &r.SyncStatus, &lastSync); err != nil {
			log.Printf("ERROR Database: Failed to scan export row: %v", err)
			continue
		}
		if lastSync.Valid {
			r.LastSyncAt = lastSync.Time.UTC().Format(time.RFC3339)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
