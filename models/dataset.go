// backend/models/dataset.go
package models

import "time"

// Sync status values for a cataloged dataset.
const (
	SyncStatusPending = "PENDING"
	SyncStatusSyncing = "SYNCING"
	SyncStatusSuccess = "SUCCESS"
	SyncStatusFailed  = "FAILED"
)

// Dataset is one catalog entry, keyed by the portal's stable identifier.
// The identifier is immutable once the row exists; everything else is
// filled in or refreshed by metadata sync.
type Dataset struct {
	ID                  int64  `db:"id" json:"-"`
	Identifier          string `db:"identifier" json:"identifier"`
	Name                string `db:"name" json:"name"`
	LocalizedName       string `db:"localized_name" json:"localized_name,omitempty"`
	Category            string `db:"category" json:"category,omitempty"`
	Organization        string `db:"organization" json:"organization,omitempty"`
	Description         string `db:"description" json:"description,omitempty"`
	DeclaredRecordCount int64  `db:"declared_record_count" json:"declared_record_count"`

	Resources []Resource `db:"-" json:"resources,omitempty"`

	// LastSyncAt only moves on a successful sync; LastAttemptAt moves on
	// every attempt and drives the failure cooldown.
	SyncStatus    string     `db:"sync_status" json:"sync_status"`
	SyncFailCount int        `db:"sync_fail_count" json:"sync_fail_count,omitempty"`
	LastSyncAt    *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	LastAttemptAt *time.Time `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	LastError     string     `db:"last_error" json:"last_error,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Resource is one downloadable representation of a dataset's data.
type Resource struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Format string `json:"format"`
	URL    string `json:"url"`
	Size   int64  `json:"size,omitempty"`
}

// DatasetExportRow is the flattened shape used for the admin CSV export.
// CSV tags match the column headers in the exported file.
type DatasetExportRow struct {
	Identifier          string `csv:"Identifier"`
	Name                string `csv:"Name"`
	Category            string `csv:"Category"`
	Organization        string `csv:"Organization"`
	DeclaredRecordCount int64  `csv:"Declared Records"`
	SyncStatus          string `csv:"Sync Status"`
	LastSyncAt          string `csv:"Last Sync"`
}

// CatalogFilter narrows a catalog listing query.
type CatalogFilter struct {
	Category string
	Status   string
	Search   string
	Page     int
	PerPage  int
}

// CatalogStats holds the aggregate counts the dashboard consumes.
type CatalogStats struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
	ByStatus   map[string]int64 `json:"by_status"`
}
