// backend/models/api_models.go
package models

import "time"

// DatasetData is the result of an on-demand data fetch. Source is "cache"
// or "api"; it is left empty when the dataset has no tabular resource and
// Available is false.
type DatasetData struct {
	Identifier   string                   `json:"identifier"`
	Available    bool                     `json:"available"`
	Columns      []string                 `json:"columns,omitempty"`
	Records      []map[string]interface{} `json:"records,omitempty"`
	TotalRecords int                      `json:"total_records"`
	FetchedAt    time.Time                `json:"fetched_at,omitempty"`
	Source       string                   `json:"source,omitempty"`
	Message      string                   `json:"message,omitempty"`
}

// DataOptions are the caller-supplied knobs for GetData.
type DataOptions struct {
	Limit        int
	Offset       int
	ForceRefresh bool
}

// DatasetListResponse is the paginated catalog listing payload.
type DatasetListResponse struct {
	Datasets []Dataset `json:"datasets"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
}
