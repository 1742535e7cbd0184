// backend/services/catalog_service.go
package services

import (
	"fmt"

	"github.com/openharvest/portal/backend/cache"
	"github.com/openharvest/portal/backend/config"
	"github.com/openharvest/portal/backend/models"
)

// ListCatalog returns one page of the catalog. Pages of a given query are
// briefly cached under the listing purpose so a dashboard hammering the
// same filter does not hammer the database; correctness never depends on
// the entry being there.
func ListCatalog(filter models.CatalogFilter) (*models.DatasetListResponse, error) {
	key := listingKey(filter)
	if v, ok := dataCache.Get(cache.PurposeListing, key); ok {
		if resp, ok := v.(*models.DatasetListResponse); ok {
			return resp, nil
		}
	}

	datasets, total, err := listDatasets(filter)
	if err != nil {
		return nil, err
	}
	resp := &models.DatasetListResponse{
		Datasets: datasets,
		Total:    total,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	}
	if resp.Page <= 0 {
		resp.Page = 1
	}
	if resp.PerPage <= 0 {
		resp.PerPage = 20
	}
	dataCache.Set(cache.PurposeListing, key, resp, config.AppConfig.Cache.ListingTTL)
	return resp, nil
}

func listingKey(f models.CatalogFilter) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", f.Category, f.Status, f.Search, f.Page, f.PerPage)
}

// GetCatalogDataset fetches one dataset row; nil means not cataloged.
func GetCatalogDataset(identifier string) (*models.Dataset, error) {
	return getDataset(identifier)
}

// CatalogStats aggregates counts by category and sync status.
func CatalogStats() (*models.CatalogStats, error) {
	return getCatalogStats()
}

// ExportCatalog returns every row flattened for the CSV export endpoint.
func ExportCatalog() ([]models.DatasetExportRow, error) {
	return exportDatasets()
}

// RecentDiscoveryRuns exposes the discovery audit trail.
func RecentDiscoveryRuns(limit int) ([]models.DiscoveryRun, error) {
	return getRecentRuns(limit)
}
