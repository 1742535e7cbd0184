// backend/handlers/catalog_handler.go
package handlers

import (
	"net/http"

	"github.com/openharvest/portal/backend/models"
	"github.com/openharvest/portal/backend/services"
)

// ListDatasetsHandler serves GET /api/datasets with optional category,
// status, q, page and per_page query parameters.
func ListDatasetsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	filter := models.CatalogFilter{
		Category: r.URL.Query().Get("category"),
		Status:   r.URL.Query().Get("status"),
		Search:   r.URL.Query().Get("q"),
		Page:     queryInt(r, "page", 1),
		PerPage:  queryInt(r, "per_page", 20),
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	resp, err := services.ListCatalog(filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list datasets: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// CatalogStatsHandler serves GET /api/datasets/stats: aggregate counts by
// category and sync status for the dashboard.
func CatalogStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}
	stats, err := services.CatalogStats()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to aggregate catalog stats: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// GetDatasetHandler serves GET /api/datasets/{identifier}.
func GetDatasetHandler(w http.ResponseWriter, r *http.Request, identifier string) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}
	ds, err := services.GetCatalogDataset(identifier)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch dataset: "+err.Error())
		return
	}
	if ds == nil {
		respondWithError(w, http.StatusNotFound, "Dataset not found: "+identifier)
		return
	}
	respondWithJSON(w, http.StatusOK, ds)
}
