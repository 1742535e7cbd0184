// backend/handlers/data_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/openharvest/portal/backend/models"
	"github.com/openharvest/portal/backend/services"
)

// DatasetSubtreeHandler dispatches /api/datasets/{identifier}[/...].
// Registered on the trailing-slash pattern so sub-paths land here.
func DatasetSubtreeHandler(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r)
	// Expected: ["api", "datasets", "{identifier}", ...]
	if len(parts) < 3 {
		respondWithError(w, http.StatusBadRequest, "Invalid path. Expected /api/datasets/{identifier}")
		return
	}
	identifier := parts[2]

	if identifier == "stats" && len(parts) == 3 {
		CatalogStatsHandler(w, r)
		return
	}

	if len(parts) == 3 {
		GetDatasetHandler(w, r, identifier)
		return
	}

	switch parts[3] {
	case "data":
		getDataHandler(w, r, identifier)
	case "preview":
		getPreviewHandler(w, r, identifier)
	case "refresh-cache":
		refreshCacheHandler(w, r, identifier)
	default:
		respondWithError(w, http.StatusNotFound, "Unknown dataset sub-resource: "+parts[3])
	}
}

// getDataHandler serves GET /api/datasets/{id}/data with limit, offset
// and refresh query parameters. An unavailable dataset is a normal 200
// response carrying available=false, not an error.
func getDataHandler(w http.ResponseWriter, r *http.Request, identifier string) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	opts := models.DataOptions{
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
		ForceRefresh: r.URL.Query().Get("refresh") == "true",
	}

	data, err := services.GetData(r.Context(), identifier, opts)
	if err != nil {
		respondWithError(w, dataErrorStatus(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, data)
}

// getPreviewHandler serves GET /api/datasets/{id}/preview?n=10.
func getPreviewHandler(w http.ResponseWriter, r *http.Request, identifier string) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}
	data, err := services.GetPreview(r.Context(), identifier, queryInt(r, "n", 10))
	if err != nil {
		respondWithError(w, dataErrorStatus(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, data)
}

// dataErrorStatus reserves 404 for identifiers with no catalog row;
// anything else (store errors, mostly) is a server fault.
func dataErrorStatus(err error) int {
	if errors.Is(err, services.ErrNotCataloged) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// refreshCacheHandler serves POST /api/datasets/{id}/refresh-cache: drops
// the dataset's cache entries so the next read refetches upstream.
func refreshCacheHandler(w http.ResponseWriter, r *http.Request, identifier string) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}
	services.ClearCache(identifier)
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Cache cleared for dataset " + identifier,
	})
}
