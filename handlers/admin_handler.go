// backend/handlers/admin_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jszwec/csvutil"

	"github.com/openharvest/portal/backend/services"
)

// RunDiscoveryHandler handles POST /api/admin/discover/{quick|full}.
// A pass already in flight is refused with 409 rather than queued.
func RunDiscoveryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	parts := pathParts(r)
	// Expected: ["api", "admin", "discover", "{mode}"]
	if len(parts) < 4 {
		respondWithError(w, http.StatusBadRequest, "Invalid path. Expected /api/admin/discover/{quick|full}")
		return
	}

	var fullScan bool
	switch parts[3] {
	case "quick":
		fullScan = false
	case "full":
		fullScan = true
	default:
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid discovery mode '%s'. Use 'quick' or 'full'.", parts[3]))
		return
	}

	result, err := services.RunDiscovery(r.Context(), fullScan)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyRunning) {
			respondWithError(w, http.StatusConflict, "A discovery pass is already running")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Discovery failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// RunMetadataSyncHandler handles POST /api/admin/sync-metadata and
// returns the terminal success/failure summary of the pass.
func RunMetadataSyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	summary, err := services.RunMetadataSync(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrAlreadyRunning) {
			respondWithError(w, http.StatusConflict, "A metadata sync is already running")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Metadata sync failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// DiscoveryRunsHandler handles GET /api/admin/discovery-runs: the audit
// trail of recent passes.
func DiscoveryRunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}
	runs, err := services.RecentDiscoveryRuns(queryInt(r, "limit", 20))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load discovery runs: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"runs":                  runs,
		"discovery_running":     services.DiscoveryInProgress(),
		"metadata_sync_running": services.MetadataSyncInProgress(),
	})
}

// ExportCatalogHandler handles GET /api/admin/export/datasets.csv and
// streams the catalog as CSV.
func ExportCatalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	rows, err := services.ExportCatalog()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export catalog: "+err.Error())
		return
	}

	out, err := csvutil.Marshal(rows)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to encode CSV: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="datasets.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
