// backend/services/metadata_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openharvest/portal/backend/config"
	"github.com/openharvest/portal/backend/models"
	"github.com/openharvest/portal/backend/scraper"
)

// packageShowResponse mirrors the portal's package-metadata endpoint.
type packageShowResponse struct {
	Success bool `json:"success"`
	Result  struct {
		ID              string            `json:"id"`
		Name            string            `json:"name"`
		Title           string            `json:"title"`
		TitleTranslated map[string]string `json:"title_translated"`
		Notes           string            `json:"notes"`
		Organization    struct {
			Title string `json:"title"`
		} `json:"organization"`
		Groups []struct {
			Name  string `json:"name"`
			Title string `json:"title"`
		} `json:"groups"`
		Resources []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Format string `json:"format"`
			URL    string `json:"url"`
			Size   int64  `json:"size"`
		} `json:"resources"`
	} `json:"result"`
}

// portalMetadata is the normalized view of one dataset's upstream
// descriptive metadata.
type portalMetadata struct {
	Name          string
	LocalizedName string
	Category      string
	Organization  string
	Description   string
	Resources     []models.Resource
}

// fetchPortalMetadata is a seam so tests can run without the portal.
var fetchPortalMetadata = fetchPortalMetadataLive

func fetchPortalMetadataLive(ctx context.Context, identifier string) (*portalMetadata, error) {
	var resp packageShowResponse
	if err := fetchJSON(ctx, config.MetadataURL(identifier), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("portal reported failure for package %s", identifier)
	}

	meta := &portalMetadata{
		Name:         resp.Result.Title,
		Organization: resp.Result.Organization.Title,
		Description:  resp.Result.Notes,
	}
	if meta.Name == "" {
		meta.Name = resp.Result.Name
	}
	// Any localized title variant serves the secondary display name.
	for _, translated := range resp.Result.TitleTranslated {
		if translated != "" && translated != meta.Name {
			meta.LocalizedName = translated
			break
		}
	}
	if len(resp.Result.Groups) > 0 {
		meta.Category = resp.Result.Groups[0].Title
		if meta.Category == "" {
			meta.Category = resp.Result.Groups[0].Name
		}
	}
	for _, r := range resp.Result.Resources {
		meta.Resources = append(meta.Resources, models.Resource{
			ID:     r.ID,
			Name:   r.Name,
			Format: r.Format,
			URL:    r.URL,
			Size:   r.Size,
		})
	}
	return meta, nil
}

// SyncMetadata refreshes one dataset's descriptive metadata and record
// count estimate. A success clears any prior FAILED status; a failure
// marks the dataset FAILED with the error retained and is not retried
// within the same pass.
func SyncMetadata(ctx context.Context, identifier string) error {
	if err := setDatasetSyncStatus(identifier, models.SyncStatusSyncing, ""); err != nil {
		return err
	}

	meta, err := fetchPortalMetadata(ctx, identifier)
	if err != nil {
		markSyncFailed(identifier, err)
		return fmt.Errorf("metadata fetch failed for %s: %w", identifier, err)
	}

	d := &models.Dataset{
		Identifier:    identifier,
		Name:          meta.Name,
		LocalizedName: meta.LocalizedName,
		Category:      meta.Category,
		Organization:  meta.Organization,
		Description:   meta.Description,
		Resources:     meta.Resources,
	}
	if d.Name == "" {
		d.Name = fallbackName(identifier)
	}

	// Only datasets with a tabular resource get a record-count estimate,
	// and only from a partial read, never a full download. Estimation
	// failure degrades to a zero count rather than failing the sync.
	if res := pickTabularResource(meta.Resources); res != nil {
		chunk, total, err := fetchRange(ctx, res.URL, config.AppConfig.Sync.EstimateChunkBytes)
		if err != nil {
			log.Printf("WARN Service: Record-count estimate failed for %s: %v\n", identifier, err)
		} else {
			d.DeclaredRecordCount = scraper.EstimateRecordCount(chunk, total)
		}
	}

	if err := updateDatasetMetadata(d); err != nil {
		markSyncFailed(identifier, err)
		return fmt.Errorf("metadata write failed for %s: %w", identifier, err)
	}
	return nil
}

func markSyncFailed(identifier string, cause error) {
	if err := setDatasetSyncStatus(identifier, models.SyncStatusFailed, cause.Error()); err != nil {
		log.Printf("ERROR Service: Could not record FAILED status for %s: %v\n", identifier, err)
	}
}

// shouldSkipFailed implements the retry policy for FAILED datasets:
// retried on every pass until the consecutive-failure limit is reached,
// after which the dataset only gets another attempt once the cooldown
// since the last attempt has elapsed.
func shouldSkipFailed(d models.Dataset, now time.Time) bool {
	if d.SyncStatus != models.SyncStatusFailed {
		return false
	}
	if d.SyncFailCount < config.AppConfig.Sync.FailRetryLimit {
		return false
	}
	if d.LastAttemptAt == nil {
		return false
	}
	return now.Sub(*d.LastAttemptAt) < config.AppConfig.Sync.FailCooldown
}

// SyncAll refreshes metadata for every cataloged dataset in creation
// order. Per-dataset failures are contained; the pass always runs to
// completion and reports a terminal summary.
func SyncAll(ctx context.Context) (*models.SyncSummary, error) {
	start := time.Now()
	datasets, err := listDatasetsForSync()
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets for sync: %w", err)
	}
	log.Printf("Service: Starting metadata sync for %d datasets...\n", len(datasets))

	summary := &models.SyncSummary{Total: len(datasets)}
	now := time.Now()
	for i, d := range datasets {
		if ctx.Err() != nil {
			log.Printf("WARN Service: Metadata sync cancelled after %d datasets\n", i)
			break
		}
		if shouldSkipFailed(d, now) {
			summary.Skipped++
			continue
		}
		if err := SyncMetadata(ctx, d.Identifier); err != nil {
			log.Printf("WARN Service: Metadata sync failed for %s: %v\n", d.Identifier, err)
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		if (i+1)%50 == 0 {
			log.Printf("Service: Metadata sync progress: %d/%d (ok=%d failed=%d skipped=%d)\n",
				i+1, len(datasets), summary.Succeeded, summary.Failed, summary.Skipped)
		}
	}

	summary.DurationSec = time.Since(start).Seconds()
	log.Printf("Service: Metadata sync finished: %d ok, %d failed, %d skipped of %d (took %s)\n",
		summary.Succeeded, summary.Failed, summary.Skipped, summary.Total,
		time.Since(start).Round(time.Second))
	return summary, nil
}
