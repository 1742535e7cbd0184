// backend/services/data_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openharvest/portal/backend/cache"
	"github.com/openharvest/portal/backend/config"
	"github.com/openharvest/portal/backend/models"
	"github.com/openharvest/portal/backend/scraper"
)

// dataCache is shared by the on-demand data service and metadata lookups.
// It is advisory only: every path below works correctly on a cold cache.
var dataCache cache.Store

// InitCache must be called once at startup, after the config is loaded.
func InitCache() {
	dataCache = cache.New(config.AppConfig.Cache.DataTTL)
}

// cachedData is the full, unsliced parse result stored under a dataset's
// data key. Slicing happens per request on the way out.
type cachedData struct {
	Columns   []string
	Records   []map[string]interface{}
	FetchedAt time.Time
}

// GetData serves one dataset's records cache-aside: cache hit applies the
// requested slice and tags source=cache; a miss fetches and parses the
// tabular resource, stores the full unsliced set, then slices for the
// caller with source=api. A dataset without a tabular resource, or an
// upstream failure, yields an explicit unavailable result rather than an
// error or a stale cached value.
func GetData(ctx context.Context, identifier string, opts models.DataOptions) (*models.DatasetData, error) {
	if !opts.ForceRefresh {
		if v, ok := dataCache.Get(cache.PurposeData, identifier); ok {
			if payload, ok := v.(*cachedData); ok {
				return sliceResult(identifier, payload, opts, "cache"), nil
			}
		}
	}

	resources, err := resolveResources(ctx, identifier)
	if errors.Is(err, errMetadataUnavailable) {
		return &models.DatasetData{
			Identifier: identifier,
			Available:  false,
			Message:    "dataset metadata is temporarily unavailable",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	res := pickTabularResource(resources)
	if res == nil {
		return &models.DatasetData{
			Identifier: identifier,
			Available:  false,
			Message:    "no tabular resource available for this dataset",
		}, nil
	}

	body, err := fetchBytes(ctx, res.URL, config.AppConfig.HTTP.DownloadTimeout)
	if err != nil {
		log.Printf("WARN Service: Data fetch failed for %s (%s): %v\n", identifier, res.URL, err)
		return &models.DatasetData{
			Identifier: identifier,
			Available:  false,
			Message:    "upstream data is temporarily unavailable",
		}, nil
	}

	columns, records, err := scraper.ParseDelimited(bytes.NewReader(body))
	if err != nil {
		log.Printf("WARN Service: Data parse failed for %s: %v\n", identifier, err)
		return &models.DatasetData{
			Identifier: identifier,
			Available:  false,
			Message:    "upstream data could not be parsed",
		}, nil
	}

	payload := &cachedData{Columns: columns, Records: records, FetchedAt: time.Now().UTC()}
	dataCache.Set(cache.PurposeData, identifier, payload, config.AppConfig.Cache.DataTTL)

	if err := updateRecordCount(identifier, int64(len(records))); err != nil {
		log.Printf("WARN Service: Could not refresh record count for %s: %v\n", identifier, err)
	}

	return sliceResult(identifier, payload, opts, "api"), nil
}

// GetPreview is GetData limited to the first n records; list views use it.
func GetPreview(ctx context.Context, identifier string, n int) (*models.DatasetData, error) {
	if n <= 0 {
		n = 10
	}
	return GetData(ctx, identifier, models.DataOptions{Limit: n})
}

// ClearCache drops both the data and metadata entries for one dataset.
// Called after an explicit refresh request.
func ClearCache(identifier string) {
	dataCache.Delete(cache.PurposeData, identifier)
	dataCache.Delete(cache.PurposeMetadata, identifier)
	log.Printf("Service: Cleared cache entries for %s\n", identifier)
}

// GetDataBatch fetches several datasets with at most five requests in
// flight, to keep both the upstream portal and local memory happy. A
// per-dataset failure becomes that dataset's unavailable result.
func GetDataBatch(ctx context.Context, identifiers []string, opts models.DataOptions) map[string]*models.DatasetData {
	results := make(map[string]*models.DatasetData, len(identifiers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.AppConfig.Sync.BatchSize)
	for _, id := range identifiers {
		id := id
		g.Go(func() error {
			data, err := GetData(gctx, id, opts)
			if err != nil {
				log.Printf("WARN Service: Batch fetch failed for %s: %v\n", id, err)
				data = &models.DatasetData{Identifier: id, Available: false, Message: err.Error()}
			}
			mu.Lock()
			results[id] = data
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// ErrNotCataloged is returned for identifiers with no catalog row.
var ErrNotCataloged = errors.New("dataset is not cataloged")

// errMetadataUnavailable distinguishes a transient metadata lookup
// failure from a dataset that genuinely has no resources.
var errMetadataUnavailable = errors.New("portal metadata unavailable")

// resolveResources returns the dataset's resource list, preferring what
// metadata sync already stored and falling back to (cached) live portal
// metadata for placeholders that have not been synced yet.
func resolveResources(ctx context.Context, identifier string) ([]models.Resource, error) {
	ds, err := getDataset(identifier)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotCataloged, identifier)
	}
	if len(ds.Resources) > 0 {
		return ds.Resources, nil
	}

	if v, ok := dataCache.Get(cache.PurposeMetadata, identifier); ok {
		if meta, ok := v.(*portalMetadata); ok {
			return meta.Resources, nil
		}
	}
	meta, err := fetchPortalMetadata(ctx, identifier)
	if err != nil {
		log.Printf("WARN Service: Live resource lookup failed for %s: %v\n", identifier, err)
		return nil, fmt.Errorf("%w for %s: %v", errMetadataUnavailable, identifier, err)
	}
	dataCache.Set(cache.PurposeMetadata, identifier, meta, config.AppConfig.Cache.MetadataTTL)
	return meta.Resources, nil
}

// sliceResult applies the caller's limit/offset to the cached full set.
func sliceResult(identifier string, payload *cachedData, opts models.DataOptions, source string) *models.DatasetData {
	total := len(payload.Records)

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if opts.Limit > 0 && offset+opts.Limit < total {
		end = offset + opts.Limit
	}

	return &models.DatasetData{
		Identifier:   identifier,
		Available:    true,
		Columns:      payload.Columns,
		Records:      payload.Records[offset:end],
		TotalRecords: total,
		FetchedAt:    payload.FetchedAt,
		Source:       source,
	}
}
