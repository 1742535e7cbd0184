// backend/services/data_service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharvest/portal/backend/config"
	"github.com/openharvest/portal/backend/models"
)

const testDatasetID = "d1e2f3a4-b5c6-4d7e-8f90-a1b2c3d4e5f6"

// stubDataSeams wires a dataset with one CSV resource and a counting
// upstream fetch that serves rows rows of data.
func stubDataSeams(t *testing.T, resources []models.Resource, rows int) *atomic.Int32 {
	t.Helper()

	origGet := getDataset
	origFetch := fetchBytes
	origCount := updateRecordCount
	origMeta := fetchPortalMetadata

	getDataset = func(identifier string) (*models.Dataset, error) {
		return &models.Dataset{Identifier: identifier, Name: "Test Dataset", Resources: resources}, nil
	}

	fetches := &atomic.Int32{}
	fetchBytes = func(context.Context, string, time.Duration) ([]byte, error) {
		fetches.Add(1)
		var b strings.Builder
		b.WriteString("idx,city,population\n")
		for i := 0; i < rows; i++ {
			fmt.Fprintf(&b, "%d,city-%d,%d\n", i, i, 1000+i)
		}
		return []byte(b.String()), nil
	}
	updateRecordCount = func(string, int64) error { return nil }
	fetchPortalMetadata = func(context.Context, string) (*portalMetadata, error) {
		return &portalMetadata{}, nil
	}

	t.Cleanup(func() {
		getDataset = origGet
		fetchBytes = origFetch
		updateRecordCount = origCount
		fetchPortalMetadata = origMeta
	})
	return fetches
}

func setDataTestConfig(t *testing.T) {
	t.Helper()
	orig := config.AppConfig
	config.AppConfig = config.Config{}
	config.AppConfig.Cache.DataTTL = time.Minute
	config.AppConfig.Cache.MetadataTTL = time.Minute
	config.AppConfig.Cache.ListingTTL = time.Minute
	config.AppConfig.HTTP.DownloadTimeout = 5 * time.Second
	config.AppConfig.Sync.BatchSize = 5
	t.Cleanup(func() { config.AppConfig = orig })
	InitCache()
}

var csvResource = []models.Resource{{ID: "r1", Name: "table", Format: "CSV", URL: "https://portal.test/r1.csv"}}

func TestGetData_CacheAsideRoundTrip(t *testing.T) {
	setDataTestConfig(t)
	fetches := stubDataSeams(t, csvResource, 3)

	first, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err)
	assert.True(t, first.Available)
	assert.Equal(t, "api", first.Source)
	assert.Equal(t, 3, first.TotalRecords)
	assert.Equal(t, int32(1), fetches.Load(), "cold cache performs exactly one upstream fetch")

	second, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cache", second.Source)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, int32(1), fetches.Load(), "warm cache performs zero upstream fetches")

	forced, err := GetData(context.Background(), testDatasetID, models.DataOptions{ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, "api", forced.Source)
	assert.Equal(t, int32(2), fetches.Load(), "forceRefresh always goes upstream")
}

func TestGetData_PaginationSlicing(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, csvResource, 50)

	page, err := GetData(context.Background(), testDatasetID, models.DataOptions{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, page.Records, 10)
	assert.Equal(t, 50, page.TotalRecords)
	assert.Equal(t, int64(20), page.Records[0]["idx"])
	assert.Equal(t, int64(29), page.Records[9]["idx"])

	// The cached payload holds the full unsliced set.
	full, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cache", full.Source)
	assert.Len(t, full.Records, 50)
}

func TestGetData_OffsetPastEnd(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, csvResource, 5)

	page, err := GetData(context.Background(), testDatasetID, models.DataOptions{Limit: 10, Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 5, page.TotalRecords)
}

func TestGetData_NoTabularResource(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, nil, 0)

	data, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err, "structural absence is not an error")
	assert.False(t, data.Available)
	assert.Empty(t, data.Source)
	assert.Equal(t, "no tabular resource available for this dataset", data.Message)
}

func TestGetData_MetadataLookupFailureIsNotStructuralAbsence(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, nil, 0)
	fetchPortalMetadata = func(context.Context, string) (*portalMetadata, error) {
		return nil, errors.New("portal timeout")
	}

	data, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err)
	assert.False(t, data.Available)
	assert.Equal(t, "dataset metadata is temporarily unavailable", data.Message,
		"a transient lookup failure must not read as a dataset without resources")
}

func TestGetData_UnknownIdentifier(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, nil, 0)
	getDataset = func(string) (*models.Dataset, error) { return nil, nil }

	_, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotCataloged)
}

func TestGetData_UpstreamFailureIsUnavailable(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, csvResource, 3)
	fetchBytes = func(context.Context, string, time.Duration) ([]byte, error) {
		return nil, errors.New("upstream down")
	}

	data, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err)
	assert.False(t, data.Available)
	assert.Empty(t, data.Source)
}

func TestClearCache_ForcesRefetch(t *testing.T) {
	setDataTestConfig(t)
	fetches := stubDataSeams(t, csvResource, 3)

	_, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err)
	ClearCache(testDatasetID)

	again, err := GetData(context.Background(), testDatasetID, models.DataOptions{})
	require.NoError(t, err)
	assert.Equal(t, "api", again.Source)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestGetPreview_LimitsRecords(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, csvResource, 25)

	preview, err := GetPreview(context.Background(), testDatasetID, 5)
	require.NoError(t, err)
	assert.Len(t, preview.Records, 5)
	assert.Equal(t, 25, preview.TotalRecords)
}

func TestGetDataBatch_FetchesAll(t *testing.T) {
	setDataTestConfig(t)
	stubDataSeams(t, csvResource, 2)

	ids := []string{testDatasetID, "aaaa1111-2222-4333-8444-555566667777", "bbbb1111-2222-4333-8444-555566667777"}
	results := GetDataBatch(context.Background(), ids, models.DataOptions{Limit: 1})
	require.Len(t, results, 3)
	for _, id := range ids {
		require.Contains(t, results, id)
		assert.True(t, results[id].Available)
		assert.Len(t, results[id].Records, 1)
	}
}
