// backend/services/metadata_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharvest/portal/backend/config"
	"github.com/openharvest/portal/backend/models"
)

type statusTransition struct {
	status string
	errMsg string
}

func stubMetadataSeams(t *testing.T) (*[]statusTransition, **models.Dataset) {
	t.Helper()

	origStatus := setDatasetSyncStatus
	origUpdate := updateDatasetMetadata
	origMeta := fetchPortalMetadata
	origRange := fetchRange

	var transitions []statusTransition
	var updated *models.Dataset

	setDatasetSyncStatus = func(_, status, errMsg string) error {
		transitions = append(transitions, statusTransition{status, errMsg})
		return nil
	}
	updateDatasetMetadata = func(d *models.Dataset) error {
		updated = d
		return nil
	}
	fetchPortalMetadata = func(context.Context, string) (*portalMetadata, error) {
		return &portalMetadata{
			Name:          "Air Quality Stations",
			LocalizedName: "Tram quan trac khong khi",
			Category:      "environment",
			Organization:  "Ministry of Environment",
			Description:   "Hourly measurements",
			Resources:     []models.Resource{{ID: "r1", Format: "CSV", URL: "https://portal.test/aq.csv"}},
		}, nil
	}
	// 64-byte chunk with 4 newlines out of a 640-byte file: 40 lines,
	// minus the header.
	fetchRange = func(context.Context, string, int64) ([]byte, int64, error) {
		chunk := make([]byte, 64)
		for i := 0; i < 4; i++ {
			chunk[i*16] = '\n'
		}
		return chunk, 640, nil
	}

	t.Cleanup(func() {
		setDatasetSyncStatus = origStatus
		updateDatasetMetadata = origUpdate
		fetchPortalMetadata = origMeta
		fetchRange = origRange
	})
	return &transitions, &updated
}

func setSyncTestConfig(t *testing.T) {
	t.Helper()
	orig := config.AppConfig
	config.AppConfig = config.Config{}
	config.AppConfig.Sync.FailRetryLimit = 5
	config.AppConfig.Sync.FailCooldown = 7 * 24 * time.Hour
	config.AppConfig.Sync.EstimateChunkBytes = 64
	t.Cleanup(func() { config.AppConfig = orig })
}

func TestSyncMetadata_Success(t *testing.T) {
	setSyncTestConfig(t)
	transitions, updated := stubMetadataSeams(t)

	err := SyncMetadata(context.Background(), testDatasetID)
	require.NoError(t, err)

	require.Len(t, *transitions, 1)
	assert.Equal(t, models.SyncStatusSyncing, (*transitions)[0].status)

	require.NotNil(t, *updated)
	d := *updated
	assert.Equal(t, "Air Quality Stations", d.Name)
	assert.Equal(t, "environment", d.Category)
	assert.Equal(t, int64(39), d.DeclaredRecordCount, "extrapolated from the range read")
	require.Len(t, d.Resources, 1)
}

func TestSyncMetadata_UpstreamFailureMarksFailed(t *testing.T) {
	setSyncTestConfig(t)
	transitions, updated := stubMetadataSeams(t)
	fetchPortalMetadata = func(context.Context, string) (*portalMetadata, error) {
		return nil, errors.New("portal timeout")
	}

	err := SyncMetadata(context.Background(), testDatasetID)
	require.Error(t, err)
	assert.Nil(t, *updated)

	require.Len(t, *transitions, 2)
	assert.Equal(t, models.SyncStatusSyncing, (*transitions)[0].status)
	assert.Equal(t, models.SyncStatusFailed, (*transitions)[1].status)
	assert.Contains(t, (*transitions)[1].errMsg, "portal timeout")
}

func TestSyncMetadata_EstimateFailureIsNotFatal(t *testing.T) {
	setSyncTestConfig(t)
	_, updated := stubMetadataSeams(t)
	fetchRange = func(context.Context, string, int64) ([]byte, int64, error) {
		return nil, 0, errors.New("range not supported")
	}

	err := SyncMetadata(context.Background(), testDatasetID)
	require.NoError(t, err)
	require.NotNil(t, *updated)
	assert.Equal(t, int64(0), (*updated).DeclaredRecordCount)
}

func TestShouldSkipFailed_RetryPolicy(t *testing.T) {
	setSyncTestConfig(t)
	now := time.Now()
	recent := now.Add(-time.Hour)
	old := now.Add(-8 * 24 * time.Hour)

	cases := []struct {
		name string
		d    models.Dataset
		skip bool
	}{
		{"pending datasets always sync", models.Dataset{SyncStatus: models.SyncStatusPending}, false},
		{"success datasets always sync", models.Dataset{SyncStatus: models.SyncStatusSuccess, LastSyncAt: &old}, false},
		{"failed under the limit retries", models.Dataset{SyncStatus: models.SyncStatusFailed, SyncFailCount: 2, LastAttemptAt: &recent}, false},
		{"failed at the limit cools down", models.Dataset{SyncStatus: models.SyncStatusFailed, SyncFailCount: 5, LastAttemptAt: &recent}, true},
		{"failed at the limit retries after cooldown", models.Dataset{SyncStatus: models.SyncStatusFailed, SyncFailCount: 5, LastAttemptAt: &old}, false},
		{"cooldown runs off the attempt, not a prior success",
			models.Dataset{SyncStatus: models.SyncStatusFailed, SyncFailCount: 5, LastSyncAt: &old, LastAttemptAt: &recent}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.skip, shouldSkipFailed(tc.d, now))
		})
	}
}

func TestSyncAll_ContainsFailuresAndSkips(t *testing.T) {
	setSyncTestConfig(t)
	stubMetadataSeams(t)

	origList := listDatasetsForSync
	t.Cleanup(func() { listDatasetsForSync = origList })

	recent := time.Now().Add(-time.Hour)
	listDatasetsForSync = func() ([]models.Dataset, error) {
		return []models.Dataset{
			{Identifier: testIdentifier(1), SyncStatus: models.SyncStatusPending},
			{Identifier: testIdentifier(2), SyncStatus: models.SyncStatusFailed, SyncFailCount: 9, LastAttemptAt: &recent},
			{Identifier: testIdentifier(3), SyncStatus: models.SyncStatusSuccess},
		}, nil
	}

	summary, err := SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
}
