// backend/services/admin_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharvest/portal/backend/models"
)

func TestRunMetadataSync_RefusesConcurrentDuplicate(t *testing.T) {
	setSyncTestConfig(t)
	stubMetadataSeams(t)

	origList := listDatasetsForSync
	t.Cleanup(func() { listDatasetsForSync = origList })

	started := make(chan struct{})
	release := make(chan struct{})
	listDatasetsForSync = func() ([]models.Dataset, error) {
		close(started)
		<-release
		return nil, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := RunMetadataSync(context.Background())
		done <- err
	}()

	<-started
	assert.True(t, MetadataSyncInProgress())
	_, err := RunMetadataSync(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning, "duplicate trigger is refused, not queued")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, MetadataSyncInProgress())

	// With the first run finished, a new trigger is accepted again.
	listDatasetsForSync = func() ([]models.Dataset, error) { return nil, nil }
	_, err = RunMetadataSync(context.Background())
	require.NoError(t, err)
}

func TestRunDiscovery_RefusesConcurrentDuplicate(t *testing.T) {
	setDiscoveryTestConfig(t)
	stubDiscoverySeams(t)

	origKnown := knownIdentifiers
	t.Cleanup(func() { knownIdentifiers = origKnown })

	started := make(chan struct{})
	release := make(chan struct{})
	knownIdentifiers = func() (map[string]bool, error) {
		close(started)
		<-release
		return map[string]bool{}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := RunDiscovery(context.Background(), false)
		done <- err
	}()

	<-started
	assert.True(t, DiscoveryInProgress())
	_, err := RunDiscovery(context.Background(), false)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, DiscoveryInProgress())
}
