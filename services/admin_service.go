// backend/services/admin_service.go
package services

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/openharvest/portal/backend/models"
)

// ErrAlreadyRunning signals a duplicate trigger: the operation is in
// flight and the request is refused rather than queued.
var ErrAlreadyRunning = errors.New("operation is already running")

var (
	discoveryRunning atomic.Bool
	syncRunning      atomic.Bool
)

// RunDiscovery is the single-flight wrapper around Discover used by the
// admin trigger and the scheduler.
func RunDiscovery(ctx context.Context, fullScan bool) (*models.DiscoveryResult, error) {
	if !discoveryRunning.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer discoveryRunning.Store(false)
	return Discover(ctx, fullScan)
}

// RunMetadataSync is the single-flight wrapper around SyncAll.
func RunMetadataSync(ctx context.Context) (*models.SyncSummary, error) {
	if !syncRunning.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer syncRunning.Store(false)
	return SyncAll(ctx)
}

// DiscoveryInProgress reports whether a discovery pass is in flight.
func DiscoveryInProgress() bool {
	return discoveryRunning.Load()
}

// MetadataSyncInProgress reports whether a metadata sync is in flight.
func MetadataSyncInProgress() bool {
	return syncRunning.Load()
}
