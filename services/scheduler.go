// backend/services/scheduler.go
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/openharvest/portal/backend/config"
)

// StartSchedulers launches the periodic background passes: quick
// discovery on a weekly default cadence, full discovery monthly and
// metadata sync daily. Each tick goes through the same single-flight
// guards as the admin triggers, so a manual run and a scheduled run can
// never overlap; the loser of the race is logged and skipped.
func StartSchedulers(ctx context.Context) {
	cfg := config.AppConfig.Scheduler
	if !cfg.Enabled {
		log.Println("Service: Background schedulers are disabled by config.")
		return
	}

	go runEvery(ctx, "quick discovery", cfg.QuickDiscoveryInterval, func(ctx context.Context) error {
		_, err := RunDiscovery(ctx, false)
		return err
	})
	go runEvery(ctx, "full discovery", cfg.FullDiscoveryInterval, func(ctx context.Context) error {
		_, err := RunDiscovery(ctx, true)
		return err
	})
	go runEvery(ctx, "metadata sync", cfg.MetadataSyncInterval, func(ctx context.Context) error {
		_, err := RunMetadataSync(ctx)
		return err
	})

	log.Printf("Service: Schedulers started (quick discovery every %s, full discovery every %s, metadata sync every %s)\n",
		cfg.QuickDiscoveryInterval, cfg.FullDiscoveryInterval, cfg.MetadataSyncInterval)
}

func runEvery(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job(ctx); err != nil {
				if errors.Is(err, ErrAlreadyRunning) {
					log.Printf("Service: Scheduled %s skipped: a run is already in progress\n", name)
				} else {
					log.Printf("ERROR Service: Scheduled %s failed: %v\n", name, err)
				}
			}
		}
	}
}
