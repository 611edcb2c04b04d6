package queue

import (
	"context"
	"log"
	"time"
)

// GarbageCollector sweeps the dead-letter queue on an interval, dropping
// messages older than the retention window so failed jobs do not pile
// up forever.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
}

// NewGarbageCollector builds a collector around any DLQPurger
func NewGarbageCollector(purger DLQPurger, interval time.Duration, retention time.Duration) *GarbageCollector {
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
	}
}

// Start runs the sweep loop until ctx is cancelled
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweep(ctx)
		}
	}
}

func (gc *GarbageCollector) sweep(ctx context.Context) {
	if gc.purger == nil {
		return
	}

	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(sweepCtx, gc.retention)
	if err != nil {
		log.Printf("DLQ sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("DLQ sweep purged %d message(s) older than %v", n, gc.retention)
	}
}
