// Package purge deletes expired linking codes and OTP records at startup and on a timer.
package purge

import (
	"context"
	"log"
	"time"
)

// Purger deletes expired records and reports how many were removed.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Target names a Purger for logging.
type Target struct {
	Name   string
	Purger Purger
}

// Once runs every target once. Failures are logged and do not stop the other targets.
// Returns the total number of deleted records.
func Once(ctx context.Context, targets ...Target) int64 {
	var total int64
	for _, t := range targets {
		if t.Purger == nil {
			continue
		}
		n, err := t.Purger.PurgeExpired(ctx)
		if err != nil {
			log.Printf("purge: %s: %v", t.Name, err)
			continue
		}
		if n > 0 {
			log.Printf("purge: %s: removed %d expired records", t.Name, n)
		}
		total += n
	}
	return total
}

// Run purges once immediately, then every interval until ctx is done.
// interval <= 0 means startup purge only.
func Run(ctx context.Context, interval time.Duration, targets ...Target) {
	Once(ctx, targets...)
	Every(ctx, interval, targets...)
}

// Every purges every interval until ctx is done. It returns at once if interval <= 0.
func Every(ctx context.Context, interval time.Duration, targets ...Target) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			Once(ctx, targets...)
		}
	}
}
