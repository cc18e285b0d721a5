package handler

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultWatchInterval is how often Watch re-probes readiness.
const DefaultWatchInterval = 10 * time.Second

// Watch keeps the overall ("") serving status of hs in line with c.Ready until ctx is done,
// then marks the server NOT_SERVING. It probes once immediately.
func Watch(ctx context.Context, c *Checker, hs *health.Server, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	probe := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if err := c.Ready(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if last != status {
				log.Printf("health: not serving: %v", err)
			}
		}
		if status != last {
			hs.SetServingStatus("", status)
			last = status
		}
	}
	probe()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			probe()
		}
	}
}
