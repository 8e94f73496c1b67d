package ports

import (
	"context"
	"time"
)

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}

// WorkerHeartbeat lets the worker process advertise liveness to the API process.
type WorkerHeartbeat interface {
	Beat(ctx context.Context, ttl time.Duration) error
	Alive(ctx context.Context) (bool, error)
}
