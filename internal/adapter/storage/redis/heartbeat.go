package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Heartbeat implements ports.WorkerHeartbeat with a single expiring key.
// The worker refreshes it; the API process reads it to report worker status.
type Heartbeat struct {
	client *goredis.Client
	key    string
}

// NewHeartbeat creates a Redis-backed worker heartbeat.
func NewHeartbeat(client *goredis.Client) *Heartbeat {
	return &Heartbeat{
		client: client,
		key:    "worker:heartbeat",
	}
}

// Beat marks the worker alive for ttl.
func (h *Heartbeat) Beat(ctx context.Context, ttl time.Duration) error {
	if err := h.client.Set(ctx, h.key, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis heartbeat set: %w", err)
	}
	return nil
}

// Alive reports whether a heartbeat is currently present.
func (h *Heartbeat) Alive(ctx context.Context) (bool, error) {
	n, err := h.client.Exists(ctx, h.key).Result()
	if err != nil {
		return false, fmt.Errorf("redis heartbeat exists: %w", err)
	}
	return n > 0, nil
}
