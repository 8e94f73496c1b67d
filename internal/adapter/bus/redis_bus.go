// Package bus carries job envelopes between the request path and the workers
// over Redis Pub/Sub. Delivery is at-most-once: a job published while no
// worker is subscribed is lost.
package bus

import (
	"context"
	"fmt"

	"payment-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus implements ports.JobPublisher and ports.JobSubscriber.
type RedisBus struct {
	client *goredis.Client
	log    zerolog.Logger
}

// NewRedisBus creates a job bus on top of an existing Redis client.
func NewRedisBus(client *goredis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

// Publish encodes the job and sends it to the job's topic.
func (b *RedisBus) Publish(ctx context.Context, job domain.Job) error {
	body, err := domain.EncodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	receivers, err := b.client.Publish(ctx, job.Topic(), body).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", job.Topic(), err)
	}
	if receivers == 0 {
		b.log.Warn().
			Str("topic", job.Topic()).
			Str("kind", string(job.Kind())).
			Str("entity_id", job.EntityID()).
			Msg("no subscribers, job dropped")
	}
	return nil
}

// Subscribe starts receiving messages on topic. It returns once the
// subscription is confirmed by the server.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ps := b.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	b.log.Info().Str("topic", topic).Msg("subscribed")
	return out, nil
}
