// Package worker consumes jobs from the bus and dispatches them to the
// settlement and delivery handlers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
	"payment-gateway/internal/metrics"

	"github.com/rs/zerolog"
)

// DefaultHeartbeatInterval is how often a running worker refreshes its heartbeat.
const DefaultHeartbeatInterval = 5 * time.Second

// Handlers groups the typed job handlers the runner dispatches to.
type Handlers struct {
	Payments ports.PaymentJobHandler
	Refunds  ports.RefundJobHandler
	Webhooks ports.WebhookJobHandler
}

// Runner owns one sequential consumer per topic.
type Runner struct {
	subscriber        ports.JobSubscriber
	handlers          Handlers
	heartbeat         ports.WorkerHeartbeat
	heartbeatInterval time.Duration
	topics            []string
	log               zerolog.Logger
}

// NewRunner creates a Runner. heartbeat may be nil.
func NewRunner(subscriber ports.JobSubscriber, handlers Handlers, heartbeat ports.WorkerHeartbeat, log zerolog.Logger) *Runner {
	return &Runner{
		subscriber:        subscriber,
		handlers:          handlers,
		heartbeat:         heartbeat,
		heartbeatInterval: DefaultHeartbeatInterval,
		topics:            []string{domain.TopicPayments, domain.TopicRefunds, domain.TopicWebhooks},
		log:               log,
	}
}

// Run subscribes to every topic and consumes until ctx is done. It returns
// an error only if a subscription cannot be established.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streams := make(map[string]<-chan []byte, len(r.topics))
	for _, topic := range r.topics {
		ch, err := r.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		streams[topic] = ch
	}

	var wg sync.WaitGroup
	for topic, ch := range streams {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.consume(ctx, topic, ch)
		}()
	}

	if r.heartbeat != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.beat(ctx)
		}()
	}

	r.log.Info().Strs("topics", r.topics).Msg("worker started")
	wg.Wait()
	r.log.Info().Msg("worker stopped")
	return nil
}

// consume handles messages one at a time until the stream closes.
func (r *Runner) consume(ctx context.Context, topic string, ch <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case body, ok := <-ch:
			if !ok {
				return
			}
			r.Dispatch(ctx, topic, body)
		}
	}
}

// Dispatch decodes one message and runs its handler. Failures never escape:
// malformed messages are dropped, handler errors and panics are logged.
func (r *Runner) Dispatch(ctx context.Context, topic string, body []byte) {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	job, err := domain.DecodeJob(topic, body)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(topic, metrics.OutcomeMalformed).Inc()
		r.log.Error().Err(err).Str("topic", topic).Bytes("body", body).Msg("dropping malformed job")
		return
	}

	log := r.log.With().
		Str("topic", topic).
		Str("kind", string(job.Kind())).
		Str("entity_id", job.EntityID()).
		Logger()

	defer func() {
		if rec := recover(); rec != nil {
			metrics.JobsProcessedTotal.WithLabelValues(topic, metrics.OutcomePanic).Inc()
			log.Error().Interface("panic", rec).Msg("panic recovered in job handler")
		}
	}()

	if err := r.handle(ctx, job); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(topic, metrics.OutcomeError).Inc()
		evt := log.Error()
		if errors.Is(err, context.Canceled) {
			evt = log.Warn()
		}
		evt.Err(err).Msg("job failed")
		return
	}
	metrics.JobsProcessedTotal.WithLabelValues(topic, metrics.OutcomeSuccess).Inc()
	log.Debug().Dur("elapsed", time.Since(start)).Msg("job done")
}

func (r *Runner) handle(ctx context.Context, job domain.Job) error {
	switch j := job.(type) {
	case domain.ProcessPaymentJob:
		return r.handlers.Payments.HandlePayment(ctx, j)
	case domain.ProcessRefundJob:
		return r.handlers.Refunds.HandleRefund(ctx, j)
	case domain.DeliverWebhookJob:
		return r.handlers.Webhooks.HandleWebhook(ctx, j)
	default:
		return fmt.Errorf("no handler for job kind %q", job.Kind())
	}
}

// beat refreshes the liveness key until ctx is done. The key outlives a few
// missed beats before the worker reads as stopped.
func (r *Runner) beat(ctx context.Context) {
	ttl := 3 * r.heartbeatInterval
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		if err := r.heartbeat.Beat(ctx, ttl); err != nil && ctx.Err() == nil {
			r.log.Warn().Err(err).Msg("worker heartbeat failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
