package service

import (
	"context"
	"fmt"
	"time"

	"payment-gateway/config"
	"payment-gateway/internal/core/ports"
	"payment-gateway/internal/metrics"

	"github.com/rs/zerolog"
)

// RetryScheduler periodically republishes delivery jobs for pending webhook
// logs whose retry time has passed. It does not touch log state.
type RetryScheduler struct {
	logs      ports.WebhookLogRepository
	submitter ports.JobSubmitter
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewRetryScheduler creates a new RetryScheduler.
func NewRetryScheduler(logs ports.WebhookLogRepository, submitter ports.JobSubmitter, cfg config.WorkerConfig, log zerolog.Logger) *RetryScheduler {
	return &RetryScheduler{
		logs:      logs,
		submitter: submitter,
		interval:  cfg.RetrySweepInterval,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps immediately and then once per interval until ctx is done.
func (s *RetryScheduler) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("webhook retry scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error().Err(err).Msg("webhook retry sweep failed")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("webhook retry scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep republishes one delivery job per due log and returns how many were
// published. A failed publish is logged and the sweep moves on.
func (s *RetryScheduler) Sweep(ctx context.Context) (int, error) {
	due, err := s.logs.ListDueForRetry(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list due webhook logs: %w", err)
	}

	published := 0
	for _, l := range due {
		if err := s.submitter.SubmitWebhookJob(ctx, l.ID); err != nil {
			s.log.Error().Err(err).
				Str("webhook_log_id", l.ID.String()).
				Int("attempt", l.Attempts).
				Msg("failed to republish webhook job")
			continue
		}
		published++
	}

	if published > 0 {
		metrics.WebhookRetriesRepublishedTotal.Add(float64(published))
		s.log.Info().Int("count", published).Msg("webhook retries republished")
	}
	return published, nil
}
