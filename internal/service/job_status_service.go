package service

import (
	"context"

	"payment-gateway/internal/core/ports"
	"payment-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// Worker status values reported by JobStatusServiceImpl.
const (
	WorkerStatusRunning = "running"
	WorkerStatusStopped = "stopped"
	WorkerStatusUnknown = "unknown"
)

// JobStatusServiceImpl implements ports.JobStatusService.
type JobStatusServiceImpl struct {
	payments  ports.PaymentRepository
	webhooks  ports.WebhookLogRepository
	heartbeat ports.WorkerHeartbeat
	log       zerolog.Logger
}

// NewJobStatusService creates a new JobStatusServiceImpl.
func NewJobStatusService(
	payments ports.PaymentRepository,
	webhooks ports.WebhookLogRepository,
	heartbeat ports.WorkerHeartbeat,
	log zerolog.Logger,
) *JobStatusServiceImpl {
	return &JobStatusServiceImpl{
		payments:  payments,
		webhooks:  webhooks,
		heartbeat: heartbeat,
		log:       log,
	}
}

// Status reports payment and webhook backlog plus worker liveness.
func (s *JobStatusServiceImpl) Status(ctx context.Context) (*ports.JobStatus, error) {
	payments, err := s.payments.CountByStatus(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	webhooks, err := s.webhooks.CountByStatus(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	status := WorkerStatusStopped
	alive, err := s.heartbeat.Alive(ctx)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Msg("worker heartbeat check failed")
		status = WorkerStatusUnknown
	case alive:
		status = WorkerStatusRunning
	}

	return &ports.JobStatus{
		Payments:     payments,
		Webhooks:     webhooks,
		WorkerStatus: status,
	}, nil
}
