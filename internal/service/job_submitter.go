package service

import (
	"context"
	"fmt"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// JobSubmitter implements ports.JobSubmitter over a bus publisher.
type JobSubmitter struct {
	publisher ports.JobPublisher
}

// NewJobSubmitter creates a new JobSubmitter.
func NewJobSubmitter(publisher ports.JobPublisher) *JobSubmitter {
	return &JobSubmitter{publisher: publisher}
}

func (s *JobSubmitter) SubmitPaymentJob(ctx context.Context, paymentID string) error {
	return s.submit(ctx, domain.ProcessPaymentJob{PaymentID: paymentID})
}

func (s *JobSubmitter) SubmitRefundJob(ctx context.Context, refundID string) error {
	return s.submit(ctx, domain.ProcessRefundJob{RefundID: refundID})
}

func (s *JobSubmitter) SubmitWebhookJob(ctx context.Context, logID uuid.UUID) error {
	return s.submit(ctx, domain.DeliverWebhookJob{WebhookLogID: logID})
}

func (s *JobSubmitter) submit(ctx context.Context, job domain.Job) error {
	if err := s.publisher.Publish(ctx, job); err != nil {
		return fmt.Errorf("submit %s %s: %w", job.Kind(), job.EntityID(), err)
	}
	return nil
}
