package service

import (
	"context"
	"time"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
	"payment-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultWebhookPageSize = 10
	maxWebhookPageSize     = 100
)

// WebhookServiceImpl implements ports.WebhookService.
type WebhookServiceImpl struct {
	logs ports.WebhookLogRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewWebhookService creates a new WebhookServiceImpl.
func NewWebhookService(logs ports.WebhookLogRepository, log zerolog.Logger) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		logs: logs,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ListLogs returns a page of the merchant's webhook logs, newest first.
// limit is clamped to [1, 100]; a non-positive limit means the default page size.
func (s *WebhookServiceImpl) ListLogs(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.WebhookEventLog, int64, error) {
	if limit <= 0 {
		limit = defaultWebhookPageSize
	}
	if limit > maxWebhookPageSize {
		limit = maxWebhookPageSize
	}
	if offset < 0 {
		offset = 0
	}

	logs, total, err := s.logs.ListByMerchant(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	if logs == nil {
		logs = []domain.WebhookEventLog{}
	}
	return logs, total, nil
}

// ResetLog is the manual override for a failed delivery: the log returns to
// pending with a fresh attempt budget and is picked up by the next retry sweep.
// Logs that are still pending or already delivered are rejected.
func (s *WebhookServiceImpl) ResetLog(ctx context.Context, merchantID, logID uuid.UUID) (*domain.WebhookEventLog, error) {
	l, err := s.logs.GetByIDForMerchant(ctx, merchantID, logID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if l == nil {
		return nil, apperror.ErrNotFound("webhook log")
	}
	if l.Status != domain.WebhookStatusFailed {
		return nil, apperror.ErrWebhookNotRetryable()
	}

	l.Reset(s.now())
	if err := s.logs.Update(ctx, l); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().Str("webhook_log_id", l.ID.String()).Msg("webhook log reset for retry")
	return l, nil
}
