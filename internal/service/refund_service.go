package service

import (
	"context"
	"fmt"
	"time"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
	"payment-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefundServiceImpl implements ports.RefundService.
type RefundServiceImpl struct {
	payments   ports.PaymentRepository
	refunds    ports.RefundRepository
	webhooks   ports.WebhookLogRepository
	submitter  ports.JobSubmitter
	transactor ports.DBTransactor
	log        zerolog.Logger
	now        func() time.Time
}

// NewRefundService creates a new RefundServiceImpl.
func NewRefundService(
	payments ports.PaymentRepository,
	refunds ports.RefundRepository,
	webhooks ports.WebhookLogRepository,
	submitter ports.JobSubmitter,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *RefundServiceImpl {
	return &RefundServiceImpl{
		payments:   payments,
		refunds:    refunds,
		webhooks:   webhooks,
		submitter:  submitter,
		transactor: transactor,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateRefund records a pending refund and queues it for settlement.
// The payment row is locked while the refunded total is checked, so
// concurrent refunds cannot jointly exceed the payment amount.
func (s *RefundServiceImpl) CreateRefund(ctx context.Context, req ports.CreateRefundRequest) (*domain.Refund, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := s.payments.GetByIDForUpdate(ctx, dbTx, req.PaymentID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if payment == nil || payment.MerchantID != req.MerchantID {
		return nil, apperror.ErrNotFound("payment")
	}
	if !payment.IsRefundable() {
		return nil, apperror.ErrNotRefundable()
	}

	refunded, err := s.refunds.SumActiveByPayment(ctx, dbTx, payment.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !domain.RefundFits(payment.Amount, refunded, req.Amount) {
		return nil, apperror.ErrRefundExceedsAvailable()
	}

	now := s.now()
	refund := &domain.Refund{
		ID:         domain.NewRefundID(),
		PaymentID:  payment.ID,
		MerchantID: payment.MerchantID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		Status:     domain.RefundStatusPending,
		CreatedAt:  now,
	}

	webhookLog, err := domain.NewWebhookEventLog(refund.MerchantID, domain.EventRefundCreated, map[string]any{"refund": refund}, now)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := s.refunds.Create(ctx, dbTx, refund); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create refund: %w", err))
	}
	if err := s.webhooks.Create(ctx, dbTx, webhookLog); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create webhook log: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.submitter.SubmitRefundJob(ctx, refund.ID); err != nil {
		return nil, apperror.ErrJobBusUnavailable(err)
	}
	if err := s.submitter.SubmitWebhookJob(ctx, webhookLog.ID); err != nil {
		return nil, apperror.ErrJobBusUnavailable(err)
	}

	s.log.Info().
		Str("refund_id", refund.ID).
		Str("payment_id", payment.ID).
		Int64("amount", refund.Amount).
		Int64("already_refunded", refunded).
		Msg("refund created")

	return refund, nil
}

// GetRefund returns a refund owned by merchantID.
func (s *RefundServiceImpl) GetRefund(ctx context.Context, merchantID uuid.UUID, refundID string) (*domain.Refund, error) {
	refund, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if refund == nil || refund.MerchantID != merchantID {
		return nil, apperror.ErrNotFound("refund")
	}
	return refund, nil
}
