package service

import (
	"context"
	"fmt"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// RefundWorker settles pending refunds. It implements ports.RefundJobHandler.
// Refunds always succeed once processed.
type RefundWorker struct {
	refunds    ports.RefundRepository
	webhooks   ports.WebhookLogRepository
	transactor ports.DBTransactor
	submitter  ports.JobSubmitter
	log        zerolog.Logger
	clock      settlementClock
}

// NewRefundWorker creates a new RefundWorker.
func NewRefundWorker(
	refunds ports.RefundRepository,
	webhooks ports.WebhookLogRepository,
	transactor ports.DBTransactor,
	submitter ports.JobSubmitter,
	log zerolog.Logger,
) *RefundWorker {
	return &RefundWorker{
		refunds:    refunds,
		webhooks:   webhooks,
		transactor: transactor,
		submitter:  submitter,
		log:        log,
		clock:      defaultSettlementClock(),
	}
}

// HandleRefund marks the refund processed and emits one refund.processed event.
func (w *RefundWorker) HandleRefund(ctx context.Context, job domain.ProcessRefundJob) error {
	refund, err := w.refunds.GetByID(ctx, job.RefundID)
	if err != nil {
		return fmt.Errorf("load refund: %w", err)
	}
	if refund == nil {
		w.log.Warn().Str("refund_id", job.RefundID).Msg("refund not found, job discarded")
		return nil
	}

	if err := w.clock.sleep(ctx, w.clock.between(refundDelayMin, refundDelayMax)); err != nil {
		return fmt.Errorf("refund %s: %w", refund.ID, err)
	}

	now := w.clock.now()
	refund.MarkProcessed(now)

	webhookLog, err := domain.NewWebhookEventLog(refund.MerchantID, domain.EventRefundProcessed, map[string]any{"refund": refund}, now)
	if err != nil {
		return err
	}

	err = emitWebhookEvent(ctx, w.transactor, w.webhooks, w.submitter, webhookLog,
		func(ctx context.Context, tx pgx.Tx) error {
			if err := w.refunds.Update(ctx, tx, refund); err != nil {
				return fmt.Errorf("update refund: %w", err)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("settle refund %s: %w", refund.ID, err)
	}

	w.log.Info().
		Str("refund_id", refund.ID).
		Str("payment_id", refund.PaymentID).
		Str("webhook_log_id", webhookLog.ID.String()).
		Msg("refund processed")
	return nil
}
