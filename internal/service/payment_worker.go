package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"payment-gateway/config"
	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PaymentWorker settles pending payments. It implements ports.PaymentJobHandler.
type PaymentWorker struct {
	payments   ports.PaymentRepository
	webhooks   ports.WebhookLogRepository
	transactor ports.DBTransactor
	submitter  ports.JobSubmitter
	cfg        config.WorkerConfig
	log        zerolog.Logger
	clock      settlementClock
}

// NewPaymentWorker creates a new PaymentWorker.
func NewPaymentWorker(
	payments ports.PaymentRepository,
	webhooks ports.WebhookLogRepository,
	transactor ports.DBTransactor,
	submitter ports.JobSubmitter,
	cfg config.WorkerConfig,
	log zerolog.Logger,
) *PaymentWorker {
	return &PaymentWorker{
		payments:   payments,
		webhooks:   webhooks,
		transactor: transactor,
		submitter:  submitter,
		cfg:        cfg,
		log:        log,
		clock:      defaultSettlementClock(),
	}
}

// HandlePayment simulates the bank round trip, persists the outcome and emits
// exactly one payment.success or payment.failed webhook event.
func (w *PaymentWorker) HandlePayment(ctx context.Context, job domain.ProcessPaymentJob) error {
	payment, err := w.payments.GetByID(ctx, job.PaymentID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		w.log.Warn().Str("payment_id", job.PaymentID).Msg("payment not found, job discarded")
		return nil
	}

	if err := w.clock.sleep(ctx, w.processingDelay()); err != nil {
		return fmt.Errorf("payment %s: %w", payment.ID, err)
	}

	success := w.resolveOutcome(payment.Method)
	payment.MarkSettled(success)

	event := domain.EventPaymentFailed
	if success {
		event = domain.EventPaymentSuccess
	}
	webhookLog, err := domain.NewWebhookEventLog(payment.MerchantID, event, map[string]any{"payment": payment}, w.clock.now())
	if err != nil {
		return err
	}

	err = emitWebhookEvent(ctx, w.transactor, w.webhooks, w.submitter, webhookLog,
		func(ctx context.Context, tx pgx.Tx) error {
			if err := w.payments.Update(ctx, tx, payment); err != nil {
				return fmt.Errorf("update payment: %w", err)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("settle payment %s: %w", payment.ID, err)
	}

	w.log.Info().
		Str("payment_id", payment.ID).
		Str("status", string(payment.Status)).
		Str("webhook_log_id", webhookLog.ID.String()).
		Msg("payment settled")
	return nil
}

func (w *PaymentWorker) processingDelay() time.Duration {
	if w.cfg.TestMode {
		return paymentDelayTest
	}
	return w.clock.between(paymentDelayMin, paymentDelayMax)
}

func (w *PaymentWorker) resolveOutcome(method string) bool {
	if w.cfg.TestMode {
		return w.cfg.TestPaymentSuccess
	}
	rate, ok := paymentSuccessRate[strings.ToLower(method)]
	if !ok {
		rate = defaultPaymentSuccessRate
	}
	return w.clock.rand() < rate
}
