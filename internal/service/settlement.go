package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// Simulated bank round trip.
const (
	paymentDelayTest = 1 * time.Second
	paymentDelayMin  = 5 * time.Second
	paymentDelayMax  = 10 * time.Second
	refundDelayMin   = 3 * time.Second
	refundDelayMax   = 5 * time.Second
)

// Baseline settlement success probability per payment method. Bank-debit
// transfers settle more reliably than cards.
var paymentSuccessRate = map[string]float64{
	domain.PaymentMethodUPI:  0.95,
	domain.PaymentMethodCard: 0.90,
}

const defaultPaymentSuccessRate = 0.90

// settlementClock is the time source shared by the settlement workers.
// Tests replace its fields to run without real delays or randomness.
type settlementClock struct {
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	rand  func() float64 // [0, 1)
}

func defaultSettlementClock() settlementClock {
	return settlementClock{
		sleep: sleepContext,
		now:   func() time.Time { return time.Now().UTC() },
		rand:  rand.Float64,
	}
}

// between returns a uniformly distributed duration in [min, max).
func (c settlementClock) between(min, max time.Duration) time.Duration {
	return min + time.Duration(c.rand()*float64(max-min))
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// emitWebhookEvent commits the entity update and its webhook log together,
// then publishes the delivery job. persist runs inside the transaction.
func emitWebhookEvent(
	ctx context.Context,
	transactor ports.DBTransactor,
	webhookRepo ports.WebhookLogRepository,
	submitter ports.JobSubmitter,
	log *domain.WebhookEventLog,
	persist func(ctx context.Context, tx pgx.Tx) error,
) error {
	dbTx, err := transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := persist(ctx, dbTx); err != nil {
		return err
	}
	if err := webhookRepo.Create(ctx, dbTx, log); err != nil {
		return fmt.Errorf("create webhook log: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	if err := submitter.SubmitWebhookJob(ctx, log.ID); err != nil {
		return err
	}
	return nil
}
