package ports

import (
	"context"
	"time"

	"payment-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Lookups return (nil, nil) when the row does not exist.

// MerchantRepository reads merchants. Merchants are provisioned outside this service.
type MerchantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error)
}

// PaymentRepository defines persistence operations for payments.
// Methods accepting pgx.Tx run inside the caller's transaction.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Payment, error)
	Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	CountByStatus(ctx context.Context) (map[domain.PaymentStatus]int64, error)
}

// RefundRepository defines persistence operations for refunds.
type RefundRepository interface {
	Create(ctx context.Context, tx pgx.Tx, refund *domain.Refund) error
	GetByID(ctx context.Context, id string) (*domain.Refund, error)
	Update(ctx context.Context, tx pgx.Tx, refund *domain.Refund) error
	// SumActiveByPayment totals pending and processed refunds of a payment.
	SumActiveByPayment(ctx context.Context, tx pgx.Tx, paymentID string) (int64, error)
}

// WebhookLogRepository defines persistence operations for webhook event logs.
type WebhookLogRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.WebhookEventLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEventLog, error)
	GetByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*domain.WebhookEventLog, error)
	Update(ctx context.Context, log *domain.WebhookEventLog) error
	// ListDueForRetry returns pending logs whose next_retry_at is at or before now.
	ListDueForRetry(ctx context.Context, now time.Time) ([]domain.WebhookEventLog, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.WebhookEventLog, int64, error)
	CountByStatus(ctx context.Context) (map[domain.WebhookStatus]int64, error)
}

// IdempotencyRepository is the durable layer of the idempotency cache.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string, merchantID uuid.UUID) (*domain.IdempotencyRecord, error)
	Upsert(ctx context.Context, record *domain.IdempotencyRecord) error
	Delete(ctx context.Context, key string, merchantID uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
