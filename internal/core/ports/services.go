package ports

import (
	"context"
	"time"

	"payment-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService recovers merchant webhook secrets stored encrypted at rest.
type EncryptionService interface {
	Decrypt(ciphertext string) (string, error)
}

// SignatureService signs outbound webhook bodies.
type SignatureService interface {
	Sign(secret string, payload []byte) string
}

// IdempotencyCache is the Redis layer of idempotency (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore caches request responses keyed by (key, merchant).
type IdempotencyStore interface {
	// Lookup returns the stored response, or ok=false on miss or expiry.
	Lookup(ctx context.Context, key string, merchantID uuid.UUID) (response []byte, ok bool, err error)
	Store(ctx context.Context, key string, merchantID uuid.UUID, response []byte, ttl time.Duration) error
}

// --- Job bus ---

// JobPublisher sends jobs to their topic. Delivery is at-most-once.
type JobPublisher interface {
	Publish(ctx context.Context, job domain.Job) error
}

// JobSubscriber yields raw messages published on one topic. The channel is
// closed when ctx is done.
type JobSubscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// JobSubmitter is the request-path entry into the bus.
type JobSubmitter interface {
	SubmitPaymentJob(ctx context.Context, paymentID string) error
	SubmitRefundJob(ctx context.Context, refundID string) error
	SubmitWebhookJob(ctx context.Context, logID uuid.UUID) error
}

// --- Job handlers ---

type PaymentJobHandler interface {
	HandlePayment(ctx context.Context, job domain.ProcessPaymentJob) error
}

type RefundJobHandler interface {
	HandleRefund(ctx context.Context, job domain.ProcessRefundJob) error
}

type WebhookJobHandler interface {
	HandleWebhook(ctx context.Context, job domain.DeliverWebhookJob) error
}

// --- Service Ports (Business Logic) ---

// PaymentService defines payment intake.
type PaymentService interface {
	// CreatePayment returns the serialized payment. A replay of a known
	// idempotency key returns the first response unchanged with replayed=true.
	CreatePayment(ctx context.Context, req CreatePaymentRequest, idempotencyKey string) (body []byte, replayed bool, err error)
	GetPayment(ctx context.Context, merchantID uuid.UUID, paymentID string) (*domain.Payment, error)
	CapturePayment(ctx context.Context, merchantID uuid.UUID, paymentID string) (*domain.Payment, error)
}

// CreatePaymentRequest holds validated input for payment creation.
type CreatePaymentRequest struct {
	MerchantID uuid.UUID
	OrderID    string
	Amount     int64
	Currency   string
	Method     string
	VPA        *string
}

// RefundService defines refund intake.
type RefundService interface {
	CreateRefund(ctx context.Context, req CreateRefundRequest) (*domain.Refund, error)
	GetRefund(ctx context.Context, merchantID uuid.UUID, refundID string) (*domain.Refund, error)
}

// CreateRefundRequest holds validated input for refund creation.
type CreateRefundRequest struct {
	MerchantID uuid.UUID
	PaymentID  string
	Amount     int64
	Reason     string
}

// WebhookService exposes webhook logs to merchants.
type WebhookService interface {
	ListLogs(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.WebhookEventLog, int64, error)
	ResetLog(ctx context.Context, merchantID, logID uuid.UUID) (*domain.WebhookEventLog, error)
}

// JobStatusService reports job backlog for operators.
type JobStatusService interface {
	Status(ctx context.Context) (*JobStatus, error)
}

// JobStatus summarizes the job core.
type JobStatus struct {
	Payments     map[domain.PaymentStatus]int64 `json:"payments"`
	Webhooks     map[domain.WebhookStatus]int64 `json:"webhooks"`
	WorkerStatus string                         `json:"worker_status"` // running, stopped, unknown
}
