package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus represents the settlement state of a refund.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
)

// Refund returns part or all of a settled payment to the customer.
type Refund struct {
	ID          string       `json:"id"`
	PaymentID   string       `json:"payment_id"`
	MerchantID  uuid.UUID    `json:"merchant_id"`
	Amount      int64        `json:"amount"`
	Reason      string       `json:"reason,omitempty"`
	Status      RefundStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}

// NewRefundID returns an id of the form rfnd_<16 hex chars>.
func NewRefundID() string {
	return "rfnd_" + shortID()
}

// MarkProcessed moves the refund to its terminal state.
func (r *Refund) MarkProcessed(at time.Time) {
	r.Status = RefundStatusProcessed
	r.ProcessedAt = &at
}

// RefundFits reports whether a new refund of amount keeps the total refunded
// (pending and processed) within the original payment amount.
func RefundFits(paymentAmount, alreadyRefunded, amount int64) bool {
	return alreadyRefunded+amount <= paymentAmount
}
