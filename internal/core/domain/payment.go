package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the settlement state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment methods accepted by the gateway.
const (
	PaymentMethodUPI  = "upi"
	PaymentMethodCard = "card"
)

// Error recorded on a payment the simulated bank declined.
const (
	PaymentErrorCodeDeclined        = "PAYMENT_FAILED"
	PaymentErrorDescriptionDeclined = "Transaction declined by bank"
)

// Payment is a merchant charge. It is created pending by the intake path and
// moved to a terminal status by the settlement worker.
type Payment struct {
	ID               string        `json:"id"`
	MerchantID       uuid.UUID     `json:"merchant_id"`
	OrderID          string        `json:"order_id"`
	Amount           int64         `json:"amount"` // In smallest currency unit
	Currency         string        `json:"currency"`
	Method           string        `json:"method"`
	VPA              *string       `json:"vpa,omitempty"`
	Status           PaymentStatus `json:"status"`
	Captured         bool          `json:"captured"`
	ErrorCode        *string       `json:"error_code,omitempty"`
	ErrorDescription *string       `json:"error_description,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// NewPaymentID returns an id of the form pay_<16 hex chars>.
func NewPaymentID() string {
	return "pay_" + shortID()
}

// IsTerminal returns true once settlement has resolved the payment.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}

// IsRefundable returns true if refunds may be issued against this payment.
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentStatusSuccess
}

// IsCapturable returns true if the payment settled and may be captured.
func (p *Payment) IsCapturable() bool {
	return p.Status == PaymentStatusSuccess
}

// MarkSettled applies a settlement outcome.
func (p *Payment) MarkSettled(success bool) {
	if success {
		p.Status = PaymentStatusSuccess
		p.ErrorCode = nil
		p.ErrorDescription = nil
		return
	}
	code := PaymentErrorCodeDeclined
	desc := PaymentErrorDescriptionDeclined
	p.Status = PaymentStatusFailed
	p.ErrorCode = &code
	p.ErrorDescription = &desc
}

// IsSupportedPaymentMethod reports whether method is one the gateway settles.
func IsSupportedPaymentMethod(method string) bool {
	switch strings.ToLower(method) {
	case PaymentMethodUPI, PaymentMethodCard:
		return true
	}
	return false
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}
