package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WebhookStatus represents the delivery state of a webhook event log.
type WebhookStatus string

const (
	WebhookStatusPending WebhookStatus = "pending"
	WebhookStatusSuccess WebhookStatus = "success"
	WebhookStatusFailed  WebhookStatus = "failed"
)

// Webhook events emitted by the gateway.
const (
	EventPaymentCreated  = "payment.created"
	EventPaymentSuccess  = "payment.success"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
	EventRefundProcessed = "refund.processed"
)

const (
	// MaxWebhookAttempts is the number of failed deliveries after which a log
	// is permanently failed.
	MaxWebhookAttempts = 5

	// MaxWebhookResponseBody bounds the stored response body/error detail, in characters.
	MaxWebhookResponseBody = 255
)

var (
	webhookBackoff     = []time.Duration{1 * time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	webhookBackoffFast = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second, 20 * time.Second}
)

// WebhookBackoff returns the delay before the retry that follows the given
// number of failed attempts. ok is false when no further retry is allowed.
func WebhookBackoff(attempts int, fast bool) (delay time.Duration, ok bool) {
	table := webhookBackoff
	if fast {
		table = webhookBackoffFast
	}
	if attempts < 1 || attempts > len(table) {
		return 0, false
	}
	return table[attempts-1], true
}

// WebhookEventLog is the durable record of one notification to a merchant.
// The payload is serialized once at creation and never changes, so every
// retry signs and sends the same bytes.
type WebhookEventLog struct {
	ID            uuid.UUID       `json:"id"`
	MerchantID    uuid.UUID       `json:"merchant_id"`
	Event         string          `json:"event"`
	Payload       json.RawMessage `json:"payload"`
	Status        WebhookStatus   `json:"status"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	ResponseCode  *int            `json:"response_code,omitempty"`
	ResponseBody  *string         `json:"response_body,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// WebhookPayload is the body POSTed to merchant endpoints.
type WebhookPayload struct {
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewWebhookEventLog builds a pending log whose payload wraps data under the
// given event name.
func NewWebhookEventLog(merchantID uuid.UUID, event string, data any, now time.Time) (*WebhookEventLog, error) {
	payload, err := json.Marshal(WebhookPayload{
		Event:     event,
		Timestamp: now.Unix(),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	return &WebhookEventLog{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Event:      event,
		Payload:    payload,
		Status:     WebhookStatusPending,
		CreatedAt:  now,
	}, nil
}

// IsTerminal reports whether delivery has resolved either way. Only a manual
// Reset leaves a terminal state.
func (l *WebhookEventLog) IsTerminal() bool {
	return l.Status != WebhookStatusPending
}

// IsDelivered returns true once the merchant acknowledged the event.
func (l *WebhookEventLog) IsDelivered() bool {
	return l.Status == WebhookStatusSuccess
}

// RecordSuccess marks the log delivered.
func (l *WebhookEventLog) RecordSuccess(now time.Time, code int) {
	l.Status = WebhookStatusSuccess
	l.ResponseCode = &code
	l.LastAttemptAt = &now
	l.NextRetryAt = nil
}

// RecordFailure consumes one attempt and either schedules the next retry or,
// once MaxWebhookAttempts is reached, fails the log permanently. code is nil
// when the endpoint could not be reached at all.
func (l *WebhookEventLog) RecordFailure(now time.Time, code *int, detail string, fast bool) {
	l.Attempts++
	l.LastAttemptAt = &now
	l.ResponseCode = code
	body := truncateRunes(printableText(detail), MaxWebhookResponseBody)
	l.ResponseBody = &body

	delay, ok := WebhookBackoff(l.Attempts, fast)
	if !ok || l.Attempts >= MaxWebhookAttempts {
		l.Status = WebhookStatusFailed
		l.NextRetryAt = nil
		return
	}
	next := now.Add(delay)
	l.Status = WebhookStatusPending
	l.NextRetryAt = &next
}

// MarkUndeliverable fails the log without consuming an attempt. Used when the
// merchant has no endpoint to deliver to.
func (l *WebhookEventLog) MarkUndeliverable() {
	l.Status = WebhookStatusFailed
	l.NextRetryAt = nil
}

// Reset is the manual operator override: back to pending with a fresh attempt
// budget, due immediately.
func (l *WebhookEventLog) Reset(now time.Time) {
	l.Status = WebhookStatusPending
	l.Attempts = 0
	l.NextRetryAt = &now
}

// printableText makes arbitrary response bytes storable as text: invalid
// UTF-8 becomes U+FFFD and NUL bytes are dropped.
func printableText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
