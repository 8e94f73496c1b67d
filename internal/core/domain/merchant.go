package domain

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is the owner of payments and the receiver of webhooks.
// This core only reads merchants; they are managed elsewhere.
type Merchant struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	APIKey           string    `json:"-"`
	WebhookURL       *string   `json:"webhook_url,omitempty"`
	WebhookSecretEnc string    `json:"-"` // AES-256-GCM encrypted, never expose
	CreatedAt        time.Time `json:"created_at"`
}

// HasWebhookEndpoint returns true if the merchant configured a delivery URL.
func (m *Merchant) HasWebhookEndpoint() bool {
	return m.WebhookURL != nil && *m.WebhookURL != ""
}
