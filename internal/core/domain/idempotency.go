package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxIdempotencyKeyLength is the longest client key that can be stored.
const MaxIdempotencyKeyLength = 255

// IdempotencyRecord caches the response of a request keyed by the
// client-supplied token and the merchant that sent it.
type IdempotencyRecord struct {
	Key        string    `json:"key"`
	MerchantID uuid.UUID `json:"merchant_id"`
	Response   []byte    `json:"response"` // Opaque serialized response, returned verbatim
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsExpired reports whether the record is no longer valid at now.
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// BuildIdempotencyCacheKey constructs the cache key format "merchant_id:key".
func BuildIdempotencyCacheKey(merchantID uuid.UUID, key string) string {
	return merchantID.String() + ":" + key
}
