package service

import (
	"context"
	"fmt"
	"time"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IdempotencyService implements ports.IdempotencyStore with two layers:
// Redis as a fast path and PostgreSQL as the durable source of truth.
//
// There is no per-key lock. Two requests sharing a key that both miss will
// both run; callers needing strict deduplication must serialize around
// Lookup/Store themselves.
type IdempotencyService struct {
	repo  ports.IdempotencyRepository
	cache ports.IdempotencyCache
	log   zerolog.Logger
	now   func() time.Time
}

// NewIdempotencyService creates a new IdempotencyService.
func NewIdempotencyService(repo ports.IdempotencyRepository, cache ports.IdempotencyCache, log zerolog.Logger) *IdempotencyService {
	return &IdempotencyService{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Lookup returns the stored response for (key, merchantID). An expired
// record is evicted and reported as a miss.
func (s *IdempotencyService) Lookup(ctx context.Context, key string, merchantID uuid.UUID) ([]byte, bool, error) {
	cacheKey := domain.BuildIdempotencyCacheKey(merchantID, key)

	// Layer 1: Redis
	cached, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return cached, true, nil
	}

	// Layer 2: DB
	rec, err := s.repo.Get(ctx, key, merchantID)
	if err != nil {
		return nil, false, fmt.Errorf("db idempotency check: %w", err)
	}
	if rec == nil {
		return nil, false, nil
	}

	now := s.now()
	if rec.IsExpired(now) {
		if err := s.repo.Delete(ctx, key, merchantID); err != nil {
			return nil, false, fmt.Errorf("evict expired idempotency key: %w", err)
		}
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to evict idempotency key from redis")
		}
		return nil, false, nil
	}

	// Warm Redis for the remaining lifetime
	if err := s.cache.Set(ctx, cacheKey, rec.Response, rec.ExpiresAt.Sub(now)); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to warm idempotency cache")
	}
	return rec.Response, true, nil
}

// Store persists response verbatim with an absolute expiry of now+ttl.
func (s *IdempotencyService) Store(ctx context.Context, key string, merchantID uuid.UUID, response []byte, ttl time.Duration) error {
	now := s.now()
	rec := &domain.IdempotencyRecord{
		Key:        key,
		MerchantID: merchantID,
		Response:   response,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}

	cacheKey := domain.BuildIdempotencyCacheKey(merchantID, key)
	if err := s.cache.Set(ctx, cacheKey, response, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency in redis")
	}
	return nil
}
