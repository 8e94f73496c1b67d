package postgres

import (
	"context"
	"errors"
	"fmt"

	"payment-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Get fetches a record by (key, merchant). Expired rows are returned as-is;
// the caller decides what to do with them.
func (r *IdempotencyRepo) Get(ctx context.Context, key string, merchantID uuid.UUID) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, merchant_id, response, expires_at, created_at
		FROM idempotency_keys WHERE key = $1 AND merchant_id = $2`

	rec := &domain.IdempotencyRecord{}
	err := r.pool.QueryRow(ctx, query, key, merchantID).Scan(
		&rec.Key, &rec.MerchantID, &rec.Response, &rec.ExpiresAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return rec, nil
}

// Upsert stores a record, replacing the response and expiry of an existing one.
func (r *IdempotencyRepo) Upsert(ctx context.Context, rec *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency_keys (key, merchant_id, response, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key, merchant_id) DO UPDATE SET response = EXCLUDED.response, expires_at = EXCLUDED.expires_at`

	_, err := r.pool.Exec(ctx, query, rec.Key, rec.MerchantID, rec.Response, rec.ExpiresAt, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert idempotency key: %w", err)
	}
	return nil
}

// Delete removes a record.
func (r *IdempotencyRepo) Delete(ctx context.Context, key string, merchantID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND merchant_id = $2`, key, merchantID)
	if err != nil {
		return fmt.Errorf("delete idempotency key: %w", err)
	}
	return nil
}
