package postgres

import (
	"context"
	"errors"
	"fmt"

	"payment-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const refundColumns = `id, payment_id, merchant_id, amount, reason, status, created_at, processed_at`

// RefundRepo implements ports.RefundRepository.
type RefundRepo struct {
	pool Pool
}

// NewRefundRepo creates a new RefundRepo.
func NewRefundRepo(pool Pool) *RefundRepo {
	return &RefundRepo{pool: pool}
}

// Create inserts a new refund within a database transaction.
func (r *RefundRepo) Create(ctx context.Context, tx pgx.Tx, ref *domain.Refund) error {
	query := `INSERT INTO refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		ref.ID, ref.PaymentID, ref.MerchantID, ref.Amount, ref.Reason,
		ref.Status, ref.CreatedAt, ref.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

// GetByID fetches a refund by id.
func (r *RefundRepo) GetByID(ctx context.Context, id string) (*domain.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`

	ref := &domain.Refund{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ref.ID, &ref.PaymentID, &ref.MerchantID, &ref.Amount, &ref.Reason,
		&ref.Status, &ref.CreatedAt, &ref.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get refund by id: %w", err)
	}
	return ref, nil
}

// Update persists the refund status and processing time.
func (r *RefundRepo) Update(ctx context.Context, tx pgx.Tx, ref *domain.Refund) error {
	query := `UPDATE refunds SET status=$1, processed_at=$2 WHERE id=$3`

	_, err := tx.Exec(ctx, query, ref.Status, ref.ProcessedAt, ref.ID)
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	return nil
}

// SumActiveByPayment totals the amount of pending and processed refunds of a payment.
func (r *RefundRepo) SumActiveByPayment(ctx context.Context, tx pgx.Tx, paymentID string) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM refunds
		WHERE payment_id = $1 AND status IN ($2, $3)`

	var total int64
	err := tx.QueryRow(ctx, query, paymentID, domain.RefundStatusPending, domain.RefundStatusProcessed).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum refunds: %w", err)
	}
	return total, nil
}
