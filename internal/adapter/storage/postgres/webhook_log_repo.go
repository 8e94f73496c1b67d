package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const webhookLogColumns = `id, merchant_id, event, payload, status, attempts, last_attempt_at, next_retry_at,
		response_code, response_body, created_at`

// WebhookLogRepo implements ports.WebhookLogRepository.
type WebhookLogRepo struct {
	pool Pool
}

// NewWebhookLogRepo creates a new WebhookLogRepo.
func NewWebhookLogRepo(pool Pool) *WebhookLogRepo {
	return &WebhookLogRepo{pool: pool}
}

// Create inserts a webhook log within a database transaction.
func (r *WebhookLogRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.WebhookEventLog) error {
	query := `INSERT INTO webhook_logs (` + webhookLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		l.ID, l.MerchantID, l.Event, []byte(l.Payload), l.Status, l.Attempts,
		l.LastAttemptAt, l.NextRetryAt, l.ResponseCode, l.ResponseBody, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}

// GetByID fetches a webhook log by id.
func (r *WebhookLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEventLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs WHERE id = $1`

	l, err := scanWebhookLog(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook log by id: %w", err)
	}
	return l, nil
}

// GetByIDForMerchant fetches a webhook log only if it belongs to merchantID.
func (r *WebhookLogRepo) GetByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*domain.WebhookEventLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs WHERE id = $1 AND merchant_id = $2`

	l, err := scanWebhookLog(r.pool.QueryRow(ctx, query, id, merchantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook log for merchant: %w", err)
	}
	return l, nil
}

// Update persists the delivery state of a webhook log. The payload is never rewritten.
func (r *WebhookLogRepo) Update(ctx context.Context, l *domain.WebhookEventLog) error {
	query := `UPDATE webhook_logs
		SET status=$1, attempts=$2, last_attempt_at=$3, next_retry_at=$4, response_code=$5, response_body=$6
		WHERE id=$7`

	_, err := r.pool.Exec(ctx, query,
		l.Status, l.Attempts, l.LastAttemptAt, l.NextRetryAt, l.ResponseCode, l.ResponseBody, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook log: %w", err)
	}
	return nil
}

// ListDueForRetry returns pending logs whose next retry time has passed.
func (r *WebhookLogRepo) ListDueForRetry(ctx context.Context, now time.Time) ([]domain.WebhookEventLog, error) {
	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs
		WHERE status = $1 AND next_retry_at IS NOT NULL AND next_retry_at <= $2
		ORDER BY next_retry_at`

	rows, err := r.pool.Query(ctx, query, domain.WebhookStatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("list due webhook logs: %w", err)
	}
	return collectWebhookLogs(rows)
}

// ListByMerchant returns a page of a merchant's logs, newest first, and the total count.
func (r *WebhookLogRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.WebhookEventLog, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_logs WHERE merchant_id = $1`, merchantID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count webhook logs: %w", err)
	}

	query := `SELECT ` + webhookLogColumns + ` FROM webhook_logs
		WHERE merchant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, merchantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook logs: %w", err)
	}
	logs, err := collectWebhookLogs(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CountByStatus returns the number of webhook logs per status.
func (r *WebhookLogRepo) CountByStatus(ctx context.Context) (map[domain.WebhookStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM webhook_logs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count webhook logs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.WebhookStatus]int64)
	for rows.Next() {
		var status domain.WebhookStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan webhook log count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook log counts: %w", err)
	}
	return counts, nil
}

func collectWebhookLogs(rows pgx.Rows) ([]domain.WebhookEventLog, error) {
	defer rows.Close()

	var logs []domain.WebhookEventLog
	for rows.Next() {
		l, err := scanWebhookLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook log row: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook log rows: %w", err)
	}
	return logs, nil
}

func scanWebhookLog(row pgx.Row) (*domain.WebhookEventLog, error) {
	l := &domain.WebhookEventLog{}
	var payload []byte
	err := row.Scan(
		&l.ID, &l.MerchantID, &l.Event, &payload, &l.Status, &l.Attempts,
		&l.LastAttemptAt, &l.NextRetryAt, &l.ResponseCode, &l.ResponseBody, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Payload = payload
	return l, nil
}
