package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idempotencyCols() []string {
	return []string{"key", "merchant_id", "response", "expires_at", "created_at"}
}

func TestIdempotencyRepo_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := &domain.IdempotencyRecord{
		Key:        "ORDER-001",
		MerchantID: uuid.New(),
		Response:   []byte(`{"id":"pay_1"}`),
		ExpiresAt:  now.Add(24 * time.Hour),
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO idempotency_keys .+ ON CONFLICT").
		WithArgs(rec.Key, rec.MerchantID, rec.Response, rec.ExpiresAt, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Upsert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	merchantID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM idempotency_keys WHERE key").
		WithArgs("ORDER-001", merchantID).
		WillReturnRows(pgxmock.NewRows(idempotencyCols()).
			AddRow("ORDER-001", merchantID, []byte(`{"id":"pay_1"}`), now.Add(time.Hour), now))

	result, err := repo.Get(context.Background(), "ORDER-001", merchantID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, merchantID, result.MerchantID)
	assert.Equal(t, []byte(`{"id":"pay_1"}`), result.Response)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	merchantID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM idempotency_keys WHERE key").
		WithArgs("nonexistent-key", merchantID).
		WillReturnRows(pgxmock.NewRows(idempotencyCols()))

	result, err := repo.Get(context.Background(), "nonexistent-key", merchantID)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	merchantID := uuid.New()

	mock.ExpectExec("DELETE FROM idempotency_keys").
		WithArgs("ORDER-001", merchantID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), "ORDER-001", merchantID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Delete_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectExec("DELETE FROM idempotency_keys").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("deadlock"))

	err = repo.Delete(context.Background(), "k", uuid.New())
	assert.ErrorContains(t, err, "delete idempotency key")
}
