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

func newTestMerchant() *domain.Merchant {
	return &domain.Merchant{
		ID:               uuid.New(),
		Name:             "Test Shop",
		APIKey:           "key_test_" + uuid.New().String()[:8],
		WebhookURL:       strPtr("https://example.com/webhook"),
		WebhookSecretEnc: "encrypted_webhook_secret",
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
}

func strPtr(s string) *string { return &s }

func merchantCols() []string {
	return []string{"id", "name", "api_key", "webhook_url", "webhook_secret_enc", "created_at"}
}

func merchantRow(m *domain.Merchant) *pgxmock.Rows {
	return pgxmock.NewRows(merchantCols()).AddRow(
		m.ID, m.Name, m.APIKey, m.WebhookURL, m.WebhookSecretEnc, m.CreatedAt,
	)
}

func TestMerchantRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	m := newTestMerchant()

	mock.ExpectQuery("SELECT .+ FROM merchants WHERE id").
		WithArgs(m.ID).
		WillReturnRows(merchantRow(m))

	result, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, m.ID, result.ID)
	assert.Equal(t, m.Name, result.Name)
	assert.Equal(t, m.WebhookSecretEnc, result.WebhookSecretEnc)
	assert.Equal(t, *m.WebhookURL, *result.WebhookURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM merchants WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(merchantCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByAPIKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	m := newTestMerchant()

	mock.ExpectQuery("SELECT .+ FROM merchants WHERE api_key").
		WithArgs(m.APIKey).
		WillReturnRows(merchantRow(m))

	result, err := repo.GetByAPIKey(context.Background(), m.APIKey)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, m.APIKey, result.APIKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByAPIKey_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM merchants WHERE api_key").
		WithArgs("key").
		WillReturnError(errors.New("connection reset"))

	result, err := repo.GetByAPIKey(context.Background(), "key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "get merchant by api_key")
	assert.Nil(t, result)
}
