package postgres

import (
	"context"
	"testing"
	"time"

	"payment-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment() *domain.Payment {
	return &domain.Payment{
		ID:         domain.NewPaymentID(),
		MerchantID: uuid.New(),
		OrderID:    "ORDER-001",
		Amount:     50000,
		Currency:   "INR",
		Method:     domain.PaymentMethodUPI,
		VPA:        strPtr("user@upi"),
		Status:     domain.PaymentStatusPending,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func paymentCols() []string {
	return []string{"id", "merchant_id", "order_id", "amount", "currency", "method", "vpa", "status", "captured",
		"error_code", "error_description", "created_at"}
}

func paymentRow(p *domain.Payment) *pgxmock.Rows {
	return pgxmock.NewRows(paymentCols()).AddRow(
		p.ID, p.MerchantID, p.OrderID, p.Amount, p.Currency, p.Method, p.VPA,
		p.Status, p.Captured, p.ErrorCode, p.ErrorDescription, p.CreatedAt,
	)
}

func TestPaymentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, p.MerchantID, p.OrderID, p.Amount, p.Currency, p.Method, p.VPA,
			p.Status, p.Captured, p.ErrorCode, p.ErrorDescription, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE id").
		WithArgs(p.ID).
		WillReturnRows(paymentRow(p))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.Amount, result.Amount)
	assert.Equal(t, domain.PaymentStatusPending, result.Status)
	assert.Equal(t, "user@upi", *result.VPA)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payments WHERE id").
		WithArgs("pay_missing").
		WillReturnRows(pgxmock.NewRows(paymentCols()))

	result, err := repo.GetByID(context.Background(), "pay_missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM payments WHERE id = .+ FOR UPDATE").
		WithArgs(p.ID).
		WillReturnRows(paymentRow(p))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment()
	p.MarkSettled(false)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments").
		WithArgs(p.Status, p.Captured, p.ErrorCode, p.ErrorDescription, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), tx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_CountByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT status, COUNT.+ FROM payments GROUP BY status").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(domain.PaymentStatusPending, int64(2)).
			AddRow(domain.PaymentStatusSuccess, int64(7)))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.PaymentStatusPending])
	assert.Equal(t, int64(7), counts[domain.PaymentStatusSuccess])
	assert.Zero(t, counts[domain.PaymentStatusFailed])
	assert.NoError(t, mock.ExpectationsWereMet())
}
