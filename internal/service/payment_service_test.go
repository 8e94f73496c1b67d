package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
	"payment-gateway/internal/core/ports/mocks"
	"payment-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type paymentTestDeps struct {
	svc         *PaymentServiceImpl
	payments    *mocks.MockPaymentRepository
	webhooks    *mocks.MockWebhookLogRepository
	idempotency *mocks.MockIdempotencyStore
	submitter   *mocks.MockJobSubmitter
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

var testNow = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func setupPaymentService(t *testing.T) *paymentTestDeps {
	ctrl := gomock.NewController(t)
	d := &paymentTestDeps{
		payments:    mocks.NewMockPaymentRepository(ctrl),
		webhooks:    mocks.NewMockWebhookLogRepository(ctrl),
		idempotency: mocks.NewMockIdempotencyStore(ctrl),
		submitter:   mocks.NewMockJobSubmitter(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewPaymentService(
		d.payments, d.webhooks, d.idempotency, d.submitter,
		d.transactor, 24*time.Hour, zerolog.Nop(),
	)
	d.svc.now = func() time.Time { return testNow }
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func validPaymentRequest(merchantID uuid.UUID) ports.CreatePaymentRequest {
	return ports.CreatePaymentRequest{
		MerchantID: merchantID,
		OrderID:    "ORDER-001",
		Amount:     50000,
		Currency:   "inr",
		Method:     "UPI",
	}
}

// ==================== CreatePayment Tests ====================

func TestPaymentService_CreatePayment_Success(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchantID := uuid.New()
	tx := &mockTx{}

	var created *domain.Payment
	var createdLog *domain.WebhookEventLog

	d.idempotency.EXPECT().Lookup(ctx, "key-1", merchantID).Return(nil, false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payments.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, p *domain.Payment) error {
			created = p
			return nil
		})
	d.webhooks.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, l *domain.WebhookEventLog) error {
			createdLog = l
			return nil
		})
	d.submitter.EXPECT().SubmitPaymentJob(ctx, gomock.Any()).Return(nil)
	d.submitter.EXPECT().SubmitWebhookJob(ctx, gomock.Any()).Return(nil)
	d.idempotency.EXPECT().Store(ctx, "key-1", merchantID, gomock.Any(), 24*time.Hour).Return(nil)

	body, replayed, err := d.svc.CreatePayment(ctx, validPaymentRequest(merchantID), "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	require.NotNil(t, created)
	assert.Regexp(t, `^pay_[0-9a-f]{16}$`, created.ID)
	assert.Equal(t, domain.PaymentStatusPending, created.Status)
	assert.Equal(t, "INR", created.Currency)
	assert.Equal(t, "upi", created.Method)

	require.NotNil(t, createdLog)
	assert.Equal(t, domain.EventPaymentCreated, createdLog.Event)
	assert.Equal(t, merchantID, createdLog.MerchantID)

	var resp domain.Payment
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, domain.PaymentStatusPending, resp.Status)
}

func TestPaymentService_CreatePayment_PublishesCreatedJobs(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	var paymentID string
	var logID uuid.UUID

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payments.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, p *domain.Payment) error {
			paymentID = p.ID
			return nil
		})
	d.webhooks.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, l *domain.WebhookEventLog) error {
			logID = l.ID
			return nil
		})
	gomock.InOrder(
		d.submitter.EXPECT().SubmitPaymentJob(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, id string) error {
				assert.Equal(t, paymentID, id)
				return nil
			}),
		d.submitter.EXPECT().SubmitWebhookJob(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, id uuid.UUID) error {
				assert.Equal(t, logID, id)
				return nil
			}),
	)

	// No key: no idempotency lookups or stores.
	_, replayed, err := d.svc.CreatePayment(ctx, validPaymentRequest(uuid.New()), "")
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestPaymentService_CreatePayment_IdempotentReplay(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchantID := uuid.New()
	cached := []byte(`{"id":"pay_0123456789abcdef","status":"pending"}`)

	d.idempotency.EXPECT().Lookup(ctx, "key-1", merchantID).Return(cached, true, nil)

	body, replayed, err := d.svc.CreatePayment(ctx, validPaymentRequest(merchantID), "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, cached, body)
}

// memIdempotencyRepo is an in-memory ports.IdempotencyRepository.
type memIdempotencyRepo struct {
	rows map[string]domain.IdempotencyRecord
}

func (r *memIdempotencyRepo) Get(_ context.Context, key string, merchantID uuid.UUID) (*domain.IdempotencyRecord, error) {
	rec, ok := r.rows[domain.BuildIdempotencyCacheKey(merchantID, key)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *memIdempotencyRepo) Upsert(_ context.Context, rec *domain.IdempotencyRecord) error {
	r.rows[domain.BuildIdempotencyCacheKey(rec.MerchantID, rec.Key)] = *rec
	return nil
}

func (r *memIdempotencyRepo) Delete(_ context.Context, key string, merchantID uuid.UUID) error {
	delete(r.rows, domain.BuildIdempotencyCacheKey(merchantID, key))
	return nil
}

func TestPaymentService_CreatePayment_IdempotencyWindow(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	clock := testNow
	cache := mocks.NewMockIdempotencyCache(d.ctrl)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store := NewIdempotencyService(&memIdempotencyRepo{rows: map[string]domain.IdempotencyRecord{}}, cache, zerolog.Nop())
	store.now = func() time.Time { return clock }
	d.svc.idempotency = store
	d.svc.now = func() time.Time { return clock }

	ctx := context.Background()
	merchantID := uuid.New()
	req := validPaymentRequest(merchantID)

	d.transactor.EXPECT().Begin(ctx).Return(&mockTx{}, nil).Times(2)
	d.payments.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).Return(nil).Times(2)
	d.webhooks.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).Return(nil).Times(2)
	d.submitter.EXPECT().SubmitPaymentJob(ctx, gomock.Any()).Return(nil).Times(2)
	d.submitter.EXPECT().SubmitWebhookJob(ctx, gomock.Any()).Return(nil).Times(2)

	first, replayed, err := d.svc.CreatePayment(ctx, req, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	clock = testNow.Add(23 * time.Hour)
	second, replayed, err := d.svc.CreatePayment(ctx, req, "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first, second)

	clock = testNow.Add(24 * time.Hour)
	third, replayed, err := d.svc.CreatePayment(ctx, req, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	var p1, p3 domain.Payment
	require.NoError(t, json.Unmarshal(first, &p1))
	require.NoError(t, json.Unmarshal(third, &p3))
	assert.NotEqual(t, p1.ID, p3.ID)
}

func TestPaymentService_CreatePayment_IdempotencyKeyTooLong(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	// Rejected before any lookup, write or publish.
	key := strings.Repeat("k", domain.MaxIdempotencyKeyLength+1)
	_, _, err := d.svc.CreatePayment(context.Background(), validPaymentRequest(uuid.New()), key)
	assertAppError(t, err, "PAY_002")
}

func TestPaymentService_CreatePayment_IdempotencyKeyAtLimit(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchantID := uuid.New()
	key := strings.Repeat("é", domain.MaxIdempotencyKeyLength)
	cached := []byte(`{"id":"pay_0123456789abcdef"}`)

	d.idempotency.EXPECT().Lookup(ctx, key, merchantID).Return(cached, true, nil)

	body, replayed, err := d.svc.CreatePayment(ctx, validPaymentRequest(merchantID), key)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, cached, body)
}

func TestPaymentService_CreatePayment_ValidationErrors(t *testing.T) {
	merchantID := uuid.New()
	tests := []struct {
		name   string
		mutate func(r *ports.CreatePaymentRequest)
		code   string
	}{
		{"zero amount", func(r *ports.CreatePaymentRequest) { r.Amount = 0 }, "PAY_001"},
		{"negative amount", func(r *ports.CreatePaymentRequest) { r.Amount = -5 }, "PAY_001"},
		{"missing order id", func(r *ports.CreatePaymentRequest) { r.OrderID = "  " }, "PAY_002"},
		{"bad currency", func(r *ports.CreatePaymentRequest) { r.Currency = "RUPEE" }, "PAY_002"},
		{"numeric currency", func(r *ports.CreatePaymentRequest) { r.Currency = "123" }, "PAY_002"},
		{"unsupported method", func(r *ports.CreatePaymentRequest) { r.Method = "netbanking" }, "PAY_002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupPaymentService(t)
			defer d.ctrl.Finish()

			req := validPaymentRequest(merchantID)
			tt.mutate(&req)

			body, _, err := d.svc.CreatePayment(context.Background(), req, "key-1")
			assert.Nil(t, body)
			assertAppError(t, err, tt.code)
		})
	}
}

func TestPaymentService_CreatePayment_BusUnavailable(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payments.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.webhooks.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.submitter.EXPECT().SubmitPaymentJob(ctx, gomock.Any()).Return(errors.New("redis down"))

	body, _, err := d.svc.CreatePayment(ctx, validPaymentRequest(uuid.New()), "")
	assert.Nil(t, body)
	assertAppError(t, err, "SYS_002")
}

func TestPaymentService_CreatePayment_PersistError(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payments.EXPECT().Create(ctx, tx, gomock.Any()).Return(errors.New("db error"))

	_, _, err := d.svc.CreatePayment(ctx, validPaymentRequest(uuid.New()), "")
	assertAppError(t, err, "SYS_001")
}

func TestPaymentService_CreatePayment_IdempotencyStoreFailureIgnored(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchantID := uuid.New()
	tx := &mockTx{}

	d.idempotency.EXPECT().Lookup(ctx, "key-1", merchantID).Return(nil, false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payments.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.webhooks.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.submitter.EXPECT().SubmitPaymentJob(ctx, gomock.Any()).Return(nil)
	d.submitter.EXPECT().SubmitWebhookJob(ctx, gomock.Any()).Return(nil)
	d.idempotency.EXPECT().Store(ctx, "key-1", merchantID, gomock.Any(), gomock.Any()).Return(errors.New("db error"))

	body, _, err := d.svc.CreatePayment(ctx, validPaymentRequest(merchantID), "key-1")
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

// ==================== GetPayment Tests ====================

func TestPaymentService_GetPayment(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchantID := uuid.New()
	payment := &domain.Payment{ID: "pay_1", MerchantID: merchantID, Status: domain.PaymentStatusSuccess}

	d.payments.EXPECT().GetByID(ctx, "pay_1").Return(payment, nil)

	got, err := d.svc.GetPayment(ctx, merchantID, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, payment, got)
}

func TestPaymentService_GetPayment_OtherMerchant(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.payments.EXPECT().GetByID(ctx, "pay_1").Return(&domain.Payment{ID: "pay_1", MerchantID: uuid.New()}, nil)

	got, err := d.svc.GetPayment(ctx, uuid.New(), "pay_1")
	assert.Nil(t, got)
	assertAppError(t, err, "PAY_003")
}

func TestPaymentService_GetPayment_NotFound(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.payments.EXPECT().GetByID(ctx, "pay_missing").Return(nil, nil)

	_, err := d.svc.GetPayment(ctx, uuid.New(), "pay_missing")
	assertAppError(t, err, "PAY_003")
}

// ==================== CapturePayment Tests ====================

func TestPaymentService_CapturePayment(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchantID := uuid.New()
	tx := &mockTx{}
	payment := &domain.Payment{ID: "pay_1", MerchantID: merchantID, Status: domain.PaymentStatusSuccess}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payments.EXPECT().GetByIDForUpdate(ctx, tx, "pay_1").Return(payment, nil)
	d.payments.EXPECT().Update(ctx, tx, payment).Return(nil)

	got, err := d.svc.CapturePayment(ctx, merchantID, "pay_1")
	require.NoError(t, err)
	assert.True(t, got.Captured)
}

func TestPaymentService_CapturePayment_AlreadyCaptured(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	merchantID := uuid.New()
	tx := &mockTx{}
	payment := &domain.Payment{ID: "pay_1", MerchantID: merchantID, Status: domain.PaymentStatusSuccess, Captured: true}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payments.EXPECT().GetByIDForUpdate(ctx, tx, "pay_1").Return(payment, nil)

	got, err := d.svc.CapturePayment(ctx, merchantID, "pay_1")
	require.NoError(t, err)
	assert.True(t, got.Captured)
}

func TestPaymentService_CapturePayment_NotSettled(t *testing.T) {
	for _, status := range []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			d := setupPaymentService(t)
			defer d.ctrl.Finish()

			ctx := context.Background()
			merchantID := uuid.New()
			tx := &mockTx{}

			d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
			d.payments.EXPECT().GetByIDForUpdate(ctx, tx, "pay_1").
				Return(&domain.Payment{ID: "pay_1", MerchantID: merchantID, Status: status}, nil)

			_, err := d.svc.CapturePayment(ctx, merchantID, "pay_1")
			assertAppError(t, err, "PAY_006")
		})
	}
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
