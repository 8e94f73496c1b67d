package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
	"payment-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	payments       ports.PaymentRepository
	webhooks       ports.WebhookLogRepository
	idempotency    ports.IdempotencyStore
	submitter      ports.JobSubmitter
	transactor     ports.DBTransactor
	idempotencyTTL time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	payments ports.PaymentRepository,
	webhooks ports.WebhookLogRepository,
	idempotency ports.IdempotencyStore,
	submitter ports.JobSubmitter,
	transactor ports.DBTransactor,
	idempotencyTTL time.Duration,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		payments:       payments,
		webhooks:       webhooks,
		idempotency:    idempotency,
		submitter:      submitter,
		transactor:     transactor,
		idempotencyTTL: idempotencyTTL,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreatePayment records a pending payment and queues it for settlement.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req ports.CreatePaymentRequest, idempotencyKey string) ([]byte, bool, error) {
	if err := validatePaymentRequest(req); err != nil {
		return nil, false, err
	}
	if utf8.RuneCountInString(idempotencyKey) > domain.MaxIdempotencyKeyLength {
		return nil, false, apperror.Validation(fmt.Sprintf("idempotency key must be at most %d characters", domain.MaxIdempotencyKeyLength))
	}

	if idempotencyKey != "" {
		cached, ok, err := s.idempotency.Lookup(ctx, idempotencyKey, req.MerchantID)
		if err != nil {
			return nil, false, apperror.InternalError(err)
		}
		if ok {
			s.log.Info().
				Str("merchant_id", req.MerchantID.String()).
				Str("idempotency_key", idempotencyKey).
				Msg("idempotent replay")
			return cached, true, nil
		}
	}

	now := s.now()
	payment := &domain.Payment{
		ID:         domain.NewPaymentID(),
		MerchantID: req.MerchantID,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   strings.ToUpper(req.Currency),
		Method:     strings.ToLower(req.Method),
		VPA:        req.VPA,
		Status:     domain.PaymentStatusPending,
		CreatedAt:  now,
	}

	webhookLog, err := domain.NewWebhookEventLog(payment.MerchantID, domain.EventPaymentCreated, map[string]any{"payment": payment}, now)
	if err != nil {
		return nil, false, apperror.InternalError(err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.payments.Create(ctx, dbTx, payment); err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}
	if err := s.webhooks.Create(ctx, dbTx, webhookLog); err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("create webhook log: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	body, err := json.Marshal(payment)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}

	// The payment is durable from here on. A failed publish leaves it
	// pending with no automatic resubmission.
	if err := s.submitter.SubmitPaymentJob(ctx, payment.ID); err != nil {
		return nil, false, apperror.ErrJobBusUnavailable(err)
	}
	if err := s.submitter.SubmitWebhookJob(ctx, webhookLog.ID); err != nil {
		return nil, false, apperror.ErrJobBusUnavailable(err)
	}

	if idempotencyKey != "" {
		if err := s.idempotency.Store(ctx, idempotencyKey, req.MerchantID, body, s.idempotencyTTL); err != nil {
			s.log.Error().Err(err).
				Str("payment_id", payment.ID).
				Str("idempotency_key", idempotencyKey).
				Msg("failed to store idempotency key")
		}
	}

	s.log.Info().
		Str("payment_id", payment.ID).
		Str("merchant_id", req.MerchantID.String()).
		Int64("amount", req.Amount).
		Str("method", payment.Method).
		Msg("payment created")

	return body, false, nil
}

// GetPayment returns a payment owned by merchantID.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, merchantID uuid.UUID, paymentID string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, apperror.ErrNotFound("payment")
	}
	return payment, nil
}

// CapturePayment marks a settled payment as captured. Capturing twice is a no-op.
func (s *PaymentServiceImpl) CapturePayment(ctx context.Context, merchantID uuid.UUID, paymentID string) (*domain.Payment, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := s.payments.GetByIDForUpdate(ctx, dbTx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, apperror.ErrNotFound("payment")
	}
	if !payment.IsCapturable() {
		return nil, apperror.ErrNotCapturable()
	}
	if payment.Captured {
		return payment, nil
	}

	payment.Captured = true
	if err := s.payments.Update(ctx, dbTx, payment); err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("payment_id", payment.ID).Msg("payment captured")
	return payment, nil
}

func validatePaymentRequest(req ports.CreatePaymentRequest) error {
	if req.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return apperror.Validation("order_id is required")
	}
	if !isCurrencyCode(req.Currency) {
		return apperror.Validation("currency must be a 3-letter ISO 4217 code")
	}
	if !domain.IsSupportedPaymentMethod(req.Method) {
		return apperror.Validation("method must be one of: upi, card")
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
