package handler

import (
	"net/http"
	"strings"

	"payment-gateway/internal/adapter/http/dto"
	"payment-gateway/internal/adapter/http/middleware"
	"payment-gateway/internal/core/ports"
	"payment-gateway/pkg/apperror"
	"payment-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey makes payment creation replay-safe.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderIdempotentReplay is set to "true" on a replayed response.
	HeaderIdempotentReplay = "Idempotent-Replayed"
)

// PaymentHandler handles payment and refund endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	refundSvc  ports.RefundService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, refundSvc ports.RefundService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, refundSvc: refundSvc}
}

// CreatePayment handles POST /api/v1/payments.
// The body is the bare payment object so that a replay under the same
// Idempotency-Key returns byte-identical output.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	req.Normalize()

	body, replayed, err := h.paymentSvc.CreatePayment(c.Request.Context(), ports.CreatePaymentRequest{
		MerchantID: merchantID,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Method:     req.Method,
		VPA:        req.VPA,
	}, strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)))
	if err != nil {
		response.Error(c, err)
		return
	}

	if replayed {
		c.Header(HeaderIdempotentReplay, "true")
	}
	response.Raw(c, http.StatusCreated, body)
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), merchantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// CapturePayment handles POST /api/v1/payments/:id/capture.
func (h *PaymentHandler) CapturePayment(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	payment, err := h.paymentSvc.CapturePayment(c.Request.Context(), merchantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// CreateRefund handles POST /api/v1/payments/:id/refunds.
func (h *PaymentHandler) CreateRefund(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	var req dto.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	req.Normalize()

	refund, err := h.refundSvc.CreateRefund(c.Request.Context(), ports.CreateRefundRequest{
		MerchantID: merchantID,
		PaymentID:  c.Param("id"),
		Amount:     req.Amount,
		Reason:     req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, refund)
}

// GetRefund handles GET /api/v1/refunds/:id.
func (h *PaymentHandler) GetRefund(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	refund, err := h.refundSvc.GetRefund(c.Request.Context(), merchantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, refund)
}
