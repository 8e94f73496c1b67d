package dto

import "payment-gateway/internal/core/domain"

// CreatePaymentRequest is the request body for POST /api/v1/payments.
type CreatePaymentRequest struct {
	OrderID  string  `json:"order_id" binding:"required,max=100,safe_id"`
	Amount   int64   `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency" binding:"required,len=3"`
	Method   string  `json:"method" binding:"required"`
	VPA      *string `json:"vpa,omitempty" binding:"omitempty,max=255"`
}

// CreateRefundRequest is the request body for POST /api/v1/payments/:id/refunds.
type CreateRefundRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"max=255"`
}

// WebhookLogListResponse wraps a page of webhook logs.
type WebhookLogListResponse struct {
	Data   []domain.WebhookEventLog `json:"data"`
	Total  int64                    `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// WebhookRetryResponse acknowledges a manual webhook retry.
type WebhookRetryResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PaginationQuery binds ?limit=&offset=.
type PaginationQuery struct {
	Limit  int `form:"limit,default=10" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}
