package handler

import (
	"payment-gateway/internal/adapter/http/dto"
	"payment-gateway/internal/adapter/http/middleware"
	"payment-gateway/internal/core/ports"
	"payment-gateway/pkg/apperror"
	"payment-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler exposes a merchant's webhook delivery history.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// ListLogs handles GET /api/v1/webhooks?limit=&offset=.
func (h *WebhookHandler) ListLogs(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	var q dto.PaginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	logs, total, err := h.webhookSvc.ListLogs(c.Request.Context(), merchantID, q.Limit, q.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookLogListResponse{
		Data:   logs,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

// Retry handles POST /api/v1/webhooks/:id/retry.
func (h *WebhookHandler) Retry(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	logID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("webhook log"))
		return
	}

	l, err := h.webhookSvc.ResetLog(c.Request.Context(), merchantID, logID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookRetryResponse{
		ID:      l.ID.String(),
		Status:  string(l.Status),
		Message: "Retry scheduled",
	})
}
