package handler

import (
	"payment-gateway/internal/adapter/http/middleware"
	"payment-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	RefundSvc      ports.RefundService
	WebhookSvc     ports.WebhookService
	JobStatusSvc   ports.JobStatusService
	MerchantRepo   ports.MerchantRepository
	HealthCheckers []ports.HealthChecker
	MetricsEnabled bool
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Unauthenticated operator view
	jobStatusHandler := NewJobStatusHandler(deps.JobStatusSvc)
	v1.GET("/test/jobs/status", jobStatusHandler.Status)

	// --- API-key authenticated routes (merchant API) ---
	auth := middleware.APIKeyAuth(deps.MerchantRepo, deps.Logger)

	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.RefundSvc)
	payments := v1.Group("/payments", auth)
	{
		payments.POST("", paymentHandler.CreatePayment)
		payments.GET("/:id", paymentHandler.GetPayment)
		payments.POST("/:id/capture", paymentHandler.CapturePayment)
		payments.POST("/:id/refunds", paymentHandler.CreateRefund)
	}

	refunds := v1.Group("/refunds", auth)
	{
		refunds.GET("/:id", paymentHandler.GetRefund)
	}

	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	webhooks := v1.Group("/webhooks", auth)
	{
		webhooks.GET("", webhookHandler.ListLogs)
		webhooks.POST("/:id/retry", webhookHandler.Retry)
	}

	return r
}
