package handler

import (
	"net/http"

	"payment-gateway/internal/core/ports"
	"payment-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health: pings every dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
			"request_id":   c.GetString(response.CtxRequestID),
		})
	}
}

// JobStatusHandler serves the operator view of the job core.
type JobStatusHandler struct {
	svc ports.JobStatusService
}

// NewJobStatusHandler creates a new JobStatusHandler.
func NewJobStatusHandler(svc ports.JobStatusService) *JobStatusHandler {
	return &JobStatusHandler{svc: svc}
}

// Status handles GET /api/v1/test/jobs/status.
func (h *JobStatusHandler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}
