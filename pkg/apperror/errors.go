package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Payments & Refunds (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Invalid amount", http.StatusBadRequest)
}

// Validation returns a PAY_002 validation error with a caller-supplied message.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrNotRefundable() *AppError {
	return New("PAY_004", "Payment is not in a refundable state", http.StatusBadRequest)
}

func ErrRefundExceedsAvailable() *AppError {
	return New("PAY_005", "Refund amount exceeds available amount", http.StatusBadRequest)
}

func ErrNotCapturable() *AppError {
	return New("PAY_006", "Payment is not in a capturable state", http.StatusBadRequest)
}

// ---- Webhooks (WHK) ----

// ErrWebhookNotRetryable is returned when a manual retry targets a log that has not permanently failed.
func ErrWebhookNotRetryable() *AppError {
	return New("WHK_001", "Only failed webhook logs can be retried", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidAPIKey() *AppError {
	return New("AUTH_001", "Invalid API key", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrJobBusUnavailable is returned when a record was stored but its follow-up job could not be published.
func ErrJobBusUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Job bus unavailable", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}
