package dto

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// Normalize trims surrounding whitespace from free-text request fields.
func (r *CreatePaymentRequest) Normalize() {
	r.OrderID = strings.TrimSpace(r.OrderID)
	r.Currency = strings.TrimSpace(r.Currency)
	r.Method = strings.TrimSpace(r.Method)
	if r.VPA != nil {
		v := strings.TrimSpace(*r.VPA)
		r.VPA = &v
	}
}

// Normalize trims surrounding whitespace from free-text request fields.
func (r *CreateRefundRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}
