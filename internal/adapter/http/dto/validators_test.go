package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"ORDER-001", "order_002", "a.b.c", "simple123"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"", "has space", "semi;colon", "<script>", "ord/er"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestCreatePaymentRequest_Binding(t *testing.T) {
	valid := CreatePaymentRequest{OrderID: "ORDER-001", Amount: 50000, Currency: "INR", Method: "upi"}
	require.NoError(t, binding.Validator.ValidateStruct(&valid))

	tests := []struct {
		name   string
		mutate func(r *CreatePaymentRequest)
	}{
		{"missing order id", func(r *CreatePaymentRequest) { r.OrderID = "" }},
		{"unsafe order id", func(r *CreatePaymentRequest) { r.OrderID = "ORDER 001" }},
		{"zero amount", func(r *CreatePaymentRequest) { r.Amount = 0 }},
		{"negative amount", func(r *CreatePaymentRequest) { r.Amount = -1 }},
		{"short currency", func(r *CreatePaymentRequest) { r.Currency = "IN" }},
		{"missing method", func(r *CreatePaymentRequest) { r.Method = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			assert.Error(t, binding.Validator.ValidateStruct(&req))
		})
	}
}

func TestCreateRefundRequest_Binding(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&CreateRefundRequest{Amount: 100}))
	assert.Error(t, binding.Validator.ValidateStruct(&CreateRefundRequest{Amount: 0}))
}

func TestNormalize(t *testing.T) {
	vpa := "  user@bank "
	p := CreatePaymentRequest{OrderID: " ORDER-001 ", Currency: " INR", Method: "upi ", VPA: &vpa}
	p.Normalize()
	assert.Equal(t, "ORDER-001", p.OrderID)
	assert.Equal(t, "INR", p.Currency)
	assert.Equal(t, "upi", p.Method)
	assert.Equal(t, "user@bank", *p.VPA)

	r := CreateRefundRequest{Reason: "  customer request  "}
	r.Normalize()
	assert.Equal(t, "customer request", r.Reason)
}
