package service

import (
	"context"
	"errors"
	"testing"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestJobStatusService_Status(t *testing.T) {
	tests := []struct {
		name     string
		alive    bool
		aliveErr error
		want     string
	}{
		{"running", true, nil, WorkerStatusRunning},
		{"stopped", false, nil, WorkerStatusStopped},
		{"unknown", false, errors.New("redis down"), WorkerStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			payments := mocks.NewMockPaymentRepository(ctrl)
			webhooks := mocks.NewMockWebhookLogRepository(ctrl)
			heartbeat := mocks.NewMockWorkerHeartbeat(ctrl)
			svc := NewJobStatusService(payments, webhooks, heartbeat, zerolog.Nop())

			ctx := context.Background()
			payments.EXPECT().CountByStatus(ctx).Return(map[domain.PaymentStatus]int64{domain.PaymentStatusPending: 3}, nil)
			webhooks.EXPECT().CountByStatus(ctx).Return(map[domain.WebhookStatus]int64{domain.WebhookStatusFailed: 1}, nil)
			heartbeat.EXPECT().Alive(ctx).Return(tt.alive, tt.aliveErr)

			status, err := svc.Status(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.WorkerStatus)
			assert.Equal(t, int64(3), status.Payments[domain.PaymentStatusPending])
			assert.Equal(t, int64(1), status.Webhooks[domain.WebhookStatusFailed])
		})
	}
}

func TestJobStatusService_CountError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payments := mocks.NewMockPaymentRepository(ctrl)
	svc := NewJobStatusService(payments, mocks.NewMockWebhookLogRepository(ctrl), mocks.NewMockWorkerHeartbeat(ctrl), zerolog.Nop())

	payments.EXPECT().CountByStatus(gomock.Any()).Return(nil, errors.New("db error"))

	_, err := svc.Status(context.Background())
	assertAppError(t, err, "SYS_001")
}
