package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-gateway/config"
	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRetryScheduler_Sweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logs := mocks.NewMockWebhookLogRepository(ctrl)
	submitter := mocks.NewMockJobSubmitter(ctrl)
	s := NewRetryScheduler(logs, submitter, config.WorkerConfig{RetrySweepInterval: time.Second}, zerolog.Nop())
	s.now = func() time.Time { return testNow }

	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	logs.EXPECT().ListDueForRetry(ctx, testNow).Return([]domain.WebhookEventLog{
		{ID: a, Status: domain.WebhookStatusPending, Attempts: 1},
		{ID: b, Status: domain.WebhookStatusPending, Attempts: 2},
		{ID: c, Status: domain.WebhookStatusPending, Attempts: 0},
	}, nil)
	submitter.EXPECT().SubmitWebhookJob(ctx, a).Return(nil)
	submitter.EXPECT().SubmitWebhookJob(ctx, b).Return(errors.New("redis down"))
	submitter.EXPECT().SubmitWebhookJob(ctx, c).Return(nil)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRetryScheduler_SweepListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logs := mocks.NewMockWebhookLogRepository(ctrl)
	s := NewRetryScheduler(logs, mocks.NewMockJobSubmitter(ctrl), config.WorkerConfig{RetrySweepInterval: time.Second}, zerolog.Nop())

	logs.EXPECT().ListDueForRetry(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))

	n, err := s.Sweep(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestRetryScheduler_RunSweepsImmediatelyAndStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logs := mocks.NewMockWebhookLogRepository(ctrl)
	s := NewRetryScheduler(logs, mocks.NewMockJobSubmitter(ctrl), config.WorkerConfig{RetrySweepInterval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan struct{})
	logs.EXPECT().ListDueForRetry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, time.Time) ([]domain.WebhookEventLog, error) {
			close(swept)
			return nil, nil
		})

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not sweep on start")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
