package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"payment-gateway/config"
	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
	"payment-gateway/internal/metrics"

	"github.com/rs/zerolog"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// maxResponseRead bounds how much of a merchant response body is read.
const maxResponseRead = 4096

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewWebhookHTTPClient returns the outbound client used for deliveries.
// Every call is bounded by timeout.
func NewWebhookHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// WebhookWorker delivers webhook event logs and drives their retry state
// machine. It implements ports.WebhookJobHandler.
//
// Two concurrent jobs for the same pending log may both attempt delivery and
// both consume an attempt. Jobs for a log already in success or failed are
// dropped, so a terminal log is never sent again or mutated.
type WebhookWorker struct {
	logs       ports.WebhookLogRepository
	merchants  ports.MerchantRepository
	encSvc     ports.EncryptionService
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	cfg        config.WorkerConfig
	log        zerolog.Logger
	now        func() time.Time
}

// NewWebhookWorker creates a new WebhookWorker.
func NewWebhookWorker(
	logs ports.WebhookLogRepository,
	merchants ports.MerchantRepository,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	cfg config.WorkerConfig,
	log zerolog.Logger,
) *WebhookWorker {
	return &WebhookWorker{
		logs:       logs,
		merchants:  merchants,
		encSvc:     encSvc,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// HandleWebhook performs one delivery attempt for the referenced log.
func (w *WebhookWorker) HandleWebhook(ctx context.Context, job domain.DeliverWebhookJob) error {
	l, err := w.logs.GetByID(ctx, job.WebhookLogID)
	if err != nil {
		return fmt.Errorf("load webhook log: %w", err)
	}
	if l == nil {
		w.log.Warn().Str("webhook_log_id", job.WebhookLogID.String()).Msg("webhook log not found, job discarded")
		return nil
	}
	if l.IsTerminal() {
		w.log.Debug().
			Str("webhook_log_id", l.ID.String()).
			Str("status", string(l.Status)).
			Msg("webhook log already resolved, skipping")
		return nil
	}

	merchant, err := w.merchants.GetByID(ctx, l.MerchantID)
	if err != nil {
		return fmt.Errorf("load merchant: %w", err)
	}
	if merchant == nil || !merchant.HasWebhookEndpoint() {
		l.MarkUndeliverable()
		if err := w.logs.Update(ctx, l); err != nil {
			return fmt.Errorf("update webhook log: %w", err)
		}
		metrics.WebhookDeliveriesTotal.WithLabelValues(metrics.OutcomeUndeliverable).Inc()
		w.log.Warn().
			Str("webhook_log_id", l.ID.String()).
			Str("merchant_id", l.MerchantID.String()).
			Msg("merchant has no webhook endpoint, marked failed")
		return nil
	}

	code, detail, delivered := w.attempt(ctx, *merchant.WebhookURL, merchant.WebhookSecretEnc, l.Payload)

	now := w.now()
	if delivered {
		l.RecordSuccess(now, code)
	} else {
		var codePtr *int
		if code != 0 {
			codePtr = &code
		}
		l.RecordFailure(now, codePtr, detail, w.cfg.FastWebhookRetries)
	}

	if err := w.logs.Update(ctx, l); err != nil {
		return fmt.Errorf("update webhook log: %w", err)
	}

	evt := w.log.Info()
	outcome := metrics.OutcomeSuccess
	switch {
	case delivered:
	case l.Status == domain.WebhookStatusFailed:
		evt = w.log.Error()
		outcome = metrics.OutcomeFailed
	default:
		evt = w.log.Warn()
		outcome = metrics.OutcomeRetry
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues(outcome).Inc()

	evt.Str("webhook_log_id", l.ID.String()).
		Str("event", l.Event).
		Str("status", string(l.Status)).
		Int("attempt", l.Attempts).
		Int("response_code", code).
		Msg("webhook delivery attempted")
	return nil
}

// attempt signs and POSTs payload. code is 0 when no HTTP response was received.
func (w *WebhookWorker) attempt(ctx context.Context, url, secretEnc string, payload []byte) (code int, detail string, delivered bool) {
	secret, err := w.encSvc.Decrypt(secretEnc)
	if err != nil {
		return 0, fmt.Sprintf("decrypt webhook secret: %v", err), false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Sprintf("build request: %v", err), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, w.sigSvc.Sign(secret, payload))

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, err.Error(), false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseRead))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, "", true
	}
	return resp.StatusCode, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body), false
}
