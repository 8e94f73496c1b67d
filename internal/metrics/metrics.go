package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
	OutcomePanic     = "panic"
	OutcomeRetry     = "retry"

	OutcomeUndeliverable = "undeliverable"
)

// Prometheus metrics for the job core
var (
	JobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_jobs_processed_total",
			Help: "Total number of jobs consumed from the bus, by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_job_duration_seconds",
			Help:    "Duration of job handling, including simulated settlement delay",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 7.5, 10, 15, 30},
		},
		[]string{"topic"},
	)

	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts, by outcome",
		},
		[]string{"outcome"},
	)

	WebhookRetriesRepublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_webhook_retries_republished_total",
			Help: "Total number of delivery jobs republished by the retry scheduler",
		},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(JobsProcessedTotal)
		prometheus.MustRegister(JobDuration)
		prometheus.MustRegister(WebhookDeliveriesTotal)
		prometheus.MustRegister(WebhookRetriesRepublishedTotal)
	})
}
