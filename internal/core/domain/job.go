package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Bus topics, one per job kind.
const (
	TopicPayments = "queue:payments"
	TopicRefunds  = "queue:refunds"
	TopicWebhooks = "queue:webhooks"
)

// JobKind tags the wire envelope.
type JobKind string

const (
	JobKindProcessPayment JobKind = "process_payment"
	JobKindProcessRefund  JobKind = "process_refund"
	JobKindDeliverWebhook JobKind = "deliver_webhook"
)

// ErrMalformedJob is returned when a message cannot be decoded into a job.
var ErrMalformedJob = errors.New("malformed job")

// Job is a unit of background work. It carries only the identifier of the
// entity to act on; workers always reload current state.
//
// The set of implementations is closed: ProcessPaymentJob, ProcessRefundJob
// and DeliverWebhookJob.
type Job interface {
	Kind() JobKind
	Topic() string
	EntityID() string
	isJob()
}

type ProcessPaymentJob struct {
	PaymentID string
}

func (ProcessPaymentJob) Kind() JobKind      { return JobKindProcessPayment }
func (ProcessPaymentJob) Topic() string      { return TopicPayments }
func (j ProcessPaymentJob) EntityID() string { return j.PaymentID }
func (ProcessPaymentJob) isJob()             {}

type ProcessRefundJob struct {
	RefundID string
}

func (ProcessRefundJob) Kind() JobKind      { return JobKindProcessRefund }
func (ProcessRefundJob) Topic() string      { return TopicRefunds }
func (j ProcessRefundJob) EntityID() string { return j.RefundID }
func (ProcessRefundJob) isJob()             {}

type DeliverWebhookJob struct {
	WebhookLogID uuid.UUID
}

func (DeliverWebhookJob) Kind() JobKind      { return JobKindDeliverWebhook }
func (DeliverWebhookJob) Topic() string      { return TopicWebhooks }
func (j DeliverWebhookJob) EntityID() string { return j.WebhookLogID.String() }
func (DeliverWebhookJob) isJob()             {}

// jobEnvelope is the wire format: {"kind":"...","entity_id":"..."}.
type jobEnvelope struct {
	Kind     JobKind `json:"kind"`
	EntityID string  `json:"entity_id"`
}

// EncodeJob serializes a job to its wire envelope.
func EncodeJob(job Job) ([]byte, error) {
	if job == nil || job.EntityID() == "" {
		return nil, fmt.Errorf("%w: empty entity id", ErrMalformedJob)
	}
	return json.Marshal(jobEnvelope{Kind: job.Kind(), EntityID: job.EntityID()})
}

// DecodeJob parses a message received on topic. A kind that does not belong
// to the topic is rejected.
func DecodeJob(topic string, body []byte) (Job, error) {
	var env jobEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if env.EntityID == "" {
		return nil, fmt.Errorf("%w: missing entity_id", ErrMalformedJob)
	}

	var job Job
	switch env.Kind {
	case JobKindProcessPayment:
		job = ProcessPaymentJob{PaymentID: env.EntityID}
	case JobKindProcessRefund:
		job = ProcessRefundJob{RefundID: env.EntityID}
	case JobKindDeliverWebhook:
		id, err := uuid.Parse(env.EntityID)
		if err != nil {
			return nil, fmt.Errorf("%w: webhook log id %q: %v", ErrMalformedJob, env.EntityID, err)
		}
		job = DeliverWebhookJob{WebhookLogID: id}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedJob, env.Kind)
	}

	if job.Topic() != topic {
		return nil, fmt.Errorf("%w: kind %q on topic %q", ErrMalformedJob, env.Kind, topic)
	}
	return job, nil
}
