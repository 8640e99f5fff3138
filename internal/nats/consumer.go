package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// AuditPersister is the durable consumer that writes audit events to the
// database.
const AuditPersister = "audit-persister"

const (
	auditAckWait    = 30 * time.Second
	auditMaxDeliver = 5
)

// ConsumerManager handles durable consumer creation and retrieval.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// EnsureAuditConsumer creates or updates the durable consumer reading
// SubjectAuditEvent from StreamEvents. A message that keeps failing is
// dropped after auditMaxDeliver attempts so one bad event cannot stall the
// audit trail.
func (cm *ConsumerManager) EnsureAuditConsumer(ctx context.Context) (jetstream.Consumer, error) {
	cfg := AuditConsumerConfig()
	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, StreamEvents, cfg)
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", cfg.Durable, StreamEvents, err)
	}
	return consumer, nil
}

// AuditConsumerConfig is the durable consumer configuration for audit events.
func AuditConsumerConfig() jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       AuditPersister,
		Description:   "persists subscription, quota and provider audit events",
		FilterSubject: SubjectAuditEvent,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       auditAckWait,
		MaxDeliver:    auditMaxDeliver,
	}
}
