package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "QUILLPAD_EVENTS"
)

// Subject constants.
const (
	SubjectAuditEvent = "quillpad.events.audit"
)

// Audit event types.
const (
	EventSubscriptionActivated = "subscription_activated"
	EventSubscriptionBlocked   = "subscription_blocked"
	EventQuotaLimitReached     = "quota_limit_reached"
	EventProvidersExhausted    = "providers_exhausted"
)

// Audit severities.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	SubscriberID uuid.UUID  `json:"subscriber_id"`
	ActorID      *uuid.UUID `json:"actor_id,omitempty"`
	EventType    string     `json:"event_type"`
	Severity     string     `json:"severity"` // info, warn, error
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	Details      string     `json:"details"`
	Timestamp    time.Time  `json:"timestamp"`
}
