package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/quillpad/quillpad/internal/nats"
)

func TestAuditEventDeserialization(t *testing.T) {
	subscriberID := uuid.New()
	actorID := uuid.New()
	subscriptionID := uuid.New()

	event := inats.AuditEvent{
		SubscriberID: subscriberID,
		ActorID:      &actorID,
		EventType:    inats.EventSubscriptionActivated,
		Severity:     inats.SeverityInfo,
		ResourceType: "subscription",
		ResourceID:   subscriptionID.String(),
		Details:      "plan BASIC active until 2024-02-29",
		Timestamp:    time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded inats.AuditEvent
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, subscriberID, decoded.SubscriberID)
	require.NotNil(t, decoded.ActorID)
	assert.Equal(t, actorID, *decoded.ActorID)
	assert.Equal(t, "subscription_activated", decoded.EventType)
	assert.Equal(t, subscriptionID.String(), decoded.ResourceID)
}

func TestAuditEventToLog_ValidResourceID(t *testing.T) {
	subscriptionID := uuid.New()
	actorID := uuid.New()
	event := inats.AuditEvent{
		SubscriberID: uuid.New(),
		ActorID:      &actorID,
		EventType:    inats.EventSubscriptionBlocked,
		Severity:     inats.SeverityWarn,
		ResourceType: "subscription",
		ResourceID:   subscriptionID.String(),
		Details:      "blocked by admin",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)

	assert.Equal(t, event.SubscriberID, log.SubscriberID)
	assert.Equal(t, &actorID, log.ActorID)
	assert.Equal(t, "subscription_blocked", log.EventType)
	assert.Equal(t, "warn", log.Severity)
	assert.Equal(t, "subscription", log.ResourceType)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, subscriptionID, *log.ResourceID)
	assert.Equal(t, event.Timestamp, log.CreatedAt)

	var details map[string]string
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "blocked by admin", details["message"])
	assert.NotContains(t, details, "resource")
}

func TestAuditEventToLog_NonUUIDResourceKeptInDetails(t *testing.T) {
	event := inats.AuditEvent{
		SubscriberID: uuid.New(),
		EventType:    inats.EventProvidersExhausted,
		Severity:     inats.SeverityError,
		ResourceType: "provider",
		ResourceID:   "gemini,groq",
		Details:      "all providers returned quota errors",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)
	assert.Nil(t, log.ResourceID)

	var details map[string]string
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "gemini,groq", details["resource"])
}

func TestAuditEventToLog_EmptyResourceID(t *testing.T) {
	event := inats.AuditEvent{
		SubscriberID: uuid.New(),
		EventType:    inats.EventQuotaLimitReached,
		Severity:     inats.SeverityInfo,
		Details:      "5/5 free generations used",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)
	assert.Nil(t, log.ResourceID)
	assert.Nil(t, log.ActorID)
}
