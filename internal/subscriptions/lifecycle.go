package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/governance"
	"github.com/quillpad/quillpad/internal/metrics"
	inats "github.com/quillpad/quillpad/internal/nats"
	"github.com/quillpad/quillpad/internal/subscribers"
)

// AuditPublisher receives lifecycle events. It may be nil.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

// View is a subscription as seen by an admin at a point in time.
type View struct {
	*Subscription
	EffectiveStatus Status   `json:"effective_status"`
	Payment         *Payment `json:"payment,omitempty"`
}

// Lifecycle performs the admin-driven transitions of a subscription.
type Lifecycle struct {
	repo   Repository
	actors subscribers.Reader
	audit  AuditPublisher
	now    func() time.Time
}

func NewLifecycle(repo Repository, actors subscribers.Reader, audit AuditPublisher) *Lifecycle {
	return &Lifecycle{
		repo:   repo,
		actors: actors,
		audit:  audit,
		now:    time.Now,
	}
}

// Get returns the subscription with its inferred status and payment.
func (l *Lifecycle) Get(ctx context.Context, subscriptionID, actorID uuid.UUID) (*View, error) {
	if err := subscribers.RequireAdmin(ctx, l.actors, actorID); err != nil {
		return nil, err
	}
	sub, err := l.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	payment, err := l.repo.GetPayment(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("loading payment: %w", err)
	}
	return &View{Subscription: sub, EffectiveStatus: sub.EffectiveStatus(l.now()), Payment: payment}, nil
}

// Activate moves a PENDING subscription to ACTIVE for one billing period
// starting now and marks its payment verified by actorID.
func (l *Lifecycle) Activate(ctx context.Context, subscriptionID, actorID uuid.UUID) (*Subscription, error) {
	if err := subscribers.RequireAdmin(ctx, l.actors, actorID); err != nil {
		return nil, err
	}
	sub, err := l.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	next, err := Next(sub.Status, EventActivate)
	if err != nil {
		return nil, err
	}

	start := l.now().UTC()
	end, err := EndDate(start, sub.Plan)
	if err != nil {
		return nil, fmt.Errorf("computing end date: %w", err)
	}

	if err := l.repo.Activate(ctx, ActivateParams{
		SubscriptionID: sub.ID,
		ActorID:        actorID,
		StartDate:      start,
		EndDate:        end,
	}); err != nil {
		return nil, fmt.Errorf("activating subscription %s: %w", sub.ID, err)
	}

	sub.Status = next
	sub.StartDate = &start
	sub.EndDate = &end

	metrics.SubscriptionTransitionsTotal.WithLabelValues(string(EventActivate)).Inc()
	slog.Info("subscription activated",
		"subscription_id", sub.ID, "subscriber_id", sub.SubscriberID,
		"plan", sub.Plan, "end_date", end, "actor_id", actorID)
	l.publish(ctx, sub, actorID, inats.EventSubscriptionActivated, inats.SeverityInfo,
		fmt.Sprintf("plan %s active until %s", sub.Plan, end.Format(time.DateOnly)))

	return sub, nil
}

// Block sets the subscription BLOCKED. Blocking a blocked subscription is a
// successful no-op.
func (l *Lifecycle) Block(ctx context.Context, subscriptionID, actorID uuid.UUID) (*Subscription, error) {
	if err := subscribers.RequireAdmin(ctx, l.actors, actorID); err != nil {
		return nil, err
	}
	sub, err := l.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	next, err := Next(sub.Status, EventBlock)
	if err != nil {
		return nil, err
	}
	if sub.Status == next {
		return sub, nil
	}

	changed, err := l.repo.Block(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("blocking subscription %s: %w", sub.ID, err)
	}
	sub.Status = next
	if !changed {
		return sub, nil
	}

	metrics.SubscriptionTransitionsTotal.WithLabelValues(string(EventBlock)).Inc()
	slog.Info("subscription blocked",
		"subscription_id", sub.ID, "subscriber_id", sub.SubscriberID, "actor_id", actorID)
	l.publish(ctx, sub, actorID, inats.EventSubscriptionBlocked, inats.SeverityWarn, "blocked by admin")

	return sub, nil
}

func (l *Lifecycle) load(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading subscription: %w", err)
	}
	if sub == nil {
		return nil, governance.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (l *Lifecycle) publish(ctx context.Context, sub *Subscription, actorID uuid.UUID, eventType, severity, details string) {
	if l.audit == nil {
		return
	}
	err := l.audit.PublishAuditEvent(ctx, inats.AuditEvent{
		SubscriberID: sub.SubscriberID,
		ActorID:      &actorID,
		EventType:    eventType,
		Severity:     severity,
		ResourceType: "subscription",
		ResourceID:   sub.ID.String(),
		Details:      details,
		Timestamp:    l.now().UTC(),
	})
	if err != nil {
		slog.Warn("subscriptions: publishing audit event", "error", err, "event_type", eventType)
	}
}
