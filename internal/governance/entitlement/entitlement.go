// Package entitlement computes the plan a subscriber is served under at a
// point in time.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/governance"
	"github.com/quillpad/quillpad/internal/subscribers"
	"github.com/quillpad/quillpad/internal/subscriptions"
)

type Plan string

const (
	PlanAdmin   Plan = "ADMIN"
	PlanFree    Plan = "FREE"
	PlanBasic   Plan = "BASIC"
	PlanPro     Plan = "PRO"
	PlanAnnual  Plan = "ANNUAL"
	PlanExpired Plan = "EXPIRED"
)

// Metered reports whether the plan is subject to the free-tier ceilings.
func (p Plan) Metered() bool {
	return p == PlanFree
}

// SubscriptionReader is the part of subscriptions.Repository the resolver needs.
type SubscriptionReader interface {
	LatestActive(ctx context.Context, subscriberID uuid.UUID, now time.Time) (*subscriptions.Subscription, error)
	LatestLapsed(ctx context.Context, subscriberID uuid.UUID, now time.Time) (*subscriptions.Subscription, error)
}

// Entitlement is a resolved plan together with what it was resolved from.
type Entitlement struct {
	Plan       Plan
	Subscriber *subscribers.Subscriber
	// Active is the subscription granting Plan, if any.
	Active *subscriptions.Subscription
	// Lapsed is the most recent paid subscription whose window has closed.
	// Only looked up for FREE subscribers.
	Lapsed *subscriptions.Subscription
}

// DisplayPlan is the plan shown to the subscriber: EXPIRED for a FREE
// subscriber whose paid subscription lapsed.
func (e *Entitlement) DisplayPlan() Plan {
	if e.Plan == PlanFree && e.Lapsed != nil {
		return PlanExpired
	}
	return e.Plan
}

type Resolver struct {
	subscribers   subscribers.Reader
	subscriptions SubscriptionReader
	now           func() time.Time
}

func NewResolver(subs subscribers.Reader, subscriptions SubscriptionReader) *Resolver {
	return &Resolver{subscribers: subs, subscriptions: subscriptions, now: time.Now}
}

// ResolvePlan returns the effective plan of subscriberID.
func (r *Resolver) ResolvePlan(ctx context.Context, subscriberID uuid.UUID) (Plan, error) {
	e, err := r.resolve(ctx, subscriberID, false)
	if err != nil {
		return "", err
	}
	return e.Plan, nil
}

// Resolve is ResolvePlan plus the records behind the decision.
func (r *Resolver) Resolve(ctx context.Context, subscriberID uuid.UUID) (*Entitlement, error) {
	return r.resolve(ctx, subscriberID, true)
}

func (r *Resolver) resolve(ctx context.Context, subscriberID uuid.UUID, withLapsed bool) (*Entitlement, error) {
	sub, err := r.subscribers.GetByID(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("loading subscriber: %w", err)
	}
	if sub == nil {
		return nil, governance.ErrSubscriberNotFound
	}
	if sub.IsAdmin() {
		return &Entitlement{Plan: PlanAdmin, Subscriber: sub}, nil
	}

	now := r.now()
	active, err := r.subscriptions.LatestActive(ctx, subscriberID, now)
	if err != nil {
		return nil, fmt.Errorf("loading active subscription: %w", err)
	}
	if active != nil {
		return &Entitlement{Plan: Plan(active.Plan), Subscriber: sub, Active: active}, nil
	}

	e := &Entitlement{Plan: PlanFree, Subscriber: sub}
	if withLapsed {
		if e.Lapsed, err = r.subscriptions.LatestLapsed(ctx, subscriberID, now); err != nil {
			return nil, fmt.Errorf("loading lapsed subscription: %w", err)
		}
	}
	return e, nil
}
