package subscriptions

import (
	"time"

	"github.com/google/uuid"
)

type Plan string

const (
	PlanBasic  Plan = "BASIC"
	PlanPro    Plan = "PRO"
	PlanAnnual Plan = "ANNUAL"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanPro, PlanAnnual:
		return true
	}
	return false
}

type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
	StatusBlocked Status = "BLOCKED"
)

// Subscription is a paid plan purchase. EndDate nil means unbounded.
type Subscription struct {
	ID           uuid.UUID  `json:"id"`
	SubscriberID uuid.UUID  `json:"subscriber_id"`
	Plan         Plan       `json:"plan"`
	Status       Status     `json:"status"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the subscription grants its plan at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.Status == StatusActive && (s.EndDate == nil || s.EndDate.After(now))
}

// EffectiveStatus infers EXPIRED for an ACTIVE subscription whose window has
// closed. Expiry is never written back.
func (s *Subscription) EffectiveStatus(now time.Time) Status {
	if s.Status == StatusActive && !s.ActiveAt(now) {
		return StatusExpired
	}
	return s.Status
}

// Payment is the purchase record verified by an admin on activation.
type Payment struct {
	ID             uuid.UUID  `json:"id"`
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	AmountCents    int64      `json:"amount_cents"`
	Currency       string     `json:"currency"`
	Reference      string     `json:"reference"`
	Verified       bool       `json:"verified"`
	VerifiedBy     *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ActivateParams carries everything written by one activation.
type ActivateParams struct {
	SubscriptionID uuid.UUID
	ActorID        uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
}
