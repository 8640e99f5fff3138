// Package quota enforces the FREE plan ceilings on generations and exports.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/governance"
	"github.com/quillpad/quillpad/internal/governance/entitlement"
	"github.com/quillpad/quillpad/internal/metrics"
	inats "github.com/quillpad/quillpad/internal/nats"
)

// Consumption outcomes recorded in metrics.
const (
	outcomeUnmetered = "unmetered"
	outcomeConsumed  = "consumed"
	outcomeDenied    = "denied"
	outcomeExpired   = "expired"
)

type EntitlementSource interface {
	Resolve(ctx context.Context, subscriberID uuid.UUID) (*entitlement.Entitlement, error)
}

// UsageStore performs the conditional increments. Both report ok=false,
// without writing, when the subscriber is already at limit.
type UsageStore interface {
	IncrementUsage(ctx context.Context, id uuid.UUID, limit int) (int, bool, error)
	IncrementExports(ctx context.Context, id uuid.UUID, limit int, now time.Time) (int, bool, error)
}

type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

type Limits struct {
	FreeGenerations int
	FreeExports     int
}

// Guard meters FREE subscribers. Paid and admin plans pass through untouched.
type Guard struct {
	entitlements EntitlementSource
	usage        UsageStore
	limits       Limits
	audit        AuditPublisher
	now          func() time.Time
}

func NewGuard(entitlements EntitlementSource, usage UsageStore, limits Limits, audit AuditPublisher) *Guard {
	return &Guard{
		entitlements: entitlements,
		usage:        usage,
		limits:       limits,
		audit:        audit,
		now:          time.Now,
	}
}

// Consume takes one generation from the subscriber's free allowance.
func (g *Guard) Consume(ctx context.Context, subscriberID uuid.UUID) error {
	e, err := g.entitlements.Resolve(ctx, subscriberID)
	if err != nil {
		return err
	}
	if !e.Plan.Metered() {
		metrics.QuotaConsumptionsTotal.WithLabelValues(string(e.Plan), outcomeUnmetered).Inc()
		return nil
	}

	if e.Subscriber.UsageCount >= g.limits.FreeGenerations {
		return g.deny(ctx, e, governance.ErrLimitReached, "generation")
	}
	count, ok, err := g.usage.IncrementUsage(ctx, subscriberID, g.limits.FreeGenerations)
	if err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	if !ok {
		return g.deny(ctx, e, governance.ErrLimitReached, "generation")
	}

	metrics.QuotaConsumptionsTotal.WithLabelValues(string(e.Plan), outcomeConsumed).Inc()
	slog.Debug("quota: generation consumed", "subscriber_id", subscriberID, "usage_count", count)
	return nil
}

// ConsumeExport takes one export from the subscriber's monthly allowance.
// The count restarts at the first export of a new calendar month.
func (g *Guard) ConsumeExport(ctx context.Context, subscriberID uuid.UUID) error {
	e, err := g.entitlements.Resolve(ctx, subscriberID)
	if err != nil {
		return err
	}
	if !e.Plan.Metered() {
		return nil
	}

	now := g.now()
	if e.Subscriber.ExportsThisMonth(now) >= g.limits.FreeExports {
		return g.deny(ctx, e, governance.ErrExportLimitReached, "export")
	}
	count, ok, err := g.usage.IncrementExports(ctx, subscriberID, g.limits.FreeExports, now)
	if err != nil {
		return fmt.Errorf("incrementing exports: %w", err)
	}
	if !ok {
		return g.deny(ctx, e, governance.ErrExportLimitReached, "export")
	}

	slog.Debug("quota: export consumed", "subscriber_id", subscriberID, "export_count", count)
	return nil
}

// deny picks SUBSCRIPTION_EXPIRED over the limit error when the subscriber
// is only on FREE because a paid subscription lapsed.
func (g *Guard) deny(ctx context.Context, e *entitlement.Entitlement, limitErr *governance.Error, counter string) error {
	err, outcome := error(limitErr), outcomeDenied
	if e.Lapsed != nil {
		err, outcome = governance.ErrSubscriptionExpired, outcomeExpired
	}
	metrics.QuotaConsumptionsTotal.WithLabelValues(string(e.Plan), outcome).Inc()

	if g.audit != nil {
		pubErr := g.audit.PublishAuditEvent(ctx, inats.AuditEvent{
			SubscriberID: e.Subscriber.ID,
			EventType:    inats.EventQuotaLimitReached,
			Severity:     inats.SeverityWarn,
			ResourceType: "subscriber",
			ResourceID:   e.Subscriber.ID.String(),
			Details:      fmt.Sprintf("%s limit reached (%s)", counter, governance.CodeOf(err)),
			Timestamp:    g.now().UTC(),
		})
		if pubErr != nil {
			slog.Warn("quota: publishing audit event", "error", pubErr)
		}
	}
	return err
}

// Status is the subscriber-facing view of the allowances.
type Status struct {
	Plan             entitlement.Plan `json:"plan"`
	Unlimited        bool             `json:"unlimited"`
	Used             int              `json:"used"`
	Limit            int              `json:"limit"`
	Remaining        int              `json:"remaining"`
	ExportsUsed      int              `json:"exports_used"`
	ExportLimit      int              `json:"export_limit"`
	ExportsRemaining int              `json:"exports_remaining"`
	ExpiredAt        *time.Time       `json:"expired_at,omitempty"`
	ActiveUntil      *time.Time       `json:"active_until,omitempty"`
}

func (g *Guard) Status(ctx context.Context, subscriberID uuid.UUID) (*Status, error) {
	e, err := g.entitlements.Resolve(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	st := &Status{Plan: e.DisplayPlan()}
	if e.Active != nil {
		st.ActiveUntil = e.Active.EndDate
	}
	if e.Lapsed != nil {
		st.ExpiredAt = e.Lapsed.EndDate
	}
	if !e.Plan.Metered() {
		st.Unlimited = true
		return st, nil
	}

	st.Used = e.Subscriber.UsageCount
	st.Limit = g.limits.FreeGenerations
	st.Remaining = max(st.Limit-st.Used, 0)
	st.ExportsUsed = e.Subscriber.ExportsThisMonth(g.now())
	st.ExportLimit = g.limits.FreeExports
	st.ExportsRemaining = max(st.ExportLimit-st.ExportsUsed, 0)
	return st, nil
}
