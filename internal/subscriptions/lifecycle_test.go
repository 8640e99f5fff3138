package subscriptions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpad/quillpad/internal/governance"
	inats "github.com/quillpad/quillpad/internal/nats"
	"github.com/quillpad/quillpad/internal/subscribers"
)

// memoryRepo applies Activate all-or-nothing, like the postgres transaction.
type memoryRepo struct {
	mu       sync.Mutex
	subs     map[uuid.UUID]*Subscription
	payments map[uuid.UUID]*Payment
	blocks   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{subs: map[uuid.UUID]*Subscription{}, payments: map[uuid.UUID]*Payment{}}
}

func (m *memoryRepo) add(sub *Subscription, withPayment bool) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	m.subs[sub.ID] = sub
	if withPayment {
		m.payments[sub.ID] = &Payment{ID: uuid.New(), SubscriptionID: sub.ID, AmountCents: 999, Currency: "USD"}
	}
	return sub
}

func (m *memoryRepo) snapshot(id uuid.UUID) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.subs[id]
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memoryRepo) LatestActive(context.Context, uuid.UUID, time.Time) (*Subscription, error) {
	return nil, nil
}

func (m *memoryRepo) LatestLapsed(context.Context, uuid.UUID, time.Time) (*Subscription, error) {
	return nil, nil
}

func (m *memoryRepo) GetPayment(_ context.Context, subscriptionID uuid.UUID) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[subscriptionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) Activate(_ context.Context, p ActivateParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := m.subs[p.SubscriptionID]
	if sub == nil || sub.Status != StatusPending {
		return governance.ErrInvalidTransition
	}
	payment, ok := m.payments[p.SubscriptionID]
	if !ok {
		return governance.ErrPaymentNotFound
	}
	for _, other := range m.subs {
		if other.SubscriberID == sub.SubscriberID && other.ID != sub.ID && other.ActiveAt(p.StartDate) {
			end := p.StartDate
			other.EndDate = &end
		}
	}
	start, end := p.StartDate, p.EndDate
	sub.Status, sub.StartDate, sub.EndDate = StatusActive, &start, &end
	actor, at := p.ActorID, p.StartDate
	payment.Verified, payment.VerifiedBy, payment.VerifiedAt = true, &actor, &at
	return nil
}

func (m *memoryRepo) Block(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := m.subs[id]
	if sub == nil || sub.Status == StatusBlocked {
		return false, nil
	}
	sub.Status = StatusBlocked
	m.blocks++
	return true, nil
}

type fakeActors map[uuid.UUID]*subscribers.Subscriber

func (f fakeActors) GetByID(_ context.Context, id uuid.UUID) (*subscribers.Subscriber, error) {
	return f[id], nil
}

type recordingPublisher struct {
	events []inats.AuditEvent
}

func (p *recordingPublisher) PublishAuditEvent(_ context.Context, e inats.AuditEvent) error {
	p.events = append(p.events, e)
	return nil
}

type lifecycleFixture struct {
	repo      *memoryRepo
	lifecycle *Lifecycle
	audit     *recordingPublisher
	admin     uuid.UUID
	user      uuid.UUID
}

func newFixture(t *testing.T, now time.Time) *lifecycleFixture {
	t.Helper()
	admin := &subscribers.Subscriber{ID: uuid.New(), Role: subscribers.RoleAdmin}
	user := &subscribers.Subscriber{ID: uuid.New(), Role: subscribers.RoleUser}
	repo := newMemoryRepo()
	audit := &recordingPublisher{}
	l := NewLifecycle(repo, fakeActors{admin.ID: admin, user.ID: user}, audit)
	l.now = func() time.Time { return now }
	return &lifecycleFixture{repo: repo, lifecycle: l, audit: audit, admin: admin.ID, user: user.ID}
}

func TestLifecycle_Activate_BasicFromJan31ClampsToLeapDay(t *testing.T) {
	now := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanBasic, Status: StatusPending}, true)

	got, err := f.lifecycle.Activate(context.Background(), sub.ID, f.admin)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, got.Status)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), *got.EndDate)
	assert.Equal(t, now, *got.StartDate)

	stored := f.repo.snapshot(sub.ID)
	assert.Equal(t, StatusActive, stored.Status)

	payment, _ := f.repo.GetPayment(context.Background(), sub.ID)
	assert.True(t, payment.Verified)
	assert.Equal(t, f.admin, *payment.VerifiedBy)
	assert.Equal(t, now, *payment.VerifiedAt)

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, inats.EventSubscriptionActivated, f.audit.events[0].EventType)
	assert.Equal(t, sub.SubscriberID, f.audit.events[0].SubscriberID)
	assert.Contains(t, f.audit.events[0].Details, "2024-02-29")
}

func TestLifecycle_Activate_Annual(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanAnnual, Status: StatusPending}, true)

	got, err := f.lifecycle.Activate(context.Background(), sub.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), *got.EndDate)
}

func TestLifecycle_Activate_RequiresAdmin(t *testing.T) {
	f := newFixture(t, time.Now())
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanPro, Status: StatusPending}, true)

	_, err := f.lifecycle.Activate(context.Background(), sub.ID, f.user)
	assert.ErrorIs(t, err, governance.ErrUnauthorized)

	_, err = f.lifecycle.Activate(context.Background(), sub.ID, uuid.New())
	assert.ErrorIs(t, err, governance.ErrUnauthorized)

	assert.Equal(t, StatusPending, f.repo.snapshot(sub.ID).Status)
	assert.Empty(t, f.audit.events)
}

func TestLifecycle_Activate_NotFound(t *testing.T) {
	f := newFixture(t, time.Now())

	_, err := f.lifecycle.Activate(context.Background(), uuid.New(), f.admin)
	assert.ErrorIs(t, err, governance.ErrSubscriptionNotFound)
}

func TestLifecycle_Activate_OnlyFromPending(t *testing.T) {
	f := newFixture(t, time.Now())
	for _, status := range []Status{StatusActive, StatusBlocked, StatusExpired} {
		sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanBasic, Status: status}, true)

		_, err := f.lifecycle.Activate(context.Background(), sub.ID, f.admin)
		assert.ErrorIs(t, err, governance.ErrInvalidTransition, string(status))
	}
}

func TestLifecycle_Activate_MissingPaymentWritesNothing(t *testing.T) {
	f := newFixture(t, time.Now())
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanBasic, Status: StatusPending}, false)

	_, err := f.lifecycle.Activate(context.Background(), sub.ID, f.admin)
	assert.ErrorIs(t, err, governance.ErrPaymentNotFound)

	stored := f.repo.snapshot(sub.ID)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Nil(t, stored.EndDate)
	assert.Empty(t, f.audit.events)
}

func TestLifecycle_Activate_SupersedesOpenSubscription(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	subscriberID := uuid.New()
	oldEnd := now.AddDate(0, 0, 10)
	old := f.repo.add(&Subscription{SubscriberID: subscriberID, Plan: PlanBasic, Status: StatusActive, EndDate: &oldEnd}, true)
	renewal := f.repo.add(&Subscription{SubscriberID: subscriberID, Plan: PlanPro, Status: StatusPending}, true)

	_, err := f.lifecycle.Activate(context.Background(), renewal.ID, f.admin)
	require.NoError(t, err)

	prev := f.repo.snapshot(old.ID)
	assert.False(t, prev.ActiveAt(now), "only one subscription may stay open")
}

func TestLifecycle_Block(t *testing.T) {
	f := newFixture(t, time.Now())
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanBasic, Status: StatusPending}, true)

	got, err := f.lifecycle.Block(context.Background(), sub.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, got.Status)
	assert.Nil(t, got.EndDate, "blocking computes no dates")
	require.Len(t, f.audit.events, 1)
	assert.Equal(t, inats.EventSubscriptionBlocked, f.audit.events[0].EventType)
}

func TestLifecycle_Block_Idempotent(t *testing.T) {
	f := newFixture(t, time.Now())
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanBasic, Status: StatusBlocked}, true)

	got, err := f.lifecycle.Block(context.Background(), sub.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, got.Status)
	assert.Equal(t, 0, f.repo.blocks)
	assert.Empty(t, f.audit.events)
}

func TestLifecycle_Block_ActiveSubscription(t *testing.T) {
	f := newFixture(t, time.Now())
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanPro, Status: StatusActive}, true)

	_, err := f.lifecycle.Block(context.Background(), sub.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, f.repo.snapshot(sub.ID).Status)
}

func TestLifecycle_Block_RequiresAdmin(t *testing.T) {
	f := newFixture(t, time.Now())
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanPro, Status: StatusActive}, true)

	_, err := f.lifecycle.Block(context.Background(), sub.ID, f.user)
	assert.ErrorIs(t, err, governance.ErrUnauthorized)
	assert.Equal(t, StatusActive, f.repo.snapshot(sub.ID).Status)
}

func TestLifecycle_Get_InfersExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	end := now.Add(-time.Hour)
	sub := f.repo.add(&Subscription{SubscriberID: uuid.New(), Plan: PlanBasic, Status: StatusActive, EndDate: &end}, true)

	view, err := f.lifecycle.Get(context.Background(), sub.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, view.Status)
	assert.Equal(t, StatusExpired, view.EffectiveStatus)
	require.NotNil(t, view.Payment)
}

func TestSubscription_ActiveAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	future, past := now.Add(time.Hour), now.Add(-time.Hour)

	assert.True(t, (&Subscription{Status: StatusActive}).ActiveAt(now), "unbounded")
	assert.True(t, (&Subscription{Status: StatusActive, EndDate: &future}).ActiveAt(now))
	assert.False(t, (&Subscription{Status: StatusActive, EndDate: &past}).ActiveAt(now))
	assert.False(t, (&Subscription{Status: StatusActive, EndDate: &now}).ActiveAt(now), "end is exclusive")
	assert.False(t, (&Subscription{Status: StatusPending}).ActiveAt(now))
}
