package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillpad/quillpad/internal/governance"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	// LatestActive returns the most recent ACTIVE subscription whose window
	// is open at now, or nil.
	LatestActive(ctx context.Context, subscriberID uuid.UUID, now time.Time) (*Subscription, error)
	// LatestLapsed returns the most recent ACTIVE subscription whose window
	// closed at or before now, or nil.
	LatestLapsed(ctx context.Context, subscriberID uuid.UUID, now time.Time) (*Subscription, error)
	GetPayment(ctx context.Context, subscriptionID uuid.UUID) (*Payment, error)
	// Activate writes the activation and verifies the payment in one
	// transaction. Other open ACTIVE subscriptions of the same subscriber are
	// closed at StartDate.
	Activate(ctx context.Context, p ActivateParams) error
	// Block sets BLOCKED and reports whether the row changed.
	Block(ctx context.Context, id uuid.UUID) (bool, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const subscriptionColumns = `id, subscriber_id, plan, status, start_date, end_date, created_at, updated_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	s := &Subscription{}
	err := row.Scan(&s.ID, &s.SubscriberID, &s.Plan, &s.Status, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying subscription by id: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) LatestActive(ctx context.Context, subscriberID uuid.UUID, now time.Time) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE subscriber_id = $1 AND status = 'ACTIVE' AND (end_date IS NULL OR end_date > $2)
		ORDER BY start_date DESC NULLS LAST, created_at DESC
		LIMIT 1`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, subscriberID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active subscription: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) LatestLapsed(ctx context.Context, subscriberID uuid.UUID, now time.Time) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE subscriber_id = $1 AND status = 'ACTIVE' AND end_date IS NOT NULL AND end_date <= $2
		ORDER BY end_date DESC
		LIMIT 1`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, subscriberID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying lapsed subscription: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) GetPayment(ctx context.Context, subscriptionID uuid.UUID) (*Payment, error) {
	query := `
		SELECT id, subscription_id, amount_cents, currency, reference, verified, verified_by, verified_at, created_at
		FROM payments WHERE subscription_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	p := &Payment{}
	err := r.pool.QueryRow(ctx, query, subscriptionID).Scan(
		&p.ID, &p.SubscriptionID, &p.AmountCents, &p.Currency, &p.Reference,
		&p.Verified, &p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying payment: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) Activate(ctx context.Context, p ActivateParams) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var subscriberID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE subscriptions
			SET status = 'ACTIVE', start_date = $2, end_date = $3, updated_at = NOW()
			WHERE id = $1 AND status = 'PENDING'
			RETURNING subscriber_id`,
			p.SubscriptionID, p.StartDate, p.EndDate).Scan(&subscriberID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return governance.Wrap(governance.ErrInvalidTransition, errors.New("subscription is no longer pending"))
			}
			return fmt.Errorf("activating subscription: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE subscriptions
			SET end_date = $3, updated_at = NOW()
			WHERE subscriber_id = $1 AND id <> $2 AND status = 'ACTIVE'
			  AND (end_date IS NULL OR end_date > $3)`,
			subscriberID, p.SubscriptionID, p.StartDate)
		if err != nil {
			return fmt.Errorf("superseding active subscriptions: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE payments
			SET verified = TRUE, verified_by = $2, verified_at = $3
			WHERE subscription_id = $1`,
			p.SubscriptionID, p.ActorID, p.StartDate)
		if err != nil {
			return fmt.Errorf("verifying payment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return governance.ErrPaymentNotFound
		}
		return nil
	})
}

func (r *postgresRepository) Block(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'BLOCKED', updated_at = NOW()
		WHERE id = $1 AND status <> 'BLOCKED'`, id)
	if err != nil {
		return false, fmt.Errorf("blocking subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
