package subscribers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, s *Subscriber) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscriber, error)
	// IncrementUsage adds one generation if the current count is below limit.
	// ok is false when the subscriber is at or over the limit (or missing),
	// in which case nothing is written.
	IncrementUsage(ctx context.Context, id uuid.UUID, limit int) (count int, ok bool, err error)
	// IncrementExports adds one export for the calendar month of now,
	// restarting the count when the stored mark is from an earlier month.
	IncrementExports(ctx context.Context, id uuid.UUID, limit int, now time.Time) (count int, ok bool, err error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const subscriberColumns = `id, email, role, usage_count, last_usage_reset_at, export_count, export_reset_at, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, s *Subscriber) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Role == "" {
		s.Role = RoleUser
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO subscribers (id, email, role, usage_count, last_usage_reset_at, export_count, export_reset_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Email, s.Role, s.UsageCount, s.LastUsageResetAt, s.ExportCount, s.ExportResetAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting subscriber: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = $1`

	s := &Subscriber{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Email, &s.Role, &s.UsageCount, &s.LastUsageResetAt,
		&s.ExportCount, &s.ExportResetAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying subscriber by id: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) IncrementUsage(ctx context.Context, id uuid.UUID, limit int) (int, bool, error) {
	query := `
		UPDATE subscribers
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1 AND usage_count < $2
		RETURNING usage_count`

	var count int
	err := r.pool.QueryRow(ctx, query, id, limit).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("incrementing usage count: %w", err)
	}
	return count, true, nil
}

func (r *postgresRepository) IncrementExports(ctx context.Context, id uuid.UUID, limit int, now time.Time) (int, bool, error) {
	if limit <= 0 {
		return 0, false, nil
	}

	query := `
		WITH target AS (
			SELECT id,
			       export_reset_at IS NULL
			       OR date_trunc('month', export_reset_at AT TIME ZONE 'UTC') < date_trunc('month', $3::timestamptz AT TIME ZONE 'UTC') AS stale
			FROM subscribers
			WHERE id = $1
			FOR UPDATE
		)
		UPDATE subscribers s
		SET export_count    = CASE WHEN t.stale THEN 1 ELSE s.export_count + 1 END,
		    export_reset_at = CASE WHEN t.stale THEN $3 ELSE s.export_reset_at END,
		    updated_at      = NOW()
		FROM target t
		WHERE s.id = t.id AND (t.stale OR s.export_count < $2)
		RETURNING s.export_count`

	var count int
	err := r.pool.QueryRow(ctx, query, id, limit, now).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("incrementing export count: %w", err)
	}
	return count, true, nil
}
