package subscribers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/governance"
)

// Reader is the read side of Repository.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Subscriber, error)
}

// RequireAdmin fails with governance.ErrUnauthorized unless actorID is an
// existing ADMIN.
func RequireAdmin(ctx context.Context, r Reader, actorID uuid.UUID) error {
	actor, err := r.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("loading actor: %w", err)
	}
	if actor == nil || !actor.IsAdmin() {
		return governance.ErrUnauthorized
	}
	return nil
}
