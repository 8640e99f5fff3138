package subscribers

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Subscriber is an account of the editor. Registration happens elsewhere;
// this module only reads the role and moves the usage counters.
type Subscriber struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Role             Role       `json:"role"`
	UsageCount       int        `json:"usage_count"`
	LastUsageResetAt *time.Time `json:"last_usage_reset_at,omitempty"`
	ExportCount      int        `json:"export_count"`
	ExportResetAt    *time.Time `json:"export_reset_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (s *Subscriber) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// ExportsThisMonth returns the export count that applies at now, which is
// zero once the stored reset mark falls in an earlier calendar month.
func (s *Subscriber) ExportsThisMonth(now time.Time) int {
	if InPriorMonth(s.ExportResetAt, now) {
		return 0
	}
	return s.ExportCount
}

// InPriorMonth reports whether last falls in a calendar month (UTC) before
// the one containing now. A nil mark counts as prior.
func InPriorMonth(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	ly, lm, _ := last.UTC().Date()
	ny, nm, _ := now.UTC().Date()
	return ly < ny || (ly == ny && lm < nm)
}
