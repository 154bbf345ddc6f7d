package repositories

import (
	"context"
	"errors"
	"time"

	"storynest/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// BadgeRepository is the read surface over the seeded badge catalog.
type BadgeRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Badge, error)
	// GetByType returns all active catalog badges matching a badge type key.
	// A type may map to zero, one or many badges.
	GetByType(ctx context.Context, badgeType string) ([]*models.Badge, error)
	ListActive(ctx context.Context) ([]*models.Badge, error)
	// Seed inserts catalog entries, skipping any that already exist.
	Seed(ctx context.Context, badges []*models.Badge) error
}

// ProgressMutation mutates one locked progress row. Returning apply=false
// commits without writing anything back (e.g. the badge is already unlocked).
type ProgressMutation func(p *models.UserBadgeProgress) (apply bool, err error)

// ProgressRepository manages per-user badge progress rows.
type ProgressRepository interface {
	GetByUserAndBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadgeProgress, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.UserBadgeProgress, error)
	// ListForUser returns the active catalog joined with the user's progress.
	ListForUser(ctx context.Context, userID int64) ([]*models.BadgeWithProgress, error)
	// InitializeUser creates one progress row per active catalog badge,
	// skipping rows that already exist.
	InitializeUser(ctx context.Context, userID int64) error
	// UpdateWithLock runs fn against the (user, badge) progress row inside a
	// transaction holding a row lock, so concurrent evaluations for the same
	// pair serialize while other pairs proceed independently. Returns
	// ErrNotFound when the row does not exist.
	UpdateWithLock(ctx context.Context, userID, badgeID int64, fn ProgressMutation) error
}

// ActivityRepository is the append-only activity log.
type ActivityRepository interface {
	// Append persists one immutable activity event and fills in its ID.
	Append(ctx context.Context, event *models.ActivityEvent) error
	// ListBySubjectSince returns the subject's events at or after since,
	// optionally filtered to a set of action keys.
	ListBySubjectSince(ctx context.Context, subjectID int64, since time.Time, actions []string) ([]*models.ActivityEvent, error)
	// ListRecent returns the subject's most recent events, newest first.
	ListRecent(ctx context.Context, subjectID int64, limit int) ([]*models.ActivityEvent, error)
	// LastActiveAt returns the subject's most recent event timestamp
	// regardless of any lookback window, or nil when there is none.
	LastActiveAt(ctx context.Context, subjectID int64) (*time.Time, error)
	// Stats derives activity counts and total listening time for a subject.
	Stats(ctx context.Context, subjectID int64) (*models.SubjectStats, error)
}
