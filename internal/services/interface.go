package services

import (
	"context"
	"time"

	"storynest/internal/models"
)

// ActivityService appends immutable activity records and triggers downstream
// badge evaluation. Recording succeeds even when downstream evaluation later
// fails; activity history is never lost to a badge-engine defect.
type ActivityService interface {
	// Record appends one activity event. A storage failure aborts the whole
	// operation and surfaces to the caller; downstream evaluation runs
	// asynchronously and its failures are logged and swallowed.
	Record(ctx context.Context, userID int64, action string, kidID *int64, metadata models.EventMetadata) error
	// RecentActivity returns the subject's activity feed, newest first.
	RecentActivity(ctx context.Context, subjectID int64, limit int) ([]*models.ActivityEvent, error)
}

// BadgeProgressService consumes activity events, matches them against the
// badge catalog and unlocks badges atomically once thresholds are met.
type BadgeProgressService interface {
	// Evaluate applies one activity increment to every matching catalog
	// badge. Unknown badge types are a silent no-op. A missing progress row
	// is logged and skipped. Already-unlocked badges are never incremented.
	Evaluate(ctx context.Context, userID int64, badgeType string, increment int, metadata models.EventMetadata, kidID *int64) error
	// InitializeUser creates the per-badge progress rows for a new user.
	InitializeUser(ctx context.Context, userID int64) error
	// ListBadges returns the catalog joined with the user's progress.
	ListBadges(ctx context.Context, userID int64) ([]*models.BadgeWithProgress, error)
}

// StreakService derives consecutive-day streaks and the 7-day activity
// window from the activity log. Lookup failures degrade to a zero-state
// summary; this service never returns an error.
type StreakService interface {
	Summary(ctx context.Context, subjectID int64) *models.StreakSummary
}

// SummaryService composes streak, badge preview and stats into the cached
// home-screen aggregate. Unlike the streak calculator, a fan-out failure on a
// cache miss propagates to the caller.
type SummaryService interface {
	HomeSummary(ctx context.Context, subjectID int64) (*models.HomeSummary, error)
	SummaryInvalidator
}

// SummaryInvalidator drops a subject's cached aggregate views. Invoked by
// the badge engine and every mutation path that changes the underlying
// counters, to bound staleness below the TTL.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, subjectID int64) error
}

// NotificationBridge forwards unlock notifications to the delivery
// subsystem. The real bridge lives outside this core; exactly one call is
// made per unlock.
type NotificationBridge interface {
	NotifyUnlock(ctx context.Context, userID, badgeID int64, unlockedAt time.Time) error
}
