package events

import (
	"time"

	"storynest/internal/models"

	"github.com/gofrs/uuid"
)

// Event kinds published by the achievements core.
const (
	KindActivityRecorded = "activity.recorded"
	KindBadgeUnlocked    = "badge.unlocked"
)

// Base provides the common event fields.
type Base struct {
	ID        string    `json:"event_id"`
	EventKind string    `json:"kind"`
	At        time.Time `json:"occurred_at"`
}

// EventID implements Event.
func (b Base) EventID() string { return b.ID }

// Kind implements Event.
func (b Base) Kind() string { return b.EventKind }

// OccurredAt implements Event.
func (b Base) OccurredAt() time.Time { return b.At }

// ActivityRecorded is published after an activity event has been persisted.
// It feeds the badge progress engine.
type ActivityRecorded struct {
	Base
	UserID   int64                `json:"user_id"`
	KidID    *int64               `json:"kid_id,omitempty"`
	Action   string               `json:"action"`
	Metadata models.EventMetadata `json:"metadata,omitempty"`
}

// NewActivityRecorded builds an ActivityRecorded event from the persisted
// activity record.
func NewActivityRecorded(activity *models.ActivityEvent) *ActivityRecorded {
	return &ActivityRecorded{
		Base: Base{
			ID:        newEventID(),
			EventKind: KindActivityRecorded,
			At:        activity.OccurredAt,
		},
		UserID:   activity.UserID,
		KidID:    activity.KidID,
		Action:   activity.Action,
		Metadata: activity.Metadata,
	}
}

// BadgeUnlocked is published exactly once per badge unlock. Consumed by the
// notification bridge and by summary-cache invalidation.
type BadgeUnlocked struct {
	Base
	UserID     int64     `json:"user_id"`
	BadgeID    int64     `json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// NewBadgeUnlocked builds a BadgeUnlocked event.
func NewBadgeUnlocked(userID, badgeID int64, unlockedAt time.Time) *BadgeUnlocked {
	return &BadgeUnlocked{
		Base: Base{
			ID:        newEventID(),
			EventKind: KindBadgeUnlocked,
			At:        unlockedAt,
		},
		UserID:     userID,
		BadgeID:    badgeID,
		UnlockedAt: unlockedAt,
	}
}

func newEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// NewV4 only fails when the entropy source does; fall back to a
		// timestamp-derived ID rather than panicking on the hot path.
		return "evt_" + time.Now().Format("20060102T150405.000000000")
	}
	return "evt_" + id.String()
}
