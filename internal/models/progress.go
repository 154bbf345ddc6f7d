package models

import "time"

// UserBadgeProgress is the per-user counter and unlock state for one catalog
// badge. One row per user x badge pair, created when the user is initialized.
//
// Invariants maintained by the badge engine:
//   - Count never decreases.
//   - Unlocked transitions false -> true exactly once; UnlockedAt is set in
//     the same atomic step and never changes afterwards.
type UserBadgeProgress struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	BadgeID    int64      `json:"badge_id" db:"badge_id"`
	Count      int        `json:"count" db:"count"`
	Unlocked   bool       `json:"unlocked" db:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
