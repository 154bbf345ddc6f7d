package models

import "time"

// DayActivity is one entry of the 7-day activity window.
type DayActivity struct {
	Date   string `json:"date"`  // ISO date, YYYY-MM-DD
	Label  string `json:"label"` // weekday initial, e.g. "M"
	Active bool   `json:"active"`
}

// StreakSummary is the derived streak state for one subject.
type StreakSummary struct {
	CurrentStreak  int           `json:"current_streak"`
	LongestStreak  int           `json:"longest_streak"`
	WeeklyActivity []DayActivity `json:"weekly_activity"` // always 7 entries, oldest first
	LastActiveDate *time.Time    `json:"last_active_date,omitempty"`
}

// SubjectStats holds derived activity counts for one subject.
type SubjectStats struct {
	StoriesCompleted    int `json:"stories_completed"`
	ChallengesCompleted int `json:"challenges_completed"`
	QuizzesAnswered     int `json:"quizzes_answered"`
	TotalListenSeconds  int `json:"total_listen_seconds"`
}

// BadgePreviewItem is one badge in the home-screen preview strip.
type BadgePreviewItem struct {
	BadgeID        int64  `json:"badge_id"`
	Title          string `json:"title"`
	Icon           string `json:"icon"`
	Unlocked       bool   `json:"unlocked"`
	Count          int    `json:"count"`
	RequiredAmount int    `json:"required_amount"`
}

// HomeSummary is the read-optimized home-screen aggregate, cached per subject.
type HomeSummary struct {
	Streak       *StreakSummary     `json:"streak"`
	BadgePreview []BadgePreviewItem `json:"badge_preview"`
	Stats        *SubjectStats      `json:"stats"`
	GeneratedAt  time.Time          `json:"generated_at"`
}
