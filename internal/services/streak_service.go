package services

import (
	"context"
	"sort"
	"time"

	"storynest/internal/models"
	"storynest/internal/repositories"

	"go.uber.org/zap"
)

// isoDate is the calendar-date bucketing format. Day boundaries are
// calendar-date equality, not a rolling 24-hour window: activity at 23:59
// and 00:01 the next day counts as two consecutive active days.
const isoDate = "2006-01-02"

// streakService implements StreakService.
type streakService struct {
	activities    repositories.ActivityRepository
	logger        *zap.Logger
	location      *time.Location
	lookbackDays  int
	streakActions []string
	now           func() time.Time
}

// NewStreakService creates the streak calculator.
func NewStreakService(
	activities repositories.ActivityRepository,
	location *time.Location,
	lookbackDays int,
	streakActions []string,
	logger *zap.Logger,
) StreakService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &streakService{
		activities:    activities,
		logger:        logger,
		location:      location,
		lookbackDays:  lookbackDays,
		streakActions: streakActions,
		now:           time.Now,
	}
}

// Summary derives the subject's streak state from the activity log. Streak
// display must degrade gracefully, so any lookup failure yields the zero
// state instead of an error.
func (s *streakService) Summary(ctx context.Context, subjectID int64) *models.StreakSummary {
	today := s.today()

	since := today.AddDate(0, 0, -s.lookbackDays)
	activity, err := s.activities.ListBySubjectSince(ctx, subjectID, since, s.streakActions)
	if err != nil {
		s.logger.Error("Failed to load activity for streak calculation",
			zap.Int64("subject_id", subjectID),
			zap.Error(err),
		)
		return s.zeroState(today)
	}

	// Bucket event timestamps to distinct calendar dates in the canonical
	// timezone.
	activeDates := make(map[string]bool, len(activity))
	for _, ev := range activity {
		activeDates[ev.OccurredAt.In(s.location).Format(isoDate)] = true
	}

	summary := &models.StreakSummary{
		CurrentStreak:  s.currentStreak(today, activeDates),
		LongestStreak:  longestRun(activeDates),
		WeeklyActivity: s.weeklyWindow(today, activeDates),
	}

	lastActive, err := s.activities.LastActiveAt(ctx, subjectID)
	if err != nil {
		s.logger.Warn("Failed to load last active timestamp",
			zap.Int64("subject_id", subjectID),
			zap.Error(err),
		)
	} else {
		summary.LastActiveDate = lastActive
	}

	return summary
}

// currentStreak walks backward one calendar day at a time from the most
// recent active anchor (today if active, else yesterday) until a gap.
func (s *streakService) currentStreak(today time.Time, activeDates map[string]bool) int {
	anchor := today
	if !activeDates[anchor.Format(isoDate)] {
		anchor = today.AddDate(0, 0, -1)
		if !activeDates[anchor.Format(isoDate)] {
			return 0
		}
	}

	streak := 0
	for day := anchor; activeDates[day.Format(isoDate)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// weeklyWindow reports the last 7 calendar days, oldest first, ending with
// today, each labeled with its weekday initial.
func (s *streakService) weeklyWindow(today time.Time, activeDates map[string]bool) []models.DayActivity {
	window := make([]models.DayActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		date := day.Format(isoDate)
		window = append(window, models.DayActivity{
			Date:   date,
			Label:  day.Weekday().String()[:1],
			Active: activeDates[date],
		})
	}
	return window
}

// longestRun scans the distinct active dates once, in ascending order,
// tracking the longest run of dates each exactly one calendar day apart.
func longestRun(activeDates map[string]bool) int {
	if len(activeDates) == 0 {
		return 0
	}

	dates := make([]string, 0, len(activeDates))
	for date := range activeDates {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	longest, run := 1, 1
	prev, _ := time.Parse(isoDate, dates[0])
	for _, date := range dates[1:] {
		current, err := time.Parse(isoDate, date)
		if err != nil {
			continue
		}
		if prev.AddDate(0, 0, 1).Equal(current) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = current
	}
	return longest
}

// today returns midnight of the current calendar date in the canonical
// timezone.
func (s *streakService) today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

// zeroState is the documented degraded default: no streak, an all-inactive
// week, no last-active date.
func (s *streakService) zeroState(today time.Time) *models.StreakSummary {
	return &models.StreakSummary{
		CurrentStreak:  0,
		LongestStreak:  0,
		WeeklyActivity: s.weeklyWindow(today, nil),
	}
}
