package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"storynest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStreakCalculator(t *testing.T, activities *fakeActivityRepo, now time.Time) *streakService {
	t.Helper()
	svc := NewStreakService(activities, time.UTC, 30, []string{models.ActionStoryRead, models.ActionChallengeCompleted}, zap.NewNop())
	calc, ok := svc.(*streakService)
	require.True(t, ok)
	calc.now = fixedClock(now)
	return calc
}

func activityOn(subjectID int64, action string, at time.Time) *models.ActivityEvent {
	return &models.ActivityEvent{UserID: subjectID, Action: action, OccurredAt: at}
}

func TestStreakThreeConsecutiveDays(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		activityOn(7, models.ActionStoryRead, now),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -1)),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -2)),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	assert.Equal(t, 3, summary.CurrentStreak)
	assert.Equal(t, 3, summary.LongestStreak)
}

func TestStreakBreaksOnGap(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		activityOn(7, models.ActionStoryRead, now),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -2)),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	assert.Equal(t, 1, summary.CurrentStreak, "a missed day resets the streak")
}

func TestStreakSurvivesInactiveToday(t *testing.T) {
	// Yesterday's streak is still alive before any activity today.
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -1)),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -2)),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	assert.Equal(t, 2, summary.CurrentStreak)
}

func TestStreakZeroWhenLastActiveBeforeYesterday(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -3)),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	assert.Equal(t, 0, summary.CurrentStreak)
}

func TestStreakMidnightBoundaryJoinsDays(t *testing.T) {
	// 23:59 and 00:01 the next day are consecutive calendar days, even
	// though barely two minutes apart.
	now := time.Date(2026, 3, 12, 0, 30, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		activityOn(7, models.ActionStoryRead, time.Date(2026, 3, 11, 23, 59, 0, 0, time.UTC)),
		activityOn(7, models.ActionStoryRead, time.Date(2026, 3, 12, 0, 1, 0, 0, time.UTC)),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	assert.Equal(t, 2, summary.CurrentStreak)
}

func TestStreakMultipleEventsPerDayCountOnce(t *testing.T) {
	now := time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		activityOn(7, models.ActionStoryRead, now.Add(-1*time.Hour)),
		activityOn(7, models.ActionChallengeCompleted, now.Add(-2*time.Hour)),
		activityOn(7, models.ActionStoryRead, now.Add(-3*time.Hour)),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	assert.Equal(t, 1, summary.CurrentStreak)
	assert.Equal(t, 1, summary.LongestStreak)
}

func TestLongestStreakOutlivesCurrent(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		// A 4-day run ending a week ago.
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -10)),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -9)),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -8)),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -7)),
		// And activity today only.
		activityOn(7, models.ActionStoryRead, now),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	assert.Equal(t, 1, summary.CurrentStreak)
	assert.Equal(t, 4, summary.LongestStreak)
}

func TestWeeklyWindowShape(t *testing.T) {
	// 2026-03-12 is a Thursday.
	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{events: []*models.ActivityEvent{
		activityOn(7, models.ActionStoryRead, now),
		activityOn(7, models.ActionStoryRead, now.AddDate(0, 0, -3)),
	}}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	require.Len(t, summary.WeeklyActivity, 7)

	// Oldest first, ending with today.
	assert.Equal(t, "2026-03-06", summary.WeeklyActivity[0].Date)
	assert.Equal(t, "2026-03-12", summary.WeeklyActivity[6].Date)
	assert.Equal(t, "F", summary.WeeklyActivity[0].Label)
	assert.Equal(t, "T", summary.WeeklyActivity[6].Label)

	assert.True(t, summary.WeeklyActivity[6].Active, "today")
	assert.True(t, summary.WeeklyActivity[3].Active, "three days ago")
	assert.False(t, summary.WeeklyActivity[5].Active, "yesterday had nothing")
}

func TestStreakDegradesToZeroOnLookupFailure(t *testing.T) {
	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	repo := &fakeActivityRepo{listErr: errors.New("connection refused")}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	require.NotNil(t, summary, "streak display never errors")
	assert.Equal(t, 0, summary.CurrentStreak)
	assert.Equal(t, 0, summary.LongestStreak)
	require.Len(t, summary.WeeklyActivity, 7)
	for _, day := range summary.WeeklyActivity {
		assert.False(t, day.Active)
	}
	assert.Nil(t, summary.LastActiveDate)
}

func TestStreakLastActiveDate(t *testing.T) {
	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	lastAt := now.Add(-30 * time.Hour)
	repo := &fakeActivityRepo{
		events: []*models.ActivityEvent{activityOn(7, models.ActionStoryRead, lastAt)},
		lastAt: &lastAt,
	}
	calc := newStreakCalculator(t, repo, now)

	summary := calc.Summary(context.Background(), 7)
	require.NotNil(t, summary.LastActiveDate)
	assert.True(t, summary.LastActiveDate.Equal(lastAt))
}
