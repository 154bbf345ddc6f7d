package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storynest/internal/events"
	"storynest/internal/models"
	"storynest/internal/repositories"
)

// ===============================
// TEST FAKES
// ===============================

// fakeBadgeRepo serves a fixed catalog keyed by badge type.
type fakeBadgeRepo struct {
	byType map[string][]*models.Badge
	err    error
}

func (f *fakeBadgeRepo) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	for _, badges := range f.byType {
		for _, b := range badges {
			if b.ID == id {
				return b, nil
			}
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBadgeRepo) GetByType(ctx context.Context, badgeType string) ([]*models.Badge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byType[badgeType], nil
}

func (f *fakeBadgeRepo) ListActive(ctx context.Context) ([]*models.Badge, error) {
	var all []*models.Badge
	for _, badges := range f.byType {
		all = append(all, badges...)
	}
	return all, nil
}

func (f *fakeBadgeRepo) Seed(ctx context.Context, badges []*models.Badge) error { return nil }

// fakeProgressRepo keeps progress rows in memory and serializes mutations
// per (user, badge) key, matching the row-lock contract.
type fakeProgressRepo struct {
	mu       sync.Mutex
	rows     map[string]*models.UserBadgeProgress
	joined   []*models.BadgeWithProgress
	listErr  error
	initErr  error
	initFor  []int64
	lockErrs map[string]error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[string]*models.UserBadgeProgress)}
}

func progressKey(userID, badgeID int64) string {
	return fmt.Sprintf("%d:%d", userID, badgeID)
}

func (f *fakeProgressRepo) seed(userID, badgeID int64, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[progressKey(userID, badgeID)] = &models.UserBadgeProgress{
		UserID:  userID,
		BadgeID: badgeID,
		Count:   count,
	}
}

func (f *fakeProgressRepo) row(userID, badgeID int64) *models.UserBadgeProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[progressKey(userID, badgeID)]
}

func (f *fakeProgressRepo) GetByUserAndBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadgeProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[progressKey(userID, badgeID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProgressRepo) ListByUser(ctx context.Context, userID int64) ([]*models.UserBadgeProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.UserBadgeProgress
	for _, p := range f.rows {
		if p.UserID == userID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) ListForUser(ctx context.Context, userID int64) ([]*models.BadgeWithProgress, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.joined, nil
}

func (f *fakeProgressRepo) InitializeUser(ctx context.Context, userID int64) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initFor = append(f.initFor, userID)
	return nil
}

func (f *fakeProgressRepo) UpdateWithLock(ctx context.Context, userID, badgeID int64, fn repositories.ProgressMutation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := progressKey(userID, badgeID)
	if err, ok := f.lockErrs[key]; ok {
		return err
	}
	p, ok := f.rows[key]
	if !ok {
		return repositories.ErrNotFound
	}

	if _, err := fn(p); err != nil {
		return err
	}
	return nil
}

// fakeActivityRepo serves a scripted activity log.
type fakeActivityRepo struct {
	mu         sync.Mutex
	events     []*models.ActivityEvent
	appendErr  error
	listErr    error
	lastAt     *time.Time
	lastAtErr  error
	stats      *models.SubjectStats
	statsErr   error
	recentErr  error
	statsCalls int
}

func (f *fakeActivityRepo) Append(ctx context.Context, event *models.ActivityEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeActivityRepo) ListBySubjectSince(ctx context.Context, subjectID int64, since time.Time, actions []string) ([]*models.ActivityEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityEvent
	for _, ev := range f.events {
		if ev.UserID == subjectID && !ev.OccurredAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) ListRecent(ctx context.Context, subjectID int64, limit int) ([]*models.ActivityEvent, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].UserID == subjectID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) LastActiveAt(ctx context.Context, subjectID int64) (*time.Time, error) {
	if f.lastAtErr != nil {
		return nil, f.lastAtErr
	}
	return f.lastAt, nil
}

func (f *fakeActivityRepo) Stats(ctx context.Context, subjectID int64) (*models.SubjectStats, error) {
	f.mu.Lock()
	f.statsCalls++
	f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if f.stats != nil {
		return f.stats, nil
	}
	return &models.SubjectStats{}, nil
}

// fakeBus records published events; async publishes are delivered inline.
type fakeBus struct {
	mu         sync.Mutex
	published  []events.Event
	publishErr error
	asyncErr   error
}

func (f *fakeBus) Publish(ctx context.Context, event events.Event) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) PublishAsync(ctx context.Context, event events.Event) error {
	if f.asyncErr != nil {
		return f.asyncErr
	}
	return f.Publish(ctx, event)
}

func (f *fakeBus) Subscribe(kind string, handler events.Handler) error { return nil }
func (f *fakeBus) Start(ctx context.Context) error                    { return nil }
func (f *fakeBus) Stop(ctx context.Context) error                     { return nil }
func (f *fakeBus) Health() error                                      { return nil }
func (f *fakeBus) Stats() *events.BusStats                            { return &events.BusStats{} }

func (f *fakeBus) events() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Event, len(f.published))
	copy(out, f.published)
	return out
}

// fakeInvalidator counts invalidations per subject.
type fakeInvalidator struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, subjectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, subjectID)
	return f.err
}

func (f *fakeInvalidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fixedClock pins a service's notion of now.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
