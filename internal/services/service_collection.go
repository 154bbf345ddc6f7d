package services

import (
	"context"
	"fmt"
	"time"

	"storynest/internal/cache"
	"storynest/internal/config"
	"storynest/internal/database"
	"storynest/internal/events"
	"storynest/internal/repositories"

	"go.uber.org/zap"
)

// ===============================
// SERVICE COLLECTION
// ===============================

// ServiceCollection wires every service of the achievements core over shared
// infrastructure and manages their lifecycle.
type ServiceCollection struct {
	// Core services
	Activities ActivityService
	Badges     BadgeProgressService
	Streaks    StreakService
	Summaries  SummaryService

	// Notification seam. Swappable before Start for a real delivery bridge.
	Notifications NotificationBridge

	// Repository collection
	Repositories *repositories.Collection

	// Infrastructure components
	Cache     cache.Cache
	EventBus  events.Bus
	Logger    *zap.Logger
	Config    *config.Config
	DBManager *database.Manager
}

// NewServiceCollection constructs the full achievements core in dependency
// order: repositories, streak calculator, summary aggregator, badge engine,
// activity recorder. The summary service doubles as the invalidator handed to
// the mutation paths.
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	location, err := cfg.Achievements.Location()
	if err != nil {
		return nil, err
	}

	cacheClient, err := cache.NewCache(&cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	bus := events.NewBus(&events.Config{
		BufferSize:  cfg.Achievements.EventBufferSize,
		WorkerCount: cfg.Achievements.EventWorkerCount,
	}, logger)

	repos := repositories.NewCollection(dbManager, logger)

	streaks := NewStreakService(
		repos.Activity,
		location,
		cfg.Achievements.StreakLookbackDays,
		cfg.Achievements.StreakActions,
		logger,
	)
	summaries := NewSummaryService(
		cacheClient,
		streaks,
		repos.Progress,
		repos.Activity,
		cfg.Achievements.SummaryTTL,
		cfg.Achievements.PreviewSize,
		logger,
	)
	badges := NewBadgeProgressService(
		repos.Badges,
		repos.Progress,
		bus,
		summaries,
		location,
		logger,
	)
	activities := NewActivityService(
		repos.Activity,
		bus,
		summaries,
		location,
		logger,
	)

	sc := &ServiceCollection{
		Activities:    activities,
		Badges:        badges,
		Streaks:       streaks,
		Summaries:     summaries,
		Notifications: NewLoggingNotificationBridge(logger),
		Repositories:  repos,
		Cache:         cacheClient,
		EventBus:      bus,
		Logger:        logger,
		Config:        cfg,
		DBManager:     dbManager,
	}

	if err := sc.subscribe(); err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}

	return sc, nil
}

// subscribe registers the event handlers that connect recording to
// evaluation and unlocks to notification delivery.
func (sc *ServiceCollection) subscribe() error {
	err := sc.EventBus.Subscribe(events.KindActivityRecorded, events.HandlerFunc{
		ID: "badge-progress-engine",
		Func: func(ctx context.Context, event events.Event) error {
			recorded, ok := event.(*events.ActivityRecorded)
			if !ok {
				sc.Logger.Warn("Unexpected event payload",
					zap.String("kind", event.Kind()),
					zap.String("event_id", event.EventID()))
				return nil
			}
			// Evaluation failures must never surface to the recording
			// path; they are logged here and the activity record stands.
			if err := sc.Badges.Evaluate(ctx, recorded.UserID, recorded.Action, 1, recorded.Metadata, recorded.KidID); err != nil {
				sc.Logger.Error("Badge evaluation failed",
					zap.Int64("user_id", recorded.UserID),
					zap.String("action", recorded.Action),
					zap.Error(err))
			}
			return nil
		},
	})
	if err != nil {
		return err
	}

	return sc.EventBus.Subscribe(events.KindBadgeUnlocked, events.HandlerFunc{
		ID: "unlock-notification-bridge",
		Func: func(ctx context.Context, event events.Event) error {
			unlocked, ok := event.(*events.BadgeUnlocked)
			if !ok {
				sc.Logger.Warn("Unexpected event payload",
					zap.String("kind", event.Kind()),
					zap.String("event_id", event.EventID()))
				return nil
			}
			return sc.Notifications.NotifyUnlock(ctx, unlocked.UserID, unlocked.BadgeID, unlocked.UnlockedAt)
		},
	})
}

// Start brings up the event workers.
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	sc.Logger.Info("Achievements core started",
		zap.String("cache_provider", sc.Config.Cache.Provider),
		zap.String("timezone", sc.Config.Achievements.Timezone))
	return nil
}

// Shutdown drains the event queue and releases infrastructure.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down achievements core")

	if err := sc.EventBus.Stop(ctx); err != nil {
		sc.Logger.Error("Failed to stop event bus", zap.Error(err))
	}
	if err := sc.Cache.Close(); err != nil {
		sc.Logger.Error("Failed to close cache", zap.Error(err))
	}
	return nil
}

// SeedDefaultCatalog inserts the shipped badge catalog, skipping any badge
// already present.
func (sc *ServiceCollection) SeedDefaultCatalog(ctx context.Context) error {
	return sc.Repositories.Badges.Seed(ctx, DefaultCatalog())
}

// HealthCheck verifies every infrastructure dependency.
func (sc *ServiceCollection) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := sc.DBManager.Health(checkCtx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	if err := sc.Cache.Health(checkCtx); err != nil {
		return fmt.Errorf("cache unhealthy: %w", err)
	}
	if err := sc.EventBus.Health(); err != nil {
		return fmt.Errorf("event bus unhealthy: %w", err)
	}
	return nil
}
