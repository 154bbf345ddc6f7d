package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// loggingNotificationBridge is the default NotificationBridge. The actual
// delivery subsystem is an external collaborator; this implementation only
// records what would be forwarded.
type loggingNotificationBridge struct {
	logger *zap.Logger
}

// NewLoggingNotificationBridge creates a bridge that logs unlock
// notifications instead of delivering them.
func NewLoggingNotificationBridge(logger *zap.Logger) NotificationBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggingNotificationBridge{logger: logger}
}

func (b *loggingNotificationBridge) NotifyUnlock(ctx context.Context, userID, badgeID int64, unlockedAt time.Time) error {
	b.logger.Info("Badge unlocked",
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badgeID),
		zap.Time("unlocked_at", unlockedAt),
	)
	return nil
}
