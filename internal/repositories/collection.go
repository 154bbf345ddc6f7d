package repositories

import (
	"storynest/internal/database"

	"go.uber.org/zap"
)

// Collection bundles all repositories for dependency injection.
type Collection struct {
	Badges   BadgeRepository
	Progress ProgressRepository
	Activity ActivityRepository
}

// NewCollection constructs every repository over one database manager.
func NewCollection(db *database.Manager, logger *zap.Logger) *Collection {
	return &Collection{
		Badges:   NewBadgeRepository(db, logger),
		Progress: NewProgressRepository(db, logger),
		Activity: NewActivityRepository(db, logger),
	}
}
