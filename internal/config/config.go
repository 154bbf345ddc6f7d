package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is the top-level configuration for the achievements core.
type Config struct {
	Database     DatabaseConfig
	Cache        CacheConfig
	Logging      LoggingConfig
	Achievements AchievementsConfig
}

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	URL             string        `validate:"required"`
	MaxOpenConns    int           `validate:"min=1"`
	MaxIdleConns    int           `validate:"min=0"`
	ConnMaxLifetime time.Duration `validate:"min=0"`
	ConnectTimeout  time.Duration `validate:"min=0"`
}

// CacheConfig holds settings for the short-TTL cache.
type CacheConfig struct {
	Provider        string        `validate:"oneof=memory redis"`
	RedisURL        string        `validate:"required_if=Provider redis"`
	TTL             time.Duration `validate:"min=0"`
	MaxKeys         int           `validate:"min=1"`
	CleanupInterval time.Duration `validate:"min=0"`
	PoolSize        int           `validate:"min=0"`
}

// LoggingConfig controls the zap logger construction.
type LoggingConfig struct {
	Environment string `validate:"oneof=development staging production"`
	Level       string `validate:"oneof=debug info warn error"`
}

// AchievementsConfig holds the tunables of the badge engine, streak
// calculator and progress aggregator.
type AchievementsConfig struct {
	// SummaryTTL bounds staleness of the cached home-screen aggregate.
	SummaryTTL time.Duration `validate:"min=0"`
	// StreakLookbackDays bounds the activity fetch for streak derivation.
	// Discontinuity beyond this window is irrelevant to the current streak.
	StreakLookbackDays int `validate:"min=1"`
	// StreakActions is the set of action keys that count toward streaks.
	StreakActions []string `validate:"min=1"`
	// Timezone is the single canonical location used for both calendar-date
	// bucketing and time-of-day badge constraints.
	Timezone    string `validate:"required"`
	PreviewSize int    `validate:"min=1,max=10"`
	// Event bus sizing.
	EventBufferSize  int `validate:"min=1"`
	EventWorkerCount int `validate:"min=1"`
}

// Load reads configuration from the environment. A local .env file is loaded
// first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntEnv("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectTimeout:  getDurationEnv("DATABASE_CONNECT_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			Provider:        getEnv("CACHE_PROVIDER", "memory"),
			RedisURL:        os.Getenv("REDIS_URL"),
			TTL:             getDurationEnv("CACHE_TTL", 5*time.Minute),
			MaxKeys:         getIntEnv("CACHE_MAX_KEYS", 10000),
			CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", time.Minute),
			PoolSize:        getIntEnv("CACHE_POOL_SIZE", 10),
		},
		Logging: LoggingConfig{
			Environment: getEnv("GO_ENV", "development"),
			Level:       getEnv("LOG_LEVEL", "debug"),
		},
		Achievements: AchievementsConfig{
			SummaryTTL:         getDurationEnv("ACHIEVEMENTS_SUMMARY_TTL", 5*time.Minute),
			StreakLookbackDays: getIntEnv("ACHIEVEMENTS_STREAK_LOOKBACK_DAYS", 30),
			StreakActions: getSliceEnv("ACHIEVEMENTS_STREAK_ACTIONS",
				[]string{"story_read", "challenge_completed", "quiz_answered"}),
			Timezone:         getEnv("ACHIEVEMENTS_TIMEZONE", "UTC"),
			PreviewSize:      getIntEnv("ACHIEVEMENTS_PREVIEW_SIZE", 3),
			EventBufferSize:  getIntEnv("ACHIEVEMENTS_EVENT_BUFFER_SIZE", 1000),
			EventWorkerCount: getIntEnv("ACHIEVEMENTS_EVENT_WORKER_COUNT", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Achievements.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured canonical timezone.
func (a *AchievementsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid achievements timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// NewLogger builds a zap logger per the logging configuration.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	switch cfg.Environment {
	case "production":
		zcfg = zap.NewProductionConfig()
	default:
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
