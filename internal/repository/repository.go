// Package repository persists heart-rate readings and user profiles.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sensacare/vitals/internal/compression"
	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/utils"
)

// ReadingRepository stores readings keyed by ID. Saving an ID that already
// exists is a no-op.
type ReadingRepository interface {
	// SaveReadings returns how many readings were newly stored.
	SaveReadings(ctx context.Context, readings []models.VitalReading) (int, error)
	// QueryReadings returns the user's readings with start <= timestamp <= end,
	// ordered by timestamp.
	QueryReadings(ctx context.Context, userID string, start, end time.Time) ([]models.VitalReading, error)
	DeleteReadings(ctx context.Context, userID string, start, end time.Time) (int, error)
}

// ProfileRepository stores one profile per user.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile models.UserProfile) error
}

// Store is a backend serving both repositories.
type Store interface {
	ReadingRepository
	ProfileRepository
	Ping(ctx context.Context) error
	Close() error
}

// New creates the backend selected by cfg.Type.
func New(cfg config.StorageConfig) (Store, error) {
	switch utils.StorageType(cfg.Type) {
	case utils.StorageTypeMemory, "":
		return NewMemoryStore(), nil

	case utils.StorageTypeRedis:
		algo, err := compression.ParseAlgorithm(cfg.Redis.Compression)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(cfg.Redis, algo)

	case utils.StorageTypePostgres:
		return OpenPostgres(cfg.Postgres)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
