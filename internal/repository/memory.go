package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sensacare/vitals/internal/models"
)

// MemoryStore keeps everything in process. Readings are held per user in
// timestamp order.
type MemoryStore struct {
	mu       sync.RWMutex
	readings map[string][]models.VitalReading
	ids      map[string]struct{}
	profiles map[string]models.UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		readings: make(map[string][]models.VitalReading),
		ids:      make(map[string]struct{}),
		profiles: make(map[string]models.UserProfile),
	}
}

func (m *MemoryStore) SaveReadings(ctx context.Context, readings []models.VitalReading) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[string]struct{})
	stored := 0
	for _, r := range readings {
		if _, exists := m.ids[r.ID]; exists {
			continue
		}
		m.ids[r.ID] = struct{}{}
		m.readings[r.UserID] = append(m.readings[r.UserID], r)
		touched[r.UserID] = struct{}{}
		stored++
	}

	for userID := range touched {
		list := m.readings[userID]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.Before(list[j].Timestamp)
		})
	}
	return stored, nil
}

func (m *MemoryStore) QueryReadings(ctx context.Context, userID string, start, end time.Time) ([]models.VitalReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.readings[userID]
	lo := sort.Search(len(list), func(i int) bool { return !list[i].Timestamp.Before(start) })

	out := make([]models.VitalReading, 0)
	for i := lo; i < len(list) && !list[i].Timestamp.After(end); i++ {
		out = append(out, list[i])
	}
	return out, nil
}

func (m *MemoryStore) DeleteReadings(ctx context.Context, userID string, start, end time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.readings[userID]
	kept := list[:0]
	deleted := 0
	for _, r := range list {
		if inRange(r.Timestamp, start, end) {
			delete(m.ids, r.ID)
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		delete(m.readings, userID)
	} else {
		m.readings[userID] = kept
	}
	return deleted, nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	return &p, nil
}

func (m *MemoryStore) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }
