package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/repository"
	"github.com/sensacare/vitals/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func reading(id string, offset time.Duration, bpm int) models.VitalReading {
	return models.VitalReading{
		ID:            id,
		Timestamp:     baseTime.Add(offset),
		Value:         bpm,
		ActivityLevel: models.ActivityRest,
	}
}

// failingStore fails every call with err.
type failingStore struct {
	*repository.MemoryStore
	err error
}

func (f failingStore) SaveReadings(context.Context, []models.VitalReading) (int, error) {
	return 0, f.err
}

func (f failingStore) QueryReadings(context.Context, string, time.Time, time.Time) ([]models.VitalReading, error) {
	return nil, f.err
}

func (f failingStore) DeleteReadings(context.Context, string, time.Time, time.Time) (int, error) {
	return 0, f.err
}

func (f failingStore) GetProfile(context.Context, string) (*models.UserProfile, error) {
	return nil, f.err
}

func (f failingStore) SaveProfile(context.Context, models.UserProfile) error {
	return f.err
}

func newReadingService(repo repository.ReadingRepository) *ReadingService {
	s := NewReadingService(logging.Nop(), repo, 0)
	s.now = func() time.Time { return baseTime.Add(2 * time.Hour) }
	return s
}

func TestIngestBatchPartialSuccess(t *testing.T) {
	store := repository.NewMemoryStore()
	s := newReadingService(store)
	ctx := context.Background()

	batch := []models.VitalReading{
		reading("r1", 0, 72),
		reading("r2", time.Minute, 300),
		reading("", 2*time.Minute, 75),
		reading("r4", 3*time.Hour, 70),
	}
	batch[0].UserID = "someone-else"

	result, err := s.IngestBatch(ctx, "u1", batch)
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 2)
	assert.Equal(t, 2, result.Stored)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, "r2", result.Rejected[0].ReadingID)
	assert.Equal(t, 3, result.Rejected[1].Index)

	for _, r := range result.Accepted {
		assert.Equal(t, "u1", r.UserID)
		assert.NotEmpty(t, r.ID)
	}

	got, err := s.Query(ctx, "u1", Window{Start: baseTime, End: baseTime.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Query(ctx, "someone-else", Window{Start: baseTime, End: baseTime.Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIngestBatchIsIdempotent(t *testing.T) {
	s := newReadingService(repository.NewMemoryStore())
	batch := []models.VitalReading{reading("r1", 0, 72), reading("r2", time.Minute, 74)}

	_, err := s.IngestBatch(context.Background(), "u1", batch)
	require.NoError(t, err)

	result, err := s.IngestBatch(context.Background(), "u1", batch)
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 2)
	assert.Equal(t, 0, result.Stored)
}

func TestIngestBatchAllRejected(t *testing.T) {
	s := newReadingService(repository.NewMemoryStore())

	result, err := s.IngestBatch(context.Background(), "u1", []models.VitalReading{reading("bad", 0, 5)})
	require.NoError(t, err)
	assert.Empty(t, result.Accepted)
	assert.Equal(t, 0, result.Stored)
	assert.Len(t, result.Rejected, 1)
}

func TestIngestBatchArguments(t *testing.T) {
	s := newReadingService(repository.NewMemoryStore())
	ctx := context.Background()

	_, err := s.IngestBatch(ctx, "", []models.VitalReading{reading("r1", 0, 70)})
	assert.True(t, IsCode(err, CodeInvalidArgument))

	_, err = s.IngestBatch(ctx, "u1", nil)
	assert.True(t, IsCode(err, CodeInvalidArgument))

	_, err = s.IngestBatch(ctx, "u1", make([]models.VitalReading, utils.MaxBatchSize+1))
	assert.True(t, IsCode(err, CodeInvalidArgument))
}

func TestReadingServiceStorageFailures(t *testing.T) {
	cause := errors.New("connection reset")
	s := newReadingService(failingStore{MemoryStore: repository.NewMemoryStore(), err: cause})
	ctx := context.Background()
	w := Window{Start: baseTime, End: baseTime.Add(time.Hour)}

	_, err := s.IngestBatch(ctx, "u1", []models.VitalReading{reading("r1", 0, 70)})
	assert.True(t, IsCode(err, CodeStorageFailed))
	assert.ErrorIs(t, err, cause)

	_, err = s.Query(ctx, "u1", w)
	assert.True(t, IsCode(err, CodeQueryFailed))

	_, err = s.Delete(ctx, "u1", w)
	assert.True(t, IsCode(err, CodeStorageFailed))
}

func TestReadingServiceDelete(t *testing.T) {
	s := newReadingService(repository.NewMemoryStore())
	ctx := context.Background()

	_, err := s.IngestBatch(ctx, "u1", []models.VitalReading{
		reading("r1", 0, 70), reading("r2", 10*time.Minute, 71), reading("r3", 20*time.Minute, 72),
	})
	require.NoError(t, err)

	n, err := s.Delete(ctx, "u1", Window{Start: baseTime, End: baseTime.Add(10 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Delete(ctx, "u1", Window{Start: baseTime, End: baseTime.Add(-time.Minute)})
	assert.True(t, IsCode(err, CodeInvalidArgument))
}
