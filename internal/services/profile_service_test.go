package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileServiceRoundTrip(t *testing.T) {
	s := NewProfileService(logging.Nop(), repository.NewMemoryStore())
	ctx := context.Background()

	_, err := s.Get(ctx, "u1")
	assert.True(t, IsCode(err, CodeProfileNotFound))

	saved, err := s.Save(ctx, "u1", models.ProfileRequest{Age: models.IntPtr(35), RestingHeartRate: models.IntPtr(60)})
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UserID)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 35, *got.Age)
	assert.Equal(t, 60, *got.RestingHeartRate)

	// A save replaces the whole profile.
	_, err = s.Save(ctx, "u1", models.ProfileRequest{Age: models.IntPtr(36)})
	require.NoError(t, err)
	got, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got.RestingHeartRate)
}

func TestProfileServiceValidation(t *testing.T) {
	s := NewProfileService(logging.Nop(), repository.NewMemoryStore())
	ctx := context.Background()

	_, err := s.Save(ctx, "u1", models.ProfileRequest{Age: models.IntPtr(0)})
	assert.True(t, IsCode(err, CodeInvalidArgument))

	_, err = s.Save(ctx, "u1", models.ProfileRequest{RestingHeartRate: models.IntPtr(150)})
	assert.True(t, IsCode(err, CodeInvalidArgument))

	_, err = s.Save(ctx, "", models.ProfileRequest{})
	assert.True(t, IsCode(err, CodeInvalidArgument))
}

func TestProfileServiceStorageFailure(t *testing.T) {
	s := NewProfileService(logging.Nop(), failingStore{MemoryStore: repository.NewMemoryStore(), err: errors.New("down")})
	ctx := context.Background()

	_, err := s.Get(ctx, "u1")
	assert.True(t, IsCode(err, CodeQueryFailed))

	_, err = s.Save(ctx, "u1", models.ProfileRequest{Age: models.IntPtr(30)})
	assert.True(t, IsCode(err, CodeStorageFailed))
}
