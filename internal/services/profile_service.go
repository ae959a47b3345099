package services

import (
	"context"
	"errors"
	"time"

	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/repository"
)

// ProfileService reads and writes user profiles.
type ProfileService struct {
	logger *logging.Logger
	repo   repository.ProfileRepository
	now    func() time.Time
}

func NewProfileService(logger *logging.Logger, repo repository.ProfileRepository) *ProfileService {
	return &ProfileService{logger: logger, repo: repo, now: time.Now}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil, NewServiceError(CodeProfileNotFound, "profile not found for user "+userID)
		}
		return nil, &ServiceError{Code: CodeQueryFailed, Message: "Failed to load profile", Err: err}
	}
	return p, nil
}

// Save replaces the user's profile. Age and resting heart rate are optional
// but must be in range when present.
func (s *ProfileService) Save(ctx context.Context, userID string, req models.ProfileRequest) (*models.UserProfile, error) {
	if userID == "" {
		return nil, NewServiceError(CodeInvalidArgument, "user_id is required")
	}
	if req.Age != nil {
		if err := models.ValidateAge(*req.Age); err != nil {
			return nil, FromError(err, CodeInvalidArgument)
		}
	}
	if req.RestingHeartRate != nil {
		if err := models.ValidateRestingHeartRate(*req.RestingHeartRate); err != nil {
			return nil, FromError(err, CodeInvalidArgument)
		}
	}

	profile := models.UserProfile{
		UserID:           userID,
		Age:              req.Age,
		RestingHeartRate: req.RestingHeartRate,
		UpdatedAt:        s.now().UTC(),
	}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		s.logger.Error("Failed to save profile", "user_id", userID, "error", err)
		return nil, &ServiceError{Code: CodeStorageFailed, Message: "Failed to save profile", Err: err}
	}
	return &profile, nil
}
