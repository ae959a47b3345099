package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/repository"
	"github.com/sensacare/vitals/internal/utils"
)

// ReadingService validates and stores reading batches.
type ReadingService struct {
	logger  *logging.Logger
	repo    repository.ReadingRepository
	recency time.Duration
	now     func() time.Time
}

func NewReadingService(logger *logging.Logger, repo repository.ReadingRepository, recency time.Duration) *ReadingService {
	if recency <= 0 {
		recency = models.DefaultRecencyWindow
	}
	return &ReadingService{
		logger:  logger,
		repo:    repo,
		recency: recency,
		now:     time.Now,
	}
}

// IngestResult reports one batch write.
type IngestResult struct {
	models.BatchResult
	// Stored counts accepted readings that were new; re-sent IDs are accepted
	// but not stored twice.
	Stored int
}

// IngestBatch stamps every reading with userID, assigns IDs to readings
// without one, validates them independently and stores the valid ones.
// Rejections do not fail the call; a storage error does.
func (s *ReadingService) IngestBatch(ctx context.Context, userID string, readings []models.VitalReading) (*IngestResult, error) {
	if userID == "" {
		return nil, NewServiceError(CodeInvalidArgument, "user_id is required")
	}
	if len(readings) == 0 {
		return nil, NewServiceError(CodeInvalidArgument, "readings must not be empty")
	}
	if len(readings) > utils.MaxBatchSize {
		return nil, NewServiceErrorWithDetails(CodeInvalidArgument,
			fmt.Sprintf("batch exceeds %d readings", utils.MaxBatchSize),
			map[string]interface{}{"count": len(readings)})
	}

	stamped := make([]models.VitalReading, len(readings))
	for i, r := range readings {
		r.UserID = userID
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		stamped[i] = r
	}

	result := &IngestResult{BatchResult: models.ValidateBatch(stamped, s.now(), s.recency)}
	if len(result.Accepted) > 0 {
		stored, err := s.repo.SaveReadings(ctx, result.Accepted)
		if err != nil {
			s.logger.Error("Failed to store readings", "user_id", userID, "count", len(result.Accepted), "error", err)
			return nil, &ServiceError{
				Code:    CodeStorageFailed,
				Message: "Failed to store readings",
				Details: map[string]interface{}{"error": err.Error()},
				Err:     err,
			}
		}
		result.Stored = stored
	}

	s.logger.Debug("Batch ingested",
		"user_id", userID,
		"accepted", len(result.Accepted),
		"stored", result.Stored,
		"rejected", len(result.Rejected))
	return result, nil
}

// Query returns the user's readings inside w.
func (s *ReadingService) Query(ctx context.Context, userID string, w Window) ([]models.VitalReading, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	readings, err := s.repo.QueryReadings(ctx, userID, w.Start, w.End)
	if err != nil {
		s.logger.Error("Reading query failed", "user_id", userID, "error", err)
		return nil, &ServiceError{
			Code:    CodeQueryFailed,
			Message: "Failed to query readings",
			Details: map[string]interface{}{"error": err.Error()},
			Err:     err,
		}
	}
	return readings, nil
}

// Delete removes the user's readings inside w.
func (s *ReadingService) Delete(ctx context.Context, userID string, w Window) (int, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	deleted, err := s.repo.DeleteReadings(ctx, userID, w.Start, w.End)
	if err != nil {
		s.logger.Error("Reading delete failed", "user_id", userID, "error", err)
		return 0, &ServiceError{
			Code:    CodeStorageFailed,
			Message: "Failed to delete readings",
			Details: map[string]interface{}{"error": err.Error()},
			Err:     err,
		}
	}
	s.logger.Info("Readings deleted", "user_id", userID, "deleted", deleted)
	return deleted, nil
}
