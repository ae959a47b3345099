package services

import (
	"context"
	"errors"
	"time"

	"github.com/sensacare/vitals/internal/analytics/anomaly"
	"github.com/sensacare/vitals/internal/analytics/heartrate"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/repository"
)

// AnalyticsService loads a user's readings and profile and runs the
// heart-rate analyzers over them.
type AnalyticsService struct {
	logger   *logging.Logger
	readings repository.ReadingRepository
	profiles repository.ProfileRepository
	analyzer *heartrate.Analyzer
	alerts   *AlertPublisher
}

// NewAnalyticsService wires the analyzers. alerts may be nil.
func NewAnalyticsService(
	logger *logging.Logger,
	readings repository.ReadingRepository,
	profiles repository.ProfileRepository,
	analyzer *heartrate.Analyzer,
	alerts *AlertPublisher,
) *AnalyticsService {
	if analyzer == nil {
		analyzer = heartrate.NewAnalyzer(heartrate.DefaultConfig())
	}
	return &AnalyticsService{
		logger:   logger,
		readings: readings,
		profiles: profiles,
		analyzer: analyzer,
		alerts:   alerts,
	}
}

// ZonesFor computes zones without a stored profile. A nil resting heart
// rate selects the standard formula.
func (s *AnalyticsService) ZonesFor(age int, restingHeartRate *int) (*heartrate.HeartRateZones, error) {
	profile := &models.UserProfile{Age: &age, RestingHeartRate: restingHeartRate}
	zones, err := zonesForProfile(profile, "")
	if err != nil {
		return nil, FromError(err, CodeInvalidArgument)
	}
	return zones, nil
}

// Zones computes zones from the stored profile.
func (s *AnalyticsService) Zones(ctx context.Context, userID string, method heartrate.ZoneMethod) (*heartrate.HeartRateZones, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	zones, err := zonesForProfile(profile, method)
	if err != nil {
		return nil, FromError(err, CodeInvalidArgument)
	}
	return zones, nil
}

func (s *AnalyticsService) Stats(ctx context.Context, userID string, w Window) (*heartrate.HeartRateStats, error) {
	readings, err := s.load(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	stats := s.analyzer.ComputeStats(readings)
	return &stats, nil
}

func (s *AnalyticsService) HRV(ctx context.Context, userID string, w Window) (*heartrate.HRVAnalysis, error) {
	readings, err := s.load(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	result, err := s.analyzer.AnalyzeHRV(readings, w.Start, w.End)
	if err != nil {
		return nil, FromError(err, CodeInvalidArgument)
	}
	return result, nil
}

func (s *AnalyticsService) Trends(ctx context.Context, userID string, w Window) (*heartrate.HeartRateTrend, error) {
	readings, err := s.load(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	result, err := s.analyzer.AnalyzeTrends(readings, w.Start, w.End)
	if err != nil {
		return nil, FromError(err, CodeInvalidArgument)
	}
	return result, nil
}

// Abnormalities runs the detector and publishes an alert when the result
// requires medical attention. A failed publish is logged and does not fail
// the request.
func (s *AnalyticsService) Abnormalities(ctx context.Context, userID string, w Window) (*heartrate.AbnormalHeartRateDetection, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	readings, err := s.load(ctx, userID, w)
	if err != nil {
		return nil, err
	}

	detection, err := s.analyzer.DetectAbnormalities(readings, profile.Age, w.Start, w.End)
	if err != nil {
		return nil, FromError(err, CodeInvalidArgument)
	}
	s.notify(ctx, userID, detection)
	return detection, nil
}

// OutlierReport lists readings that look like sensor artifacts.
type OutlierReport struct {
	UserID        string            `json:"user_id"`
	Method        string            `json:"method"`
	ReadingsCount int               `json:"readings_count"`
	Outliers      []anomaly.Outlier `json:"outliers"`
}

// Outliers screens the window statistically. An empty method selects
// auto; a threshold of zero keeps the method default.
func (s *AnalyticsService) Outliers(ctx context.Context, userID string, w Window, method string, threshold float64) (*OutlierReport, error) {
	if method == "" {
		method = anomaly.MethodAuto
	}
	if _, err := anomaly.Get(method); err != nil {
		return nil, NewServiceErrorWithDetails(CodeInvalidArgument, err.Error(),
			map[string]interface{}{"methods": anomaly.Methods()})
	}
	if threshold < 0 {
		return nil, NewServiceError(CodeInvalidArgument, "threshold must not be negative")
	}

	readings, err := s.load(ctx, userID, w)
	if err != nil {
		return nil, err
	}

	cfg := anomaly.DefaultConfig()
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	outliers, err := anomaly.Screen(readings, method, cfg)
	if err != nil {
		return nil, FromError(err, CodeInvalidArgument)
	}
	return &OutlierReport{
		UserID:        userID,
		Method:        method,
		ReadingsCount: len(readings),
		Outliers:      outliers,
	}, nil
}

// Report runs every analysis over one query of the window. A missing
// profile only fails the age-dependent sections.
func (s *AnalyticsService) Report(ctx context.Context, userID string, w Window) (*Report, error) {
	readings, err := s.load(ctx, userID, w)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrProfileNotFound) {
		return nil, &ServiceError{Code: CodeQueryFailed, Message: "Failed to load profile", Err: err}
	}

	start := time.Now()
	report := BuildReport(s.analyzer, userID, profile, readings, w)
	s.notify(ctx, userID, report.Abnormalities)

	s.logger.Info("Report built",
		"user_id", userID,
		"readings", len(readings),
		"failed_sections", len(report.Errors),
		"latency_ms", time.Since(start).Milliseconds())
	return report, nil
}

func (s *AnalyticsService) notify(ctx context.Context, userID string, d *heartrate.AbnormalHeartRateDetection) {
	if _, err := s.alerts.Notify(ctx, userID, d); err != nil {
		s.logger.Error("Failed to publish alert", "user_id", userID, "error", err)
	}
}

func (s *AnalyticsService) profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil, NewServiceError(CodeProfileNotFound, "profile not found for user "+userID)
		}
		return nil, &ServiceError{Code: CodeQueryFailed, Message: "Failed to load profile", Err: err}
	}
	return p, nil
}

func (s *AnalyticsService) load(ctx context.Context, userID string, w Window) ([]models.VitalReading, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	readings, err := s.readings.QueryReadings(ctx, userID, w.Start, w.End)
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
