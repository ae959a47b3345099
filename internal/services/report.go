package services

import (
	"fmt"
	"time"

	"github.com/sensacare/vitals/internal/analytics/heartrate"
	"github.com/sensacare/vitals/internal/models"
)

// Report bundles every analysis for one window. A section that could not be
// computed is nil and its error is listed under the section name.
type Report struct {
	UserID        string                                `json:"user_id"`
	StartTime     time.Time                             `json:"start_time"`
	EndTime       time.Time                             `json:"end_time"`
	ReadingsCount int                                   `json:"readings_count"`
	Zones         *heartrate.HeartRateZones             `json:"zones,omitempty"`
	Stats         *heartrate.HeartRateStats             `json:"stats,omitempty"`
	HRV           *heartrate.HRVAnalysis                `json:"hrv,omitempty"`
	Trends        *heartrate.HeartRateTrend             `json:"trends,omitempty"`
	Abnormalities *heartrate.AbnormalHeartRateDetection `json:"abnormalities,omitempty"`
	Errors        map[string]*ServiceError              `json:"errors,omitempty"`
}

// Report section names
const (
	SectionZones         = "zones"
	SectionStats         = "stats"
	SectionHRV           = "hrv"
	SectionTrends        = "trends"
	SectionAbnormalities = "abnormalities"
)

func (r *Report) fail(section string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]*ServiceError)
	}
	r.Errors[section] = FromError(err, CodeInvalidArgument)
}

// BuildReport runs all analyses over readings. profile may be nil, in which
// case the age-dependent sections report MISSING_AGE.
func BuildReport(a *heartrate.Analyzer, userID string, profile *models.UserProfile, readings []models.VitalReading, w Window) *Report {
	r := &Report{
		UserID:        userID,
		StartTime:     w.Start,
		EndTime:       w.End,
		ReadingsCount: len(readings),
	}

	var age *int
	if profile != nil {
		age = profile.Age
	}

	if zones, err := zonesForProfile(profile, ""); err != nil {
		r.fail(SectionZones, err)
	} else {
		r.Zones = zones
	}

	stats := a.ComputeStats(readings)
	r.Stats = &stats

	if hrv, err := a.AnalyzeHRV(readings, w.Start, w.End); err != nil {
		r.fail(SectionHRV, err)
	} else {
		r.HRV = hrv
	}

	if trends, err := a.AnalyzeTrends(readings, w.Start, w.End); err != nil {
		r.fail(SectionTrends, err)
	} else {
		r.Trends = trends
	}

	if det, err := a.DetectAbnormalities(readings, age, w.Start, w.End); err != nil {
		r.fail(SectionAbnormalities, err)
	} else {
		r.Abnormalities = det
	}
	return r
}

// zonesForProfile picks the formula for method. An empty method means
// Karvonen when the profile has a resting heart rate and standard otherwise.
func zonesForProfile(profile *models.UserProfile, method heartrate.ZoneMethod) (*heartrate.HeartRateZones, error) {
	if profile == nil || profile.Age == nil {
		return nil, fmt.Errorf("%w: zones require the user's age", models.ErrMissingAge)
	}

	if method == "" {
		method = heartrate.MethodStandard
		if profile.RestingHeartRate != nil {
			method = heartrate.MethodKarvonen
		}
	}

	switch method {
	case heartrate.MethodStandard:
		return heartrate.CalculateZones(*profile.Age)
	case heartrate.MethodKarvonen:
		if profile.RestingHeartRate == nil {
			return nil, fmt.Errorf("%w: karvonen zones require resting_heart_rate", models.ErrMissingProfileField)
		}
		return heartrate.CalculateKarvonenZones(*profile.Age, *profile.RestingHeartRate)
	default:
		return nil, fmt.Errorf("%w: unknown zone method %q", models.ErrInvalidArgument, method)
	}
}
