package heartrate

import (
	"fmt"
	"time"

	"github.com/sensacare/vitals/internal/analytics"
	"github.com/sensacare/vitals/internal/models"
)

// HeartRateTrend summarizes how heart rate evolves over a window.
// Day keys are YYYY-MM-DD in the analyzer's location.
type HeartRateTrend struct {
	StartDate                    time.Time          `json:"start_date"`
	EndDate                      time.Time          `json:"end_date"`
	RestingHeartRateTrend        map[string]float64 `json:"resting_heart_rate_trend"`
	DailyAverageHeartRateTrend   map[string]float64 `json:"daily_average_heart_rate_trend"`
	RecoveryTrend                map[string]float64 `json:"recovery_trend"`
	CircadianRhythm              map[int]float64    `json:"circadian_rhythm"`
	RestingHeartRateSlope        float64            `json:"resting_heart_rate_slope"`
	RecoverySlope                float64            `json:"recovery_slope"`
	IsRestingHeartRateDecreasing bool               `json:"is_resting_heart_rate_decreasing"`
	RecoveryImproving            bool               `json:"recovery_improving"`
}

// AnalyzeTrends fails with ErrInsufficientData on an empty reading set.
func (a *Analyzer) AnalyzeTrends(readings []models.VitalReading, start, end time.Time) (*HeartRateTrend, error) {
	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: no readings in window", models.ErrInsufficientData)
	}

	days := a.groupByDate(sortedByTime(readings))
	trend := &HeartRateTrend{
		StartDate:                  start,
		EndDate:                    end,
		RestingHeartRateTrend:      make(map[string]float64),
		DailyAverageHeartRateTrend: make(map[string]float64, len(days)),
		RecoveryTrend:              make(map[string]float64),
		CircadianRhythm:            a.circadianRhythm(readings),
	}

	for day, dayReadings := range days {
		trend.DailyAverageHeartRateTrend[day] = analytics.Mean(bpmValues(dayReadings))

		var resting []float64
		for _, r := range dayReadings {
			if r.IsRestingHeartRate {
				resting = append(resting, float64(r.Value))
			}
		}
		if len(resting) > 0 {
			trend.RestingHeartRateTrend[day] = analytics.Mean(resting)
		}

		if rates := a.recoveryRates(dayReadings); len(rates) > 0 {
			trend.RecoveryTrend[day] = analytics.Mean(rates)
		}
	}

	trend.RestingHeartRateSlope = analytics.Slope(orderedValues(trend.RestingHeartRateTrend))
	trend.RecoverySlope = analytics.Slope(orderedValues(trend.RecoveryTrend))
	trend.IsRestingHeartRateDecreasing = trend.RestingHeartRateSlope < 0
	trend.RecoveryImproving = trend.RecoverySlope > 0
	return trend, nil
}

// recoveryRates finds local peaks at or above RecoveryPeakThreshold in a
// time-ordered day and returns the bpm/minute decline over the readings that
// follow each peak within RecoveryWindow.
func (a *Analyzer) recoveryRates(day []models.VitalReading) []float64 {
	var rates []float64
	for i := 1; i+1 < len(day); i++ {
		peak := day[i]
		if peak.Value < a.cfg.RecoveryPeakThreshold ||
			peak.Value <= day[i-1].Value || peak.Value <= day[i+1].Value {
			continue
		}

		last := i
		for j := i + 1; j < len(day) && day[j].Timestamp.Sub(peak.Timestamp) <= a.cfg.RecoveryWindow; j++ {
			last = j
		}
		if last-i+1 < a.cfg.RecoveryMinPoints {
			continue
		}
		elapsed := day[last].Timestamp.Sub(peak.Timestamp).Minutes()
		if elapsed <= 0 {
			continue
		}
		rates = append(rates, float64(peak.Value-day[last].Value)/elapsed)
	}
	return rates
}

func (a *Analyzer) circadianRhythm(readings []models.VitalReading) map[int]float64 {
	byHour := make(map[int][]float64)
	for _, r := range readings {
		h := r.Timestamp.In(a.cfg.Location).Hour()
		byHour[h] = append(byHour[h], float64(r.Value))
	}
	out := make(map[int]float64, len(byHour))
	for h, vals := range byHour {
		out[h] = analytics.Mean(vals)
	}
	return out
}
