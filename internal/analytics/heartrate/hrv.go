package heartrate

import (
	"fmt"
	"math"
	"time"

	"github.com/sensacare/vitals/internal/analytics"
	"github.com/sensacare/vitals/internal/models"
)

// pnn50Threshold is the successive difference, in ms, counted by pNN50.
const pnn50Threshold = 50.0

// HRVAnalysis holds time-domain HRV metrics for a window.
type HRVAnalysis struct {
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	SampleCount   int                `json:"sample_count"`
	PairCount     int                `json:"pair_count"`
	MeanNN        float64            `json:"mean_nn"`
	SDNN          float64            `json:"sdnn"`
	RMSSD         float64            `json:"rmssd"`
	PNN50         float64            `json:"pnn50"`
	DailyAverages map[string]float64 `json:"daily_averages"`
	HRVScore      int                `json:"hrv_score"`
}

// AnalyzeHRV computes SDNN, RMSSD and pNN50 over readings that carry an HRV
// value. Only consecutive samples within HRVAdjacencyWindow of each other form
// a successive pair. The result does not depend on input order.
func (a *Analyzer) AnalyzeHRV(readings []models.VitalReading, start, end time.Time) (*HRVAnalysis, error) {
	series := hrvSeries(readings)
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: no readings with an HRV value", models.ErrInsufficientData)
	}

	result := &HRVAnalysis{
		StartDate:     start,
		EndDate:       end,
		SampleCount:   series.Len(),
		MeanNN:        series.Mean(),
		SDNN:          series.StdDev(),
		DailyAverages: a.dailyHRV(series),
	}
	result.RMSSD, result.PNN50, result.PairCount = a.successiveDiffs(series)
	result.HRVScore = hrvScore(result.RMSSD, result.SDNN)
	return result, nil
}

// successiveDiffs returns RMSSD, pNN50 (percent) and the number of pairs used.
func (a *Analyzer) successiveDiffs(sorted analytics.TimeSeriesData) (rmssd, pnn50 float64, pairs int) {
	var sumSq float64
	var over int
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Time.Sub(sorted[i-1].Time) > a.cfg.HRVAdjacencyWindow {
			continue
		}
		diff := sorted[i].Value - sorted[i-1].Value
		sumSq += diff * diff
		if math.Abs(diff) > pnn50Threshold {
			over++
		}
		pairs++
	}
	if pairs == 0 {
		return 0, 0, 0
	}
	return math.Sqrt(sumSq / float64(pairs)), float64(over) / float64(pairs) * 100, pairs
}

func (a *Analyzer) dailyHRV(series analytics.TimeSeriesData) map[string]float64 {
	byDay := make(map[string][]float64)
	for _, p := range series {
		key := a.dateKey(p.Time)
		byDay[key] = append(byDay[key], p.Value)
	}
	out := make(map[string]float64, len(byDay))
	for day, vals := range byDay {
		out[day] = analytics.Mean(vals)
	}
	return out
}

// hrvScore maps RMSSD (10 ms bands) and SDNN (20 ms bands) onto 1-5.
func hrvScore(rmssd, sdnn float64) int {
	rBand := band(rmssd, 10)
	sBand := band(sdnn, 20)
	// floor(r*0.6 + s*0.4)
	return (rBand*6 + sBand*4) / 10
}

// band returns 1 below step, 2 below 2*step, up to 5 at or above 4*step.
func band(v, step float64) int {
	for b := 1; b < 5; b++ {
		if v < float64(b)*step {
			return b
		}
	}
	return 5
}
