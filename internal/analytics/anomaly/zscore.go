package anomaly

import (
	"math"

	"github.com/sensacare/vitals/internal/analytics"
)

const MethodZScore = "zscore"

// ZScoreDetector flags readings more than Threshold population standard
// deviations from the window mean. A window with no variation is reported
// as a flatline.
type ZScoreDetector struct{}

func init() {
	Register(&ZScoreDetector{})
}

func (z *ZScoreDetector) Name() string { return MethodZScore }

func (z *ZScoreDetector) Detect(values []float64, cfg Config) []Result {
	if len(values) < cfg.MinReadings || len(values) == 0 {
		return nil
	}

	mean := analytics.Mean(values)
	sd := analytics.PopulationStdDev(values)
	if sd == 0 {
		return flatline(values)
	}

	expected := &Range{Min: mean - cfg.Threshold*sd, Max: mean + cfg.Threshold*sd}

	var results []Result
	for i, v := range values {
		score := (v - mean) / sd
		if math.Abs(score) > cfg.Threshold {
			results = append(results, Result{
				Index:    i,
				Score:    math.Abs(score),
				Kind:     direction(v, mean),
				Expected: expected,
			})
		}
	}
	return results
}

func flatline(values []float64) []Result {
	results := make([]Result, len(values))
	for i := range values {
		results[i] = Result{Index: i, Score: 1, Kind: KindFlatline}
	}
	return results
}
