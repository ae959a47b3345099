package anomaly

import (
	"math"

	"github.com/sensacare/vitals/internal/analytics"
)

const MethodMovingAverage = "moving_avg"

// MovingAverageDetector compares each reading with its neighbours, so a
// steady climb during exercise is not flagged while an isolated jump is.
type MovingAverageDetector struct{}

func init() {
	Register(&MovingAverageDetector{})
}

func (d *MovingAverageDetector) Name() string { return MethodMovingAverage }

func (d *MovingAverageDetector) Detect(values []float64, cfg Config) []Result {
	n := len(values)
	if n < cfg.MinReadings || n == 0 {
		return nil
	}

	window := cfg.WindowSize
	if window <= 0 {
		window = DefaultConfig().WindowSize
	}
	if window > n {
		window = n / 2
	}
	window = max(window, 3)

	var results []Result
	neighbours := make([]float64, 0, window+1)
	for i, v := range values {
		start := max(i-window/2, 0)
		end := min(i+window/2, n-1)

		neighbours = neighbours[:0]
		for j := start; j <= end; j++ {
			if j != i {
				neighbours = append(neighbours, values[j])
			}
		}
		if len(neighbours) == 0 {
			continue
		}

		mean := analytics.Mean(neighbours)
		sd := analytics.PopulationStdDev(neighbours)

		var deviation float64
		switch {
		case sd > 0:
			deviation = math.Abs(v-mean) / sd
		case v != mean:
			// Flat neighbourhood: any difference stands out.
			deviation = cfg.Threshold + 1
		}
		if deviation <= cfg.Threshold {
			continue
		}

		results = append(results, Result{
			Index: i,
			Score: deviation,
			Kind:  direction(v, mean),
			Expected: &Range{
				Min: mean - cfg.Threshold*sd,
				Max: mean + cfg.Threshold*sd,
			},
		})
	}
	return results
}
