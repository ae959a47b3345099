package anomaly

import (
	"sort"
)

const MethodIQR = "iqr"

// DefaultFence is Tukey's multiplier, used when Threshold looks like a
// z-score rather than a fence.
const DefaultFence = 1.5

// IQRDetector flags readings outside Tukey's fences. It is robust to a
// window that already contains many outliers.
type IQRDetector struct{}

func init() {
	Register(&IQRDetector{})
}

func (d *IQRDetector) Name() string { return MethodIQR }

func (d *IQRDetector) Detect(values []float64, cfg Config) []Result {
	if len(values) < cfg.MinReadings || len(values) == 0 {
		return nil
	}

	q1, q3, iqr := Quartiles(values)
	fence := cfg.Threshold
	if fence <= 0 || fence >= 3 {
		fence = DefaultFence
	}
	lower := q1 - fence*iqr
	upper := q3 + fence*iqr
	expected := &Range{Min: lower, Max: upper}

	var results []Result
	for i, v := range values {
		if v >= lower && v <= upper {
			continue
		}
		score := 1.0
		if iqr > 0 {
			if v < lower {
				score = (lower - v) / iqr
			} else {
				score = (v - upper) / iqr
			}
		}
		results = append(results, Result{
			Index:    i,
			Score:    score,
			Kind:     direction(v, upper),
			Expected: expected,
		})
	}
	return results
}

// Quartiles returns Q1, Q3 and their spread using linear interpolation
// between closest ranks.
func Quartiles(values []float64) (q1, q3, iqr float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 = percentile(sorted, 25)
	q3 = percentile(sorted, 75)
	return q1, q3, q3 - q1
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p / 100 * float64(len(sorted)-1)
	lo := int(idx)
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	w := idx - float64(lo)
	return sorted[lo]*(1-w) + sorted[lo+1]*w
}
