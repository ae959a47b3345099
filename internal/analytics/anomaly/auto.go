package anomaly

import (
	"math"

	"github.com/sensacare/vitals/internal/analytics"
)

const MethodAuto = "auto"

// AutoDetector picks zscore, iqr or moving_avg from the shape of the window.
type AutoDetector struct{}

func init() {
	Register(&AutoDetector{})
}

func (a *AutoDetector) Name() string { return MethodAuto }

func (a *AutoDetector) Detect(values []float64, cfg Config) []Result {
	if len(values) < cfg.MinReadings || len(values) == 0 {
		return nil
	}
	d, err := Get(a.Select(values))
	if err != nil {
		d = &IQRDetector{}
	}
	return d.Detect(values, cfg)
}

// Select returns the method Detect will delegate to.
func (a *AutoDetector) Select(values []float64) string {
	return Characterize(values).Method
}

// Characteristics summarises a window for method selection.
type Characteristics struct {
	Count          int     `json:"count"`
	OutlierPercent float64 `json:"outlier_percent"`
	// TrendStrength is R² signed by slope direction.
	TrendStrength float64 `json:"trend_strength"`
	Normal        bool    `json:"normal"`
	Method        string  `json:"method"`
}

// Characterize applies, in order: many fence outliers picks iqr, a strong
// linear trend picks moving_avg, a roughly normal shape picks zscore, and
// iqr otherwise.
func Characterize(values []float64) Characteristics {
	c := Characteristics{Count: len(values), Method: MethodIQR}
	if len(values) < 3 {
		return c
	}

	q1, q3, iqr := Quartiles(values)
	outliers := 0
	for _, v := range values {
		if v < q1-DefaultFence*iqr || v > q3+DefaultFence*iqr {
			outliers++
		}
	}
	c.OutlierPercent = float64(outliers) / float64(len(values)) * 100
	c.TrendStrength = trendStrength(values)
	c.Normal = roughlyNormal(values)

	switch {
	case c.OutlierPercent > 5:
		c.Method = MethodIQR
	case math.Abs(c.TrendStrength) > 0.3:
		c.Method = MethodMovingAverage
	case c.Normal:
		c.Method = MethodZScore
	}
	return c
}

func trendStrength(values []float64) float64 {
	slope, intercept := analytics.LinearFit(values)
	mean := analytics.Mean(values)

	var ssTotal, ssResidual float64
	for i, v := range values {
		predicted := intercept + slope*float64(i)
		ssTotal += (v - mean) * (v - mean)
		ssResidual += (v - predicted) * (v - predicted)
	}
	if ssTotal == 0 {
		return 0
	}
	r2 := 1 - ssResidual/ssTotal
	if slope < 0 {
		return -r2
	}
	return r2
}

// roughlyNormal checks skewness and excess kurtosis.
func roughlyNormal(values []float64) bool {
	if len(values) < 10 {
		return false
	}
	mean := analytics.Mean(values)
	sd := analytics.PopulationStdDev(values)
	if sd == 0 {
		return false
	}

	var skew, kurt float64
	for _, v := range values {
		z := (v - mean) / sd
		skew += z * z * z
		kurt += z * z * z * z
	}
	n := float64(len(values))
	return math.Abs(skew/n) < 1 && math.Abs(kurt/n-3) < 2
}
