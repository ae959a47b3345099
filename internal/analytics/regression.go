package analytics

// LinearFit fits y = intercept + slope*x by ordinary least squares, where
// x is the index of each value. Fewer than two values, or a degenerate fit,
// yield a zero slope and the mean as intercept.
func LinearFit(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if len(values) < 2 {
		return 0, Mean(values)
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denominator
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// Slope is the OLS slope of values over their index.
func Slope(values []float64) float64 {
	s, _ := LinearFit(values)
	return s
}
