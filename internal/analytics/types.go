// Package analytics provides time-series primitives shared by the
// heart-rate analyzers.
package analytics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// TimeSeriesPoint is a single timestamped value.
type TimeSeriesPoint struct {
	Time  time.Time
	Value float64
}

// TimeSeriesData is an ordered collection of points.
type TimeSeriesData []TimeSeriesPoint

// Values extracts just the values from the time series
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, len(ts))
	for i, p := range ts {
		values[i] = p.Value
	}
	return values
}

// Times extracts just the times from the time series
func (ts TimeSeriesData) Times() []time.Time {
	times := make([]time.Time, len(ts))
	for i, p := range ts {
		times[i] = p.Time
	}
	return times
}

func (ts TimeSeriesData) Len() int {
	return len(ts)
}

// Sorted returns a copy ordered by time. Equal timestamps keep input order.
func (ts TimeSeriesData) Sorted() TimeSeriesData {
	out := make(TimeSeriesData, len(ts))
	copy(out, ts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Mean is 0 for an empty series.
func (ts TimeSeriesData) Mean() float64 {
	return Mean(ts.Values())
}

// StdDev is the population standard deviation, 0 for an empty series.
func (ts TimeSeriesData) StdDev() float64 {
	return PopulationStdDev(ts.Values())
}

// Mean returns the arithmetic mean of values, or 0 when empty.
func Mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// PopulationStdDev returns the population standard deviation, or 0 when empty.
func PopulationStdDev(values []float64) float64 {
	sd, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return 0
	}
	return sd
}
