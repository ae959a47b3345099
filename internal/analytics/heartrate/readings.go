package heartrate

import (
	"sort"

	"github.com/sensacare/vitals/internal/analytics"
	"github.com/sensacare/vitals/internal/models"
)

func sortReadings(readings []models.VitalReading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
}

func bpmValues(readings []models.VitalReading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = float64(r.Value)
	}
	return out
}

// hrvSeries returns the readings carrying an HRV value, sorted by time with
// ties broken by value so the order never depends on the input.
func hrvSeries(readings []models.VitalReading) analytics.TimeSeriesData {
	series := make(analytics.TimeSeriesData, 0, len(readings))
	for _, r := range readings {
		if r.HRVValue != nil {
			series = append(series, analytics.TimeSeriesPoint{Time: r.Timestamp, Value: *r.HRVValue})
		}
	}
	sort.Slice(series, func(i, j int) bool {
		if !series[i].Time.Equal(series[j].Time) {
			return series[i].Time.Before(series[j].Time)
		}
		return series[i].Value < series[j].Value
	})
	return series
}

// groupByDate buckets readings by calendar day, keeping input order
// within each day.
func (a *Analyzer) groupByDate(readings []models.VitalReading) map[string][]models.VitalReading {
	days := make(map[string][]models.VitalReading)
	for _, r := range readings {
		key := a.dateKey(r.Timestamp)
		days[key] = append(days[key], r)
	}
	return days
}

// orderedValues returns the map values ordered by ascending date key.
func orderedValues(byDate map[string]float64) []float64 {
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = byDate[k]
	}
	return out
}
