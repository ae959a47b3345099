package heartrate

import (
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/sensacare/vitals/internal/analytics"
	"github.com/sensacare/vitals/internal/models"
)

// Fixed bpm edges for time-in-zone accounting: zone n covers
// [statsZoneEdges[n-2], statsZoneEdges[n-1]).
var statsZoneEdges = [4]int{113, 132, 151, 169}

// ZoneMinutes is the time attributed to each zone.
type ZoneMinutes struct {
	Zone1 float64 `json:"zone1"`
	Zone2 float64 `json:"zone2"`
	Zone3 float64 `json:"zone3"`
	Zone4 float64 `json:"zone4"`
	Zone5 float64 `json:"zone5"`
}

// Total is the sum over all zones.
func (z ZoneMinutes) Total() float64 {
	return z.Zone1 + z.Zone2 + z.Zone3 + z.Zone4 + z.Zone5
}

func (z *ZoneMinutes) add(zone int, minutes float64) {
	switch zone {
	case 1:
		z.Zone1 += minutes
	case 2:
		z.Zone2 += minutes
	case 3:
		z.Zone3 += minutes
	case 4:
		z.Zone4 += minutes
	default:
		z.Zone5 += minutes
	}
}

// HeartRateStats are descriptive statistics over a reading set.
// On empty input ReadingsCount is 0 and the optional fields are nil.
type HeartRateStats struct {
	ReadingsCount       int         `json:"readings_count"`
	Min                 int         `json:"min"`
	Max                 int         `json:"max"`
	Average             float64     `json:"average"`
	StdDev              float64     `json:"std_dev"`
	AvgRestingHeartRate *float64    `json:"avg_resting_heart_rate"`
	AvgHRV              *float64    `json:"avg_hrv"`
	TimeInZones         ZoneMinutes `json:"time_in_zones"`
	CardioFitnessScore  *int        `json:"cardio_fitness_score"`
}

// ComputeStats never fails; callers check ReadingsCount.
func (a *Analyzer) ComputeStats(readings []models.VitalReading) HeartRateStats {
	var result HeartRateStats
	if len(readings) == 0 {
		return result
	}

	values := bpmValues(readings)
	minV, _ := stats.Min(values)
	maxV, _ := stats.Max(values)

	result.ReadingsCount = len(readings)
	result.Min = int(minV)
	result.Max = int(maxV)
	result.Average = analytics.Mean(values)
	result.StdDev = analytics.PopulationStdDev(values)

	resting := averageRestingHeartRate(readings, values)
	result.AvgRestingHeartRate = &resting

	var hrv []float64
	for _, r := range readings {
		if r.HRVValue != nil {
			hrv = append(hrv, *r.HRVValue)
		}
	}
	if len(hrv) > 0 {
		avg := analytics.Mean(hrv)
		result.AvgHRV = &avg
	}

	perReading := a.cfg.SampleInterval.Minutes()
	for _, r := range readings {
		result.TimeInZones.add(statsZone(r.Value), perReading)
	}

	score := cardioFitnessScore(resting, result.AvgHRV, result.Max-result.Min)
	result.CardioFitnessScore = &score
	return result
}

// averageRestingHeartRate uses explicit resting readings when present,
// otherwise the mean of the lowest tenth of values (at least one).
func averageRestingHeartRate(readings []models.VitalReading, values []float64) float64 {
	var resting []float64
	for _, r := range readings {
		if r.IsRestingHeartRate {
			resting = append(resting, float64(r.Value))
		}
	}
	if len(resting) > 0 {
		return analytics.Mean(resting)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted) / 10
	if n < 1 {
		n = 1
	}
	return analytics.Mean(sorted[:n])
}

func statsZone(bpm int) int {
	for i, edge := range statsZoneEdges {
		if bpm < edge {
			return i + 1
		}
	}
	return len(statsZoneEdges) + 1
}

// cardioFitnessScore combines resting HR (50%), HRV (30%) and range (20%)
// band scores into a 0-25 score.
func cardioFitnessScore(restingHR float64, avgHRV *float64, hrRange int) int {
	var restScore int
	switch {
	case restingHR < 50:
		restScore = 25
	case restingHR < 60:
		restScore = 20
	case restingHR < 70:
		restScore = 15
	case restingHR < 80:
		restScore = 10
	case restingHR < 90:
		restScore = 5
	}

	var hrvScore int
	if avgHRV != nil {
		switch v := *avgHRV; {
		case v >= 70:
			hrvScore = 25
		case v >= 50:
			hrvScore = 20
		case v >= 30:
			hrvScore = 15
		case v >= 20:
			hrvScore = 10
		case v >= 10:
			hrvScore = 5
		}
	}

	var rangeScore int
	switch {
	case hrRange >= 100:
		rangeScore = 25
	case hrRange >= 80:
		rangeScore = 20
	case hrRange >= 60:
		rangeScore = 15
	case hrRange >= 40:
		rangeScore = 10
	case hrRange >= 20:
		rangeScore = 5
	}

	// floor(rest*0.5 + hrv*0.3 + range*0.2) in integer arithmetic.
	return (restScore*5 + hrvScore*3 + rangeScore*2) / 10
}
