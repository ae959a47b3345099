package heartrate

import (
	"fmt"
	"time"

	"github.com/sensacare/vitals/internal/models"
)

var baseTime = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

// at builds a reading offset from baseTime.
func at(offset time.Duration, bpm int) models.VitalReading {
	ts := baseTime.Add(offset)
	return models.VitalReading{
		ID:        fmt.Sprintf("r-%d", ts.Unix()),
		UserID:    "user-1",
		Timestamp: ts,
		Value:     bpm,
	}
}

func withHRV(r models.VitalReading, hrv float64) models.VitalReading {
	r.HRVValue = models.FloatPtr(hrv)
	return r
}

func resting(r models.VitalReading) models.VitalReading {
	r.IsRestingHeartRate = true
	return r
}

func withActivity(r models.VitalReading, level models.ActivityLevel) models.VitalReading {
	r.ActivityLevel = level
	return r
}

// series builds n readings of bpm every step starting at baseTime.
func series(n int, step time.Duration, bpm int) []models.VitalReading {
	out := make([]models.VitalReading, n)
	for i := range out {
		out[i] = at(time.Duration(i)*step, bpm)
	}
	return out
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
