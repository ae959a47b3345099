package heartrate

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/sensacare/vitals/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeHRVInsufficientData(t *testing.T) {
	_, err := AnalyzeHRV(nil, baseTime, baseTime)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	noHRV := []models.VitalReading{at(0, 60), at(minutes(1), 61)}
	_, err = AnalyzeHRV(noHRV, baseTime, baseTime)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestAnalyzeHRVMetrics(t *testing.T) {
	readings := []models.VitalReading{
		withHRV(at(0, 60), 40),
		withHRV(at(minutes(2), 62), 50),
		withHRV(at(minutes(4), 64), 60),
		at(minutes(6), 66),
	}
	start, end := baseTime, baseTime.Add(time.Hour)

	got, err := AnalyzeHRV(readings, start, end)
	require.NoError(t, err)

	assert.Equal(t, 3, got.SampleCount)
	assert.Equal(t, 2, got.PairCount)
	assert.InDelta(t, 50, got.MeanNN, 1e-9)
	assert.InDelta(t, math.Sqrt(200.0/3.0), got.SDNN, 1e-9)
	assert.InDelta(t, 10, got.RMSSD, 1e-9)
	assert.Equal(t, 0.0, got.PNN50)
	assert.Equal(t, map[string]float64{"2024-05-20": 50}, got.DailyAverages)
	// rmssd band 2, sdnn band 1
	assert.Equal(t, 1, got.HRVScore)
	assert.Equal(t, start, got.StartDate)
	assert.Equal(t, end, got.EndDate)
}

func TestAnalyzeHRVAdjacencyWindow(t *testing.T) {
	t.Run("gap over five minutes excludes the pair", func(t *testing.T) {
		readings := []models.VitalReading{
			withHRV(at(0, 60), 40),
			withHRV(at(minutes(5)+time.Second, 60), 100),
		}
		got, err := AnalyzeHRV(readings, baseTime, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 0, got.PairCount)
		assert.Equal(t, 0.0, got.RMSSD)
		assert.Equal(t, 0.0, got.PNN50)
		assert.InDelta(t, 30, got.SDNN, 1e-9)
	})

	t.Run("gap of exactly five minutes keeps the pair", func(t *testing.T) {
		readings := []models.VitalReading{
			withHRV(at(0, 60), 40),
			withHRV(at(minutes(5), 60), 100),
		}
		got, err := AnalyzeHRV(readings, baseTime, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 1, got.PairCount)
		assert.InDelta(t, 60, got.RMSSD, 1e-9)
		assert.Equal(t, 100.0, got.PNN50)
	})

	t.Run("inserted late reading breaks only its own pair", func(t *testing.T) {
		base := []models.VitalReading{
			withHRV(at(0, 60), 40),
			withHRV(at(minutes(3), 60), 50),
		}
		before, err := AnalyzeHRV(base, baseTime, baseTime)
		require.NoError(t, err)

		extended := append(append([]models.VitalReading(nil), base...), withHRV(at(minutes(10), 60), 150))
		after, err := AnalyzeHRV(extended, baseTime, baseTime)
		require.NoError(t, err)

		assert.Equal(t, before.PairCount, after.PairCount)
		assert.Equal(t, before.RMSSD, after.RMSSD)
		assert.Equal(t, before.PNN50, after.PNN50)
	})
}

func TestAnalyzeHRVOrderInvariant(t *testing.T) {
	var readings []models.VitalReading
	hrvs := []float64{35, 90, 42, 48, 120, 60, 20, 75, 33, 140}
	for i, v := range hrvs {
		readings = append(readings, withHRV(at(minutes(i*3), 60+i), v))
	}
	// same timestamp, different values
	readings = append(readings, withHRV(at(minutes(9), 70), 10))

	want, err := AnalyzeHRV(readings, baseTime, baseTime)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.VitalReading(nil), readings...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := AnalyzeHRV(shuffled, baseTime, baseTime)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAnalyzeHRVDailyAveragesUseLocation(t *testing.T) {
	tokyo := time.FixedZone("+09:00", 9*3600)
	a := NewAnalyzer(Config{Location: tokyo})

	late := time.Date(2024, 5, 20, 16, 0, 0, 0, time.UTC) // 01:00 on the 21st in Tokyo
	readings := []models.VitalReading{
		{Timestamp: late.Add(-2 * time.Hour), Value: 60, HRVValue: models.FloatPtr(30)},
		{Timestamp: late, Value: 60, HRVValue: models.FloatPtr(50)},
		{Timestamp: late.Add(time.Hour), Value: 60, HRVValue: models.FloatPtr(70)},
	}
	got, err := a.AnalyzeHRV(readings, late, late)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2024-05-20": 30, "2024-05-21": 60}, got.DailyAverages)
}

func TestHRVScore(t *testing.T) {
	tests := []struct {
		rmssd, sdnn float64
		want        int
	}{
		{5, 10, 1},
		{5, 100, 2},
		{25, 45, 3},
		{35, 65, 4},
		{45, 85, 5},
		{40, 80, 5},
		{39.9, 79.9, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hrvScore(tt.rmssd, tt.sdnn), "rmssd=%v sdnn=%v", tt.rmssd, tt.sdnn)
	}
}
