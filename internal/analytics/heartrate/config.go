// Package heartrate implements heart-rate analytics over reading windows:
// training zones, descriptive statistics, time-domain HRV, trends and
// rule-based abnormality detection.
//
// Every analysis is a pure function of its inputs. An Analyzer only holds
// immutable configuration and is safe for concurrent use.
package heartrate

import (
	"time"

	"github.com/sensacare/vitals/internal/models"
)

// Config holds the windows and thresholds used by the analyzers.
type Config struct {
	// SampleInterval is the time each reading represents in zone minutes.
	SampleInterval time.Duration
	// HRVAdjacencyWindow is the largest gap for which two HRV samples are successive.
	HRVAdjacencyWindow time.Duration

	RecoveryWindow        time.Duration
	RecoveryMinPoints     int
	RecoveryPeakThreshold int

	IrregularWindowSize      int
	IrregularWindowSpan      time.Duration
	IrregularStdDevThreshold float64

	SustainedMinReadings int
	SustainedMinSpan     time.Duration

	SuddenChangeWindow time.Duration
	SuddenChangeDelta  int

	TachycardiaThreshold int
	BradycardiaThreshold int
	// ExerciseMaxFraction of the age-predicted max heart rate above which an
	// ACTIVE reading is flagged.
	ExerciseMaxFraction float64

	// Location buckets readings into calendar days and hours.
	Location *time.Location
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SampleInterval:           5 * time.Minute,
		HRVAdjacencyWindow:       5 * time.Minute,
		RecoveryWindow:           10 * time.Minute,
		RecoveryMinPoints:        3,
		RecoveryPeakThreshold:    100,
		IrregularWindowSize:      5,
		IrregularWindowSpan:      10 * time.Minute,
		IrregularStdDevThreshold: 15,
		SustainedMinReadings:     3,
		SustainedMinSpan:         60 * time.Minute,
		SuddenChangeWindow:       10 * time.Minute,
		SuddenChangeDelta:        30,
		TachycardiaThreshold:     100,
		BradycardiaThreshold:     50,
		ExerciseMaxFraction:      0.9,
		Location:                 time.UTC,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleInterval <= 0 {
		c.SampleInterval = d.SampleInterval
	}
	if c.HRVAdjacencyWindow <= 0 {
		c.HRVAdjacencyWindow = d.HRVAdjacencyWindow
	}
	if c.RecoveryWindow <= 0 {
		c.RecoveryWindow = d.RecoveryWindow
	}
	if c.RecoveryMinPoints <= 0 {
		c.RecoveryMinPoints = d.RecoveryMinPoints
	}
	if c.RecoveryPeakThreshold <= 0 {
		c.RecoveryPeakThreshold = d.RecoveryPeakThreshold
	}
	if c.IrregularWindowSize <= 1 {
		c.IrregularWindowSize = d.IrregularWindowSize
	}
	if c.IrregularWindowSpan <= 0 {
		c.IrregularWindowSpan = d.IrregularWindowSpan
	}
	if c.IrregularStdDevThreshold <= 0 {
		c.IrregularStdDevThreshold = d.IrregularStdDevThreshold
	}
	if c.SustainedMinReadings <= 0 {
		c.SustainedMinReadings = d.SustainedMinReadings
	}
	if c.SustainedMinSpan <= 0 {
		c.SustainedMinSpan = d.SustainedMinSpan
	}
	if c.SuddenChangeWindow <= 0 {
		c.SuddenChangeWindow = d.SuddenChangeWindow
	}
	if c.SuddenChangeDelta <= 0 {
		c.SuddenChangeDelta = d.SuddenChangeDelta
	}
	if c.TachycardiaThreshold <= 0 {
		c.TachycardiaThreshold = d.TachycardiaThreshold
	}
	if c.BradycardiaThreshold <= 0 {
		c.BradycardiaThreshold = d.BradycardiaThreshold
	}
	if c.ExerciseMaxFraction <= 0 {
		c.ExerciseMaxFraction = d.ExerciseMaxFraction
	}
	if c.Location == nil {
		c.Location = d.Location
	}
	return c
}

// Analyzer runs the analyses with a fixed Config.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer returns an Analyzer. Zero fields in cfg take their defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

var defaultAnalyzer = NewAnalyzer(DefaultConfig())

// ComputeStats runs Analyzer.ComputeStats with the default configuration.
func ComputeStats(readings []models.VitalReading) HeartRateStats {
	return defaultAnalyzer.ComputeStats(readings)
}

// AnalyzeHRV runs Analyzer.AnalyzeHRV with the default configuration.
func AnalyzeHRV(readings []models.VitalReading, start, end time.Time) (*HRVAnalysis, error) {
	return defaultAnalyzer.AnalyzeHRV(readings, start, end)
}

// AnalyzeTrends runs Analyzer.AnalyzeTrends with the default configuration.
func AnalyzeTrends(readings []models.VitalReading, start, end time.Time) (*HeartRateTrend, error) {
	return defaultAnalyzer.AnalyzeTrends(readings, start, end)
}

// DetectAbnormalities runs Analyzer.DetectAbnormalities with the default configuration.
func DetectAbnormalities(readings []models.VitalReading, age *int, start, end time.Time) (*AbnormalHeartRateDetection, error) {
	return defaultAnalyzer.DetectAbnormalities(readings, age, start, end)
}

func (a *Analyzer) dateKey(t time.Time) string {
	return t.In(a.cfg.Location).Format("2006-01-02")
}

// sortedByTime returns a copy of readings in timestamp order.
func sortedByTime(readings []models.VitalReading) []models.VitalReading {
	out := make([]models.VitalReading, len(readings))
	copy(out, readings)
	sortReadings(out)
	return out
}
