// Package anomaly screens heart-rate series for readings that are
// statistically inconsistent with the rest of the window, typically sensor
// artifacts from motion or poor skin contact. It is independent of the
// clinical rules in package heartrate: an outlier is a data-quality signal,
// not a diagnosis.
package anomaly

import (
	"fmt"
	"sort"
	"time"

	"github.com/sensacare/vitals/internal/models"
)

type Kind string

const (
	KindSpike    Kind = "spike"
	KindDrop     Kind = "drop"
	KindFlatline Kind = "flatline" // no variation at all, a stuck sensor
)

// Outlier is a flagged reading.
type Outlier struct {
	ReadingID string    `json:"reading_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     int       `json:"value"`
	Expected  *Range    `json:"expected,omitempty"`
	Score     float64   `json:"score"`
	Kind      Kind      `json:"kind"`
	Method    string    `json:"method"`
}

// Range is the band of values the method considered normal.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Config struct {
	// Threshold is in standard deviations for zscore and moving_avg, and
	// is the fence multiplier for iqr.
	Threshold float64
	// WindowSize is the neighbourhood for moving_avg.
	WindowSize int
	// MinReadings below which nothing is flagged.
	MinReadings int
}

func DefaultConfig() Config {
	return Config{
		Threshold:   3.0,
		WindowSize:  10,
		MinReadings: 10,
	}
}

// Result marks one index of the value slice passed to Detect.
type Result struct {
	Index    int
	Score    float64
	Kind     Kind
	Expected *Range
}

type Detector interface {
	Name() string
	Detect(values []float64, cfg Config) []Result
}

var detectors = make(map[string]Detector)

func Register(d Detector) {
	detectors[d.Name()] = d
}

func Get(name string) (Detector, error) {
	if d, ok := detectors[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown outlier method: %s", name)
}

// Methods lists registered method names in sorted order.
func Methods() []string {
	names := make([]string, 0, len(detectors))
	for name := range detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Screen runs the named method over readings, which must be in time order.
// An empty method means auto.
func Screen(readings []models.VitalReading, method string, cfg Config) ([]Outlier, error) {
	if method == "" {
		method = MethodAuto
	}
	d, err := Get(method)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = float64(r.Value)
	}

	name := d.Name()
	if a, ok := d.(*AutoDetector); ok {
		name = a.Select(values)
	}

	results := d.Detect(values, cfg)
	out := make([]Outlier, 0, len(results))
	for _, res := range results {
		r := readings[res.Index]
		out = append(out, Outlier{
			ReadingID: r.ID,
			Timestamp: r.Timestamp,
			Value:     r.Value,
			Expected:  res.Expected,
			Score:     res.Score,
			Kind:      res.Kind,
			Method:    name,
		})
	}
	return out, nil
}

func direction(value, center float64) Kind {
	if value > center {
		return KindSpike
	}
	return KindDrop
}
