package anomaly

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/sensacare/vitals/internal/models"
)

var baseTime = time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)

func readingsOf(values ...int) []models.VitalReading {
	out := make([]models.VitalReading, len(values))
	for i, v := range values {
		out[i] = models.VitalReading{
			ID:        fmt.Sprintf("r%d", i),
			UserID:    "u1",
			Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
			Value:     v,
		}
	}
	return out
}

func floats(values ...int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func testConfig(threshold float64) Config {
	cfg := DefaultConfig()
	cfg.MinReadings = 5
	cfg.Threshold = threshold
	return cfg
}

func TestMethods(t *testing.T) {
	got := Methods()
	want := []string{MethodAuto, MethodIQR, MethodMovingAverage, MethodZScore}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Methods()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := Get("prophet"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestZScoreDetector_Spike(t *testing.T) {
	values := floats(70, 70, 70, 70, 70, 70, 180, 70, 70, 70)
	results := (&ZScoreDetector{}).Detect(values, testConfig(2))

	if len(results) != 1 {
		t.Fatalf("expected one outlier, got %d", len(results))
	}
	if results[0].Index != 6 || results[0].Kind != KindSpike {
		t.Errorf("expected spike at 6, got %+v", results[0])
	}
	if results[0].Expected == nil || results[0].Expected.Max >= 180 {
		t.Errorf("expected range below the spike, got %+v", results[0].Expected)
	}
}

func TestZScoreDetector_Drop(t *testing.T) {
	values := floats(80, 80, 80, 80, 80, 80, 25, 80, 80, 80)
	results := (&ZScoreDetector{}).Detect(values, testConfig(2))

	if len(results) != 1 || results[0].Index != 6 || results[0].Kind != KindDrop {
		t.Fatalf("expected drop at 6, got %+v", results)
	}
}

func TestZScoreDetector_Flatline(t *testing.T) {
	values := floats(72, 72, 72, 72, 72, 72)
	results := (&ZScoreDetector{}).Detect(values, testConfig(3))

	if len(results) != len(values) {
		t.Fatalf("expected every reading flagged, got %d", len(results))
	}
	for _, r := range results {
		if r.Kind != KindFlatline {
			t.Errorf("expected flatline, got %s", r.Kind)
		}
	}
}

func TestDetectors_TooFewReadings(t *testing.T) {
	values := floats(70, 200, 70)
	cfg := DefaultConfig()
	for _, name := range Methods() {
		d, err := Get(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := d.Detect(values, cfg); len(got) != 0 {
			t.Errorf("%s: expected nothing below MinReadings, got %d", name, len(got))
		}
		if got := d.Detect(nil, Config{}); len(got) != 0 {
			t.Errorf("%s: expected nothing for empty input, got %d", name, len(got))
		}
	}
}

func TestIQRDetector(t *testing.T) {
	values := floats(60, 62, 64, 66, 68, 70, 72, 74, 76, 190)
	results := (&IQRDetector{}).Detect(values, testConfig(3))

	if len(results) != 1 {
		t.Fatalf("expected one outlier, got %+v", results)
	}
	if results[0].Index != 9 || results[0].Kind != KindSpike {
		t.Errorf("expected spike at 9, got %+v", results[0])
	}
	if results[0].Score <= 0 {
		t.Errorf("expected positive score, got %v", results[0].Score)
	}
}

func TestQuartiles(t *testing.T) {
	q1, q3, iqr := Quartiles(floats(1, 2, 3, 4, 5))
	if q1 != 2 || q3 != 4 || iqr != 2 {
		t.Errorf("got q1=%v q3=%v iqr=%v", q1, q3, iqr)
	}

	q1, q3, iqr = Quartiles(nil)
	if q1 != 0 || q3 != 0 || iqr != 0 {
		t.Errorf("expected zeros for empty input")
	}
}

func TestMovingAverageDetector_IgnoresSteadyClimb(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 70 + float64(i)*2
	}
	values[25] = 40

	results := (&MovingAverageDetector{}).Detect(values, testConfig(3))
	if len(results) == 0 {
		t.Fatal("expected the dip to be flagged")
	}

	found := false
	for _, r := range results {
		if r.Index == 25 {
			found = true
			if r.Kind != KindDrop {
				t.Errorf("expected drop, got %s", r.Kind)
			}
		}
	}
	if !found {
		t.Errorf("expected index 25 among %+v", results)
	}
}

func TestCharacterize(t *testing.T) {
	trend := make([]float64, 50)
	for i := range trend {
		trend[i] = 60 + float64(i)
	}
	if c := Characterize(trend); c.Method != MethodMovingAverage || c.TrendStrength < 0.9 {
		t.Errorf("trending window: got %+v", c)
	}

	noisy := make([]float64, 40)
	for i := range noisy {
		noisy[i] = 70 + 5*math.Sin(float64(i))
	}
	for _, i := range []int{3, 11, 19, 27} {
		noisy[i] = 190
	}
	if c := Characterize(noisy); c.Method != MethodIQR || c.OutlierPercent <= 5 {
		t.Errorf("noisy window: got %+v", c)
	}

	if c := Characterize(floats(70, 71)); c.Method != MethodIQR {
		t.Errorf("tiny window should fall back to iqr, got %s", c.Method)
	}
}

func TestScreen(t *testing.T) {
	readings := readingsOf(70, 71, 69, 70, 72, 70, 71, 175, 70, 69, 71, 70)
	cfg := DefaultConfig()
	cfg.MinReadings = 10

	outliers, err := Screen(readings, MethodIQR, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outliers) != 1 {
		t.Fatalf("expected one outlier, got %+v", outliers)
	}
	o := outliers[0]
	if o.ReadingID != "r7" || o.Value != 175 || o.Method != MethodIQR {
		t.Errorf("unexpected outlier %+v", o)
	}
	if !o.Timestamp.Equal(baseTime.Add(7 * time.Minute)) {
		t.Errorf("unexpected timestamp %v", o.Timestamp)
	}
}

func TestScreen_AutoReportsSelectedMethod(t *testing.T) {
	readings := readingsOf(70, 71, 69, 70, 72, 70, 71, 175, 70, 69, 71, 70)

	outliers, err := Screen(readings, "", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Characterize(floats(70, 71, 69, 70, 72, 70, 71, 175, 70, 69, 71, 70)).Method
	for _, o := range outliers {
		if o.Method != want {
			t.Errorf("expected method %s, got %s", want, o.Method)
		}
	}
	if len(outliers) == 0 {
		t.Error("expected the 175 reading to be flagged")
	}
}

func TestScreen_UnknownMethod(t *testing.T) {
	if _, err := Screen(readingsOf(70), "holt_winters", DefaultConfig()); err == nil {
		t.Error("expected error")
	}
}
