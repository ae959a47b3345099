package downsampling

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/sensacare/vitals/internal/models"
)

// Mode selects how a reading series is thinned for display.
type Mode string

const (
	ModeNone Mode = "none"
	// ModeAuto picks an algorithm from the shape of the series.
	ModeAuto Mode = "auto"
	// ModeLTTB is Largest-Triangle-Three-Buckets.
	ModeLTTB Mode = "lttb"
	// ModeMinMax keeps the lowest and highest reading of each bucket.
	ModeMinMax Mode = "minmax"
	// ModeM4 keeps first, min, max and last of each bucket.
	ModeM4 Mode = "m4"
)

// DefaultMaxPoints applies when the caller gives no limit.
const DefaultMaxPoints = 1000

// MinPoints is the smallest limit honoured; M4 needs four per bucket.
const MinPoints = 4

func ValidModes() []Mode {
	return []Mode{ModeNone, ModeAuto, ModeLTTB, ModeMinMax, ModeM4}
}

func IsValid(mode string) bool {
	for _, m := range ValidModes() {
		if string(m) == mode {
			return true
		}
	}
	return false
}

// Readings thins a time-ordered series to at most maxPoints readings.
// Selected readings are returned unchanged and in their original order;
// nothing is synthesized, so IDs stay addressable. Limits below MinPoints are
// raised to it. MinMax and M4 may return fewer points than the limit.
func Readings(readings []models.VitalReading, mode Mode, maxPoints int) ([]models.VitalReading, error) {
	if mode == "" || mode == ModeNone {
		return readings, nil
	}
	if !IsValid(string(mode)) {
		return nil, fmt.Errorf("unknown downsampling mode: %s", mode)
	}
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	maxPoints = max(maxPoints, MinPoints)
	if len(readings) <= maxPoints {
		return readings, nil
	}

	if mode == ModeAuto {
		mode = detectMode(readings)
	}

	var picked []int
	switch mode {
	case ModeLTTB:
		picked = lttb(readings, maxPoints)
	case ModeMinMax:
		picked = minmax(readings, maxPoints)
	case ModeM4:
		picked = m4(readings, maxPoints)
	}

	out := make([]models.VitalReading, len(picked))
	for i, idx := range picked {
		out[i] = readings[idx]
	}
	return out, nil
}

// detectMode prefers peak-preserving algorithms for spiky series, which is
// where arrhythmia episodes would otherwise be smoothed away.
func detectMode(readings []models.VitalReading) Mode {
	s := spikiness(readings)
	switch {
	case s > 0.2:
		return ModeMinMax
	case s > 0.1:
		return ModeM4
	default:
		return ModeLTTB
	}
}

// spikiness is in [0, 1]: the share of readings far from the mean, blended
// with the share of large jumps between neighbours.
func spikiness(readings []models.VitalReading) float64 {
	if len(readings) < 10 {
		return 0
	}

	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = float64(r.Value)
	}
	mean, _ := stats.Mean(values)
	sd, _ := stats.StandardDeviationPopulation(values)
	if sd == 0 {
		return 0
	}

	outliers, jumps := 0, 0
	for i, v := range values {
		if math.Abs(v-mean) > 2*sd {
			outliers++
		}
		if i > 0 && math.Abs(v-values[i-1]) > sd {
			jumps++
		}
	}

	abs := float64(outliers) / float64(len(values))
	deriv := float64(jumps) / float64(len(values)-1)
	return math.Min(1, (abs+1.5*deriv)/2.5)
}

// lttb uses elapsed seconds as the x axis so irregular sampling does not
// distort triangle areas.
func lttb(readings []models.VitalReading, target int) []int {
	n := len(readings)
	if target >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	origin := readings[0].Timestamp
	x := func(i int) float64 { return readings[i].Timestamp.Sub(origin).Seconds() }
	y := func(i int) float64 { return float64(readings[i].Value) }

	picked := make([]int, 0, target)
	picked = append(picked, 0)

	bucket := float64(n-2) / float64(target-2)
	a := 0
	for i := 0; i < target-2; i++ {
		nextStart := int(math.Floor(float64(i+1)*bucket)) + 1
		nextEnd := min(int(math.Floor(float64(i+2)*bucket))+1, n)

		var avgX, avgY float64
		for j := nextStart; j < nextEnd; j++ {
			avgX += x(j)
			avgY += y(j)
		}
		span := float64(nextEnd - nextStart)
		avgX /= span
		avgY /= span

		from := int(math.Floor(float64(i)*bucket)) + 1
		to := int(math.Floor(float64(i+1)*bucket)) + 1

		best, bestArea := from, -1.0
		ax, ay := x(a), y(a)
		for j := from; j < to; j++ {
			area := math.Abs((ax-avgX)*(y(j)-ay)-(ax-x(j))*(avgY-ay)) * 0.5
			if area > bestArea {
				best, bestArea = j, area
			}
		}
		picked = append(picked, best)
		a = best
	}

	return append(picked, n-1)
}

// buckets splits [0, n) into k contiguous half-open ranges.
func buckets(n, k int) [][2]int {
	k = max(k, 1)
	size := float64(n) / float64(k)
	out := make([][2]int, 0, k)
	for i := 0; i < k; i++ {
		start := int(float64(i) * size)
		end := min(int(float64(i+1)*size), n)
		if start < end {
			out = append(out, [2]int{start, end})
		}
	}
	return out
}

func extremes(readings []models.VitalReading, start, end int) (lo, hi int) {
	lo, hi = start, start
	for j := start + 1; j < end; j++ {
		if readings[j].Value < readings[lo].Value {
			lo = j
		}
		if readings[j].Value > readings[hi].Value {
			hi = j
		}
	}
	return lo, hi
}

func minmax(readings []models.VitalReading, maxPoints int) []int {
	picked := make([]int, 0, maxPoints)
	for _, b := range buckets(len(readings), maxPoints/2) {
		lo, hi := extremes(readings, b[0], b[1])
		if lo > hi {
			lo, hi = hi, lo
		}
		picked = append(picked, lo)
		if hi != lo {
			picked = append(picked, hi)
		}
	}
	return picked
}

func m4(readings []models.VitalReading, maxPoints int) []int {
	picked := make([]int, 0, maxPoints)
	for _, b := range buckets(len(readings), maxPoints/4) {
		first, last := b[0], b[1]-1
		lo, hi := extremes(readings, b[0], b[1])
		if lo > hi {
			lo, hi = hi, lo
		}
		// Bucket indices are ascending, so skipping repeats keeps time order.
		prev := -1
		for _, idx := range [4]int{first, lo, hi, last} {
			if idx > prev {
				picked = append(picked, idx)
				prev = idx
			}
		}
	}
	return picked
}
