package services

import (
	"fmt"
	"time"

	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/utils"
)

// Window is an inclusive time range of readings to analyze.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow fills a zero end with now and a zero start with end-lookback,
// then checks the range. A non-positive lookback uses utils.DefaultLookback.
func NewWindow(start, end, now time.Time, lookback time.Duration) (Window, error) {
	if lookback <= 0 {
		lookback = utils.DefaultLookback
	}
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = end.Add(-lookback)
	}
	w := Window{Start: start, End: end}
	return w, w.Validate()
}

// Validate rejects inverted or overly wide windows.
func (w Window) Validate() error {
	if w.End.Before(w.Start) {
		return FromError(fmt.Errorf("%w: end_time %s is before start_time %s",
			models.ErrInvalidArgument, w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339)), CodeInvalidArgument)
	}
	if w.End.Sub(w.Start) > utils.MaxQueryWindow {
		return FromError(fmt.Errorf("%w: window exceeds %s",
			models.ErrInvalidArgument, utils.MaxQueryWindow), CodeInvalidArgument)
	}
	return nil
}
