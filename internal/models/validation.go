package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Accepted ranges for reading fields, inclusive.
const (
	MinHeartRate        = 20
	MaxHeartRate        = 250
	MinRestingHeartRate = 30
	MaxRestingHeartRate = 120
	MinHRV              = 0.0
	MaxHRV              = 200.0

	MinAge = 1
	MaxAge = 120

	// DefaultRecencyWindow is how far back a reading may be timestamped
	// and still be accepted for writing.
	DefaultRecencyWindow = 30 * 24 * time.Hour
)

// ValidateReading checks r against the write boundary rules relative to now.
// A non-positive recency uses DefaultRecencyWindow.
func ValidateReading(r VitalReading, now time.Time, recency time.Duration) error {
	if recency <= 0 {
		recency = DefaultRecencyWindow
	}
	if r.Value < MinHeartRate || r.Value > MaxHeartRate {
		return &FieldError{Field: "value", Value: r.Value, Reason: fmt.Sprintf("must be between %d and %d", MinHeartRate, MaxHeartRate)}
	}
	if r.RestingHeartRate != nil {
		if v := *r.RestingHeartRate; v < MinRestingHeartRate || v > MaxRestingHeartRate {
			return &FieldError{Field: "resting_heart_rate", Value: v, Reason: fmt.Sprintf("must be between %d and %d", MinRestingHeartRate, MaxRestingHeartRate)}
		}
	}
	if r.HRVValue != nil {
		if v := *r.HRVValue; math.IsNaN(v) || v < MinHRV || v > MaxHRV {
			return &FieldError{Field: "hrv_value", Value: v, Reason: fmt.Sprintf("must be between %g and %g", MinHRV, MaxHRV)}
		}
	}
	if !r.ActivityLevel.Valid() {
		return &FieldError{Field: "activity_level", Value: r.ActivityLevel, Reason: "unknown activity level"}
	}
	switch {
	case r.Timestamp.IsZero():
		return &FieldError{Field: "timestamp", Reason: "is required"}
	case r.Timestamp.After(now):
		return &FieldError{Field: "timestamp", Value: r.Timestamp.Format(time.RFC3339), Reason: "is in the future"}
	case r.Timestamp.Before(now.Add(-recency)):
		return &FieldError{Field: "timestamp", Value: r.Timestamp.Format(time.RFC3339), Reason: fmt.Sprintf("is older than %s", recency)}
	}
	return nil
}

// ValidateAge checks an age used by the zone and abnormality calculations.
func ValidateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return &FieldError{Field: "age", Value: age, Reason: fmt.Sprintf("must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

// ValidateRestingHeartRate checks a resting heart rate profile value.
func ValidateRestingHeartRate(rhr int) error {
	if rhr < MinRestingHeartRate || rhr > MaxRestingHeartRate {
		return &FieldError{Field: "resting_heart_rate", Value: rhr, Reason: fmt.Sprintf("must be between %d and %d", MinRestingHeartRate, MaxRestingHeartRate)}
	}
	return nil
}

// BatchItemError is a rejected batch entry.
type BatchItemError struct {
	Index     int    `json:"index"`
	ReadingID string `json:"reading_id,omitempty"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

// BatchResult splits a batch into accepted readings and per-item rejections.
type BatchResult struct {
	Accepted []VitalReading   `json:"-"`
	Rejected []BatchItemError `json:"rejected,omitempty"`
}

// AllRejected reports whether the batch was non-empty and nothing was accepted.
func (b *BatchResult) AllRejected() bool {
	return len(b.Accepted) == 0 && len(b.Rejected) > 0
}

// Reject records a failure for the item at index.
func (b *BatchResult) Reject(index int, id string, err error) {
	b.Rejected = append(b.Rejected, BatchItemError{Index: index, ReadingID: id, Err: err, Message: err.Error()})
}

var errDuplicateID = errors.New("duplicate reading id in batch")

// ValidateBatch validates each reading independently. Invalid items are
// reported and never stop the remaining items from being checked.
func ValidateBatch(readings []VitalReading, now time.Time, recency time.Duration) BatchResult {
	result := BatchResult{Accepted: make([]VitalReading, 0, len(readings))}
	seen := make(map[string]struct{}, len(readings))

	for i, r := range readings {
		if err := ValidateReading(r, now, recency); err != nil {
			result.Reject(i, r.ID, err)
			continue
		}
		if r.ID != "" {
			if _, dup := seen[r.ID]; dup {
				result.Reject(i, r.ID, fmt.Errorf("%w: %w", ErrInvalidArgument, errDuplicateID))
				continue
			}
			seen[r.ID] = struct{}{}
		}
		result.Accepted = append(result.Accepted, r)
	}
	return result
}
