package models

import (
	"context"
	"time"
)

// ActivityLevel is the activity context reported with a reading.
// The zero value means the device did not report one.
type ActivityLevel string

const (
	ActivityUnknown   ActivityLevel = ""
	ActivityRest      ActivityLevel = "REST"
	ActivitySedentary ActivityLevel = "SEDENTARY"
	ActivityLight     ActivityLevel = "LIGHT"
	ActivityModerate  ActivityLevel = "MODERATE"
	ActivityActive    ActivityLevel = "ACTIVE"
)

// Valid reports whether a is a known activity level (including unknown).
func (a ActivityLevel) Valid() bool {
	switch a {
	case ActivityUnknown, ActivityRest, ActivitySedentary, ActivityLight, ActivityModerate, ActivityActive:
		return true
	}
	return false
}

// AtRest reports whether a counts as a non-active context for the resting
// thresholds: unknown, REST or SEDENTARY.
func (a ActivityLevel) AtRest() bool {
	return a == ActivityUnknown || a == ActivityRest || a == ActivitySedentary
}

// VitalReading is a single heart-rate sample from a wearable.
type VitalReading struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	Timestamp          time.Time     `json:"timestamp"`
	Value              int           `json:"value"`
	RestingHeartRate   *int          `json:"resting_heart_rate,omitempty"`
	HRVValue           *float64      `json:"hrv_value,omitempty"`
	ActivityLevel      ActivityLevel `json:"activity_level,omitempty"`
	IsRestingHeartRate bool          `json:"is_resting_heart_rate"`
}

// UserProfile holds the user attributes the analyzers need.
type UserProfile struct {
	UserID           string    `json:"user_id"`
	Age              *int      `json:"age,omitempty"`
	RestingHeartRate *int      `json:"resting_heart_rate,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DeviceDataSource is a wearable that can be drained of buffered readings.
// Implementations wrap a vendor SDK; nothing in the analytics packages uses it.
type DeviceDataSource interface {
	DeviceID() string
	FetchReadings(ctx context.Context, since time.Time) ([]VitalReading, error)
}

// IntPtr and FloatPtr build optional fields in literals.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
