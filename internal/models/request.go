package models

// WriteReadingsRequest is the body of POST /v1/users/:user_id/readings.
type WriteReadingsRequest struct {
	Readings []VitalReading `json:"readings"`
}

// ProfileRequest is the body of PUT /v1/users/:user_id/profile.
type ProfileRequest struct {
	Age              *int `json:"age"`
	RestingHeartRate *int `json:"resting_heart_rate,omitempty"`
}

// ReadingBatchMessage is the queue payload published by device gateways.
type ReadingBatchMessage struct {
	UserID   string         `json:"user_id"`
	DeviceID string         `json:"device_id,omitempty"`
	Readings []VitalReading `json:"readings"`
}
