package models

import "time"

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Storage   string `json:"storage,omitempty"`
}

// WriteReadingsResponse reports a batch write with partial success.
type WriteReadingsResponse struct {
	Accepted  int              `json:"accepted"`
	Stored    int              `json:"stored"`
	Rejected  int              `json:"rejected"`
	Errors    []BatchItemError `json:"errors,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// ReadingsResponse is a reading window query result.
type ReadingsResponse struct {
	UserID    string         `json:"user_id"`
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Count     int            `json:"count"`
	// Total is the stored count before downsampling.
	Total       int            `json:"total"`
	Downsampled bool           `json:"downsampled,omitempty"`
	Readings    []VitalReading `json:"readings"`
}

// DeleteResponse reports removed readings.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// AlertEvent is published when a detection requires medical attention.
type AlertEvent struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	DetectedAt       time.Time      `json:"detected_at"`
	WindowStart      time.Time      `json:"window_start"`
	WindowEnd        time.Time      `json:"window_end"`
	SeverityScore    int            `json:"severity_score"`
	Categories       map[string]int `json:"categories"`
	AbnormalReadings int            `json:"abnormal_readings"`
	MaxHeartRate     int            `json:"max_heart_rate"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
