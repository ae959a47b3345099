package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument covers out-of-range inputs and rejected readings.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientData is returned when a reading set is too small to analyze.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMissingAge is returned when an analysis needs the user's age.
	ErrMissingAge = errors.New("missing age")
	// ErrMissingProfileField is returned when any other profile attribute is required but absent.
	ErrMissingProfileField = errors.New("missing profile field")
	ErrProfileNotFound     = errors.New("profile not found")
)

// FieldError describes one rejected field. It matches ErrInvalidArgument
// under errors.Is.
type FieldError struct {
	Field  string      `json:"field"`
	Value  interface{} `json:"value,omitempty"`
	Reason string      `json:"reason"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidArgument
}
