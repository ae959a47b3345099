// Package services holds the business logic between the HTTP handlers, the
// ingest worker and the repositories.
package services

import (
	"errors"

	"github.com/sensacare/vitals/internal/models"
)

// Service error codes
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeInsufficientData    = "INSUFFICIENT_DATA"
	CodeMissingAge          = "MISSING_AGE"
	CodeMissingProfileField = "MISSING_PROFILE_FIELD"
	CodeProfileNotFound     = "PROFILE_NOT_FOUND"
	CodeQueryFailed         = "QUERY_FAILED"
	CodeStorageFailed       = "STORAGE_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromError classifies err by its models sentinel. Errors that match none
// get fallbackCode. A *ServiceError is returned unchanged.
func FromError(err error, fallbackCode string) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	code := fallbackCode
	switch {
	case errors.Is(err, models.ErrMissingAge):
		code = CodeMissingAge
	case errors.Is(err, models.ErrMissingProfileField):
		code = CodeMissingProfileField
	case errors.Is(err, models.ErrProfileNotFound):
		code = CodeProfileNotFound
	case errors.Is(err, models.ErrInsufficientData):
		code = CodeInsufficientData
	case errors.Is(err, models.ErrInvalidArgument):
		code = CodeInvalidArgument
	}

	out := &ServiceError{Code: code, Message: err.Error(), Err: err}
	var fe *models.FieldError
	if errors.As(err, &fe) {
		out.Details = map[string]interface{}{"field": fe.Field, "reason": fe.Reason}
		if fe.Value != nil {
			out.Details["value"] = fe.Value
		}
	}
	return out
}

// IsCode reports whether err is a ServiceError with the given code.
func IsCode(err error, code string) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == code
}
