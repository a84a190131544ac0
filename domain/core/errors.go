package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrLogNotFound      = fmt.Errorf("%w: log entry", ErrNotFound)
	ErrCrisisNotFound   = fmt.Errorf("%w: crisis event", ErrNotFound)
	ErrScheduleNotFound = fmt.Errorf("%w: schedule entry", ErrNotFound)
	ErrGoalNotFound     = fmt.Errorf("%w: goal", ErrNotFound)
	ErrProfileNotFound  = fmt.Errorf("%w: child profile", ErrNotFound)

	// Validation errors
	ErrInvalidRecord = errors.New("invalid record")
	ErrOutOfRange    = fmt.Errorf("%w: value out of range", ErrInvalidRecord)
	ErrInvalidConfig = errors.New("invalid analysis configuration")

	// Goal lifecycle errors
	ErrGoalClosed = errors.New("goal no longer accepts progress")

	// Conflict errors
	ErrDuplicateID = errors.New("id already exists")
)

// NewNotFoundError builds a not-found error for a resource id
func NewNotFoundError(base error, id string) error {
	return fmt.Errorf("%w with id %s", base, id)
}

// NewDuplicateError reports that a record kind already holds id
func NewDuplicateError(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrDuplicateID, kind, id)
}

// NewValidationError builds an invalid-record error naming the field
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidRecord, field, reason)
}

// NewRangeError reports a rated value outside its allowed range
func NewRangeError(field string, value, min, max float64) error {
	return fmt.Errorf("%w: %s=%g not in [%g,%g]", ErrOutOfRange, field, value, min, max)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrInvalidConfig)
}
