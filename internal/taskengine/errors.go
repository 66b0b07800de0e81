package taskengine

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrPhotoRequired     = errors.New("photo required")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRecurrence = errors.New("invalid recurrence field")
	ErrInvalidTask       = errors.New("invalid task")
	ErrTooManyPhotos     = errors.New("too many photos")

	// ErrForeignPhoto is an invalid task input: the photo lies outside the task's proof directory.
	ErrForeignPhoto = fmt.Errorf("%w: photo outside the task's proof directory", ErrInvalidTask)
)

// RecurrenceError names the recurrence field that failed validation.
type RecurrenceError struct {
	Field string
	Value int
}

func (e *RecurrenceError) Error() string {
	return fmt.Sprintf("%s: %s=%d", ErrInvalidRecurrence, e.Field, e.Value)
}

func (e *RecurrenceError) Unwrap() error {
	return ErrInvalidRecurrence
}
