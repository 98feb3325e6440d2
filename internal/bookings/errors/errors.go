package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusConflict means the booking was no longer in the expected
	// status when a conditional update ran.
	ErrStatusConflict = errors.New("booking status changed concurrently")

	ErrLockHeld = errors.New("listing lock is held by another request")
)
