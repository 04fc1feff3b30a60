package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrVersionConflict occurs when an optimistic plan write loses the race.
	ErrVersionConflict = errors.New("version conflict")
	// ErrLockHeld occurs when another refresh owns the plan lock.
	ErrLockHeld = errors.New("plan lock held")
)
