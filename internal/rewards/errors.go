package rewards

import "errors"

var (
	// ErrInvalidInput is returned for negative amounts and malformed periods.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned for unknown members and missing or uncalculated periods.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSchedule marks a bracket table that is not contiguous and monotonic.
	ErrInvalidSchedule = errors.New("invalid reward schedule")
)
