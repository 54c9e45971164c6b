package catalog

import "errors"

// Sentinel errors for catalog operations.
var (
	// ErrTimeout indicates a job wait exceeded its deadline. The wrapped
	// message carries the job id and the last observed state.
	ErrTimeout = errors.New("catalog: job wait timed out")

	// ErrValidation indicates the SQL safety guard rejected the input
	// before any network call was attempted.
	ErrValidation = errors.New("catalog: sql rejected")

	// ErrInconsistent indicates a view-replace recovery search could not
	// locate an entity the backend claims exists. Surfaced instead of
	// silently creating a duplicate.
	ErrInconsistent = errors.New("catalog: entity exists but cannot be located")

	// ErrNotFound indicates no catalog entity matched the given path.
	ErrNotFound = errors.New("catalog: entity not found")
)
