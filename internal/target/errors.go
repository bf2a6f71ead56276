package target

import "errors"

// Sentinel errors for the target table.
var (
	// ErrTargetNotFound is returned when no host function is registered
	// under the requested identifier.
	ErrTargetNotFound = errors.New("target not found")

	// ErrDuplicateFunction is returned when a host function identifier is
	// registered twice.
	ErrDuplicateFunction = errors.New("function already registered")

	// ErrRedirectConflict is returned when a redirection is installed on a
	// target that already has one.
	ErrRedirectConflict = errors.New("target already redirected")

	// ErrEmptyID is returned when an empty identifier is supplied.
	ErrEmptyID = errors.New("empty target identifier")

	// ErrNilFunc is returned when a nil function is registered.
	ErrNilFunc = errors.New("function cannot be nil")

	// ErrNilThunk is returned when a nil thunk is installed.
	ErrNilThunk = errors.New("thunk cannot be nil")
)
