package lua

import "errors"

// Lua state errors.
var (
	// ErrStateClosed indicates an operation on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrFunctionNotFound indicates the named global does not exist.
	ErrFunctionNotFound = errors.New("lua function not found")

	// ErrNotAFunction indicates the named global is not callable.
	ErrNotAFunction = errors.New("lua global is not a function")
)
