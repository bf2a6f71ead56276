package hook

import "errors"

// Sentinel errors for hook registration and dispatch.
var (
	// ErrNilEntry indicates a nil entry was passed to Register.
	ErrNilEntry = errors.New("nil hook entry")

	// ErrInvalidEntry indicates an entry is missing its module, target,
	// or interceptor function.
	ErrInvalidEntry = errors.New("invalid hook entry")

	// ErrDuplicateEntry indicates an entry with the same module, name,
	// and target is already registered.
	ErrDuplicateEntry = errors.New("duplicate hook entry")

	// ErrHandleNotFound indicates the handle does not refer to a
	// registered entry.
	ErrHandleNotFound = errors.New("hook handle not found")

	// ErrNoContinuation indicates an interceptor called Next on an
	// invocation that has no remaining chain.
	ErrNoContinuation = errors.New("invocation has no continuation")
)
