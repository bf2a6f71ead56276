package extstate

import "errors"

// Sentinel errors for extension state management.
var (
	// ErrEmptyModule indicates a type registration with no module id.
	ErrEmptyModule = errors.New("empty module id")

	// ErrNilConstructor indicates a type registration without a New
	// function.
	ErrNilConstructor = errors.New("nil state constructor")

	// ErrDuplicateType indicates the module already registered a type.
	ErrDuplicateType = errors.New("extension type already registered")

	// ErrTypeNotRegistered indicates the module has no registered type.
	ErrTypeNotRegistered = errors.New("extension type not registered")

	// ErrInstanceDestroyed indicates state was requested for an instance
	// after its destruction.
	ErrInstanceDestroyed = errors.New("instance destroyed")
)
