package module

import "errors"

// Module system errors.
var (
	// ErrModuleNotFound indicates the module cannot be located.
	ErrModuleNotFound = errors.New("module not found")

	// ErrNoEntryPoint indicates a module directory with no entry file.
	ErrNoEntryPoint = errors.New("module has no entry point (module.json or init.lua)")

	// ErrNilManifest indicates a nil manifest.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrAlreadyLoaded indicates a load of an already loaded module.
	ErrAlreadyLoaded = errors.New("module is already loaded")

	// ErrNotLoaded indicates use of an unloaded module.
	ErrNotLoaded = errors.New("module is not loaded")

	// Manifest validation errors.
	ErrMissingName      = errors.New("manifest: name is required")
	ErrInvalidName      = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrInvalidVersion   = errors.New("manifest: version must be valid semver")
	ErrInvalidMain      = errors.New("manifest: main must be a .lua file")
	ErrInvalidHookDecl  = errors.New("manifest: invalid hook declaration")
	ErrInvalidFieldDecl = errors.New("manifest: invalid field declaration")
)
