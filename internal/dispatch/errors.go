package dispatch

import "errors"

// Sentinel errors for redirection management.
var (
	// ErrInstallConflict indicates the target's redirection slot is
	// already occupied by something other than this controller.
	ErrInstallConflict = errors.New("redirection slot already occupied")

	// ErrIncompatibleSignature indicates a hook's declared signature does
	// not match the target's. Checked at registration, never at call
	// time.
	ErrIncompatibleSignature = errors.New("incompatible hook signature")
)
