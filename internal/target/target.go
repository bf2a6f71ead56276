package target

import (
	"strings"
	"sync"
)

// Func is the uniform call shape for host functions and their redirections.
// Arguments are positional; the error return is part of the host function's
// own contract and is propagated untouched through any redirection.
type Func func(args []any) (any, error)

// Signature describes a host function's argument and result shape.
// Two registrations are compatible only if their signatures are equal.
type Signature struct {
	// Params are the declared parameter type names, in order.
	Params []string

	// Result is the declared result type name ("" for none).
	Result string
}

// String returns a compact descriptor such as "(int,string)->bool".
func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(strings.Join(s.Params, ","))
	b.WriteByte(')')
	if s.Result != "" {
		b.WriteString("->")
		b.WriteString(s.Result)
	}
	return b.String()
}

// Equal reports whether two signatures describe the same shape.
func (s Signature) Equal(other Signature) bool {
	if s.Result != other.Result || len(s.Params) != len(other.Params) {
		return false
	}
	for i, p := range s.Params {
		if p != other.Params[i] {
			return false
		}
	}
	return true
}

// State is the redirection state of a target.
type State int

const (
	// StateUnhooked means calls go straight to the original implementation.
	StateUnhooked State = iota

	// StateRedirected means calls pass through an installed dispatch thunk.
	StateRedirected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnhooked:
		return "unhooked"
	case StateRedirected:
		return "redirected"
	default:
		return "unknown"
	}
}

// Target is one interceptable host function: its stable identifier, the
// original implementation, its signature, and the current redirection.
type Target struct {
	id       string
	sig      Signature
	original Func

	mu    sync.RWMutex
	thunk Func
}

// ID returns the target's stable identifier.
func (t *Target) ID() string {
	return t.id
}

// Signature returns the target's recorded signature.
func (t *Target) Signature() Signature {
	return t.sig
}

// Original returns the original implementation. The returned Func bypasses
// any installed redirection.
func (t *Target) Original() Func {
	return t.original
}

// State returns the current redirection state.
func (t *Target) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.thunk != nil {
		return StateRedirected
	}
	return StateUnhooked
}

// Call invokes the target: the installed thunk if one is present,
// otherwise the original implementation.
func (t *Target) Call(args []any) (any, error) {
	t.mu.RLock()
	thunk := t.thunk
	t.mu.RUnlock()

	if thunk != nil {
		return thunk(args)
	}
	return t.original(args)
}

// Redirect installs a dispatch thunk. It fails with ErrRedirectConflict if
// a thunk is already installed; the caller owns deciding whether the
// existing redirection is its own (update via Restore + Redirect) or a
// foreign one (conflict).
func (t *Target) Redirect(thunk Func) error {
	if thunk == nil {
		return ErrNilThunk
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.thunk != nil {
		return ErrRedirectConflict
	}
	t.thunk = thunk
	return nil
}

// Restore removes any installed redirection, returning the target to the
// exact pre-hook behavior. Safe to call when nothing is installed.
func (t *Target) Restore() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.thunk = nil
}
