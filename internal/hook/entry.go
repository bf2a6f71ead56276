package hook

import "fmt"

// Tier is a coarse ordering bucket for interceptors. Lower tiers run
// first. Explicit before/after relations refine ordering between specific
// pairs; registration order breaks remaining ties.
type Tier int

// Interceptor tiers, earliest first.
const (
	TierVeryEarly Tier = iota
	TierEarly
	TierNormal
	TierLate
	TierVeryLate
)

// String returns a human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierVeryEarly:
		return "very-early"
	case TierEarly:
		return "early"
	case TierNormal:
		return "normal"
	case TierLate:
		return "late"
	case TierVeryLate:
		return "very-late"
	default:
		return "unknown"
	}
}

// ParseTier parses a tier name as produced by Tier.String. The empty
// string parses as TierNormal.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "very-early":
		return TierVeryEarly, nil
	case "early":
		return TierEarly, nil
	case "", "normal":
		return TierNormal, nil
	case "late":
		return TierLate, nil
	case "very-late":
		return TierVeryLate, nil
	default:
		return TierNormal, fmt.Errorf("unknown tier %q", s)
	}
}

// Handle identifies a registered hook entry.
type Handle string

// Interceptor is one module's interception of a target function. It
// receives the call's arguments and an opaque continuation: calling
// inv.Next() runs the rest of the chain (eventually the original
// implementation); never calling it replaces the target's behavior
// outright.
type Interceptor func(inv *Invocation) (any, error)

// Entry is one module's registered interception of a target.
// The exported fields are supplied by the registrant; the unexported
// fields are managed by the Registry.
type Entry struct {
	// Module is the owning module id.
	Module string

	// Name distinguishes multiple entries one module registers against
	// the same target. It may be empty when the module has only one.
	Name string

	// Target is the host function identifier being intercepted.
	Target string

	// Tier is the priority bucket.
	Tier Tier

	// Before lists entry keys (see Key) this entry must run before.
	Before []string

	// After lists entry keys this entry must run after.
	After []string

	// Fn is the interceptor entry point.
	Fn Interceptor

	handle  Handle
	seq     uint64
	enabled bool
}

// Key returns the entry's identity on its target: "module" or
// "module/name". Before/After relations refer to these keys.
func (e *Entry) Key() string {
	if e.Name == "" {
		return e.Module
	}
	return e.Module + "/" + e.Name
}

// Handle returns the registry-assigned handle, or "" before registration.
func (e *Entry) Handle() Handle {
	return e.handle
}

// Seq returns the registration sequence number used for tie-breaking.
func (e *Entry) Seq() uint64 {
	return e.seq
}

// Enabled reports whether the entry participates in chain resolution.
func (e *Entry) Enabled() bool {
	return e.enabled
}

// Invocation carries one dispatch through an interceptor: the target
// identifier, the call arguments, and the continuation to the next step.
type Invocation struct {
	target string
	args   []any
	next   func() (any, error)
}

// NewInvocation builds an invocation for one chain step.
func NewInvocation(target string, args []any, next func() (any, error)) *Invocation {
	return &Invocation{target: target, args: args, next: next}
}

// Target returns the identifier of the function being dispatched.
func (inv *Invocation) Target() string {
	return inv.target
}

// Args returns the call arguments. Interceptors may modify the slice in
// place to alter what later steps and the original implementation see.
func (inv *Invocation) Args() []any {
	return inv.args
}

// Next invokes the rest of the chain: the remaining interceptors in order,
// then the original implementation.
func (inv *Invocation) Next() (any, error) {
	if inv.next == nil {
		return nil, ErrNoContinuation
	}
	return inv.next()
}
