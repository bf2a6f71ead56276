package hook

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Applier is notified whenever a target's resolved chain changes, so the
// dispatch layer can install, update, or remove the target's redirection.
// An empty chain means the target should be left unhooked.
type Applier func(targetID string, chain *Chain) error

// Registry stores the registered hook entries per target and keeps each
// target's resolved chain current: every mutating call re-resolves the
// affected target's chain synchronously before returning.
//
// Mutation follows the host's single-main-thread model; reads are safe
// for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	logger *zap.Logger

	seq       uint64
	byHandle  map[Handle]*Entry
	byTarget  map[string][]*Entry // registration order
	chains    map[string]*Chain
	conflicts map[string][]Conflict

	applier Applier
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty hook entry registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:    zap.NewNop(),
		byHandle:  make(map[Handle]*Entry),
		byTarget:  make(map[string][]*Entry),
		chains:    make(map[string]*Chain),
		conflicts: make(map[string][]Conflict),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetApplier wires the dispatch layer in. Must be called before the first
// registration.
func (r *Registry) SetApplier(fn Applier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applier = fn
}

// Register adds an entry and re-resolves its target's chain. The same
// module may register multiple entries against one target only if their
// names differ; different modules stack freely.
func (r *Registry) Register(e *Entry) (Handle, error) {
	if e == nil {
		return "", ErrNilEntry
	}
	if e.Module == "" || e.Target == "" || e.Fn == nil {
		return "", ErrInvalidEntry
	}

	r.mu.Lock()
	for _, existing := range r.byTarget[e.Target] {
		if existing.Key() == e.Key() {
			r.mu.Unlock()
			return "", fmt.Errorf("%w: %s on %s", ErrDuplicateEntry, e.Key(), e.Target)
		}
	}

	r.seq++
	e.seq = r.seq
	e.handle = Handle(uuid.NewString())
	e.enabled = true
	r.byHandle[e.handle] = e
	r.byTarget[e.Target] = append(r.byTarget[e.Target], e)

	chain := r.resolveLocked(e.Target)
	applier := r.applier
	r.mu.Unlock()

	if applier != nil {
		if err := applier(e.Target, chain); err != nil {
			// The redirection could not be installed; roll the entry back
			// so the target keeps its previous behavior.
			r.removeEntry(e.handle)
			return "", err
		}
	}

	return e.handle, nil
}

// Unregister removes an entry and re-resolves its target's chain.
// An in-flight dispatch keeps using the chain snapshot it started with.
func (r *Registry) Unregister(h Handle) error {
	return r.removeEntry(h)
}

// SetEnabled toggles an entry's participation and re-resolves the chain.
func (r *Registry) SetEnabled(h Handle, enabled bool) error {
	return r.mutate(h, func(e *Entry) {
		e.enabled = enabled
	})
}

// SetPriority changes an entry's tier and re-resolves the chain.
func (r *Registry) SetPriority(h Handle, tier Tier) error {
	return r.mutate(h, func(e *Entry) {
		e.Tier = tier
	})
}

// UnregisterModule removes every entry owned by a module, re-resolving
// each affected target. Returns the number of entries removed.
func (r *Registry) UnregisterModule(module string) int {
	r.mu.Lock()
	removed := 0
	affected := make(map[string]bool)
	for h, e := range r.byHandle {
		if e.Module != module {
			continue
		}
		delete(r.byHandle, h)
		r.byTarget[e.Target] = removeFromSlice(r.byTarget[e.Target], e)
		if len(r.byTarget[e.Target]) == 0 {
			delete(r.byTarget, e.Target)
		}
		affected[e.Target] = true
		removed++
	}

	type pending struct {
		target string
		chain  *Chain
	}
	var updates []pending
	for t := range affected {
		updates = append(updates, pending{target: t, chain: r.resolveLocked(t)})
	}
	applier := r.applier
	r.mu.Unlock()

	if applier != nil {
		for _, u := range updates {
			if err := applier(u.target, u.chain); err != nil {
				r.logger.Error("failed to apply chain after module unload",
					zap.String("target", u.target),
					zap.String("module", module),
					zap.Error(err))
			}
		}
	}
	return removed
}

// Chain returns the current resolved chain for a target (nil if the
// target has no entries).
func (r *Registry) Chain(targetID string) *Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chains[targetID]
}

// Conflicts returns the ordering conflicts found during the target's last
// resolution.
func (r *Registry) Conflicts(targetID string) []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conflicts[targetID]
}

// Entries returns the entries registered against a target, in
// registration order.
func (r *Registry) Entries(targetID string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.byTarget[targetID]
	if len(entries) == 0 {
		return nil
	}
	out := make([]*Entry, len(entries))
	copy(out, entries)
	return out
}

// Get returns the entry for a handle.
func (r *Registry) Get(h Handle) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byHandle[h]
	return e, ok
}

// Count returns the total number of registered entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHandle)
}

// mutate applies fn to the entry under lock, then re-resolves and applies
// the target's chain.
func (r *Registry) mutate(h Handle, fn func(*Entry)) error {
	r.mu.Lock()
	e, ok := r.byHandle[h]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrHandleNotFound, h)
	}
	fn(e)
	chain := r.resolveLocked(e.Target)
	targetID := e.Target
	applier := r.applier
	r.mu.Unlock()

	if applier != nil {
		return applier(targetID, chain)
	}
	return nil
}

// removeEntry deletes an entry by handle and re-resolves its target.
func (r *Registry) removeEntry(h Handle) error {
	r.mu.Lock()
	e, ok := r.byHandle[h]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrHandleNotFound, h)
	}
	delete(r.byHandle, h)
	r.byTarget[e.Target] = removeFromSlice(r.byTarget[e.Target], e)
	if len(r.byTarget[e.Target]) == 0 {
		delete(r.byTarget, e.Target)
	}
	chain := r.resolveLocked(e.Target)
	targetID := e.Target
	applier := r.applier
	r.mu.Unlock()

	if applier != nil {
		return applier(targetID, chain)
	}
	return nil
}

// resolveLocked recomputes a target's chain. Must be called with mu held.
func (r *Registry) resolveLocked(targetID string) *Chain {
	chain, conflicts := Resolve(targetID, r.byTarget[targetID])
	r.chains[targetID] = chain
	r.conflicts[targetID] = conflicts

	for _, c := range conflicts {
		r.logger.Warn("hook ordering conflict, entries excluded from chain",
			zap.String("target", c.Target),
			zap.Strings("entries", c.Keys))
	}
	return chain
}

// removeFromSlice removes e from entries preserving order.
func removeFromSlice(entries []*Entry, e *Entry) []*Entry {
	for i, x := range entries {
		if x == e {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}
