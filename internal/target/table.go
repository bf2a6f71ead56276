package target

import (
	"fmt"
	"sort"
	"sync"
)

// Table is the process-wide registry of interceptable host functions,
// addressed by stable identifier. The host collaborator registers its
// functions here; the dispatch layer installs redirections on the
// resulting targets.
//
// Lookup is safe for concurrent use; registration follows the host's
// single-main-thread mutation model.
type Table struct {
	mu      sync.RWMutex
	targets map[string]*Target
}

// NewTable creates an empty function table.
func NewTable() *Table {
	return &Table{
		targets: make(map[string]*Target),
	}
}

// Register adds a host function under a stable identifier.
// Registering the same identifier twice fails with ErrDuplicateFunction.
func (tb *Table) Register(id string, sig Signature, fn Func) (*Target, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if fn == nil {
		return nil, ErrNilFunc
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	if _, exists := tb.targets[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFunction, id)
	}

	t := &Target{id: id, sig: sig, original: fn}
	tb.targets[id] = t
	return t, nil
}

// Lookup returns the target for an identifier.
func (tb *Table) Lookup(id string) (*Target, error) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()

	t, ok := tb.targets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, id)
	}
	return t, nil
}

// Call invokes the function registered under id, routing through any
// installed redirection.
func (tb *Table) Call(id string, args []any) (any, error) {
	t, err := tb.Lookup(id)
	if err != nil {
		return nil, err
	}
	return t.Call(args)
}

// IDs returns all registered identifiers, sorted.
func (tb *Table) IDs() []string {
	tb.mu.RLock()
	defer tb.mu.RUnlock()

	ids := make([]string, 0, len(tb.targets))
	for id := range tb.targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered functions.
func (tb *Table) Count() int {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	return len(tb.targets)
}
