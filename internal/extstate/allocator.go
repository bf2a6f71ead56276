package extstate

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// InstanceID identifies a host object instance. The host guarantees the
// identity is stable for the instance's lifetime and never reused while
// any module still holds state for it.
type InstanceID string

// TypeSpec describes a module's per-instance extension state.
type TypeSpec struct {
	// New constructs the state for one instance. Required.
	New func(id InstanceID) any

	// Teardown releases the state when the instance is destroyed or the
	// module is unloaded. Optional.
	Teardown func(id InstanceID, state any)
}

// Allocator keeps per-instance extension state in side tables keyed by
// (module, instance), so modules attach fields to host objects without
// the host objects changing shape. State is created lazily on first
// access and torn down with the instance.
type Allocator struct {
	mu     sync.RWMutex
	logger *zap.Logger

	types map[string]TypeSpec
	// state[module][instance]
	state     map[string]map[InstanceID]any
	destroyed map[InstanceID]bool
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the allocator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Allocator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAllocator creates an empty extension state allocator.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		logger:    zap.NewNop(),
		types:     make(map[string]TypeSpec),
		state:     make(map[string]map[InstanceID]any),
		destroyed: make(map[InstanceID]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterType declares a module's extension state type. A module
// registers at most one type.
func (a *Allocator) RegisterType(module string, spec TypeSpec) error {
	if module == "" {
		return ErrEmptyModule
	}
	if spec.New == nil {
		return ErrNilConstructor
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.types[module]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, module)
	}
	a.types[module] = spec
	a.state[module] = make(map[InstanceID]any)
	return nil
}

// GetOrCreate returns the module's state for an instance, constructing
// it on first access. Access after the instance was destroyed fails
// rather than silently resurrecting state.
func (a *Allocator) GetOrCreate(module string, id InstanceID) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	spec, ok := a.types[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, module)
	}
	if a.destroyed[id] {
		return nil, fmt.Errorf("%w: %s", ErrInstanceDestroyed, id)
	}

	if st, ok := a.state[module][id]; ok {
		return st, nil
	}
	st := spec.New(id)
	a.state[module][id] = st
	return st, nil
}

// Get returns the module's state for an instance without creating it.
func (a *Allocator) Get(module string, id InstanceID) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st, ok := a.state[module][id]
	return st, ok
}

// DestroyAll tears down every module's state for an instance and marks
// the instance destroyed. Teardown runs in sorted module order so runs
// are reproducible. Destroying an already destroyed instance is a
// programming error and returns ErrInstanceDestroyed.
func (a *Allocator) DestroyAll(id InstanceID) error {
	a.mu.Lock()
	if a.destroyed[id] {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInstanceDestroyed, id)
	}
	a.destroyed[id] = true

	type held struct {
		module string
		spec   TypeSpec
		state  any
	}
	var torn []held
	for module, instances := range a.state {
		if st, ok := instances[id]; ok {
			delete(instances, id)
			torn = append(torn, held{module: module, spec: a.types[module], state: st})
		}
	}
	a.mu.Unlock()

	sort.Slice(torn, func(i, j int) bool { return torn[i].module < torn[j].module })
	for _, h := range torn {
		a.teardown(h.module, id, h.spec, h.state)
	}
	return nil
}

// DestroyModule tears down a module's state across all instances and
// removes its type registration. Returns the number of instances that
// held state.
func (a *Allocator) DestroyModule(module string) int {
	a.mu.Lock()
	spec, ok := a.types[module]
	if !ok {
		a.mu.Unlock()
		return 0
	}
	instances := a.state[module]
	delete(a.types, module)
	delete(a.state, module)
	a.mu.Unlock()

	ids := make([]InstanceID, 0, len(instances))
	for id := range instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a.teardown(module, id, spec, instances[id])
	}
	return len(ids)
}

// Forget drops the destroyed mark for an instance identity, allowing the
// host to reuse it. Only call once the identity is genuinely retired.
func (a *Allocator) Forget(id InstanceID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.destroyed, id)
}

// Destroyed reports whether an instance has been destroyed.
func (a *Allocator) Destroyed(id InstanceID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.destroyed[id]
}

// Count returns the number of live state cells held for a module.
func (a *Allocator) Count(module string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.state[module])
}

// teardown runs one cell's teardown, absorbing panics so one faulty
// module cannot abort the destruction sweep.
func (a *Allocator) teardown(module string, id InstanceID, spec TypeSpec, st any) {
	if spec.Teardown == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("extension state teardown panicked",
				zap.String("module", module),
				zap.String("instance", string(id)),
				zap.Any("panic", r))
		}
	}()
	spec.Teardown(id, st)
}
