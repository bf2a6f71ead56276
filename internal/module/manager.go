package module

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/modkit/internal/event"
	"github.com/dshills/modkit/internal/event/topic"
	"github.com/dshills/modkit/internal/runtime"
)

// Lifecycle topics the manager publishes on the runtime's bus. Unload
// publishes module.unloaded through the runtime's sweep.
const (
	TopicModuleLoaded      topic.Topic = "module.loaded"
	TopicModuleActivated   topic.Topic = "module.activated"
	TopicModuleDeactivated topic.Topic = "module.deactivated"
	TopicModuleError       topic.Topic = "module.error"
)

// Manager owns module discovery and lifecycle. Unloading routes through
// the runtime so a module's hooks, subscriptions, and extension records
// are removed before its Lua state closes.
type Manager struct {
	mu sync.RWMutex

	rt     *runtime.Runtime
	loader *Loader
	logger *zap.Logger

	hosts     map[string]*Host
	loadOrder []string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSearchPaths sets the module search paths.
func WithSearchPaths(paths ...string) ManagerOption {
	return func(m *Manager) {
		m.loader = NewLoader(WithPaths(paths...))
	}
}

// NewManager creates a module manager over a runtime.
func NewManager(rt *runtime.Runtime, opts ...ManagerOption) *Manager {
	m := &Manager{
		rt:     rt,
		loader: NewLoader(),
		logger: zap.NewNop(),
		hosts:  make(map[string]*Host),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Discover scans the search paths for modules.
func (m *Manager) Discover() []*Info {
	return m.loader.Discover()
}

// Load finds a module by name, creates its host, and loads it.
// Lifecycle events are published outside the manager lock so listeners
// may call back in.
func (m *Manager) Load(ctx context.Context, name string) (*Host, error) {
	host, err := m.load(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrAlreadyLoaded) && !errors.Is(err, ErrModuleNotFound) {
			m.publish(TopicModuleError, name)
		}
		return nil, err
	}
	m.publish(TopicModuleLoaded, name)
	return host, nil
}

func (m *Manager) load(ctx context.Context, name string) (*Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, loaded := m.hosts[name]; loaded {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}

	info, err := m.loader.Find(name)
	if err != nil {
		return nil, err
	}
	if info.Err != nil {
		return nil, info.Err
	}

	host, err := NewHost(info.Manifest)
	if err != nil {
		return nil, err
	}
	if err := host.Load(ctx, m.rt); err != nil {
		// Anything the module registered before failing must not stay
		// installed on host functions.
		m.rt.UnloadModule(name)
		return nil, err
	}

	m.hosts[name] = host
	m.loadOrder = append(m.loadOrder, name)
	m.logger.Info("module loaded",
		zap.String("module", name),
		zap.String("version", info.Manifest.Version))
	return host, nil
}

// LoadAll discovers and loads every valid module. Modules that fail to
// load are skipped; their errors are joined in the return value.
func (m *Manager) LoadAll(ctx context.Context) error {
	var errs []error
	for _, info := range m.loader.Discover() {
		if info.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", info.Name, info.Err))
			continue
		}
		if _, err := m.Load(ctx, info.Name); err != nil {
			if errors.Is(err, ErrAlreadyLoaded) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Activate activates a loaded module.
func (m *Manager) Activate(ctx context.Context, name string) error {
	host, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if err := host.Activate(ctx); err != nil {
		m.publish(TopicModuleError, name)
		return err
	}
	m.publish(TopicModuleActivated, name)
	return nil
}

// ActivateAll activates every loaded module in load order.
func (m *Manager) ActivateAll(ctx context.Context) error {
	var errs []error
	for _, name := range m.names() {
		if err := m.Activate(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deactivate deactivates an active module.
func (m *Manager) Deactivate(ctx context.Context, name string) error {
	host, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if err := host.Deactivate(ctx); err != nil {
		return err
	}
	m.publish(TopicModuleDeactivated, name)
	return nil
}

// Unload deactivates a module, sweeps its runtime resources, and closes
// its Lua state.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	host, ok := m.hosts[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	delete(m.hosts, name)
	m.removeFromLoadOrder(name)
	m.mu.Unlock()

	if err := host.Deactivate(ctx); err != nil {
		m.logger.Warn("deactivate during unload failed",
			zap.String("module", name), zap.Error(err))
	}

	// Sweep hooks, subscriptions, and records before the state closes.
	m.rt.UnloadModule(name)
	return host.Unload(ctx)
}

// UnloadAll unloads every module in reverse load order.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, len(m.loadOrder))
	copy(names, m.loadOrder)
	m.mu.RUnlock()

	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		if err := m.Unload(ctx, names[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload unloads and reloads a module, reactivating it if it was
// active.
func (m *Manager) Reload(ctx context.Context, name string) error {
	host, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	wasActive := host.State() == StateActive

	if err := m.Unload(ctx, name); err != nil {
		return err
	}
	if _, err := m.Load(ctx, name); err != nil {
		return err
	}
	if wasActive {
		return m.Activate(ctx, name)
	}
	return nil
}

// Get returns a loaded module's host.
func (m *Manager) Get(name string) (*Host, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	host, ok := m.hosts[name]
	return host, ok
}

// List returns the loaded hosts in load order.
func (m *Manager) List() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hosts := make([]*Host, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if h, ok := m.hosts[name]; ok {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Count returns the number of loaded modules.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hosts)
}

// Loader returns the module loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

func (m *Manager) names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.loadOrder))
	copy(names, m.loadOrder)
	return names
}

func (m *Manager) publish(t topic.Topic, name string) {
	m.rt.Events().Publish(event.New(t, runtime.ModuleEvent{Module: name}, "manager"))
}

// removeFromLoadOrder removes a name. Caller holds mu.
func (m *Manager) removeFromLoadOrder(name string) {
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			return
		}
	}
}
