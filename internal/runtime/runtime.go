package runtime

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/modkit/internal/dispatch"
	"github.com/dshills/modkit/internal/event"
	"github.com/dshills/modkit/internal/event/topic"
	"github.com/dshills/modkit/internal/extstate"
	"github.com/dshills/modkit/internal/hook"
	"github.com/dshills/modkit/internal/target"
)

// Lifecycle topics published by the runtime.
const (
	TopicInstanceConstructed topic.Topic = "instance.constructed"
	TopicInstanceDestroyed   topic.Topic = "instance.destroyed"
	TopicModuleUnloaded      topic.Topic = "module.unloaded"
)

// InstanceEvent is the payload for instance lifecycle topics.
type InstanceEvent struct {
	Instance string
	Type     string
}

// ModuleEvent is the payload for module lifecycle topics.
type ModuleEvent struct {
	Module string
}

// Runtime wires the host function table, hook registry, dispatch
// controller, extension allocator, and event bus into one facade. Hosts
// embed a Runtime and expose their functions through it; modules hook,
// subscribe, and attach state through it.
type Runtime struct {
	logger *zap.Logger

	table *target.Table
	hooks *hook.Registry
	ctrl  *dispatch.Controller
	state *extstate.Allocator
	bus   *event.Bus
}

// Option configures a Runtime.
type Option func(*config)

type config struct {
	logger        *zap.Logger
	queueCapacity int
}

// WithLogger sets the runtime logger, shared by all components.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQueueCapacity sets the event ingress queue capacity.
func WithQueueCapacity(n int) Option {
	return func(c *config) {
		c.queueCapacity = n
	}
}

// New creates a fully wired runtime.
func New(opts ...Option) *Runtime {
	cfg := config{logger: zap.NewNop(), queueCapacity: event.DefaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runtime{
		logger: cfg.logger,
		table:  target.NewTable(),
		hooks:  hook.NewRegistry(hook.WithLogger(cfg.logger.Named("hook"))),
		state:  extstate.NewAllocator(extstate.WithLogger(cfg.logger.Named("extstate"))),
		bus: event.NewBus(
			event.WithLogger(cfg.logger.Named("event")),
			event.WithQueueCapacity(cfg.queueCapacity),
		),
	}
	r.ctrl = dispatch.NewController(r.table, dispatch.WithLogger(cfg.logger.Named("dispatch")))
	r.hooks.SetApplier(r.ctrl.Apply)
	return r
}

// RegisterFunction adds a host function to the table, making it
// addressable and hookable by its stable identifier.
func (r *Runtime) RegisterFunction(id string, sig target.Signature, fn target.Func) error {
	_, err := r.table.Register(id, sig, fn)
	return err
}

// Call invokes a host function through its installed redirection, or
// the original implementation when unhooked.
func (r *Runtime) Call(id string, args []any) (any, error) {
	return r.table.Call(id, args)
}

// RegisterHook registers an interceptor against a host function. When
// declared is non-nil it must match the target's signature; the check
// happens here, never at call time.
func (r *Runtime) RegisterHook(e *hook.Entry, declared *target.Signature) (hook.Handle, error) {
	if e == nil {
		return "", hook.ErrNilEntry
	}
	tgt, err := r.table.Lookup(e.Target)
	if err != nil {
		return "", fmt.Errorf("register hook: %w", err)
	}
	if declared != nil && !declared.Equal(tgt.Signature()) {
		return "", fmt.Errorf("%w: declared %s, target %s",
			dispatch.ErrIncompatibleSignature, declared, tgt.Signature())
	}
	return r.hooks.Register(e)
}

// InstanceConstructed announces a new host object instance.
func (r *Runtime) InstanceConstructed(instance, typeName string) {
	r.bus.Publish(event.New(TopicInstanceConstructed,
		InstanceEvent{Instance: instance, Type: typeName}, "runtime"))
}

// InstanceDestroyed announces destruction of a host object instance.
// Listeners see the event before teardown, then the instance's extension
// state is torn down and its bound subscriptions removed.
func (r *Runtime) InstanceDestroyed(instance, typeName string) error {
	r.bus.Publish(event.New(TopicInstanceDestroyed,
		InstanceEvent{Instance: instance, Type: typeName}, "runtime"))

	err := r.state.DestroyAll(extstate.InstanceID(instance))
	dropped := r.bus.DropInstance(instance)
	if dropped > 0 {
		r.logger.Debug("instance subscriptions removed",
			zap.String("instance", instance),
			zap.Int("count", dropped))
	}
	return err
}

// Tick runs one main-loop tick: the cross-thread event queue is flushed.
// Returns the number of events delivered.
func (r *Runtime) Tick() int {
	return r.bus.Flush()
}

// UnloadModule removes everything a module owns: its hook entries, its
// event subscriptions, and its extension state across all instances.
// Called before the module's own state is torn down.
func (r *Runtime) UnloadModule(moduleID string) {
	hooks := r.hooks.UnregisterModule(moduleID)
	subs := r.bus.DropModule(moduleID)
	records := r.state.DestroyModule(moduleID)

	r.logger.Info("module unloaded",
		zap.String("module", moduleID),
		zap.Int("hooks", hooks),
		zap.Int("subscriptions", subs),
		zap.Int("records", records))

	r.bus.Publish(event.New(TopicModuleUnloaded, ModuleEvent{Module: moduleID}, "runtime"))
}

// Functions returns the host function table.
func (r *Runtime) Functions() *target.Table {
	return r.table
}

// Hooks returns the hook entry registry.
func (r *Runtime) Hooks() *hook.Registry {
	return r.hooks
}

// Events returns the event bus.
func (r *Runtime) Events() *event.Bus {
	return r.bus
}

// State returns the extension state allocator.
func (r *Runtime) State() *extstate.Allocator {
	return r.state
}

// Dispatch returns the dispatch controller.
func (r *Runtime) Dispatch() *dispatch.Controller {
	return r.ctrl
}
