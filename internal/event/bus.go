package event

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/modkit/internal/event/topic"
)

// Bus is the central event bus. Delivery is synchronous on the caller's
// goroutine: Publish runs every matching handler in (priority,
// subscription order) before returning, so same-thread publishers
// observe handler side effects immediately. Producers on other threads
// use Post; their events sit on the ingress queue until the host's main
// loop calls Flush.
type Bus struct {
	logger   *zap.Logger
	registry *Registry
	queue    *ingress
	seq      atomic.Uint64

	published     atomic.Uint64
	delivered     atomic.Uint64
	stopped       atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	logger        *zap.Logger
	queueCapacity int
}

// WithLogger sets the bus logger.
func WithLogger(logger *zap.Logger) BusOption {
	return func(c *busConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQueueCapacity sets the ingress queue capacity.
func WithQueueCapacity(n int) BusOption {
	return func(c *busConfig) {
		c.queueCapacity = n
	}
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	cfg := busConfig{logger: zap.NewNop(), queueCapacity: DefaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{
		logger:   cfg.logger,
		registry: NewRegistry(),
		queue:    newIngress(cfg.queueCapacity),
	}
}

// Subscribe registers a handler for a topic pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(uuid.NewString(), pattern, handler, b.seq.Add(1), opts...)
	b.registry.Add(sub)
	return sub, nil
}

// SubscribeFunc registers a function handler for a topic pattern.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}
	sub.Cancel()
	if !b.registry.Remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Publish delivers an event synchronously to every matching
// subscription, in (priority, subscription order). A handler returning
// Stop halts delivery; later handlers never see the event. Handler
// errors are logged and counted but do not halt delivery, and a
// panicking handler is absorbed the same way.
func (b *Bus) Publish(ev Event) error {
	if !ev.Topic.IsValid() {
		return ErrInvalidEvent
	}
	b.published.Add(1)

	for _, sub := range b.registry.Match(ev.Topic) {
		if !sub.shouldDeliver(ev) {
			continue
		}

		verdict, err, panicked := b.invoke(sub, ev)

		switch {
		case panicked:
			b.handlerPanics.Add(1)
		case err != nil:
			b.handlerErrors.Add(1)
			b.logger.Warn("event handler failed",
				zap.String("topic", string(ev.Topic)),
				zap.String("subscription", sub.id),
				zap.Error(err))
		default:
			b.delivered.Add(1)
		}

		if sub.config.Once && !panicked {
			sub.Cancel()
			b.registry.Remove(sub.id)
		}

		if !panicked && verdict == Stop {
			b.stopped.Add(1)
			return nil
		}
	}
	return nil
}

// Post enqueues an event from any goroutine for delivery at the next
// Flush. Never blocks; a full queue drops the event.
func (b *Bus) Post(ev Event) error {
	if !ev.Topic.IsValid() {
		return ErrInvalidEvent
	}
	if err := b.queue.post(ev); err != nil {
		b.logger.Warn("ingress queue full, event dropped",
			zap.String("topic", string(ev.Topic)))
		return err
	}
	return nil
}

// Flush drains the ingress queue on the caller's goroutine, publishing
// each queued event in posting order. The host calls this once per main
// loop tick. Returns the number of events delivered.
func (b *Bus) Flush() int {
	return b.queue.drain(func(ev Event) {
		if err := b.Publish(ev); err != nil {
			b.logger.Warn("queued event rejected", zap.Error(err))
		}
	})
}

// DropInstance removes every subscription bound to a host object
// instance. Returns the number removed.
func (b *Bus) DropInstance(instance string) int {
	if instance == "" {
		return 0
	}
	return b.registry.RemoveWhere(func(s *subscription) bool {
		return s.config.Instance == instance
	})
}

// DropModule removes every subscription bound to a module. Returns the
// number removed.
func (b *Bus) DropModule(module string) int {
	if module == "" {
		return 0
	}
	return b.registry.RemoveWhere(func(s *subscription) bool {
		return s.config.Module == module
	})
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:         b.published.Load(),
		Delivered:         b.delivered.Load(),
		Stopped:           b.stopped.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		Posted:            b.queue.posted.Load(),
		Dropped:           b.queue.dropped.Load(),
		ActiveSubscribers: b.registry.CountActive(),
		QueueDepth:        b.queue.depth(),
	}
}

// invoke runs one handler, absorbing panics.
func (b *Bus) invoke(sub *subscription, ev Event) (verdict Propagation, err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			b.logger.Error("event handler panicked",
				zap.String("topic", string(ev.Topic)),
				zap.String("subscription", sub.id),
				zap.Any("panic", r))
		}
	}()
	verdict, err = sub.handler.Handle(ev)
	return verdict, err, false
}
