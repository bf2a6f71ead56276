package event

// Priority determines handler execution order within one delivery.
// Lower values execute first.
type Priority int

const (
	// PriorityCritical is for host-internal handlers that must observe
	// events before any module.
	PriorityCritical Priority = 0

	// PriorityHigh is for infrastructure modules.
	PriorityHigh Priority = 100

	// PriorityNormal is the default for module handlers.
	PriorityNormal Priority = 200

	// PriorityLow is for logging and metrics handlers that run last.
	PriorityLow Priority = 300
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p <= PriorityCritical:
		return "critical"
	case p <= PriorityHigh:
		return "high"
	case p <= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Propagation is a handler's verdict on the rest of the delivery.
type Propagation int

const (
	// Continue lets delivery proceed to the remaining handlers.
	Continue Propagation = iota

	// Stop halts delivery; later handlers never see the event.
	Stop
)

// String returns a human-readable propagation name.
func (p Propagation) String() string {
	switch p {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Handler processes one event and decides whether delivery continues.
// A returned error is recorded but does not halt delivery; return Stop
// for that.
type Handler interface {
	Handle(ev Event) (Propagation, error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ev Event) (Propagation, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ev Event) (Propagation, error) {
	return f(ev)
}

// FilterFunc is a predicate over events. Return true to deliver the
// event to the subscription, false to skip it.
type FilterFunc func(ev Event) bool

// Stats contains event bus counters.
type Stats struct {
	// Published is the number of events delivered synchronously.
	Published uint64

	// Delivered is the number of successful handler executions.
	Delivered uint64

	// Stopped is the number of deliveries halted by a Stop verdict.
	Stopped uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handler panics absorbed.
	HandlerPanics uint64

	// Posted is the number of events accepted onto the ingress queue.
	Posted uint64

	// Dropped is the number of posts rejected because the queue was full.
	Dropped uint64

	// ActiveSubscribers is the current number of active subscriptions.
	ActiveSubscribers int

	// QueueDepth is the current ingress queue depth.
	QueueDepth int
}
