package event

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrNilHandler indicates a subscription attempt without a handler.
	ErrNilHandler = errors.New("nil event handler")

	// ErrInvalidTopic indicates an empty or malformed topic pattern.
	ErrInvalidTopic = errors.New("invalid topic pattern")

	// ErrInvalidEvent indicates an event with no valid topic.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidSubscription indicates a nil subscription.
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrSubscriptionNotFound indicates the subscription is not
	// registered.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrQueueFull indicates the ingress queue rejected a post.
	ErrQueueFull = errors.New("ingress queue full")
)
