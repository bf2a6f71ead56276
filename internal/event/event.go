package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/modkit/internal/event/topic"
)

// Event is one published occurrence. Events are immutable once created;
// handlers must not modify the payload they receive.
type Event struct {
	// Topic is the hierarchical event type (e.g. "module.loaded").
	Topic topic.Topic

	// Payload carries the event-specific data.
	Payload any

	// Meta contains standard event information.
	Meta Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID uniquely identifies this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the module or host component that published the
	// event.
	Source string
}

// New creates an event with fresh metadata.
func New(t topic.Topic, payload any, source string) Event {
	return Event{
		Topic:   t,
		Payload: payload,
		Meta: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// WithSource returns a copy of the event attributed to a different source.
func (e Event) WithSource(source string) Event {
	e.Meta.Source = source
	return e
}
