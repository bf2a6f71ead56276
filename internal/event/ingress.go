package event

import "sync/atomic"

// DefaultQueueCapacity is the ingress queue capacity when none is
// configured.
const DefaultQueueCapacity = 1024

// ingress is the thread-safe entry point for events produced off the
// main thread. Posting never blocks: a full queue rejects the event and
// counts the drop. The queue is drained on the main thread by Flush.
type ingress struct {
	ch      chan Event
	posted  atomic.Uint64
	dropped atomic.Uint64
}

func newIngress(capacity int) *ingress {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &ingress{ch: make(chan Event, capacity)}
}

// post enqueues an event. Returns ErrQueueFull when the queue is at
// capacity.
func (q *ingress) post(ev Event) error {
	select {
	case q.ch <- ev:
		q.posted.Add(1)
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// drain delivers every queued event to fn, in posting order, until the
// queue is empty. Returns the number drained. Events posted while a
// drain runs are picked up by the same drain.
func (q *ingress) drain(fn func(Event)) int {
	n := 0
	for {
		select {
		case ev := <-q.ch:
			fn(ev)
			n++
		default:
			return n
		}
	}
}

// depth returns the current queue depth.
func (q *ingress) depth() int {
	return len(q.ch)
}
