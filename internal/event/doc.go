// Package event implements the host's publish/subscribe bus.
//
// Delivery is synchronous on the publisher's goroutine: Publish runs
// every matching handler before returning, ordered by priority and then
// subscription order, so same-thread publishers observe handler side
// effects immediately. A handler may return Stop to halt delivery to
// the remaining handlers. Handler errors and panics are counted and
// absorbed; they never halt delivery on their own.
//
// Producers running off the main thread use Post, which places the
// event on a bounded multi-producer queue without blocking. The host's
// main loop drains the queue with Flush once per tick, publishing each
// queued event in posting order.
//
// Subscriptions may be bound to a module or a host object instance;
// DropModule and DropInstance remove the bound subscriptions when their
// owner goes away, so stale handlers never fire.
//
// Topic patterns support single-segment (*) and multi-segment (**)
// wildcards; see the topic subpackage.
package event
