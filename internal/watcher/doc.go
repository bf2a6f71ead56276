// Package watcher observes module directories for hot reload.
//
// File changes are coalesced per module and posted to the event bus as
// module.changed, so they surface on the main dispatch thread at the
// next tick.
package watcher
