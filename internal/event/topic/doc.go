// Package topic provides hierarchical event topics with wildcard matching.
//
// Topics use dot notation ("instance.destroyed", "task.fetch.done") and
// subscription patterns may use "*" to match one segment or "**" to match
// any number of segments.
package topic
