// Package hook implements the interceptor registry and chain resolution.
//
// Modules register entries against host function targets. Each entry
// carries a priority tier and optional explicit before/after relations
// to other entries on the same target. The resolver turns the entry set
// into a deterministic total order: tiers first, explicit relations
// within them, registration order as the final tie-break. Entries whose
// relations form a cycle are excluded and reported as conflicts; the
// rest of the chain still resolves.
//
// Resolved chains are immutable snapshots. The registry re-resolves a
// target synchronously on every mutation and hands the new chain to the
// dispatch layer through the Applier callback; dispatches already in
// flight finish on the snapshot they started with.
package hook
