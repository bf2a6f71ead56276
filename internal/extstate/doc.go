// Package extstate gives modules per-instance state on host objects
// without changing the host objects themselves.
//
// Each module registers one extension type with a constructor and an
// optional teardown. State lives in side tables keyed by (module,
// instance identity), is created lazily on first access, and is torn
// down when the instance is destroyed or the module unloads. A destroyed
// instance identity stays marked so late lookups fail instead of
// resurrecting state.
package extstate
