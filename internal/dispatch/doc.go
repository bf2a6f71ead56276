// Package dispatch redirects host function calls through their resolved
// interceptor chains.
//
// The controller swaps each target between pass-through and redirected
// states. A redirected call walks the chain's snapshot step by step: an
// interceptor may call its continuation to run the rest of the chain, or
// skip it to replace the target's behavior. Re-entrant calls from inside
// a chain bypass it and go straight to the original implementation.
// Panicking interceptors are absorbed and skipped so one faulty module
// cannot break the target for everyone else.
package dispatch
