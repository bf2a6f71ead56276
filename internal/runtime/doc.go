// Package runtime assembles the hook-and-extension machinery into the
// facade the host and its modules program against.
//
// The host registers its functions, announces instance lifecycle, calls
// Tick from its main loop, and unloads modules through one entry point
// that sweeps every resource the module owns. Modules reach the hook
// registry, event bus, and extension state allocator through the same
// runtime, so cleanup stays consistent with registration.
package runtime
