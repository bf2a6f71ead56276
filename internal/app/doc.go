// Package app assembles the runtime, module manager, and watcher into
// the modkit host process.
package app
