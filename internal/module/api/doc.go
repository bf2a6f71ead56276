// Package api exposes the runtime to Lua modules as the `mk` global.
//
// Each module gets its own API instance bound to its module id, so
// hooks, subscriptions, and extension records registered from Lua are
// attributed to the module and removed by the runtime's unload sweep.
package api
