// Package module loads and runs extension modules.
//
// A module is a directory with a module.json manifest (or a bare Lua
// file) discovered on configured search paths. Each module runs in its
// own sandboxed Lua state with the mk API installed, and moves through
// Unloaded, Loaded, and Active states. Unloading routes through the
// runtime so every hook, event subscription, and extension record the
// module owns is removed before its state closes.
package module
