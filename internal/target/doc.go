// Package target maintains the table of interceptable host functions.
//
// Each host function is addressed by a stable string identifier and keeps
// its original implementation, a signature descriptor, and the currently
// installed redirection (if any). Calls route through Target.Call, which
// dispatches to the installed thunk when present and to the original
// implementation otherwise, so removing a redirection restores behavior
// identical to the never-hooked state.
package target
