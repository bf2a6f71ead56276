package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dshills/modkit/internal/hook"
	"github.com/dshills/modkit/internal/target"
)

// newHost builds a table with one string-returning function and a
// registry wired to a controller over that table.
func newHost(t *testing.T) (*target.Table, *hook.Registry, *Controller) {
	t.Helper()
	tb := target.NewTable()
	if _, err := tb.Register("greet", target.Signature{Result: "string"}, func(args []any) (any, error) {
		return "orig", nil
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	ctrl := NewController(tb)
	reg := hook.NewRegistry()
	reg.SetApplier(ctrl.Apply)
	return tb, reg, ctrl
}

func wrap(label string) hook.Interceptor {
	return func(inv *hook.Invocation) (any, error) {
		res, err := inv.Next()
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%s(%v)", label, res), nil
	}
}

func replace(value string) hook.Interceptor {
	return func(inv *hook.Invocation) (any, error) {
		return value, nil
	}
}

func TestController_InstallAndRestore(t *testing.T) {
	tb, reg, ctrl := newHost(t)

	h, err := reg.Register(&hook.Entry{Module: "a", Target: "greet", Fn: wrap("a")})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if !ctrl.Installed("greet") {
		t.Fatal("expected redirection installed")
	}

	res, err := tb.Call("greet", nil)
	if err != nil || res != "a(orig)" {
		t.Errorf("Call() = %v, %v, want a(orig)", res, err)
	}

	// Removing the last entry restores the original pass-through.
	if err := reg.Unregister(h); err != nil {
		t.Fatalf("Unregister() failed: %v", err)
	}
	if ctrl.Installed("greet") {
		t.Error("expected redirection removed")
	}
	res, _ = tb.Call("greet", nil)
	if res != "orig" {
		t.Errorf("Call() after restore = %v, want orig", res)
	}
}

func TestController_WrapThenReplace(t *testing.T) {
	tb, reg, _ := newHost(t)

	reg.Register(&hook.Entry{Module: "a", Target: "greet", Tier: hook.TierEarly, Fn: wrap("a")})
	hb, _ := reg.Register(&hook.Entry{Module: "b", Target: "greet", Tier: hook.TierLate, Fn: replace("b")})

	// a wraps whatever b produces; b never calls its continuation.
	res, err := tb.Call("greet", nil)
	if err != nil || res != "a(b)" {
		t.Errorf("Call() = %v, %v, want a(b)", res, err)
	}

	// Disabling b re-resolves; a now wraps the original.
	if err := reg.SetEnabled(hb, false); err != nil {
		t.Fatalf("SetEnabled() failed: %v", err)
	}
	res, _ = tb.Call("greet", nil)
	if res != "a(orig)" {
		t.Errorf("Call() after disable = %v, want a(orig)", res)
	}
}

func TestController_SkippingNextReplacesBehavior(t *testing.T) {
	tb, reg, _ := newHost(t)

	reg.Register(&hook.Entry{Module: "a", Target: "greet", Fn: replace("replaced")})
	reg.Register(&hook.Entry{Module: "b", Target: "greet", Fn: wrap("never")})

	// a runs first and never calls Next, so neither b nor the original
	// runs.
	res, err := tb.Call("greet", nil)
	if err != nil || res != "replaced" {
		t.Errorf("Call() = %v, %v, want replaced", res, err)
	}
}

func TestController_ArgumentMutation(t *testing.T) {
	tb := target.NewTable()
	tb.Register("double", target.Signature{Params: []string{"int"}, Result: "int"}, func(args []any) (any, error) {
		return args[0].(int) * 2, nil
	})
	ctrl := NewController(tb)
	reg := hook.NewRegistry()
	reg.SetApplier(ctrl.Apply)

	reg.Register(&hook.Entry{Module: "a", Target: "double", Fn: func(inv *hook.Invocation) (any, error) {
		inv.Args()[0] = inv.Args()[0].(int) + 1
		return inv.Next()
	}})

	res, err := tb.Call("double", []any{20})
	if err != nil || res != 42 {
		t.Errorf("Call() = %v, %v, want 42", res, err)
	}
}

func TestController_ReentrantCallBypassesChain(t *testing.T) {
	tb, reg, _ := newHost(t)

	calls := 0
	reg.Register(&hook.Entry{Module: "a", Target: "greet", Fn: func(inv *hook.Invocation) (any, error) {
		calls++
		// Calling the target from inside its own chain must reach the
		// original directly, not recurse through the chain.
		inner, err := tb.Call("greet", nil)
		if err != nil {
			return nil, err
		}
		return "outer(" + inner.(string) + ")", nil
	}})

	res, err := tb.Call("greet", nil)
	if err != nil || res != "outer(orig)" {
		t.Errorf("Call() = %v, %v, want outer(orig)", res, err)
	}
	if calls != 1 {
		t.Errorf("interceptor ran %d times, want 1", calls)
	}
}

func TestController_PanicIsolated(t *testing.T) {
	tb, reg, ctrl := newHost(t)

	reg.Register(&hook.Entry{Module: "bad", Target: "greet", Tier: hook.TierEarly, Fn: func(inv *hook.Invocation) (any, error) {
		panic("boom")
	}})
	reg.Register(&hook.Entry{Module: "good", Target: "greet", Tier: hook.TierLate, Fn: wrap("good")})

	// The panicking entry is skipped; the rest of the chain and the
	// original still run.
	res, err := tb.Call("greet", nil)
	if err != nil || res != "good(orig)" {
		t.Errorf("Call() = %v, %v, want good(orig)", res, err)
	}
	if ctrl.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", ctrl.Failures())
	}
}

func TestController_InterceptorErrorPropagates(t *testing.T) {
	tb, reg, ctrl := newHost(t)

	wantErr := errors.New("rejected")
	reg.Register(&hook.Entry{Module: "a", Target: "greet", Fn: func(inv *hook.Invocation) (any, error) {
		return nil, wantErr
	}})

	// An error return is a legitimate result, not a failure.
	if _, err := tb.Call("greet", nil); !errors.Is(err, wantErr) {
		t.Errorf("Call() error = %v, want %v", err, wantErr)
	}
	if ctrl.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0", ctrl.Failures())
	}
}

func TestController_ApplyUnknownTarget(t *testing.T) {
	_, _, ctrl := newHost(t)

	err := ctrl.Apply("missing", hook.NewChain(nil))
	if !errors.Is(err, target.ErrTargetNotFound) {
		t.Errorf("Apply() error = %v, want ErrTargetNotFound", err)
	}
}

func TestController_InstallConflict(t *testing.T) {
	tb, reg, _ := newHost(t)

	// Something else already holds the redirection slot.
	tgt, _ := tb.Lookup("greet")
	if err := tgt.Redirect(func(args []any) (any, error) { return "external", nil }); err != nil {
		t.Fatalf("Redirect() failed: %v", err)
	}

	_, err := reg.Register(&hook.Entry{Module: "a", Target: "greet", Fn: wrap("a")})
	if !errors.Is(err, ErrInstallConflict) {
		t.Errorf("expected ErrInstallConflict, got %v", err)
	}
}

func TestController_Uninstall(t *testing.T) {
	tb, reg, ctrl := newHost(t)

	reg.Register(&hook.Entry{Module: "a", Target: "greet", Fn: replace("hooked")})
	ctrl.Uninstall("greet")

	if ctrl.Installed("greet") {
		t.Error("redirection still installed")
	}
	res, _ := tb.Call("greet", nil)
	if res != "orig" {
		t.Errorf("Call() = %v, want orig", res)
	}

	// Uninstalling an uninstalled target is a no-op.
	ctrl.Uninstall("greet")
}

func TestController_RestoreAll(t *testing.T) {
	tb, reg, ctrl := newHost(t)

	reg.Register(&hook.Entry{Module: "a", Target: "greet", Fn: replace("hooked")})
	if ctrl.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", ctrl.Count())
	}

	ctrl.RestoreAll()
	if ctrl.Count() != 0 {
		t.Errorf("Count() = %d after RestoreAll, want 0", ctrl.Count())
	}
	res, _ := tb.Call("greet", nil)
	if res != "orig" {
		t.Errorf("Call() = %v, want orig", res)
	}
}
