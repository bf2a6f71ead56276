package hook

import (
	"reflect"
	"testing"
)

func nopInterceptor(inv *Invocation) (any, error) {
	return inv.Next()
}

// mkEntry builds an enabled entry with a registration sequence number,
// bypassing the registry.
func mkEntry(module, name string, tier Tier, seq uint64) *Entry {
	return &Entry{
		Module:  module,
		Name:    name,
		Target:  "t",
		Tier:    tier,
		Fn:      nopInterceptor,
		seq:     seq,
		enabled: true,
	}
}

func TestResolve_TierThenRegistrationOrder(t *testing.T) {
	entries := []*Entry{
		mkEntry("late", "", TierLate, 1),
		mkEntry("second-normal", "", TierNormal, 2),
		mkEntry("early", "", TierEarly, 3),
		mkEntry("first-normal", "", TierNormal, 4),
	}
	// Registration order within a tier follows seq, not slice position.
	entries[1].seq = 5
	entries[3].seq = 2

	chain, conflicts := Resolve("t", entries)
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	want := []string{"early", "first-normal", "second-normal", "late"}
	if got := chain.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("chain order = %v, want %v", got, want)
	}
}

func TestResolve_ExplicitRelationOverridesTier(t *testing.T) {
	// b is a later tier but declares it runs before a.
	a := mkEntry("a", "", TierEarly, 1)
	b := mkEntry("b", "", TierLate, 2)
	b.Before = []string{"a"}

	chain, conflicts := Resolve("t", []*Entry{a, b})
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	want := []string{"b", "a"}
	if got := chain.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("chain order = %v, want %v", got, want)
	}
}

func TestResolve_AfterRelation(t *testing.T) {
	a := mkEntry("a", "", TierNormal, 1)
	b := mkEntry("b", "", TierNormal, 2)
	a.After = []string{"b"}

	chain, _ := Resolve("t", []*Entry{a, b})
	want := []string{"b", "a"}
	if got := chain.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("chain order = %v, want %v", got, want)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	build := func() []*Entry {
		return []*Entry{
			mkEntry("m1", "x", TierNormal, 1),
			mkEntry("m2", "", TierEarly, 2),
			mkEntry("m3", "", TierNormal, 3),
			mkEntry("m4", "", TierVeryLate, 4),
		}
	}
	first, _ := Resolve("t", build())
	for i := 0; i < 50; i++ {
		again, _ := Resolve("t", build())
		if !reflect.DeepEqual(first.Keys(), again.Keys()) {
			t.Fatalf("resolution not deterministic: %v vs %v", first.Keys(), again.Keys())
		}
	}
}

func TestResolve_CycleExcludedRestResolves(t *testing.T) {
	// a and b form a relation cycle; c and d are unaffected.
	a := mkEntry("a", "", TierNormal, 1)
	b := mkEntry("b", "", TierNormal, 2)
	c := mkEntry("c", "", TierEarly, 3)
	d := mkEntry("d", "", TierNormal, 4)
	a.Before = []string{"b"}
	b.Before = []string{"a"}

	chain, conflicts := Resolve("t", []*Entry{a, b, c, d})

	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %v, want 1 group", conflicts)
	}
	if !reflect.DeepEqual(conflicts[0].Keys, []string{"a", "b"}) {
		t.Errorf("conflict keys = %v, want [a b]", conflicts[0].Keys)
	}
	if conflicts[0].Target != "t" {
		t.Errorf("conflict target = %q", conflicts[0].Target)
	}

	want := []string{"c", "d"}
	if got := chain.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("chain order = %v, want %v", got, want)
	}
}

func TestResolve_SelfLoopExcluded(t *testing.T) {
	a := mkEntry("a", "", TierNormal, 1)
	a.Before = []string{"a"}
	b := mkEntry("b", "", TierNormal, 2)

	chain, conflicts := Resolve("t", []*Entry{a, b})
	if len(conflicts) != 1 || !reflect.DeepEqual(conflicts[0].Keys, []string{"a"}) {
		t.Fatalf("conflicts = %v, want self-loop on a", conflicts)
	}
	if got := chain.Keys(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("chain order = %v, want [b]", got)
	}
}

func TestResolve_UnknownRelationIgnored(t *testing.T) {
	a := mkEntry("a", "", TierNormal, 1)
	a.Before = []string{"not-registered"}
	a.After = []string{"also-missing"}
	b := mkEntry("b", "", TierNormal, 2)

	chain, conflicts := Resolve("t", []*Entry{a, b})
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	want := []string{"a", "b"}
	if got := chain.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("chain order = %v, want %v", got, want)
	}
}

func TestResolve_DisabledEntriesSkipped(t *testing.T) {
	a := mkEntry("a", "", TierNormal, 1)
	b := mkEntry("b", "", TierNormal, 2)
	b.enabled = false

	chain, _ := Resolve("t", []*Entry{a, b})
	if got := chain.Keys(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("chain order = %v, want [a]", got)
	}
}

func TestResolve_Empty(t *testing.T) {
	chain, conflicts := Resolve("t", nil)
	if !chain.IsEmpty() {
		t.Error("expected empty chain")
	}
	if len(conflicts) != 0 {
		t.Errorf("unexpected conflicts: %v", conflicts)
	}
}

func TestResolve_NamedEntryKeys(t *testing.T) {
	a := mkEntry("mod", "first", TierNormal, 1)
	b := mkEntry("mod", "second", TierNormal, 2)
	b.Before = []string{"mod/first"}

	chain, conflicts := Resolve("t", []*Entry{a, b})
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	want := []string{"mod/second", "mod/first"}
	if got := chain.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("chain order = %v, want %v", got, want)
	}
}
