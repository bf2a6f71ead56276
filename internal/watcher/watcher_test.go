package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/modkit/internal/event"
)

// waitFor polls the bus until at least want changes arrive or the
// deadline passes, flushing the ingress queue each round.
func waitFor(t *testing.T, bus *event.Bus, got *[]ModuleChanged, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		bus.Flush()
		if len(*got) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("got %d changes before deadline, want %d", len(*got), want)
}

func newWatchEnv(t *testing.T) (*event.Bus, *Watcher, *[]ModuleChanged, string) {
	t.Helper()
	bus := event.NewBus()
	var changes []ModuleChanged
	bus.SubscribeFunc(TopicModuleChanged, func(ev event.Event) (event.Propagation, error) {
		changes = append(changes, ev.Payload.(ModuleChanged))
		return event.Continue, nil
	})

	w, err := New(bus, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	root := t.TempDir()
	return bus, w, &changes, root
}

func TestWatcher_ModuleFileChange(t *testing.T) {
	bus, w, changes, root := newWatchEnv(t)

	dir := filepath.Join(root, "line-numbers")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte(`-- v1`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, bus, changes, 1)
	if (*changes)[0].Module != "line-numbers" {
		t.Errorf("Module = %s, want line-numbers", (*changes)[0].Module)
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	bus, w, changes, root := newWatchEnv(t)

	dir := filepath.Join(root, "busy")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	// A burst of writes within the window yields one notification.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte{byte('0' + i)}, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	waitFor(t, bus, changes, 1)
	// Allow any stragglers to surface, then confirm coalescing.
	time.Sleep(100 * time.Millisecond)
	bus.Flush()
	if len(*changes) != 1 {
		t.Errorf("burst produced %d notifications, want 1", len(*changes))
	}
}

func TestWatcher_BareLuaFile(t *testing.T) {
	bus, w, changes, root := newWatchEnv(t)

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "solo.lua"), []byte(``), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, bus, changes, 1)
	if (*changes)[0].Module != "solo" {
		t.Errorf("Module = %s, want solo", (*changes)[0].Module)
	}
}

func TestWatcher_MissingRootSkipped(t *testing.T) {
	_, w, _, root := newWatchEnv(t)

	if err := w.Watch(filepath.Join(root, "does-not-exist")); err != nil {
		t.Errorf("Watch() of missing dir = %v, want nil", err)
	}
	if len(w.Roots()) != 0 {
		t.Errorf("Roots() = %v, want empty", w.Roots())
	}
}

func TestWatcher_ClosedRejectsWatch(t *testing.T) {
	_, w, _, root := newWatchEnv(t)

	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := w.Watch(root); err != ErrWatcherClosed {
		t.Errorf("Watch() after close = %v, want ErrWatcherClosed", err)
	}
	// Close is idempotent.
	if err := w.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
