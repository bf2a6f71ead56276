package module

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeModule creates a module directory with the given files under base.
func writeModule(t *testing.T, base, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", file, err)
		}
	}
}

func TestLoader_Discover(t *testing.T) {
	base := t.TempDir()
	writeModule(t, base, "alpha", map[string]string{
		"module.json": `{"name": "alpha", "version": "1.0.0"}`,
		"init.lua":    `-- alpha`,
	})
	writeModule(t, base, "beta", map[string]string{
		"init.lua": `-- beta, no manifest`,
	})
	if err := os.WriteFile(filepath.Join(base, "gamma.lua"), []byte(`-- bare file`), 0o644); err != nil {
		t.Fatalf("write gamma.lua: %v", err)
	}
	writeModule(t, base, "empty", nil)

	l := NewLoader(WithPaths(base))
	infos := l.Discover()

	if len(infos) != 4 {
		t.Fatalf("Discover() found %d modules, want 4", len(infos))
	}
	// Sorted by name.
	names := l.Names()
	want := []string{"alpha", "beta", "empty", "gamma"}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], n)
		}
	}

	errored := l.Errors()
	if len(errored) != 1 || errored[0].Name != "empty" {
		t.Errorf("Errors() = %+v, want just empty", errored)
	}
	if !errors.Is(errored[0].Err, ErrNoEntryPoint) {
		t.Errorf("empty err = %v, want ErrNoEntryPoint", errored[0].Err)
	}
}

func TestLoader_FirstPathWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeModule(t, first, "dup", map[string]string{
		"module.json": `{"name": "dup", "version": "2.0.0"}`,
		"init.lua":    ``,
	})
	writeModule(t, second, "dup", map[string]string{
		"module.json": `{"name": "dup", "version": "1.0.0"}`,
		"init.lua":    ``,
	})

	l := NewLoader(WithPaths(first, second))
	l.Discover()

	info, err := l.Find("dup")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if info.Manifest.Version != "2.0.0" {
		t.Errorf("Version = %s, want the first path's 2.0.0", info.Manifest.Version)
	}
}

func TestLoader_FindOnDemand(t *testing.T) {
	base := t.TempDir()
	writeModule(t, base, "lazy", map[string]string{"init.lua": ``})

	l := NewLoader(WithPaths(base))
	// No Discover call; Find should locate it anyway.
	info, err := l.Find("lazy")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if info.Manifest.MainPath() != filepath.Join(base, "lazy", "init.lua") {
		t.Errorf("MainPath() = %s", info.Manifest.MainPath())
	}

	if _, err := l.Find("missing"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("Find(missing) = %v, want ErrModuleNotFound", err)
	}
}

func TestLoader_BareLuaFile(t *testing.T) {
	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "solo.lua"), []byte(``), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewLoader(WithPaths(base))
	info, err := l.Find("solo")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if info.Manifest.MainPath() != filepath.Join(base, "solo.lua") {
		t.Errorf("MainPath() = %s", info.Manifest.MainPath())
	}
}

func TestLoader_InvalidManifestReported(t *testing.T) {
	base := t.TempDir()
	writeModule(t, base, "broken", map[string]string{
		"module.json": `{"name": "Broken Name!"}`,
		"init.lua":    ``,
	})

	l := NewLoader(WithPaths(base))
	infos := l.Discover()
	if len(infos) != 1 || infos[0].Err == nil {
		t.Fatalf("expected one errored module, got %+v", infos)
	}
}
