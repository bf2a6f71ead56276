package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestApp(t *testing.T, moduleFiles map[string]string) *App {
	t.Helper()
	dir := t.TempDir()
	modDir := filepath.Join(dir, "modules")
	for path, content := range moduleFiles {
		writeFile(t, filepath.Join(modDir, path), content)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	writeFile(t, cfgPath, "watch = false\ntick_interval_ms = 5\n")

	a, err := New(Options{
		ConfigPath:  cfgPath,
		ModulePaths: []string{modDir},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a
}

func TestApp_RunLoadsAndActivatesModules(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"hello/init.lua": `
			function activate()
				activated = true
				mk.host.call("core.log", "hello active")
			end
		`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if a.Modules().Count() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	host, ok := a.Modules().Get("hello")
	if !ok {
		t.Fatal("module hello not loaded")
	}

	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !host.HasFunction("activate") {
		time.Sleep(10 * time.Millisecond)
	}

	a.Shutdown()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	if a.Modules().Count() != 0 {
		t.Errorf("modules remain after shutdown: %d", a.Modules().Count())
	}
}

func TestApp_VersionHostFunction(t *testing.T) {
	a := newTestApp(t, nil)

	res, err := a.Runtime().Call("core.version", nil)
	if err != nil {
		t.Fatalf("Call(core.version) failed: %v", err)
	}
	if res != Version {
		t.Errorf("core.version = %v, want %s", res, Version)
	}
}

func TestApp_ExplicitModuleList(t *testing.T) {
	dir := t.TempDir()
	modDir := filepath.Join(dir, "modules")
	writeFile(t, filepath.Join(modDir, "wanted", "init.lua"), ``)
	writeFile(t, filepath.Join(modDir, "ignored", "init.lua"), ``)
	cfgPath := filepath.Join(dir, "config.toml")
	writeFile(t, cfgPath, "watch = false\ntick_interval_ms = 5\n")

	a, err := New(Options{
		ConfigPath:  cfgPath,
		ModulePaths: []string{modDir},
		Modules:     []string{"wanted"},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && a.Modules().Count() == 0 {
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := a.Modules().Get("wanted"); !ok {
		t.Error("wanted module not loaded")
	}
	if _, ok := a.Modules().Get("ignored"); ok {
		t.Error("ignored module loaded despite explicit list")
	}

	a.Shutdown()
	<-done
}
