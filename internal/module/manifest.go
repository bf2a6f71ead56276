package module

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dshills/modkit/internal/hook"
)

// Manifest describes an extension module: its identity, entry point,
// and the hooks and extension fields it declares up front.
type Manifest struct {
	// Name is the unique module identifier (e.g. "line-numbers").
	Name string `json:"name"`

	// Version is a semver string.
	Version string `json:"version"`

	// Description is a short human-readable summary.
	Description string `json:"description"`

	// Author is the author name or org.
	Author string `json:"author"`

	// Main is the relative path to the entry Lua file (default
	// "init.lua").
	Main string `json:"main"`

	// Hooks declares the interceptors the module will register.
	Hooks []HookDecl `json:"hooks"`

	// Fields declares the module's per-instance extension fields with
	// their defaults.
	Fields []FieldDecl `json:"fields"`

	// path is the module directory, set at load time.
	path string
}

// HookDecl declares one interceptor in the manifest.
type HookDecl struct {
	// Target is the host function identifier to intercept.
	Target string `json:"target"`

	// Name distinguishes multiple hooks on one target. Optional.
	Name string `json:"name"`

	// Tier is the priority bucket name ("very-early" through
	// "very-late"); empty means "normal".
	Tier string `json:"tier"`

	// Before and After are entry keys this hook orders against.
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// FieldDecl declares one extension field with its default value.
type FieldDecl struct {
	Name    string `json:"name"`
	Default any    `json:"default"`
}

// namePattern validates module names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// LoadManifest loads and validates a module manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewManifestMinimal creates a manifest for modules shipped as a bare
// Lua file with no module.json.
func NewManifestMinimal(name, path string) *Manifest {
	return &Manifest{
		Name:    name,
		Version: "0.0.0",
		Main:    "init.lua",
		path:    path,
	}
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks the manifest's fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	for i, h := range m.Hooks {
		if h.Target == "" {
			return fmt.Errorf("%w: hook %d has no target", ErrInvalidHookDecl, i)
		}
		if _, err := hook.ParseTier(h.Tier); err != nil {
			return fmt.Errorf("%w: hook %d: %v", ErrInvalidHookDecl, i, err)
		}
	}
	for i, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidFieldDecl, i)
		}
	}
	return nil
}

// Path returns the module directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path of the entry Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// FieldDefaults returns the declared fields as a defaults map.
func (m *Manifest) FieldDefaults() map[string]any {
	if len(m.Fields) == 0 {
		return nil
	}
	defaults := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		defaults[f.Name] = f.Default
	}
	return defaults
}

// String returns "name vVersion".
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}
