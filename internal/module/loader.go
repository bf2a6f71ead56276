package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader discovers modules on the filesystem. A module is a directory
// containing module.json or init.lua, or a bare name.lua file. Search
// paths are checked in order; the first path to provide a name wins.
type Loader struct {
	paths      []string
	discovered map[string]*Info
}

// Info is discovery information about one module.
type Info struct {
	Name     string
	Path     string
	Manifest *Manifest
	Err      error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the module search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a module loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultModulePaths(),
		discovered: make(map[string]*Info),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultModulePaths returns the default search paths: the user config
// directory then the working directory's .modkit/modules.
func DefaultModulePaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "modkit", "modules"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".modkit", "modules"))
	}
	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover scans the search paths and returns the modules found, sorted
// by name. Missing paths are skipped silently.
func (l *Loader) Discover() []*Info {
	l.discovered = make(map[string]*Info)

	for _, base := range l.paths {
		l.discoverIn(base)
	}

	infos := make([]*Info, 0, len(l.discovered))
	for _, info := range l.discovered {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (l *Loader) discoverIn(base string) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				name := strings.TrimSuffix(entry.Name(), ".lua")
				l.addSingleFile(name, filepath.Join(base, entry.Name()))
			}
			continue
		}

		info := l.inspect(entry.Name(), filepath.Join(base, entry.Name()))
		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}
}

func (l *Loader) addSingleFile(name, luaPath string) {
	if _, exists := l.discovered[name]; exists {
		return
	}
	manifest := NewManifestMinimal(name, filepath.Dir(luaPath))
	manifest.Main = filepath.Base(luaPath)
	l.discovered[name] = &Info{
		Name:     name,
		Path:     filepath.Dir(luaPath),
		Manifest: manifest,
	}
}

// inspect examines one module directory.
func (l *Loader) inspect(name, path string) *Info {
	info := &Info{Name: name, Path: path}

	manifestPath := filepath.Join(path, "module.json")
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Err = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name
		return info
	}

	if _, err := os.Stat(filepath.Join(path, "init.lua")); err == nil {
		info.Manifest = NewManifestMinimal(name, path)
		return info
	}

	info.Err = ErrNoEntryPoint
	return info
}

// Find locates a module by name, discovering on demand.
func (l *Loader) Find(name string) (*Info, error) {
	if info, ok := l.discovered[name]; ok {
		return info, nil
	}

	for _, base := range l.paths {
		dir := filepath.Join(base, name)
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			info := l.inspect(name, dir)
			if info.Err == nil {
				l.discovered[info.Name] = info
				return info, nil
			}
		}

		luaPath := filepath.Join(base, name+".lua")
		if _, err := os.Stat(luaPath); err == nil {
			l.addSingleFile(name, luaPath)
			return l.discovered[name], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
}

// Names returns the discovered module names, sorted.
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Errors returns the discovered modules with discovery errors.
func (l *Loader) Errors() []*Info {
	var errored []*Info
	for _, info := range l.discovered {
		if info.Err != nil {
			errored = append(errored, info)
		}
	}
	sort.Slice(errored, func(i, j int) bool { return errored[i].Name < errored[j].Name })
	return errored
}
