package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/modkit/internal/event"
	"github.com/dshills/modkit/internal/event/topic"
)

// TopicModuleChanged is posted when files under a module directory
// change on disk. Delivery happens on the next runtime tick.
const TopicModuleChanged topic.Topic = "module.changed"

// ModuleChanged is the payload for TopicModuleChanged.
type ModuleChanged struct {
	Module string
	Path   string
}

// DefaultDebounce coalesces bursts of file events per module.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches module directories and posts module.changed events to
// the bus. Events arrive from the fsnotify goroutine, so they go through
// Post and surface at the next Tick rather than being published inline.
type Watcher struct {
	mu sync.Mutex

	logger   *zap.Logger
	bus      *event.Bus
	fsw      *fsnotify.Watcher
	debounce time.Duration

	// roots are the watched module base directories.
	roots []string

	// pending holds one debounce timer per module.
	pending map[string]*pendingChange

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets the per-module coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher posting to the given bus.
func New(bus *event.Bus, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		logger:   zap.NewNop(),
		bus:      bus,
		fsw:      fsw,
		debounce: DefaultDebounce,
		pending:  make(map[string]*pendingChange),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch adds a module base directory and its immediate module
// subdirectories. Missing directories are skipped silently.
func (w *Watcher) Watch(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := w.fsw.Add(abs); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	w.roots = append(w.roots, abs)

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := w.fsw.Add(filepath.Join(abs, entry.Name())); err != nil {
			w.logger.Warn("watch module dir failed",
				zap.String("dir", entry.Name()), zap.Error(err))
		}
	}
	return nil
}

// Roots returns the watched base directories.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	roots := make([]string, len(w.roots))
	copy(roots, w.roots)
	return roots
}

// Close stops the watcher and cancels pending notifications.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for module, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, module)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return
	}

	module, ok := w.moduleFor(ev.Name)
	if !ok {
		return
	}

	// New module directories get watched as they appear.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.logger.Warn("watch new module dir failed",
					zap.String("dir", ev.Name), zap.Error(err))
			}
		}
	}

	w.schedule(module, ev.Name)
}

// moduleFor maps a changed path to the module owning it: the first path
// element under a watched root. Bare name.lua files map to name.
func (w *Watcher) moduleFor(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		first := strings.Split(rel, string(filepath.Separator))[0]
		return strings.TrimSuffix(first, ".lua"), true
	}
	return "", false
}

// pendingChange is a debounced notification for one module.
type pendingChange struct {
	timer *time.Timer
	path  string
}

// schedule arms or resets the module's debounce timer.
func (w *Watcher) schedule(module, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if p, ok := w.pending[module]; ok {
		p.path = path
		p.timer.Reset(w.debounce)
		return
	}
	w.pending[module] = &pendingChange{
		path: path,
		timer: time.AfterFunc(w.debounce, func() {
			w.fire(module)
		}),
	}
}

func (w *Watcher) fire(module string) {
	w.mu.Lock()
	p, ok := w.pending[module]
	delete(w.pending, module)
	closed := w.closed
	w.mu.Unlock()
	if closed || !ok {
		return
	}
	path := p.path

	ev := event.New(TopicModuleChanged, ModuleChanged{Module: module, Path: path}, "watcher")
	if err := w.bus.Post(ev); err != nil {
		w.logger.Warn("post module change failed",
			zap.String("module", module), zap.Error(err))
	}
}

// Flush fires all pending notifications immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	modules := make([]string, 0, len(w.pending))
	for module, p := range w.pending {
		p.timer.Stop()
		modules = append(modules, module)
	}
	w.mu.Unlock()

	for _, module := range modules {
		w.fire(module)
	}
}
