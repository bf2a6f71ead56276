package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/modkit/internal/config"
	"github.com/dshills/modkit/internal/event"
	"github.com/dshills/modkit/internal/module"
	"github.com/dshills/modkit/internal/runtime"
	"github.com/dshills/modkit/internal/target"
	"github.com/dshills/modkit/internal/watcher"
)

// Options are the command-line options.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// ModulePaths are extra module directories, searched before the
	// configured ones.
	ModulePaths []string

	// Modules restricts startup loading to the named modules.
	Modules []string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// Debug switches to the development logger.
	Debug bool
}

// App wires the runtime, module manager, and watcher into a running
// host process.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	rt        *runtime.Runtime
	mgr       *module.Manager
	watch     *watcher.Watcher
	reloadSub event.Subscription

	// only restricts startup loading when set from the command line.
	only []string

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds the application from options and configuration.
func New(opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	cfg.ModulePaths = append(opts.ModulePaths, cfg.ModulePaths...)

	logger, err := buildLogger(cfg.LogLevel, opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	rt := runtime.New(
		runtime.WithLogger(logger.Named("runtime")),
		runtime.WithQueueCapacity(cfg.QueueCapacity),
	)

	paths := cfg.ModulePaths
	if len(paths) == 0 {
		paths = module.DefaultModulePaths()
	}
	mgr := module.NewManager(rt,
		module.WithLogger(logger.Named("module")),
		module.WithSearchPaths(paths...),
	)

	a := &App{
		cfg:    cfg,
		logger: logger,
		rt:     rt,
		mgr:    mgr,
		only:   opts.Modules,
		stopCh: make(chan struct{}),
	}
	a.registerHostFunctions()
	return a, nil
}

// Runtime returns the underlying runtime.
func (a *App) Runtime() *runtime.Runtime {
	return a.rt
}

// Modules returns the module manager.
func (a *App) Modules() *module.Manager {
	return a.mgr
}

// Run loads and activates modules, then drives the tick loop until
// Shutdown is called.
func (a *App) Run(ctx context.Context) error {
	if err := a.loadModules(ctx); err != nil {
		a.logger.Warn("some modules failed to load", zap.Error(err))
	}
	if err := a.mgr.ActivateAll(ctx); err != nil {
		a.logger.Warn("some modules failed to activate", zap.Error(err))
	}

	if a.cfg.Watch {
		if err := a.startWatcher(); err != nil {
			a.logger.Warn("module watching disabled", zap.Error(err))
		}
	}

	ticker := time.NewTicker(time.Duration(a.cfg.TickInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.stopCh:
			return nil
		case <-ticker.C:
			a.rt.Tick()
		}
	}
}

// Shutdown stops the tick loop, unloads modules, and flushes the
// logger. Safe to call more than once.
func (a *App) Shutdown() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		if a.watch != nil {
			if err := a.watch.Close(); err != nil {
				a.logger.Warn("watcher close failed", zap.Error(err))
			}
		}
		if a.reloadSub != nil {
			a.reloadSub.Cancel()
		}
		if err := a.mgr.UnloadAll(context.Background()); err != nil {
			a.logger.Warn("unload failed", zap.Error(err))
		}
		_ = a.logger.Sync()
	})
}

// loadModules loads the command-line set, the configured auto-load
// set, or everything discovered, in that order of preference.
func (a *App) loadModules(ctx context.Context) error {
	names := a.only
	if len(names) == 0 {
		names = a.cfg.AutoLoad
	}
	if len(names) == 0 {
		return a.mgr.LoadAll(ctx)
	}

	var firstErr error
	for _, name := range names {
		if _, err := a.mgr.Load(ctx, name); err != nil {
			a.logger.Warn("module load failed", zap.String("module", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// startWatcher begins watching the module paths and reloads modules on
// change. The reload runs inside Tick, on the dispatch thread.
func (a *App) startWatcher() error {
	w, err := watcher.New(a.rt.Events(),
		watcher.WithLogger(a.logger.Named("watcher")),
		watcher.WithDebounce(time.Duration(a.cfg.DebounceInterval)*time.Millisecond),
	)
	if err != nil {
		return err
	}
	for _, root := range a.mgr.Loader().Paths() {
		if err := w.Watch(root); err != nil {
			a.logger.Warn("watch failed", zap.String("path", root), zap.Error(err))
		}
	}

	sub, err := a.rt.Events().SubscribeFunc(watcher.TopicModuleChanged, func(ev event.Event) (event.Propagation, error) {
		change := ev.Payload.(watcher.ModuleChanged)
		if _, loaded := a.mgr.Get(change.Module); !loaded {
			return event.Continue, nil
		}
		a.logger.Info("reloading module", zap.String("module", change.Module))
		if err := a.mgr.Reload(context.Background(), change.Module); err != nil {
			a.logger.Error("reload failed", zap.String("module", change.Module), zap.Error(err))
		}
		return event.Continue, nil
	})
	if err != nil {
		_ = w.Close()
		return err
	}

	a.reloadSub = sub
	a.watch = w
	return nil
}

// registerHostFunctions installs the built-in functions every module
// can call and hook.
func (a *App) registerHostFunctions() {
	log := a.logger.Named("modules")
	_ = a.rt.RegisterFunction("core.log", target.Signature{Params: []string{"string"}}, func(args []any) (any, error) {
		if len(args) > 0 {
			log.Info(fmt.Sprint(args[0]))
		}
		return nil, nil
	})
	_ = a.rt.RegisterFunction("core.version", target.Signature{Result: "string"}, func(args []any) (any, error) {
		return Version, nil
	})
}

// Version is set via ldflags at build time.
var Version = "dev"

// buildLogger constructs the zap logger for the configured level.
func buildLogger(level string, debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
