// Package watcher keeps stubs current while a project is being edited. It
// combines filesystem notifications on the inputs that feed the module
// fingerprints (config file, requirements files, override trees) with an
// optional periodic rebuild schedule.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/stubforge/internal/logfields"
)

// BuildFunc runs one full build pass.
type BuildFunc func(ctx context.Context) error

// Options configure a Watcher.
type Options struct {
	// ConfigPath is the project configuration file. Its containing
	// directory is watched; only events for this file count.
	ConfigPath string

	// RequirementsPaths are the requirements files feeding version
	// resolution. Missing files are watched via their directory so
	// creating one later still triggers a rebuild.
	RequirementsPaths []string

	// OverrideRoot is the project override staging tree, watched
	// recursively.
	OverrideRoot string

	// Interval enables an additional periodic rebuild when positive.
	Interval time.Duration

	// MetricsAddr serves MetricsHandler on /metrics when non-empty.
	MetricsAddr    string
	MetricsHandler http.Handler

	// Debounce is how long to wait after the last event before
	// rebuilding. Defaults to 2 seconds.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher triggers rebuilds on input changes. Builds are serialized: events
// arriving while a build is running coalesce into at most one follow-up.
type Watcher struct {
	build        BuildFunc
	configPath   string
	reqPaths     map[string]struct{}
	overrideRoot string
	interval     time.Duration
	metricsAddr  string
	metricsH     http.Handler
	debounce     time.Duration
	logger       *slog.Logger

	fs      *fsnotify.Watcher
	buildCh chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher. Run must be called to start it.
func New(build BuildFunc, opts Options) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	configPath, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	reqPaths := make(map[string]struct{}, len(opts.RequirementsPaths))
	for _, p := range opts.RequirementsPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("resolve requirements path %s: %w", p, err)
		}
		reqPaths[abs] = struct{}{}
	}

	overrideRoot := ""
	if opts.OverrideRoot != "" {
		overrideRoot, err = filepath.Abs(opts.OverrideRoot)
		if err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("resolve override root: %w", err)
		}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		build:        build,
		configPath:   configPath,
		reqPaths:     reqPaths,
		overrideRoot: overrideRoot,
		interval:     opts.Interval,
		metricsAddr:  opts.MetricsAddr,
		metricsH:     opts.MetricsHandler,
		debounce:     debounce,
		logger:       logger,
		fs:           fs,
		buildCh:      make(chan struct{}, 1),
	}, nil
}

// Run performs an initial build, then blocks reacting to changes until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fs.Close() }()

	if err := w.addWatchTargets(); err != nil {
		return err
	}

	var scheduler gocron.Scheduler
	if w.interval > 0 {
		s, err := w.startScheduler()
		if err != nil {
			return err
		}
		scheduler = s
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				w.logger.Warn("scheduler shutdown", logfields.Error(err))
			}
		}()
	}

	if w.metricsAddr != "" {
		stop := w.startMetricsServer()
		defer stop()
	}

	done := make(chan struct{})
	defer close(done)
	go w.buildLoop(ctx, done)

	// Initial pass so a freshly started watcher converges before the
	// first change arrives.
	w.runBuild(ctx)

	return w.eventLoop(ctx)
}

func (w *Watcher) addWatchTargets() error {
	dirs := map[string]struct{}{
		filepath.Dir(w.configPath): {},
	}
	for p := range w.reqPaths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	if w.overrideRoot != "" {
		// The override tree may not exist yet; it is picked up on
		// creation through the parent directory watch.
		if err := w.fs.Add(filepath.Dir(w.overrideRoot)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(w.overrideRoot), err)
		}
		w.addDirsRecursive(w.overrideRoot)
	}
	w.logger.Info("watching for changes",
		slog.String("config", w.configPath),
		slog.Int("requirements_files", len(w.reqPaths)),
		slog.String("overrides", w.overrideRoot))
	return nil
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := w.fs.Add(path); addErr != nil {
				w.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(addErr))
			}
		}
		return nil
	})
}

func (w *Watcher) startScheduler() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.requestBuild),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule periodic rebuild: %w", err)
	}
	s.Start()
	w.logger.Info("periodic rebuild enabled", slog.Duration("interval", w.interval))
	return s, nil
}

func (w *Watcher) startMetricsServer() func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.metricsH)
	srv := &http.Server{Addr: w.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		w.logger.Info("metrics server listening", slog.String("addr", w.metricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("metrics server failed", logfields.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			w.logger.Warn("metrics server shutdown", logfields.Error(err))
		}
	}
}

func (w *Watcher) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if isEditorArtifact(ev.Name) {
		return
	}

	// New directories under the override tree need their own watch before
	// changes inside them are visible.
	if ev.Op&fsnotify.Create == fsnotify.Create && w.underOverrideRoot(ev.Name) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(ev.Name)
		}
	}

	if !w.relevant(ev.Name) {
		return
	}
	w.logger.Debug("change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.scheduleBuild()
}

// relevant reports whether a path feeds any module fingerprint.
func (w *Watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if abs == w.configPath {
		return true
	}
	if _, ok := w.reqPaths[abs]; ok {
		return true
	}
	return w.underOverrideRoot(abs)
}

func (w *Watcher) underOverrideRoot(name string) bool {
	if w.overrideRoot == "" {
		return false
	}
	return name == w.overrideRoot || strings.HasPrefix(name, w.overrideRoot+string(filepath.Separator))
}

// scheduleBuild arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleBuild() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.requestBuild)
}

// requestBuild queues a build, coalescing with any already-pending request.
func (w *Watcher) requestBuild() {
	select {
	case w.buildCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) buildLoop(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-w.buildCh:
			w.runBuild(ctx)
		}
	}
}

func (w *Watcher) runBuild(ctx context.Context) {
	start := time.Now()
	if err := w.build(ctx); err != nil {
		w.logger.Error("rebuild failed", logfields.Error(err),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		return
	}
	w.logger.Info("rebuild complete",
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

func isEditorArtifact(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"))
}
