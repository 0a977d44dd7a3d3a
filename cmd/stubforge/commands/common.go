package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/stubforge/internal/buildstate"
	"git.home.luguber.info/inful/stubforge/internal/config"
	"git.home.luguber.info/inful/stubforge/internal/journal"
	"git.home.luguber.info/inful/stubforge/internal/logfields"
	"git.home.luguber.info/inful/stubforge/internal/pygen"
	"git.home.luguber.info/inful/stubforge/internal/requirements"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:".stubforge.toml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Regenerate stubs for stale modules"`
	Clean    CleanCmd    `cmd:"" help:"Remove generated stubs, preserving local overrides"`
	Discover DiscoverCmd `cmd:"" help:"List resolved build targets without building"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild continuously as inputs change"`
	History  HistoryCmd  `cmd:"" help:"Show recent per-module build outcomes"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// runtime bundles the collaborators most subcommands need.
type runtime struct {
	cfg      *config.Config
	versions map[string]string
	store    *buildstate.Store
	journal  *journal.Journal
	tools    *pygen.ExecTools
	userRoot string
	logger   *slog.Logger
}

// loadRuntime loads configuration and resolves the shared collaborators.
// Requirements parsing is fatal only when some module actually depends on it;
// a project pinning every version builds fine without requirements files.
func loadRuntime(root *CLI) (*runtime, error) {
	logger := slog.Default()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}

	versions, err := requirements.Parse(cfg.RequirementsPaths)
	if err != nil {
		if needsVersions(cfg) {
			return nil, err
		}
		logger.Warn("Requirements parsing failed; all versions are pinned so continuing",
			logfields.Error(err))
		versions = map[string]string{}
	}

	userRoot, err := config.UserOverrideRoot()
	if err != nil {
		logger.Warn("User override root unavailable", logfields.Error(err))
		userRoot = ""
	}

	return &runtime{
		cfg:      cfg,
		versions: versions,
		store:    buildstate.NewStore(stateDir(cfg)).WithLogger(logger),
		tools:    pygen.NewExecTools().WithLogger(logger),
		userRoot: userRoot,
		logger:   logger,
	}, nil
}

// openJournal attaches the build history database. Failures are logged, not
// fatal: history is observational.
func (r *runtime) openJournal() {
	if err := os.MkdirAll(stateDir(r.cfg), 0o750); err != nil {
		r.logger.Warn("Cannot create state directory, history disabled", logfields.Error(err))
		return
	}
	j, err := journal.Open(journalPath(r.cfg))
	if err != nil {
		r.logger.Warn("Cannot open build history, continuing without it", logfields.Error(err))
		return
	}
	r.journal = j
}

func (r *runtime) close() {
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.logger.Warn("Closing build history failed", logfields.Error(err))
		}
	}
}

func stateDir(cfg *config.Config) string {
	return filepath.Join(cfg.StubsDir, ".state")
}

func journalPath(cfg *config.Config) string {
	return filepath.Join(stateDir(cfg), "journal.db")
}

// needsVersions reports whether any build target depends on the requirements
// mapping for version resolution.
func needsVersions(cfg *config.Config) bool {
	if cfg.DiscoverModules {
		return true
	}
	for _, m := range cfg.Modules {
		if !m.Skip && m.Version == config.VersionAuto {
			return true
		}
	}
	return false
}
