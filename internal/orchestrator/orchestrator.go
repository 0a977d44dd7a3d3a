// Package orchestrator drives the incremental build loop: resolve build
// targets, decide stale vs. fresh per module, regenerate and layer overrides
// when stale, and record the new build state only after everything succeeded.
// Modules are independent; a failure in one never aborts its siblings.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/stubforge/internal/buildstate"
	"git.home.luguber.info/inful/stubforge/internal/config"
	"git.home.luguber.info/inful/stubforge/internal/errors"
	"git.home.luguber.info/inful/stubforge/internal/fingerprint"
	"git.home.luguber.info/inful/stubforge/internal/journal"
	"git.home.luguber.info/inful/stubforge/internal/logfields"
	"git.home.luguber.info/inful/stubforge/internal/metrics"
	"git.home.luguber.info/inful/stubforge/internal/overlay"
	"git.home.luguber.info/inful/stubforge/internal/pygen"
	"git.home.luguber.info/inful/stubforge/internal/registry"
	"git.home.luguber.info/inful/stubforge/internal/workspace"
)

// Options carries the orchestrator's collaborators. Config and the
// requirements mapping are explicit values computed once per run; no
// component reaches for ambient state.
type Options struct {
	Config   *config.Config
	Versions map[string]string

	Store   *buildstate.Store
	Engine  *fingerprint.Engine
	Invoker pygen.Invoker
	Units   pygen.UnitLister
	Tools   pygen.Toolchain

	// UserOverrideRoot is the user-scope override root; empty disables
	// user-scope layering.
	UserOverrideRoot string

	Recorder metrics.Recorder
	Journal  *journal.Journal // optional
	Stdout   io.Writer
	Logger   *slog.Logger
}

// Orchestrator executes one or more build runs over a fixed configuration.
type Orchestrator struct {
	cfg      *config.Config
	versions map[string]string

	store   *buildstate.Store
	engine  *fingerprint.Engine
	invoker pygen.Invoker
	units   pygen.UnitLister
	tools   pygen.Toolchain

	userOverrideRoot string

	recorder metrics.Recorder
	journal  *journal.Journal
	stdout   io.Writer
	logger   *slog.Logger
}

// New creates an orchestrator from options, filling in defaults for optional
// collaborators.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:              opts.Config,
		versions:         opts.Versions,
		store:            opts.Store,
		engine:           opts.Engine,
		invoker:          opts.Invoker,
		units:            opts.Units,
		tools:            opts.Tools,
		userOverrideRoot: opts.UserOverrideRoot,
		recorder:         opts.Recorder,
		journal:          opts.Journal,
		stdout:           opts.Stdout,
		logger:           opts.Logger,
	}
	if o.engine == nil {
		o.engine = fingerprint.NewEngine()
	}
	if o.recorder == nil {
		o.recorder = metrics.NoopRecorder{}
	}
	if o.stdout == nil {
		o.stdout = os.Stdout
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// moduleResult is the per-module outcome fed to metrics and the journal.
type moduleResult struct {
	outcome metrics.OutcomeLabel
	version string
	digest  string
}

// Run processes every resolved target sequentially. Per-module failures are
// logged and counted; Run returns an aggregate error iff any module failed.
func (o *Orchestrator) Run(ctx context.Context) error {
	toolVersion, err := o.tools.GeneratorVersion(ctx)
	if err != nil {
		return errors.ToolchainError("generator", err)
	}

	pyMajor, pyMinor, err := o.runtimeVersion(ctx)
	if err != nil {
		return err
	}

	specs := registry.Resolve(o.cfg, o.versions)
	o.recorder.SetModulesResolved(len(specs))

	runID := uuid.NewString()
	o.logger.Info("Starting run",
		logfields.RunID(runID),
		slog.Int("modules", len(specs)),
		slog.String("generator_version", toolVersion))

	var failed int
	for _, spec := range specs {
		start := time.Now()
		result, err := o.processModule(ctx, spec, toolVersion, pyMajor, pyMinor)
		elapsed := time.Since(start)

		if err != nil {
			failed++
			result.outcome = metrics.OutcomeFailed
			o.logger.Error("Module build failed",
				logfields.Module(spec.Name),
				logfields.Error(err))
		}

		o.recorder.IncModuleOutcome(result.outcome)
		if result.outcome == metrics.OutcomeRebuilt {
			o.recorder.ObserveModuleBuildDuration(spec.Name, elapsed)
		}
		o.recordJournal(ctx, runID, spec.Name, result, elapsed)
	}

	if failed > 0 {
		return errors.New(errors.CategoryGeneration, errors.SeverityFatal,
			fmt.Sprintf("%d of %d modules failed", failed, len(specs)))
	}
	return nil
}

// runtimeVersion resolves the runtime identifier used for user-scope
// override directories: pinned in configuration, otherwise probed.
func (o *Orchestrator) runtimeVersion(ctx context.Context) (int, int, error) {
	if o.cfg.PythonVersion != "" {
		major, minor, err := config.ParsePythonVersion(o.cfg.PythonVersion)
		if err != nil {
			return 0, 0, errors.ConfigInvalid("python_version", err)
		}
		return major, minor, nil
	}
	major, minor, err := o.tools.PythonVersion(ctx)
	if err != nil {
		return 0, 0, errors.ToolchainError("python", err)
	}
	return major, minor, nil
}

func (o *Orchestrator) processModule(ctx context.Context, spec registry.ModuleSpec, toolVersion string, pyMajor, pyMinor int) (moduleResult, error) {
	if spec.Skip {
		o.logger.Info("Skipping module", logfields.Module(spec.Name))
		return moduleResult{outcome: metrics.OutcomeSkipped}, nil
	}

	target, err := spec.TargetVersion(o.versions)
	if err != nil {
		return moduleResult{}, err
	}

	if digest, fresh := o.isFresh(spec, target, toolVersion); fresh {
		fmt.Fprintf(o.stdout, "%s is up to date\n", spec.Name)
		return moduleResult{outcome: metrics.OutcomeUpToDate, version: target, digest: digest}, nil
	}

	digest, err := o.rebuild(ctx, spec, target, toolVersion, pyMajor, pyMinor)
	if err != nil {
		return moduleResult{version: target}, err
	}
	return moduleResult{outcome: metrics.OutcomeRebuilt, version: target, digest: digest}, nil
}

// isFresh applies the staleness transition rule: fresh only when a record
// exists, its version matches the resolved target, its algorithm is in the
// allow-list and recomputing the digest over the current input set reproduces
// the stored digest. Everything else is stale.
func (o *Orchestrator) isFresh(spec registry.ModuleSpec, target, toolVersion string) (string, bool) {
	rec := o.store.Read(spec.Name)
	if rec == nil {
		return "", false
	}
	if rec.Version != target {
		o.logger.Debug("Target version changed",
			logfields.Module(spec.Name),
			slog.String("built", rec.Version),
			slog.String("target", target))
		return "", false
	}
	if !fingerprint.Supported(rec.Algo) {
		o.logger.Warn("Build record uses unrecognized hash algorithm, rebuilding",
			logfields.Module(spec.Name), logfields.Algo(rec.Algo))
		return "", false
	}

	start := time.Now()
	digest, err := o.engine.Compute(rec.Algo, o.fingerprintInputs(spec, target, toolVersion))
	o.recorder.ObserveFingerprintDuration(time.Since(start))
	if err != nil {
		// Fail closed: an uncomputable fingerprint must never pass as fresh.
		o.logger.Warn("Fingerprint computation failed, rebuilding",
			logfields.Module(spec.Name), logfields.Error(err))
		return "", false
	}
	return digest, digest == rec.Digest
}

// fingerprintInputs assembles the module's ordered input set: generator
// version, target version, the project-local override tree, then whatever
// artifact is currently materialized (<pkg>.pyi file or <pkg> directory).
func (o *Orchestrator) fingerprintInputs(spec registry.ModuleSpec, target, toolVersion string) []fingerprint.Input {
	inputs := []fingerprint.Input{
		fingerprint.String(toolVersion),
		fingerprint.String(target),
		fingerprint.Dir(spec.OverrideDir()),
	}
	for _, artifact := range []string{spec.PackageName + ".pyi", spec.PackageName} {
		p := filepath.Join(o.cfg.StubsDir, artifact)
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.IsDir() {
			inputs = append(inputs, fingerprint.Dir(p))
		} else {
			inputs = append(inputs, fingerprint.File(p))
		}
	}
	return inputs
}

// rebuild regenerates the module's stubs, layers overrides over them and
// records the new build state. The ordering is strict: generation completes
// before layering, layering completes before the record write, and any
// failure leaves the prior record untouched.
func (o *Orchestrator) rebuild(ctx context.Context, spec registry.ModuleSpec, target, toolVersion string, pyMajor, pyMinor int) (string, error) {
	fmt.Fprintf(o.stdout, "Building stubs for %s\n", spec.Name)
	o.logger.Info("Rebuilding module",
		logfields.Module(spec.Name),
		logfields.Package(spec.PackageName),
		logfields.Version(target))

	ws := workspace.NewManager(spec.WorkingRoot())
	if err := ws.Create(); err != nil {
		return "", errors.WorkspaceError("create", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			o.logger.Warn("Staging cleanup failed", logfields.Module(spec.Name), logfields.Error(err))
		}
	}()

	if _, err := ws.CreateSubdir(pygen.OutputDirName); err != nil {
		return "", errors.WorkspaceError("create output dir", err)
	}

	units, err := o.units.Units(ctx, spec.PackageName)
	if err != nil {
		return "", err
	}
	for _, unit := range units {
		if err := o.invoker.Generate(ctx, unit, ws.Path()); err != nil {
			return "", err
		}
	}

	overrides := make([]string, 0, 3)
	if o.userOverrideRoot != "" {
		overrides = append(overrides, spec.UserOverrideDirs(o.userOverrideRoot, pyMajor, pyMinor)...)
	}
	overrides = append(overrides, spec.OverrideDir())

	primary := filepath.Join(ws.Path(), pygen.OutputDirName)
	if err := overlay.Materialize(primary, overrides, o.cfg.StubsDir); err != nil {
		return "", errors.LayeringFailed(o.cfg.StubsDir, err)
	}

	// Fingerprint the post-layering state so the record proves exactly what
	// was materialized.
	start := time.Now()
	digest, err := o.engine.Compute(fingerprint.DefaultAlgorithm, o.fingerprintInputs(spec, target, toolVersion))
	o.recorder.ObserveFingerprintDuration(time.Since(start))
	if err != nil {
		return "", errors.InternalError("fingerprint after build", err)
	}

	if err := o.store.Write(spec.Name, buildstate.Record{
		Version: target,
		Digest:  digest,
		Algo:    fingerprint.DefaultAlgorithm,
	}); err != nil {
		return "", errors.RecordWriteFailed(spec.Name, err)
	}

	o.logger.Info("Module rebuilt",
		logfields.Module(spec.Name),
		logfields.Version(target),
		logfields.Digest(digest))
	return digest, nil
}

func (o *Orchestrator) recordJournal(ctx context.Context, runID, module string, result moduleResult, elapsed time.Duration) {
	if o.journal == nil {
		return
	}
	err := o.journal.Record(ctx, journal.Entry{
		RunID:    runID,
		Module:   module,
		Outcome:  string(result.outcome),
		Version:  result.version,
		Digest:   result.digest,
		Duration: elapsed,
	})
	if err != nil {
		o.logger.Warn("Journal write failed", logfields.Module(module), logfields.Error(err))
	}
}

// Clean removes all previously produced output beneath the stubs directory,
// preserving only the project-local override staging directory.
func (o *Orchestrator) Clean() error {
	entries, err := os.ReadDir(o.cfg.StubsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read stubs directory: %w", err)
	}

	for _, entry := range entries {
		if entry.Name() == ".local" {
			continue
		}
		target := filepath.Join(o.cfg.StubsDir, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}
		o.logger.Info("Removed", logfields.Path(target))
	}
	return nil
}
