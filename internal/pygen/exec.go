package pygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/stubforge/internal/errors"
	"git.home.luguber.info/inful/stubforge/internal/logfields"
)

// unitDiscoveryScript enumerates a package's importable units. It prints a
// JSON array of fully qualified names, or null when the package cannot be
// located. Private-name filtering happens on the Go side so it is testable.
const unitDiscoveryScript = `
import importlib.util, json, pkgutil, sys

name = sys.argv[1]
spec = importlib.util.find_spec(name)
if spec is None:
    print(json.dumps(None))
    sys.exit(0)

units = [spec.name]
if spec.submodule_search_locations is not None:
    for m in pkgutil.walk_packages(spec.submodule_search_locations, spec.name + "."):
        units.append(m.name)
print(json.dumps(units))
`

const generatorVersionScript = `
from mypy.version import __version__
print(__version__)
`

const pythonVersionScript = `
import sys
print("%d.%d" % sys.version_info[:2])
`

// ExecTools implements Invoker, UnitLister and Toolchain by shelling out to
// the Python toolchain.
type ExecTools struct {
	Python  string
	Stubgen string
	logger  *slog.Logger
}

// NewExecTools creates the exec-backed toolchain with default binary names.
func NewExecTools() *ExecTools {
	return &ExecTools{
		Python:  "python3",
		Stubgen: "stubgen",
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (t *ExecTools) WithLogger(logger *slog.Logger) *ExecTools {
	t.logger = logger
	return t
}

// Generate runs stubgen for one unit. The generator's exit status is wrapped
// into a structured result; exit-code conventions never leak past this point.
func (t *ExecTools) Generate(ctx context.Context, unit, workDir string) error {
	cmd := exec.CommandContext(ctx, t.Stubgen, unit)
	cmd.Dir = workDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.logger.Debug("Invoking stub generator", logfields.Unit(unit), logfields.Path(workDir))
	if err := cmd.Run(); err != nil {
		return errors.GenerationFailed(unit, fmt.Errorf("%w: %s", err, tail(stderr.String())))
	}
	return nil
}

// Units enumerates the package's importable units via the discovery script
// and filters out private names.
func (t *ExecTools) Units(ctx context.Context, pkg string) ([]string, error) {
	out, err := t.runPython(ctx, unitDiscoveryScript, pkg)
	if err != nil {
		return nil, err
	}
	return ParseUnits(pkg, out)
}

// GeneratorVersion returns the mypy/stubgen version string.
func (t *ExecTools) GeneratorVersion(ctx context.Context) (string, error) {
	out, err := t.runPython(ctx, generatorVersionScript)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// PythonVersion probes the interpreter for its major.minor identifier.
func (t *ExecTools) PythonVersion(ctx context.Context) (int, int, error) {
	out, err := t.runPython(ctx, pythonVersionScript)
	if err != nil {
		return 0, 0, err
	}
	var major, minor int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%d.%d", &major, &minor); err != nil {
		return 0, 0, fmt.Errorf("parse python version %q: %w", strings.TrimSpace(string(out)), err)
	}
	return major, minor, nil
}

func (t *ExecTools) runPython(ctx context.Context, script string, args ...string) ([]byte, error) {
	cmdArgs := append([]string{"-c", script}, args...)
	cmd := exec.CommandContext(ctx, t.Python, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.ToolchainError(t.Python, fmt.Errorf("%w: %s", err, tail(stderr.String())))
	}
	return stdout.Bytes(), nil
}

// ParseUnits decodes the discovery script output and drops private units
// (any qualified name containing a "._" segment). A null document means the
// package could not be located.
func ParseUnits(pkg string, out []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(out, &names); err != nil {
		return nil, fmt.Errorf("parse unit discovery output: %w", err)
	}
	if names == nil {
		return nil, errors.PackageNotFound(pkg)
	}

	units := names[:0]
	for _, name := range names {
		if strings.Contains(name, "._") {
			continue
		}
		units = append(units, name)
	}
	return units, nil
}

// tail returns the last few lines of process output for error context.
func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
