// Package pygen is the boundary to the external Python tooling: the stubgen
// generator, importable-unit discovery and toolchain version probes. The core
// consumes the interfaces; the exec-backed implementations live in this
// package so tests can substitute fakes.
package pygen

import "context"

// Invoker produces stub artifacts for one resolvable unit.
type Invoker interface {
	// Generate runs the generator for unit with workDir as the working
	// directory. The generator writes its output beneath workDir/out.
	Generate(ctx context.Context, unit, workDir string) error
}

// UnitLister enumerates the resolvable units beneath a top-level package: the
// package's own fully qualified name plus every importable sub-unit,
// excluding private (underscore-prefixed) names.
type UnitLister interface {
	Units(ctx context.Context, pkg string) ([]string, error)
}

// Toolchain exposes the version identifiers that feed the fingerprint and
// the override directory layout.
type Toolchain interface {
	// GeneratorVersion returns the stub generator's version string. It is
	// the first fingerprint input: upgrading the generator invalidates
	// every module.
	GeneratorVersion(ctx context.Context) (string, error)

	// PythonVersion returns the runtime's major and minor version, used to
	// select user-scope override directories.
	PythonVersion(ctx context.Context) (major, minor int, err error)
}

// OutputDirName is the subdirectory of the working directory that the
// generator writes into (stubgen's default).
const OutputDirName = "out"
