// Package registry resolves configuration entries into concrete build
// targets. Explicitly configured modules come first; when discovery is
// enabled every requirements entry without an explicit configuration is added
// as a stub target of its own, so transitive dependencies get stubs without
// manual listing.
package registry

import (
	"fmt"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/stubforge/internal/config"
	"git.home.luguber.info/inful/stubforge/internal/errors"
	"git.home.luguber.info/inful/stubforge/internal/util/sets"
)

// ModuleSpec is the identity and policy for one build target. It is rebuilt
// from configuration on every run and never persisted; only the resolved
// version and fingerprint survive a run, via the build record.
type ModuleSpec struct {
	// Name is the unique module key (configuration key or requirements name).
	Name string

	// PackageName is the importable package to generate stubs for; defaults
	// to Name.
	PackageName string

	// Version is the version policy: a literal version string or
	// config.VersionAuto.
	Version string

	// Skip marks targets that are enumerated but never built.
	Skip bool

	// Discovered is true for targets added by requirements discovery rather
	// than explicit configuration.
	Discovered bool

	stubsDir string
}

// WorkingRoot is the directory uniquely owned by this module for staging
// generator output.
func (m ModuleSpec) WorkingRoot() string {
	return filepath.Join(m.stubsDir, ".work", m.Name)
}

// OverrideDir is the project-local override directory for this module.
func (m ModuleSpec) OverrideDir() string {
	return filepath.Join(m.stubsDir, ".local", m.Name)
}

// UserOverrideDirs returns the user-scope override directories in increasing
// specificity: runtime major first, then major.minor.
func (m ModuleSpec) UserOverrideDirs(userRoot string, major, minor int) []string {
	return []string{
		filepath.Join(userRoot, "local", fmt.Sprintf("%d", major), m.Name),
		filepath.Join(userRoot, "local", fmt.Sprintf("%d.%d", major, minor), m.Name),
	}
}

// TargetVersion resolves the version policy against the requirements mapping.
// Resolution happens at read time, against the single mapping computed for
// this run, so every component observes the same source.
func (m ModuleSpec) TargetVersion(versions map[string]string) (string, error) {
	if m.Version != config.VersionAuto {
		return m.Version, nil
	}
	v, ok := versions[m.Name]
	if !ok {
		return "", errors.VersionUnresolvable(m.Name)
	}
	return v, nil
}

// Resolve builds the target list from configuration plus discovery. Skipped
// entries are included so callers can observe and log the skip; the
// orchestrator filters them before building. The result order is
// deterministic: configured names sorted, then discovered names sorted.
func Resolve(cfg *config.Config, versions map[string]string) []ModuleSpec {
	specs := make([]ModuleSpec, 0, len(cfg.Modules))
	configured := sets.New[string]()

	names := make([]string, 0, len(cfg.Modules))
	for name := range cfg.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := cfg.Modules[name]
		configured.Add(name)
		specs = append(specs, ModuleSpec{
			Name:        name,
			PackageName: entry.PackageName,
			Version:     entry.Version,
			Skip:        entry.Skip,
			stubsDir:    cfg.StubsDir,
		})
	}

	if cfg.DiscoverModules {
		discovered := make([]string, 0, len(versions))
		for name := range versions {
			if !configured.Has(name) {
				discovered = append(discovered, name)
			}
		}
		sort.Strings(discovered)

		for _, name := range discovered {
			specs = append(specs, ModuleSpec{
				Name:        name,
				PackageName: name,
				Version:     versions[name],
				Discovered:  true,
				stubsDir:    cfg.StubsDir,
			})
		}
	}

	return specs
}
