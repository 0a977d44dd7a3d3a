// Package config loads the project configuration (.stubforge.toml). Module
// entries accept either a bare version string or a table with package_name,
// version and skip, matching the original configuration surface. The loaded
// value is passed explicitly into the registry and orchestrator; there is no
// ambient process-wide configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the configuration file looked up when -c is not given.
const DefaultPath = ".stubforge.toml"

// VersionAuto is the version policy sentinel meaning "derive the target
// version from the requirements source keyed by the module name".
const VersionAuto = "auto"

// Config is the application configuration.
type Config struct {
	// StubsDir is the output root: generated stubs, override staging
	// (.local), working directories (.work) and build state (.state) all
	// live beneath it.
	StubsDir string `toml:"stubs_dir"`

	// DiscoverModules enables building stubs for every requirements entry
	// that is not explicitly configured.
	DiscoverModules bool `toml:"discover_modules"`

	// RequirementsPaths lists the version-source files, in order; later
	// files win on conflicting names.
	RequirementsPaths []string `toml:"requirements_paths"`

	// PythonVersion pins the "major.minor" runtime identifier used to
	// select user-scope override directories. Empty means detect via the
	// toolchain.
	PythonVersion string `toml:"python_version"`

	Watch WatchConfig `toml:"watch"`

	// Modules is populated by normalization from the raw [modules] table.
	Modules map[string]ModuleConfig `toml:"-"`
}

// ModuleConfig is one normalized module entry.
type ModuleConfig struct {
	PackageName string
	Version     string
	Skip        bool
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Interval is an optional periodic full re-check, as a Go duration
	// string ("10m"). Empty disables the periodic trigger.
	Interval string `toml:"interval"`

	// MetricsAddr serves Prometheus metrics on this address when set.
	MetricsAddr string `toml:"metrics_addr"`
}

// rawConfig is the decode target before module-entry normalization.
type rawConfig struct {
	StubsDir          string         `toml:"stubs_dir"`
	DiscoverModules   bool           `toml:"discover_modules"`
	RequirementsPaths []string       `toml:"requirements_paths"`
	PythonVersion     string         `toml:"python_version"`
	Watch             WatchConfig    `toml:"watch"`
	Modules           map[string]any `toml:"modules"`
}

// Load reads and normalizes the configuration file. Environment variables in
// the file body are expanded, with optional .env support.
func Load(path string) (*Config, error) {
	// Best effort .env loading; absence is the normal case.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := &Config{
		StubsDir:          raw.StubsDir,
		DiscoverModules:   raw.DiscoverModules,
		RequirementsPaths: raw.RequirementsPaths,
		PythonVersion:     raw.PythonVersion,
		Watch:             raw.Watch,
	}
	applyDefaults(cfg)

	cfg.Modules, err = normalizeModules(raw.Modules)
	if err != nil {
		return nil, err
	}

	if cfg.PythonVersion != "" {
		if _, _, err := ParsePythonVersion(cfg.PythonVersion); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.StubsDir == "" {
		cfg.StubsDir = ".stubforge"
	}
	if len(cfg.RequirementsPaths) == 0 {
		cfg.RequirementsPaths = []string{"requirements.txt"}
	}
}

// normalizeModules converts the raw [modules] table into typed entries. A
// bare string value is shorthand for a literal version; a table may set
// package_name, version and skip. Version defaults to "auto".
func normalizeModules(raw map[string]any) (map[string]ModuleConfig, error) {
	modules := make(map[string]ModuleConfig, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			modules[name] = ModuleConfig{PackageName: name, Version: v}
		case map[string]any:
			entry := ModuleConfig{PackageName: name, Version: VersionAuto}
			if pkg, ok := v["package_name"]; ok {
				s, ok := pkg.(string)
				if !ok {
					return nil, fmt.Errorf("module %s: package_name must be a string", name)
				}
				entry.PackageName = s
			}
			if ver, ok := v["version"]; ok {
				s, ok := ver.(string)
				if !ok {
					return nil, fmt.Errorf("module %s: version must be a string", name)
				}
				entry.Version = s
			}
			if skip, ok := v["skip"]; ok {
				b, ok := skip.(bool)
				if !ok {
					return nil, fmt.Errorf("module %s: skip must be a boolean", name)
				}
				entry.Skip = b
			}
			modules[name] = entry
		default:
			return nil, fmt.Errorf("module %s: expected version string or table, got %T", name, value)
		}
	}
	return modules, nil
}

// ParsePythonVersion splits a "major.minor" identifier.
func ParsePythonVersion(s string) (major, minor int, err error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid python version %q: want major.minor", s)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid python version %q: %w", s, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid python version %q: %w", s, err)
	}
	return major, minor, nil
}

// UserOverrideRoot returns the user-scope override root directory
// (<user config dir>/stubforge), mirroring the original appdirs layout.
func UserOverrideRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "stubforge"), nil
}
