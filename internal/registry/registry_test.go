package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stubforge/internal/config"
	"git.home.luguber.info/inful/stubforge/internal/errors"
)

func testConfig(discover bool, modules map[string]config.ModuleConfig) *config.Config {
	return &config.Config{
		StubsDir:        ".stubforge",
		DiscoverModules: discover,
		Modules:         modules,
	}
}

func TestResolveExplicitOnly(t *testing.T) {
	cfg := testConfig(false, map[string]config.ModuleConfig{
		"requests": {PackageName: "requests", Version: "2.31.0"},
		"numpy":    {PackageName: "numpy", Version: "auto", Skip: true},
	})

	specs := Resolve(cfg, map[string]string{"numpy": "1.26", "flask": "3.0"})
	require.Len(t, specs, 2)

	// Sorted by name; flask not added because discovery is off.
	assert.Equal(t, "numpy", specs[0].Name)
	assert.True(t, specs[0].Skip)
	assert.Equal(t, "requests", specs[1].Name)
	assert.False(t, specs[1].Discovered)
}

func TestResolveDiscoveryExcludesConfigured(t *testing.T) {
	cfg := testConfig(true, map[string]config.ModuleConfig{
		"foo": {PackageName: "foo", Version: "1.0.0"},
	})

	specs := Resolve(cfg, map[string]string{"foo": "9.9.9", "bar": "2.0.0"})
	require.Len(t, specs, 2)

	assert.Equal(t, "foo", specs[0].Name)
	assert.Equal(t, "1.0.0", specs[0].Version, "explicit entry wins over requirements")
	assert.False(t, specs[0].Discovered)

	assert.Equal(t, "bar", specs[1].Name)
	assert.Equal(t, "2.0.0", specs[1].Version)
	assert.True(t, specs[1].Discovered)
}

func TestResolveDeterministicOrder(t *testing.T) {
	cfg := testConfig(true, map[string]config.ModuleConfig{
		"zeta":  {PackageName: "zeta", Version: "1"},
		"alpha": {PackageName: "alpha", Version: "1"},
	})
	versions := map[string]string{"mid": "1", "beta": "1"}

	first := Resolve(cfg, versions)
	second := Resolve(cfg, versions)
	require.Equal(t, first, second)

	names := make([]string, 0, len(first))
	for _, s := range first {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"alpha", "zeta", "beta", "mid"}, names)
}

func TestTargetVersionLiteral(t *testing.T) {
	spec := ModuleSpec{Name: "requests", Version: "2.31.0"}
	v, err := spec.TargetVersion(nil)
	require.NoError(t, err)
	assert.Equal(t, "2.31.0", v)
}

func TestTargetVersionAuto(t *testing.T) {
	spec := ModuleSpec{Name: "requests", Version: config.VersionAuto}
	v, err := spec.TargetVersion(map[string]string{"requests": "2.31.0"})
	require.NoError(t, err)
	assert.Equal(t, "2.31.0", v)
}

func TestTargetVersionAutoUnresolvable(t *testing.T) {
	spec := ModuleSpec{Name: "requests", Version: config.VersionAuto}
	_, err := spec.TargetVersion(map[string]string{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestModulePaths(t *testing.T) {
	cfg := testConfig(false, map[string]config.ModuleConfig{
		"requests": {PackageName: "requests", Version: "auto"},
	})
	specs := Resolve(cfg, nil)
	require.Len(t, specs, 1)
	spec := specs[0]

	assert.Equal(t, filepath.Join(".stubforge", ".work", "requests"), spec.WorkingRoot())
	assert.Equal(t, filepath.Join(".stubforge", ".local", "requests"), spec.OverrideDir())
	assert.Equal(t, []string{
		filepath.Join("home", "cfg", "local", "3", "requests"),
		filepath.Join("home", "cfg", "local", "3.12", "requests"),
	}, spec.UserOverrideDirs(filepath.Join("home", "cfg"), 3, 12))
}
