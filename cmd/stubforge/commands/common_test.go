package commands

import (
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stubforge/internal/config"
)

func TestNeedsVersions(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{"discovery enabled", config.Config{DiscoverModules: true}, true},
		{"auto module", config.Config{Modules: map[string]config.ModuleConfig{
			"requests": {PackageName: "requests", Version: config.VersionAuto},
		}}, true},
		{"skipped auto module", config.Config{Modules: map[string]config.ModuleConfig{
			"requests": {PackageName: "requests", Version: config.VersionAuto, Skip: true},
		}}, false},
		{"all pinned", config.Config{Modules: map[string]config.ModuleConfig{
			"requests": {PackageName: "requests", Version: "2.31.0"},
		}}, false},
		{"empty", config.Config{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, needsVersions(&tc.cfg))
		})
	}
}

func TestResolveInterval(t *testing.T) {
	rt := &runtime{cfg: &config.Config{Watch: config.WatchConfig{Interval: "10m"}}}

	d, err := (&WatchCmd{}).resolveInterval(rt)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, d)

	d, err = (&WatchCmd{Interval: "30s"}).resolveInterval(rt)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d, "flag overrides config")

	rt.cfg.Watch.Interval = ""
	d, err = (&WatchCmd{}).resolveInterval(rt)
	require.NoError(t, err)
	assert.Zero(t, d, "empty interval disables the periodic trigger")

	_, err = (&WatchCmd{Interval: "often"}).resolveInterval(rt)
	require.Error(t, err)
}

func TestCLIParsing(t *testing.T) {
	newParser := func(t *testing.T, cli *CLI) *kong.Kong {
		t.Helper()
		parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
		require.NoError(t, err)
		return parser
	}

	t.Run("build", func(t *testing.T) {
		var cli CLI
		ctx, err := newParser(t, &cli).Parse([]string{"build"})
		require.NoError(t, err)
		assert.Equal(t, "build", ctx.Command())
		assert.Equal(t, ".stubforge.toml", cli.Config)
	})

	t.Run("history with module", func(t *testing.T) {
		var cli CLI
		ctx, err := newParser(t, &cli).Parse([]string{"history", "requests", "-n", "5"})
		require.NoError(t, err)
		assert.Equal(t, "history <module>", ctx.Command())
		assert.Equal(t, "requests", cli.History.Module)
		assert.Equal(t, 5, cli.History.Limit)
	})

	t.Run("watch flags", func(t *testing.T) {
		var cli CLI
		_, err := newParser(t, &cli).Parse([]string{"watch", "--interval", "1m", "--metrics-addr", ":9090"})
		require.NoError(t, err)
		assert.Equal(t, "1m", cli.Watch.Interval)
		assert.Equal(t, ":9090", cli.Watch.MetricsAddr)
	})
}
