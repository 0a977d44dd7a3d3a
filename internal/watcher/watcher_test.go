package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t       *testing.T
	dir     string
	builds  chan struct{}
	watcher *Watcher
	cancel  context.CancelFunc
	done    chan error
}

func startFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	configPath := filepath.Join(dir, ".stubforge.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("stubs_dir = '.stubforge'\n"), 0o644))
	overrideRoot := filepath.Join(dir, ".stubforge", ".local")
	require.NoError(t, os.MkdirAll(filepath.Join(overrideRoot, "requests"), 0o750))

	f := &fixture{t: t, dir: dir, builds: make(chan struct{}, 16)}
	build := func(context.Context) error {
		f.builds <- struct{}{}
		return nil
	}

	w, err := New(build, Options{
		ConfigPath:        configPath,
		RequirementsPaths: []string{filepath.Join(dir, "requirements.txt")},
		OverrideRoot:      overrideRoot,
		Debounce:          50 * time.Millisecond,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	f.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan error, 1)
	go func() { f.done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-f.done:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// The initial pass always runs.
	f.waitBuild("initial build")
	return f
}

func (f *fixture) waitBuild(what string) {
	f.t.Helper()
	select {
	case <-f.builds:
	case <-time.After(5 * time.Second):
		f.t.Fatalf("timed out waiting for %s", what)
	}
}

func (f *fixture) expectNoBuild() {
	f.t.Helper()
	select {
	case <-f.builds:
		f.t.Fatal("unexpected build")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestConfigChangeTriggersRebuild(t *testing.T) {
	f := startFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".stubforge.toml"),
		[]byte("stubs_dir = 'elsewhere'\n"), 0o644))
	f.waitBuild("rebuild after config change")
}

func TestRequirementsFileCreationTriggersRebuild(t *testing.T) {
	f := startFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "requirements.txt"),
		[]byte("requests==2.31.0\n"), 0o644))
	f.waitBuild("rebuild after requirements creation")
}

func TestOverrideChangeTriggersRebuild(t *testing.T) {
	f := startFixture(t)
	p := filepath.Join(f.dir, ".stubforge", ".local", "requests", "requests.pyi")
	require.NoError(t, os.WriteFile(p, []byte("x: int\n"), 0o644))
	f.waitBuild("rebuild after override change")
}

func TestUnrelatedFileIgnored(t *testing.T) {
	f := startFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "notes.txt"), []byte("hi"), 0o644))
	f.expectNoBuild()
}

func TestRapidChangesCoalesce(t *testing.T) {
	f := startFixture(t)
	configPath := filepath.Join(f.dir, ".stubforge.toml")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(configPath, []byte("stubs_dir = '.stubforge'\n"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}
	f.waitBuild("coalesced rebuild")
	f.expectNoBuild()
}

func TestIsEditorArtifact(t *testing.T) {
	cases := map[string]bool{
		"requirements.txt":    false,
		".stubforge.toml":     false,
		"requests.pyi":        false,
		"requests.pyi~":       true,
		".requests.pyi.swp":   true,
		".#requirements.txt":  true,
		"#requirements.txt#":  true,
		"dir/with/file.swx":   true,
		"dir/with/normal.txt": false,
	}
	for path, want := range cases {
		assert.Equal(t, want, isEditorArtifact(path), path)
	}
}
