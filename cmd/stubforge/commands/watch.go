package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/stubforge/internal/metrics"
	"git.home.luguber.info/inful/stubforge/internal/orchestrator"
	"git.home.luguber.info/inful/stubforge/internal/watcher"
)

// WatchCmd implements the 'watch' command: stay resident and rebuild whenever
// a fingerprint input changes, plus an optional periodic full pass.
type WatchCmd struct {
	Interval    string `help:"Periodic rebuild interval (Go duration), overriding [watch] interval"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address, overriding [watch] metrics_addr"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	rt, err := loadRuntime(root)
	if err != nil {
		return err
	}
	rt.openJournal()
	defer rt.close()

	interval, err := w.resolveInterval(rt)
	if err != nil {
		return err
	}
	metricsAddr := rt.cfg.Watch.MetricsAddr
	if w.MetricsAddr != "" {
		metricsAddr = w.MetricsAddr
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var handler http.Handler
	if metricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		handler = metrics.Handler(reg)
	}

	orch := orchestrator.New(orchestrator.Options{
		Config:           rt.cfg,
		Versions:         rt.versions,
		Store:            rt.store,
		Invoker:          rt.tools,
		Units:            rt.tools,
		Tools:            rt.tools,
		UserOverrideRoot: rt.userRoot,
		Recorder:         recorder,
		Journal:          rt.journal,
		Logger:           rt.logger,
	})

	wt, err := watcher.New(orch.Run, watcher.Options{
		ConfigPath:        root.Config,
		RequirementsPaths: rt.cfg.RequirementsPaths,
		OverrideRoot:      filepath.Join(rt.cfg.StubsDir, ".local"),
		Interval:          interval,
		MetricsAddr:       metricsAddr,
		MetricsHandler:    handler,
		Logger:            rt.logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("Watching for changes; press Ctrl-C to stop")
	return wt.Run(ctx)
}

func (w *WatchCmd) resolveInterval(rt *runtime) (time.Duration, error) {
	raw := rt.cfg.Watch.Interval
	if w.Interval != "" {
		raw = w.Interval
	}
	if raw == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid watch interval %q: %w", raw, err)
	}
	return interval, nil
}
