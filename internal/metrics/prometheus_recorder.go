package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once                sync.Once
	moduleOutcomes      *prom.CounterVec
	buildDuration       *prom.HistogramVec
	fingerprintDuration prom.Histogram
	modulesResolved     prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.moduleOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stubforge",
			Name:      "module_outcomes_total",
			Help:      "Per-module run outcomes",
		}, []string{"outcome"})
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "stubforge",
			Name:      "module_build_duration_seconds",
			Help:      "Duration of individual module rebuilds",
			Buckets:   prom.DefBuckets,
		}, []string{"module"})
		pr.fingerprintDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "stubforge",
			Name:      "fingerprint_duration_seconds",
			Help:      "Duration of fingerprint computations",
			Buckets:   prom.DefBuckets,
		})
		pr.modulesResolved = prom.NewGauge(prom.GaugeOpts{
			Namespace: "stubforge",
			Name:      "modules_resolved",
			Help:      "Number of build targets resolved in the last run",
		})
		reg.MustRegister(pr.moduleOutcomes, pr.buildDuration, pr.fingerprintDuration, pr.modulesResolved)
	})
	return pr
}

func (p *PrometheusRecorder) IncModuleOutcome(outcome OutcomeLabel) {
	if p == nil || p.moduleOutcomes == nil {
		return
	}
	p.moduleOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveModuleBuildDuration(module string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(module).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveFingerprintDuration(d time.Duration) {
	if p == nil || p.fingerprintDuration == nil {
		return
	}
	p.fingerprintDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetModulesResolved(n int) {
	if p == nil || p.modulesResolved == nil {
		return
	}
	p.modulesResolved.Set(float64(n))
}
