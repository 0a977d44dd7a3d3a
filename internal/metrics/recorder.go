package metrics

import "time"

// OutcomeLabel enumerates per-module run outcomes for counters.
type OutcomeLabel string

const (
	OutcomeRebuilt  OutcomeLabel = "rebuilt"
	OutcomeUpToDate OutcomeLabel = "up_to_date"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeSkipped  OutcomeLabel = "skipped"
)

// Recorder defines observability hooks for orchestrator runs. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe on
// the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncModuleOutcome(outcome OutcomeLabel)
	ObserveModuleBuildDuration(module string, d time.Duration)
	ObserveFingerprintDuration(d time.Duration)
	SetModulesResolved(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncModuleOutcome(OutcomeLabel)                     {}
func (NoopRecorder) ObserveModuleBuildDuration(string, time.Duration)  {}
func (NoopRecorder) ObserveFingerprintDuration(time.Duration)          {}
func (NoopRecorder) SetModulesResolved(int)                            {}
