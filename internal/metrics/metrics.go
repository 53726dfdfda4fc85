// Package metrics exports capture results in the Prometheus text format.
//
// Runs are short-lived processes, so the exporter writes a textfile for the
// node_exporter textfile collector instead of serving /metrics.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"signagerec/internal/orchestrator"
)

const namespace = "signagerec"

// Exporter holds a private registry with the capture metrics.
type Exporter struct {
	registry *prometheus.Registry

	runs            *prometheus.CounterVec
	lastOutcome     *prometheus.GaugeVec
	lastRunTime     prometheus.Gauge
	lastSuccessTime prometheus.Gauge
	lastDuration    prometheus.Gauge
	lastElapsed     prometheus.Gauge
	lastExitCode    prometheus.Gauge
	lastDrift       prometheus.Gauge
	stepFailures    *prometheus.CounterVec
}

// New returns an exporter with every collector registered.
func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Capture invocations by outcome",
		}, []string{"outcome"}),
		lastOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_outcome",
			Help:      "1 for the outcome of the most recent armed run, 0 otherwise",
		}, []string{"outcome"}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent armed run finished",
		}),
		lastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the most recent completed run finished",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_capture_duration_seconds",
			Help:      "Requested capture length of the most recent run",
		}),
		lastElapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_elapsed_seconds",
			Help:      "Wall time of the most recent armed run",
		}),
		lastExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_capture_exit_code",
			Help:      "Encoder exit code of the most recent run, -1 when no capture ran",
		}),
		lastDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_capture_drift_seconds",
			Help:      "Measured minus requested length of the most recent verified capture",
		}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_step_failures_total",
			Help:      "Terminal steps that returned an error, by step",
		}, []string{"step"}),
	}
	e.registry.MustRegister(
		e.runs,
		e.lastOutcome,
		e.lastRunTime,
		e.lastSuccessTime,
		e.lastDuration,
		e.lastElapsed,
		e.lastExitCode,
		e.lastDrift,
		e.stepFailures,
	)
	return e
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Observe folds a run report into the metrics. Skipped runs only bump the
// run counter so the last_* gauges keep describing the last real capture.
func (e *Exporter) Observe(report orchestrator.Report) {
	outcome := string(report.Outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	e.runs.WithLabelValues(outcome).Inc()
	if report.Outcome.Skipped() {
		return
	}

	for _, o := range []orchestrator.Outcome{orchestrator.OutcomeCompleted, orchestrator.OutcomeFailed} {
		value := 0.0
		if o == report.Outcome {
			value = 1
		}
		e.lastOutcome.WithLabelValues(string(o)).Set(value)
	}
	if !report.FinishedAt.IsZero() {
		finished := float64(report.FinishedAt.Unix())
		e.lastRunTime.Set(finished)
		if report.Outcome == orchestrator.OutcomeCompleted {
			e.lastSuccessTime.Set(finished)
		}
	}
	e.lastDuration.Set(float64(report.DurationSeconds))
	e.lastElapsed.Set(report.Elapsed().Seconds())
	e.lastExitCode.Set(float64(report.ExitCode()))
	if report.Verification != nil {
		e.lastDrift.Set(report.Verification.DriftSeconds)
	}
	for _, step := range report.Steps {
		if !step.OK() {
			e.stepFailures.WithLabelValues(step.Name).Inc()
		}
	}
}

// Export observes report and rewrites the textfile at path. Skipped runs leave
// the file alone: each `run` process starts from an empty registry, so a
// rewrite after a no-op tick would zero the gauges of the last capture.
func (e *Exporter) Export(report orchestrator.Report, path string) error {
	e.Observe(report)
	if report.Outcome.Skipped() {
		return nil
	}
	return e.WriteTextfile(path)
}

// WriteTextfile atomically writes the registry to path. An empty path is a no-op.
func (e *Exporter) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, e.registry)
}
