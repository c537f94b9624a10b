// Package metrics exposes sync run counters in the Prometheus text format.
// Runs are short-lived, so the metrics are written to a file for the
// node_exporter textfile collector instead of being served over HTTP.
package metrics

import (
	"time"

	"github.com/dl-alexandre/mrisync/internal/sync/diff"
	"github.com/dl-alexandre/mrisync/internal/sync/executor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	actionsTotal     *prometheus.CounterVec
	skippedFiles     prometheus.Counter
	desiredEntries   *prometheus.GaugeVec
	lastRunDuration  prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
	lastRunSuccess   prometheus.Gauge
}

// New registers the sync metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mrisync_actions_total",
				Help: "Remote operations attempted, by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		skippedFiles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mrisync_files_skipped_total",
				Help: "Files whose remote copy was already current",
			},
		),
		desiredEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mrisync_desired_entries",
				Help: "Folders and files in the pruned local tree of the last run",
			},
			[]string{"kind"},
		),
		lastRunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mrisync_last_run_duration_seconds",
				Help: "Wall time of the last sync run",
			},
		),
		lastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mrisync_last_run_timestamp_seconds",
				Help: "Unix time the last sync run finished",
			},
		),
		lastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mrisync_last_run_success",
				Help: "1 if the last run completed without failed operations",
			},
		),
	}
}

// Observe implements executor.Recorder
func (m *Metrics) Observe(action diff.ActionType, ok bool) {
	outcome := outcomeSuccess
	if !ok {
		outcome = outcomeFailure
	}
	m.actionsTotal.WithLabelValues(string(action), outcome).Inc()
}

// RecordRun stores the totals of a finished or aborted run
func (m *Metrics) RecordRun(summary executor.Summary, folders, files int, duration time.Duration, aborted bool) {
	m.skippedFiles.Add(float64(summary.Skipped))
	m.desiredEntries.WithLabelValues("folder").Set(float64(folders))
	m.desiredEntries.WithLabelValues("file").Set(float64(files))
	m.lastRunDuration.Set(duration.Seconds())
	m.lastRunTimestamp.SetToCurrentTime()

	if aborted || summary.Failed > 0 {
		m.lastRunSuccess.Set(0)
	} else {
		m.lastRunSuccess.Set(1)
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes the metrics to path
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

var _ executor.Recorder = (*Metrics)(nil)
