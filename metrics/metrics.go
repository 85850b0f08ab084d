// Package metrics exports run and stage metrics for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oar-cd/berth/domain"
)

const (
	namespace = "berth"

	LabelStage   = "stage"
	LabelStatus  = "status"
	LabelOutcome = "outcome"
)

var (
	stageStatuses = []domain.StageStatus{
		domain.StageStatusCompleted,
		domain.StageStatusSkipped,
		domain.StageStatusTolerated,
		domain.StageStatusFailed,
	}
	runOutcomes = []domain.RunOutcome{
		domain.RunOutcomeRunning,
		domain.RunOutcomeRebooting,
		domain.RunOutcomeAborted,
	}
)

// Recorder collects the metrics of one run and writes them when the run finishes.
type Recorder struct {
	path     string
	registry *prometheus.Registry

	stageDuration *prometheus.GaugeVec
	stageStatus   *prometheus.GaugeVec
	runDuration   prometheus.Gauge
	runOutcome    *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// NewRecorder returns a recorder writing to path. An empty path collects without writing.
func NewRecorder(serviceName, path string) *Recorder {
	labels := prometheus.Labels{"service": serviceName}

	r := &Recorder{
		path:     path,
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "stage",
			Name:        "duration_seconds",
			Help:        "Duration of the last run of each provisioning stage, in seconds.",
			ConstLabels: labels,
		}, []string{LabelStage}),
		stageStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "stage",
			Name:        "status",
			Help:        "Status of each provisioning stage in the last run (1 for the status it ended with).",
			ConstLabels: labels,
		}, []string{LabelStage, LabelStatus}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "run",
			Name:        "duration_seconds",
			Help:        "Duration of the last provisioning run, in seconds.",
			ConstLabels: labels,
		}),
		runOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "run",
			Name:        "outcome",
			Help:        "Outcome of the last provisioning run (1 for the outcome it reached).",
			ConstLabels: labels,
		}, []string{LabelOutcome}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "run",
			Name:        "last_finished_timestamp_seconds",
			Help:        "Unix time the last provisioning run finished.",
			ConstLabels: labels,
		}),
	}

	r.registry.MustRegister(r.stageDuration, r.stageStatus, r.runDuration, r.runOutcome, r.lastRun)
	return r
}

// Registry exposes the collected metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RunStarted(run *domain.Run) error {
	r.stageDuration.Reset()
	r.stageStatus.Reset()
	r.runOutcome.Reset()
	return nil
}

func (r *Recorder) StageFinished(run *domain.Run, stage domain.StageRecord) error {
	r.stageDuration.WithLabelValues(stage.Name).Set(stage.Duration.Seconds())
	for _, status := range stageStatuses {
		value := 0.0
		if status == stage.Status {
			value = 1
		}
		r.stageStatus.WithLabelValues(stage.Name, status.String()).Set(value)
	}
	return nil
}

func (r *Recorder) RunFinished(run *domain.Run) error {
	r.runDuration.Set(run.Duration().Seconds())
	for _, outcome := range runOutcomes {
		value := 0.0
		if outcome == run.Outcome {
			value = 1
		}
		r.runOutcome.WithLabelValues(outcome.String()).Set(value)
	}
	if !run.FinishedAt.IsZero() {
		r.lastRun.Set(float64(run.FinishedAt.Unix()))
	}

	return r.Write()
}

// Write stores the metrics in Prometheus text format, replacing the file atomically.
func (r *Recorder) Write() error {
	if r.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
