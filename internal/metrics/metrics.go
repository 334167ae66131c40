// Package metrics exposes Prometheus instrumentation for the download queue
// and the playback session.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytplay"

// Job outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Recorder groups all collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	jobsStarted   *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobsInFlight  prometheus.Gauge
	jobDuration   *prometheus.HistogramVec
	cleanupFiles  prometheus.Counter
	resolveErrors prometheus.Counter

	playbackLoads    prometheus.Counter
	playbackErrors   *prometheus.CounterVec
	qualitySwitches  *prometheus.CounterVec
	outputMigrations *prometheus.CounterVec
}

// NewRecorder registers collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		jobsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_started_total",
			Help:      "Download jobs started, by mode",
		}, []string{"mode"}),
		jobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_finished_total",
			Help:      "Download jobs that reached a terminal state, by mode and outcome",
		}, []string{"mode", "outcome"}),
		jobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_in_flight",
			Help:      "Download jobs currently running",
		}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Wall time of download jobs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"mode", "outcome"}),
		cleanupFiles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "cleanup_files_removed_total",
			Help:      "Intermediate artifacts removed after downloads",
		}),
		resolveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "resolve_errors_total",
			Help:      "Failed format resolutions",
		}),
		playbackLoads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "loads_total",
			Help:      "Media loads requested",
		}),
		playbackErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "errors_total",
			Help:      "Playback failures, by operation",
		}, []string{"op"}),
		qualitySwitches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "quality_switches_total",
			Help:      "Quality switches, by result (restored, timeout)",
		}, []string{"result"}),
		outputMigrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "output_migrations_total",
			Help:      "Output surface migrations, by target surface",
		}, []string{"surface"}),
	}
}

// Registry returns the underlying registry, or nil for a nil recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// JobStarted records a job entering the Downloading state.
func (r *Recorder) JobStarted(mode string) {
	if r == nil {
		return
	}
	r.jobsStarted.WithLabelValues(mode).Inc()
	r.jobsInFlight.Inc()
}

// JobFinished records a job reaching a terminal state.
func (r *Recorder) JobFinished(mode, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.jobsInFlight.Dec()
	r.jobsFinished.WithLabelValues(mode, outcome).Inc()
	r.jobDuration.WithLabelValues(mode, outcome).Observe(elapsed.Seconds())
}

// CleanupRemoved records intermediate files deleted after a download.
func (r *Recorder) CleanupRemoved(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.cleanupFiles.Add(float64(n))
}

// ResolveFailed records a failed format resolution.
func (r *Recorder) ResolveFailed() {
	if r == nil {
		return
	}
	r.resolveErrors.Inc()
}

// PlaybackLoaded records a media load.
func (r *Recorder) PlaybackLoaded() {
	if r == nil {
		return
	}
	r.playbackLoads.Inc()
}

// PlaybackFailed records a playback failure for op.
func (r *Recorder) PlaybackFailed(op string) {
	if r == nil {
		return
	}
	r.playbackErrors.WithLabelValues(op).Inc()
}

// QualitySwitched records the outcome of a quality switch.
func (r *Recorder) QualitySwitched(restored bool) {
	if r == nil {
		return
	}
	result := "timeout"
	if restored {
		result = "restored"
	}
	r.qualitySwitches.WithLabelValues(result).Inc()
}

// OutputMigrated records a surface migration.
func (r *Recorder) OutputMigrated(surface string) {
	if r == nil {
		return
	}
	r.outputMigrations.WithLabelValues(surface).Inc()
}
