package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded per run.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	// OutcomeDropped marks runs that returned asynq.SkipRetry, such as mail
	// with a malformed payload.
	OutcomeDropped = "dropped"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	inflight *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or the default
// Prometheus registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker measures a single run of a task type.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts a run of task. A nil Metrics yields a no-op tracker.
func (m *Metrics) Track(task string) *Tracker {
	t := &Tracker{metrics: m, task: task, start: time.Now()}
	if m != nil && task != "" {
		m.inflight.WithLabelValues(task).Inc()
	}
	return t
}

// End records the outcome of the run and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.task == "" {
		return err
	}
	t.metrics.inflight.WithLabelValues(t.task).Dec()
	outcome := Outcome(err)
	if outcome != OutcomeSuccess {
		t.metrics.failures.WithLabelValues(t.task).Inc()
	}
	t.metrics.runs.WithLabelValues(t.task, outcome).Inc()
	t.metrics.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
	return err
}

// Outcome classifies a handler result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeDropped
	default:
		return OutcomeFailure
	}
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hrforms_jobs_total",
		Help: "Job runs partitioned by task type and outcome.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hrforms_jobs_failures_total",
		Help: "Failed or dropped job runs per task type.",
	}, []string{"job"})
	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hrforms_jobs_inflight",
		Help: "Job runs currently executing per task type.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrforms_job_duration_seconds",
		Help:    "Duration in seconds of job runs.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"job"})
	registerer.MustRegister(runs, failures, inflight, duration)
	return &Metrics{runs: runs, failures: failures, inflight: inflight, duration: duration}
}
