// Package prom exports scope and connection events as Prometheus metrics.
// A single Metrics value implements both scope.Observer and echo.Recorder,
// so the supervisor's task metrics and the connection metrics share one
// registry.
package prom

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "echo"

// Metrics is safe for concurrent use.
type Metrics struct {
	// tasks
	activeTasks   prometheus.Gauge
	tasksStarted  prometheus.Counter
	tasksFinished prometheus.Counter
	tasksErrored  prometheus.Counter
	tasksPanicked prometheus.Counter
	taskDuration  prometheus.Histogram

	// scopes
	scopesCreated   prometheus.Counter
	scopesCancelled prometheus.Counter
	joinWait        prometheus.Histogram

	// connections
	accepted     prometheus.Counter
	acceptErrors prometheus.Counter
	closed       *prometheus.CounterVec
	bytes        prometheus.Counter
}

// New registers the metrics with reg. A nil reg uses a private registry,
// which keeps independent Metrics values from colliding.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		activeTasks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tasks_active",
			Help: "Handler tasks currently running.",
		}),
		tasksStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_started_total",
			Help: "Tasks started.",
		}),
		tasksFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_finished_total",
			Help: "Tasks finished, successfully or not.",
		}),
		tasksErrored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_errored_total",
			Help: "Tasks that returned an error.",
		}),
		tasksPanicked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_panicked_total",
			Help: "Tasks that panicked.",
		}),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "task_duration_seconds",
			Help:    "Task run time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		scopesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scopes_created_total",
			Help: "Scopes created.",
		}),
		scopesCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scopes_cancelled_total",
			Help: "Scopes cancelled.",
		}),
		joinWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scope_join_seconds",
			Help:    "Time spent in Wait.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_accepted_total",
			Help: "Connections accepted.",
		}),
		acceptErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "accept_errors_total",
			Help: "Transient accept failures.",
		}),
		closed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_closed_total",
			Help: "Connections closed, by result.",
		}, []string{"result"}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_relayed_total",
			Help: "Bytes echoed back to peers.",
		}),
	}
}

// ScopeCreated records scope creation.
func (m *Metrics) ScopeCreated(_ context.Context) { m.scopesCreated.Inc() }

// ScopeCancelled records scope cancellation.
func (m *Metrics) ScopeCancelled(_ context.Context, _ error) { m.scopesCancelled.Inc() }

// ScopeJoined observes how long Wait blocked.
func (m *Metrics) ScopeJoined(_ context.Context, wait time.Duration) {
	m.joinWait.Observe(wait.Seconds())
}

// TaskStarted increments active and started counters.
func (m *Metrics) TaskStarted(_ context.Context) {
	m.activeTasks.Inc()
	m.tasksStarted.Inc()
}

// TaskFinished decrements active, increments finished, and tracks error/panic and duration.
func (m *Metrics) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	m.activeTasks.Dec()
	m.tasksFinished.Inc()
	if err != nil {
		m.tasksErrored.Inc()
	}
	if panicked {
		m.tasksPanicked.Inc()
	}
	m.taskDuration.Observe(dur.Seconds())
}

func (m *Metrics) ConnectionAccepted() { m.accepted.Inc() }

func (m *Metrics) AcceptFailed(_ error) { m.acceptErrors.Inc() }

// ConnectionClosed counts the connection under result "ok", "canceled" or
// "error" and adds the relayed bytes.
func (m *Metrics) ConnectionClosed(n int64, err error) {
	m.bytes.Add(float64(n))
	m.closed.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
