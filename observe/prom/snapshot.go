package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Snapshot exposes a copy of current metric values for inspection.
type Snapshot struct {
	ActiveTasks     int64
	TasksStarted    int64
	TasksFinished   int64
	TasksErrored    int64
	TasksPanicked   int64
	ScopesCreated   int64
	ScopesCancelled int64
	Joins           int64

	ConnectionsAccepted int64
	AcceptErrors        int64
	ConnectionsOK       int64
	ConnectionsFailed   int64
	BytesRelayed        int64
}

// GetSnapshot returns the current metrics snapshot.
func (m *Metrics) GetSnapshot() Snapshot {
	return Snapshot{
		ActiveTasks:         int64(read(m.activeTasks).GetGauge().GetValue()),
		TasksStarted:        counter(m.tasksStarted),
		TasksFinished:       counter(m.tasksFinished),
		TasksErrored:        counter(m.tasksErrored),
		TasksPanicked:       counter(m.tasksPanicked),
		ScopesCreated:       counter(m.scopesCreated),
		ScopesCancelled:     counter(m.scopesCancelled),
		Joins:               int64(read(m.joinWait).GetHistogram().GetSampleCount()),
		ConnectionsAccepted: counter(m.accepted),
		AcceptErrors:        counter(m.acceptErrors),
		ConnectionsOK:       counter(m.closed.WithLabelValues("ok")),
		ConnectionsFailed:   counter(m.closed.WithLabelValues("error")) + counter(m.closed.WithLabelValues("canceled")),
		BytesRelayed:        counter(m.bytes),
	}
}

func read(c prometheus.Metric) *dto.Metric {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return &dto.Metric{}
	}
	return &out
}

func counter(c prometheus.Counter) int64 {
	return int64(read(c).GetCounter().GetValue())
}
