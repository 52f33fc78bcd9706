package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK       = "ok"
	resultError    = "error"
	resultMissing  = "missing"
	resultDisabled = "disabled"
)

// Metrics records sync activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	pushes       *prometheus.CounterVec
	restores     *prometheus.CounterVec
	pushDuration prometheus.Histogram
}

// NewMetrics registers the sync collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobtracker",
			Subsystem: "sync",
			Name:      "push_total",
			Help:      "Database and attachment pushes to the remote store by result.",
		}, []string{"result"}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobtracker",
			Subsystem: "sync",
			Name:      "restore_total",
			Help:      "Startup restores of the database file by result.",
		}, []string{"result"}),
		pushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jobtracker",
			Subsystem: "sync",
			Name:      "push_seconds",
			Help:      "Latency of full database pushes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.pushes, m.restores, m.pushDuration)
	return m
}

func (m *Metrics) push(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(result).Inc()
	if d > 0 {
		m.pushDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) restore(result string) {
	if m == nil {
		return
	}
	m.restores.WithLabelValues(result).Inc()
}
