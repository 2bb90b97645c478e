package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operations считает вызовы операций и их длительность в разрезе результата.
type Operations struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewOperations(reg prometheus.Registerer, namespace, subsystem string) *Operations {
	o := &Operations{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Number of operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(o.total, o.duration)

	return o
}

func (o *Operations) Observe(operation, outcome string, took time.Duration) {
	o.total.WithLabelValues(operation, outcome).Inc()
	o.duration.WithLabelValues(operation).Observe(took.Seconds())
}
