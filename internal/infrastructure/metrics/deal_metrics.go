// Package metrics публикует метрики сделок в Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/pkg/metrics"
)

const namespace = "dms"

type DealMetrics struct {
	operations *metrics.Operations
	byStatus   *prometheus.GaugeVec
}

func NewDealMetrics(reg prometheus.Registerer) *DealMetrics {
	m := &DealMetrics{
		operations: metrics.NewOperations(reg, namespace, "deals"),
		byStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deals_by_status",
			Help:      "Number of deals in each status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.byStatus)

	return m
}

// ObserveOperation учитывает вызов операции координатора.
func (m *DealMetrics) ObserveOperation(operation string, took time.Duration, err error) {
	m.operations.Observe(operation, Outcome(err), took)
}

// SetStatusCounts выставляет gauge по каждому статусу.
func (m *DealMetrics) SetStatusCounts(counts map[entity.DealStatus]int) {
	for status, count := range counts {
		m.byStatus.WithLabelValues(status.String()).Set(float64(count))
	}
}

// Outcome — метка результата: ok или вид доменной ошибки.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}

	return strings.ReplaceAll(domain.GetKind(err).String(), " ", "_")
}
