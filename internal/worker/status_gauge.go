package worker

import (
	"context"
	"fmt"

	"dms_sales/internal/domain/entity"
)

type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[entity.DealStatus]int, error)
}

type StatusCountsSink interface {
	SetStatusCounts(counts map[entity.DealStatus]int)
}

// StatusGauge периодически пересчитывает число сделок по статусам.
type StatusGauge struct {
	counter StatusCounter
	sink    StatusCountsSink
}

func NewStatusGauge(counter StatusCounter, sink StatusCountsSink) *StatusGauge {
	return &StatusGauge{counter: counter, sink: sink}
}

func (j *StatusGauge) Name() string {
	return "deal_status_gauge"
}

func (j *StatusGauge) Run(ctx context.Context) error {
	counts, err := j.counter.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("dealRepo.CountByStatus: %w", err)
	}

	j.sink.SetStatusCounts(counts)

	return nil
}
