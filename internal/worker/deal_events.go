// Package worker содержит фоновые обработчики: очередь событий сделок и
// периодические задачи.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"dms_sales/internal/domain/entity"
	"dms_sales/internal/infrastructure/events"
	"dms_sales/pkg/application/modules"
	"dms_sales/pkg/logx"
)

type StatusChangeNotifier interface {
	NotifyStatusChange(ctx context.Context, change entity.StatusChange) error
}

// DealEvents разбирает события смены статуса и рассылает их уведомителям.
type DealEvents struct {
	notifiers []StatusChangeNotifier
}

func NewDealEvents(notifiers ...StatusChangeNotifier) *DealEvents {
	return &DealEvents{notifiers: notifiers}
}

func (w *DealEvents) Handler() modules.AsynqHandler {
	return modules.AsynqHandler{
		Pattern: events.TypeDealStatusChanged,
		Handle:  w.HandleStatusChanged,
	}
}

// HandleStatusChanged не ретраит битый payload; ошибки доставки отдаёт asynq на повтор.
func (w *DealEvents) HandleStatusChanged(ctx context.Context, task *asynq.Task) error {
	change, err := events.DecodeStatusChanged(task.Payload())
	if err != nil {
		return fmt.Errorf("events.DecodeStatusChanged: %w: %w", err, asynq.SkipRetry)
	}

	logger(ctx).Info("deal status change received",
		slog.String(logx.FieldDealID, change.DealID),
		slog.String(logx.FieldDealStatus, change.To.String()),
	)

	for _, n := range w.notifiers {
		if err := n.NotifyStatusChange(ctx, change); err != nil {
			return fmt.Errorf("notifier.NotifyStatusChange: %w", err)
		}
	}

	return nil
}
