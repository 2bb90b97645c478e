package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"dms_sales/internal/domain/entity"
	"dms_sales/pkg/contextx"
	"dms_sales/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const maxRetry = 5

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqPublisher ставит событие в очередь; доставка и ретраи — на стороне asynq.
type AsynqPublisher struct {
	client Enqueuer
	queue  string
}

func NewAsynqPublisher(client Enqueuer, queue string) *AsynqPublisher {
	return &AsynqPublisher{client: client, queue: queue}
}

func (p *AsynqPublisher) PublishStatusChanged(ctx context.Context, event entity.StatusChange) error {
	payload, err := EncodeStatusChanged(event)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeDealStatusChanged, payload)

	info, err := p.client.EnqueueContext(ctx, task, asynq.Queue(p.queue), asynq.MaxRetry(maxRetry))
	if err != nil {
		return fmt.Errorf("asynqClient.Enqueue: %w", err)
	}

	logger(ctx).Debug("status change enqueued",
		slog.String(logx.FieldDealID, event.DealID),
		slog.String(logx.FieldMessageID, info.ID),
	)

	return nil
}

// LogPublisher только пишет событие в лог; используется без Redis.
type LogPublisher struct{}

func (LogPublisher) PublishStatusChanged(ctx context.Context, event entity.StatusChange) error {
	logger(ctx).Info("deal status changed event",
		slog.String(logx.FieldDealID, event.DealID),
		slog.String("from", event.From.String()),
		slog.String("to", event.To.String()),
	)

	return nil
}
