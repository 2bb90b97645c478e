package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"dms_sales/internal/domain/entity"
	"dms_sales/internal/infrastructure/events"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.tasks = append(f.tasks, task)

	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func statusChange() entity.StatusChange {
	return entity.StatusChange{
		DealID:     "0b7d6a3e-4c55-4a7e-9b53-5a1f1e6c2f10",
		From:       entity.DealStatusPending,
		To:         entity.DealStatusApproved,
		UserID:     "manager-1",
		Notes:      "approved by desk",
		TotalPrice: "27600.00",
		ChangedAt:  time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAsynqPublisher(t *testing.T) {
	rq := require.New(t)
	enqueuer := &fakeEnqueuer{}

	publisher := events.NewAsynqPublisher(enqueuer, "deal-events")
	rq.NoError(publisher.PublishStatusChanged(context.Background(), statusChange()))

	rq.Len(enqueuer.tasks, 1)
	rq.Equal(events.TypeDealStatusChanged, enqueuer.tasks[0].Type())

	decoded, err := events.DecodeStatusChanged(enqueuer.tasks[0].Payload())
	rq.NoError(err)
	rq.Equal(statusChange(), decoded)
}

func TestAsynqPublisherError(t *testing.T) {
	rq := require.New(t)
	enqueuer := &fakeEnqueuer{err: errors.New("redis unavailable")}

	err := events.NewAsynqPublisher(enqueuer, "deal-events").
		PublishStatusChanged(context.Background(), statusChange())
	rq.ErrorContains(err, "redis unavailable")
}

func TestDecodeRejectsUnknownStatus(t *testing.T) {
	rq := require.New(t)

	change := statusChange()
	change.To = "Sold"

	data, err := events.EncodeStatusChanged(change)
	rq.NoError(err)

	_, err = events.DecodeStatusChanged(data)
	rq.Error(err)
}
