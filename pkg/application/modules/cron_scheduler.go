package modules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"dms_sales/pkg/logx"
)

type CronJob interface {
	Name() string
	Run(ctx context.Context) error
}

// CronTask — задача и её расписание ("@every 1m", "*/5 * * * *").
type CronTask struct {
	Schedule string
	Job      CronJob
}

// CronScheduler модуль, запускающий периодические задачи до отмены ctx.
type CronScheduler struct {
	JobTimeout time.Duration
}

func (s CronScheduler) Run(ctx context.Context, g *errgroup.Group, tasks ...CronTask) error {
	c := cron.New()

	for _, task := range tasks {
		job := task.Job

		if _, err := c.AddFunc(task.Schedule, func() { s.runJob(ctx, job) }); err != nil {
			return fmt.Errorf("cron.AddFunc %s: %w", job.Name(), err)
		}

		logger(ctx).Info("cron job registered",
			slog.String("job", job.Name()),
			slog.String("schedule", task.Schedule),
		)
	}

	g.Go(func() error {
		c.Start()
		logger(ctx).Info("cron scheduler started")

		<-ctx.Done()

		<-c.Stop().Done()
		logger(ctx).Info("cron scheduler stopped")

		return nil
	})

	return nil
}

func (s CronScheduler) runJob(ctx context.Context, job CronJob) {
	if ctx.Err() != nil {
		return
	}

	if s.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.JobTimeout)
		defer cancel()
	}

	started := time.Now()

	if err := job.Run(ctx); err != nil {
		logger(ctx).Error("cron job failed", slog.String("job", job.Name()), logx.Error(err))
		return
	}

	logger(ctx).Debug("cron job completed",
		slog.String("job", job.Name()),
		slog.Int64(logx.FieldDurationMs, time.Since(started).Milliseconds()),
	)
}
