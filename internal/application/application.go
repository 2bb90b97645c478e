// Package application собирает сервис сделок из конфигурации и запускает его модули.
package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"dms_sales/internal/config"
	"dms_sales/internal/domain/service/deal"
	"dms_sales/internal/domain/service/status"
	"dms_sales/internal/infrastructure/events"
	"dms_sales/internal/infrastructure/idempotency"
	dealmetrics "dms_sales/internal/infrastructure/metrics"
	"dms_sales/internal/infrastructure/notifier"
	"dms_sales/internal/infrastructure/persistence"
	"dms_sales/internal/server"
	"dms_sales/internal/transport/bot"
	"dms_sales/internal/transport/bot/handler"
	"dms_sales/internal/worker"
	"dms_sales/pkg/application/connectors"
	"dms_sales/pkg/application/modules"
	"dms_sales/pkg/contextx"
	"dms_sales/pkg/httpx"
	"dms_sales/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Run запускает HTTP API, probe, метрики, воркер очереди, планировщик и бота
// и ждёт отмены ctx или ошибки любого модуля.
func Run(ctx context.Context, cfg config.Config) error { //nolint:funlen
	db, closeDB := openStorage(ctx, cfg)
	defer closeDB()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db.PingContext: %w", err)
	}

	if cfg.Storage.AutoMigrate {
		if err := persistence.Migrate(ctx, db, cfg.Storage.Driver); err != nil {
			return fmt.Errorf("persistence.Migrate: %w", err)
		}

		logger(ctx).Info("migrations applied", slog.String("driver", cfg.Storage.Driver))
	}

	dealRepo := persistence.NewDealRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dealMetrics := dealmetrics.NewDealMetrics(registry)

	redisConnector := &connectors.Redis{
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		Address:            cfg.Redis.Address,
		DatabaseNumber:     cfg.Redis.DatabaseNumber,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
	}

	store, closeStore, err := newIdempotencyStore(ctx, cfg, redisConnector)
	if err != nil {
		return fmt.Errorf("newIdempotencyStore: %w", err)
	}
	defer closeStore()

	var publisher deal.EventPublisher = events.LogPublisher{}

	if cfg.Asynq.Enabled {
		asynqConnector := &connectors.AsynqClient{
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			Address:  cfg.Redis.Address,
			DB:       cfg.Redis.DatabaseNumber,
		}
		defer asynqConnector.Close(ctx)

		publisher = events.NewAsynqPublisher(asynqConnector.Client(ctx), cfg.Asynq.Queue)
	}

	dealService := deal.NewDealService(dealRepo, status.NewMachine()).
		WithIdempotency(store).
		WithPublisher(publisher).
		WithObserver(dealMetrics)

	var (
		notifiers []worker.StatusChangeNotifier
		tgBot     *telego.Bot
	)

	if cfg.Bot.Enabled() {
		tgBot, err = newTelegramBot(cfg)
		if err != nil {
			return fmt.Errorf("newTelegramBot: %w", err)
		}

		notifiers = append(notifiers, notifier.NewTelegramBot(tgBot, cfg.Bot.ChatID))
	}

	router := server.NewRouter(
		server.NewServer(server.NewDealServer(dealService)),
		server.RouterOptions{
			AllowedOrigins:      cfg.HTTP.AllowedOrigins,
			SensitiveDataMasker: logx.NewSensitiveDataMasker(),
			LogFieldMaxLen:      cfg.HTTP.LogFieldMaxLen,
		},
	)

	httpServer := &http.Server{
		//nolint:exhaustruct
		Addr:              cfg.HTTP.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	modules.HTTPServer{ShutdownTimeout: cfg.HTTP.ShutdownTimeout}.Run(ctx, g, httpServer)

	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.Probe.ListenAddress,
		Ready:         db.PingContext,
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.Metrics.ListenAddress,
		Gatherer:      registry,
	}.Run(ctx, g)

	if cfg.Asynq.Enabled {
		modules.AsynqServer{
			RedisUsername: cfg.Redis.Username,
			RedisPassword: cfg.Redis.Password,
			RedisAddress:  cfg.Redis.Address,
			RedisDB:       cfg.Redis.DatabaseNumber,
			Concurrency:   cfg.Asynq.Concurrency,
		}.Run(ctx, g, modules.AsynqQueues{cfg.Asynq.Queue: 1}, worker.NewDealEvents(notifiers...).Handler())
	} else if len(notifiers) > 0 {
		logger(ctx).Warn("telegram notifications need ASYNQ_ENABLED, status changes are only logged")
	}

	err = modules.CronScheduler{JobTimeout: cfg.Scheduler.JobTimeout}.Run(ctx, g, modules.CronTask{
		Schedule: cfg.Scheduler.StatusGaugeSchedule,
		Job:      worker.NewStatusGauge(dealRepo, dealMetrics),
	})
	if err != nil {
		return fmt.Errorf("cronScheduler.Run: %w", err)
	}

	if tgBot != nil && cfg.Bot.AdminID != 0 {
		commands := bot.New(tgBot, handler.New(dealService, dealRepo), cfg.Bot.AdminID)

		g.Go(func() error {
			return commands.Run(ctx)
		})
	}

	logger(ctx).Info("application started",
		slog.String(logx.FieldAppName, cfg.App.Name),
		slog.String(logx.FieldAppVersion, cfg.App.Version),
	)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}

	return nil
}

func openStorage(ctx context.Context, cfg config.Config) (*sqlx.DB, func()) {
	if cfg.Storage.Driver == config.StorageDriverPostgres {
		pg := &connectors.Postgres{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}

		return pg.Client(ctx), func() { pg.Close(ctx) }
	}

	sqlite := &connectors.SQLite{Path: cfg.SQLite.Path}

	return sqlite.Client(ctx), func() { sqlite.Close(ctx) }
}

func newIdempotencyStore(
	ctx context.Context,
	cfg config.Config,
	redisConnector *connectors.Redis,
) (deal.IdempotencyStore, func(), error) {
	switch cfg.Idempotency.Backend {
	case config.IdempotencyBackendRedis:
		client := redisConnector.Client(ctx)

		return idempotency.NewRedisStore(client, cfg.Idempotency.TTL), func() { redisConnector.Close(ctx) }, nil
	case config.IdempotencyBackendBolt:
		store, err := idempotency.NewBoltStore(cfg.Idempotency.BoltPath, cfg.Idempotency.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("idempotency.NewBoltStore: %w", err)
		}

		return store, closeWithLog(ctx, "boltStore.Close", store), nil
	default:
		return idempotency.NewMemoryStore(cfg.Idempotency.TTL), func() {}, nil
	}
}

// newTelegramBot ходит в Bot API через net/http, чтобы запросы попадали в лог с маской токена.
func newTelegramBot(cfg config.Config) (*telego.Bot, error) {
	client := &http.Client{
		Transport: httpx.NewLoggingRoundTripper(
			http.DefaultTransport,
			httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
			httpx.WithLogFieldMaxLen(cfg.HTTP.LogFieldMaxLen),
		),
	}

	b, err := telego.NewBot(cfg.Bot.Token, telego.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("telego.NewBot: %w", err)
	}

	return b, nil
}

func closeWithLog(ctx context.Context, op string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger(ctx).Error(op, logx.Error(err))
		}
	}
}
