package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"

	IdempotencyBackendMemory = "memory"
	IdempotencyBackendRedis  = "redis"
	IdempotencyBackendBolt   = "bolt"
)

type Config struct {
	App         App
	HTTP        HTTP
	Storage     Storage
	Postgres    Postgres
	SQLite      SQLite
	Redis       Redis
	Asynq       Asynq
	Bot         Bot
	Idempotency Idempotency
	Scheduler   Scheduler
	Metrics     Metrics
	Probe       Probe
}

type App struct {
	Name    string `env:"APP_NAME"    envDefault:"dms-sales"`
	Version string `env:"APP_VERSION" envDefault:"dev"`
	// LogLevel: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTP struct {
	ListenAddress   string        `env:"HTTP_LISTEN_ADDRESS"   envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"15s"`
	AllowedOrigins  []string      `env:"HTTP_ALLOWED_ORIGINS"  envDefault:"*"     envSeparator:","`
	LogFieldMaxLen  int           `env:"HTTP_LOG_FIELD_MAX_LEN" envDefault:"4096"`
}

type Storage struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	// AutoMigrate применяет встроенные миграции при старте.
	AutoMigrate bool `env:"STORAGE_AUTO_MIGRATE" envDefault:"true"`
}

type SQLite struct {
	Path string `env:"SQLITE_PATH" envDefault:"dms_sales.db"`
}

type Redis struct {
	Address            string `env:"REDIS_ADDRESS"`
	Username           string `env:"REDIS_USERNAME"`
	Password           string `env:"REDIS_PASSWORD"             json:"-"`
	DatabaseNumber     int    `env:"REDIS_DB"                   envDefault:"0"`
	PoolSize           int    `env:"REDIS_POOL_SIZE"            envDefault:"10"`
	MinIdleConnections int    `env:"REDIS_MIN_IDLE_CONNECTIONS" envDefault:"1"`
	MaxIdleConnections int    `env:"REDIS_MAX_IDLE_CONNECTIONS" envDefault:"5"`
}

// Asynq включает доставку событий смены статуса через очередь в Redis.
type Asynq struct {
	Enabled     bool   `env:"ASYNQ_ENABLED"     envDefault:"false"`
	Queue       string `env:"ASYNQ_QUEUE"       envDefault:"deals"`
	Concurrency int    `env:"ASYNQ_CONCURRENCY" envDefault:"4"`
}

// Bot — Telegram-бот для уведомлений и команд менеджеров. Пустой токен выключает бота.
type Bot struct {
	Token   string `env:"BOT_TOKEN"    json:"-"`
	ChatID  int64  `env:"BOT_CHAT_ID"`
	AdminID int64  `env:"BOT_ADMIN_ID"`
}

type Idempotency struct {
	Backend  string        `env:"IDEMPOTENCY_BACKEND"   envDefault:"memory"`
	TTL      time.Duration `env:"IDEMPOTENCY_TTL"       envDefault:"24h"`
	BoltPath string        `env:"IDEMPOTENCY_BOLT_PATH" envDefault:"idempotency.bolt"`
}

type Scheduler struct {
	StatusGaugeSchedule string        `env:"SCHEDULER_STATUS_GAUGE" envDefault:"@every 1m"`
	JobTimeout          time.Duration `env:"SCHEDULER_JOB_TIMEOUT"  envDefault:"30s"`
}

type Metrics struct {
	ListenAddress string `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
}

type Probe struct {
	ListenAddress string `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
}

func (b Bot) Enabled() bool {
	return b.Token != ""
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config.Validate: %w", err)
	}

	return config, nil
}

// Validate проверяет согласованность секций между собой.
func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("PG_DSN is required for the postgres storage driver"))
		}
	case StorageDriverSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	switch c.Idempotency.Backend {
	case IdempotencyBackendMemory, IdempotencyBackendBolt:
	case IdempotencyBackendRedis:
		if c.Redis.Address == "" {
			errs = append(errs, errors.New("REDIS_ADDRESS is required for the redis idempotency backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.Idempotency.Backend))
	}

	if c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}

	if c.Asynq.Enabled && c.Redis.Address == "" {
		errs = append(errs, errors.New("REDIS_ADDRESS is required when ASYNQ_ENABLED"))
	}

	if c.Bot.Enabled() && c.Bot.ChatID == 0 {
		errs = append(errs, errors.New("BOT_CHAT_ID is required when BOT_TOKEN is set"))
	}

	return errors.Join(errs...)
}
