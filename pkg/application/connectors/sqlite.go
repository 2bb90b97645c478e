package connectors

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"dms_sales/pkg/logx"
)

// SQLite — встраиваемое хранилище для локального запуска и стендов.
// Одно соединение: SQLite сериализует запись.
type SQLite struct {
	value *sqlx.DB
	Path  string
	init  sync.Once
}

func (s *SQLite) Client(ctx context.Context) *sqlx.DB {
	s.init.Do(func() {
		sqlx.BindDriver("sqlite", sqlx.QUESTION)

		dsn := s.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

		s.value = lo.Must(sqlx.ConnectContext(ctx, "sqlite", dsn))
		s.value.SetMaxOpenConns(1)

		logger(ctx).Info("sqlite opened", slog.String("path", s.Path))
	})

	return s.value
}

func (s *SQLite) Close(ctx context.Context) {
	if err := s.value.Close(); err != nil {
		logger(ctx).Error("sqliteClient.Close", logx.Error(err))
	}

	logger(ctx).Info("sqlite closed", slog.String("path", s.Path))
}
