package handler

import (
	"context"

	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type dealReader interface {
	GetDeal(ctx context.Context, id value.DealID, includeAll bool) (*entity.Deal, error)
}

type statusCounter interface {
	CountByStatus(ctx context.Context) (map[entity.DealStatus]int, error)
}

// Handler отвечает на команды менеджеров в Telegram.
type Handler struct {
	deals    dealReader
	pipeline statusCounter
}

func New(deals dealReader, pipeline statusCounter) *Handler {
	return &Handler{
		deals:    deals,
		pipeline: pipeline,
	}
}
