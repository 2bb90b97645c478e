package handler

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/logx"
)

func (h *Handler) OnStart(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, StartMessage)
}

// OnDeal показывает карточку сделки.
// Использование: /deal 3f0c9a52-1b7e-4c1e-9d7a-2a4f5b6c7d8e
func (h *Handler) OnDeal(ctx *th.Context, msg telego.Message) error {
	id, ok := parseDealID(msg.Text)
	if !ok {
		return h.sendHTML(ctx, msg.Chat.ID, DealUsage)
	}

	deal, err := h.deals.GetDeal(ctx, id, true)
	switch {
	case domain.IsNotFound(err):
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(DealNotFound, id))
	case err != nil:
		logger(ctx).Error("dealService.GetDeal", logx.Error(err))
		return h.sendHTML(ctx, msg.Chat.ID, InternalError)
	}

	return h.sendHTML(ctx, msg.Chat.ID, RenderDeal(deal))
}

// OnPipeline показывает число сделок по статусам.
func (h *Handler) OnPipeline(ctx *th.Context, msg telego.Message) error {
	counts, err := h.pipeline.CountByStatus(ctx)
	if err != nil {
		logger(ctx).Error("dealRepo.CountByStatus", logx.Error(err))
		return h.sendHTML(ctx, msg.Chat.ID, InternalError)
	}

	return h.sendHTML(ctx, msg.Chat.ID, RenderPipeline(counts))
}

func parseDealID(text string) (value.DealID, bool) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return value.DealID{}, false
	}

	id, err := value.ParseDealID(args[1])
	if err != nil {
		return value.DealID{}, false
	}

	return id, true
}

func (h *Handler) sendHTML(ctx *th.Context, chatID int64, text string) error {
	_, err := ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML))
	if err != nil {
		return fmt.Errorf("bot.SendMessage: %w", err)
	}

	return nil
}
