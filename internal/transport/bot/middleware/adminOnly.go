package middleware

import (
	"log/slog"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"dms_sales/pkg/contextx"
	"dms_sales/pkg/logx"
)

// AdminOnly пропускает дальше только обновления от adminID, остальные молча отбрасывает.
func AdminOnly(adminID int64) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		var from *telego.User

		switch {
		case update.Message != nil:
			from = update.Message.From
		case update.CallbackQuery != nil:
			from = &update.CallbackQuery.From
		}

		if from == nil {
			return nil
		}

		if from.ID == adminID {
			return ctx.Next(update)
		}

		contextx.LoggerFromContextOrDefault(ctx).Warn("bot command from non-admin",
			slog.Int64(logx.FieldUserID, from.ID),
		)

		return nil
	}
}
