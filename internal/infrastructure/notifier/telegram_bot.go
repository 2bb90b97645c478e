// Package notifier отправляет уведомления о сделках в Telegram-чат менеджеров.
package notifier

import (
	"context"
	"fmt"
	"html"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"dms_sales/internal/domain/entity"
)

type MessageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

type TelegramBot struct {
	bot    MessageSender
	chatID int64
}

func NewTelegramBot(bot MessageSender, chatID int64) *TelegramBot {
	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}
}

func (b *TelegramBot) NotifyStatusChange(ctx context.Context, change entity.StatusChange) error {
	msg := tu.Message(
		tu.ID(b.chatID),
		FormatStatusChange(change),
	).WithParseMode(telego.ModeHTML)

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// SendText отправляет простое текстовое сообщение.
func (b *TelegramBot) SendText(ctx context.Context, text string) error {
	if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(b.chatID), text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func FormatStatusChange(change entity.StatusChange) string {
	text := fmt.Sprintf(
		"📋 <b>Deal status changed</b>\n\n"+
			"🆔 <code>%s</code>\n"+
			"🔁 %s → <b>%s</b>\n"+
			"💰 <b>Total:</b> %s\n"+
			"👤 <b>By:</b> %s\n"+
			"🕒 %s",
		change.DealID,
		change.From,
		change.To,
		change.TotalPrice,
		html.EscapeString(change.UserID),
		change.ChangedAt.Format("2006-01-02 15:04 MST"),
	)

	if change.Notes != "" {
		text += "\n📝 " + html.EscapeString(change.Notes)
	}

	return text
}
