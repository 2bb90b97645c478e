package handler

import (
	"fmt"
	"html"
	"strings"

	"dms_sales/internal/domain/entity"
)

const (
	StartMessage = "👋 <b>DMS Sales</b>\n\n" +
		"/deal <code>ID</code> — карточка сделки\n" +
		"/pipeline — сделки по статусам"
	DealUsage     = "❌ Использование: /deal <code>ID</code>"
	DealNotFound  = "⚠️ Сделка <code>%s</code> не найдена"
	InternalError = "❌ Не удалось получить данные, попробуйте позже"
)

func RenderDeal(d *entity.Deal) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📋 <b>Сделка</b> <code>%s</code>\n\n", d.ID)
	fmt.Fprintf(&sb, "📌 <b>Статус:</b> %s\n", d.Status)
	fmt.Fprintf(&sb, "💳 <b>Тип:</b> %s\n", d.DealType)
	fmt.Fprintf(&sb, "👤 <b>Менеджер:</b> %s\n", html.EscapeString(d.SalesRepID))
	fmt.Fprintf(&sb, "🚗 <b>Цена:</b> %s\n", d.PurchasePrice.StringFixed(2))
	fmt.Fprintf(&sb, "💰 <b>Итого:</b> %s\n", d.TotalPrice.StringFixed(2))

	if d.MonthlyPayment != nil && d.FinancingTermMonths != nil {
		fmt.Fprintf(&sb, "📆 <b>Платёж:</b> %s × %d мес.\n", d.MonthlyPayment.StringFixed(2), *d.FinancingTermMonths)
	}

	if len(d.AddOns) > 0 {
		fmt.Fprintf(&sb, "🧩 <b>Допы:</b> %d\n", len(d.AddOns))
	}

	if n := len(d.StatusHistory); n > 0 {
		last := d.StatusHistory[n-1]
		fmt.Fprintf(&sb, "🕒 %s, %s", last.Date.Format("2006-01-02 15:04"), html.EscapeString(last.UserID))
	}

	return sb.String()
}

// RenderPipeline выводит статусы в порядке воронки, пропуская пустые.
func RenderPipeline(counts map[entity.DealStatus]int) string {
	var (
		sb    strings.Builder
		total int
	)

	sb.WriteString("📊 <b>Воронка сделок</b>\n\n")

	for _, status := range entity.DealStatuses {
		n := counts[status]
		if n == 0 {
			continue
		}

		total += n
		fmt.Fprintf(&sb, "%s: <b>%d</b>\n", status, n)
	}

	if total == 0 {
		sb.WriteString("Сделок пока нет")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nВсего: <b>%d</b>", total)

	return sb.String()
}
