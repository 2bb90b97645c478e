// Package events доставляет события смены статуса сделки подписчикам через asynq.
package events

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"dms_sales/internal/domain/entity"
)

const TypeDealStatusChanged = "deal:status_changed"

type statusChangedPayload struct {
	DealID     string    `msgpack:"deal_id"`
	From       string    `msgpack:"from"`
	To         string    `msgpack:"to"`
	UserID     string    `msgpack:"user_id"`
	Notes      string    `msgpack:"notes,omitempty"`
	TotalPrice string    `msgpack:"total_price"`
	ChangedAt  time.Time `msgpack:"changed_at"`
}

func EncodeStatusChanged(event entity.StatusChange) ([]byte, error) {
	data, err := msgpack.Marshal(statusChangedPayload{
		DealID:     event.DealID,
		From:       event.From.String(),
		To:         event.To.String(),
		UserID:     event.UserID,
		Notes:      event.Notes,
		TotalPrice: event.TotalPrice,
		ChangedAt:  event.ChangedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("msgpack.Marshal: %w", err)
	}

	return data, nil
}

func DecodeStatusChanged(data []byte) (entity.StatusChange, error) {
	var p statusChangedPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return entity.StatusChange{}, fmt.Errorf("msgpack.Unmarshal: %w", err)
	}

	from, err := entity.ParseDealStatus(p.From)
	if err != nil {
		return entity.StatusChange{}, err
	}

	to, err := entity.ParseDealStatus(p.To)
	if err != nil {
		return entity.StatusChange{}, err
	}

	return entity.StatusChange{
		DealID:     p.DealID,
		From:       from,
		To:         to,
		UserID:     p.UserID,
		Notes:      p.Notes,
		TotalPrice: p.TotalPrice,
		ChangedAt:  p.ChangedAt.UTC(),
	}, nil
}
