package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// DealFilter — фильтр списка сделок. Пустые поля не участвуют в отборе.
type DealFilter struct {
	Status      *DealStatus
	SalesRepID  *string
	CustomerID  *uuid.UUID
	VehicleID   *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// StatusChange — событие смены статуса для внешних подписчиков.
type StatusChange struct {
	DealID     string
	From       DealStatus
	To         DealStatus
	UserID     string
	Notes      string
	TotalPrice string
	ChangedAt  time.Time
}
