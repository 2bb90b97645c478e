// Package status описывает допустимые переходы статусов сделки.
package status

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/errcodes"
)

// transitions — явная таблица переходов. Completed и Cancelled терминальные.
var transitions = map[entity.DealStatus][]entity.DealStatus{ //nolint:gochecknoglobals
	entity.DealStatusDraft: {
		entity.DealStatusPending,
		entity.DealStatusCancelled,
	},
	entity.DealStatusPending: {
		entity.DealStatusDraft,
		entity.DealStatusApproved,
		entity.DealStatusFinancingRequired,
		entity.DealStatusCancelled,
	},
	entity.DealStatusApproved: {
		entity.DealStatusFinancingRequired,
		entity.DealStatusDepositPaid,
		entity.DealStatusCompleted,
		entity.DealStatusCancelled,
	},
	entity.DealStatusFinancingRequired: {
		entity.DealStatusFinancingApproved,
		entity.DealStatusFinancingRejected,
		entity.DealStatusCancelled,
	},
	entity.DealStatusFinancingApproved: {
		entity.DealStatusDepositPaid,
		entity.DealStatusCompleted,
		entity.DealStatusCancelled,
	},
	entity.DealStatusFinancingRejected: {
		entity.DealStatusFinancingRequired,
		entity.DealStatusPending,
		entity.DealStatusCancelled,
	},
	entity.DealStatusDepositPaid: {
		entity.DealStatusCompleted,
		entity.DealStatusCancelled,
	},
}

type Machine struct {
	now func() time.Time
}

func NewMachine() *Machine {
	return &Machine{now: time.Now}
}

// WithClock подменяет источник времени (для тестов).
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// CanTransition сообщает, разрешён ли переход from → to.
func CanTransition(from, to entity.DealStatus) bool {
	return slices.Contains(transitions[from], to)
}

// Allowed возвращает статусы, в которые можно перейти из from.
func Allowed(from entity.DealStatus) []entity.DealStatus {
	return slices.Clone(transitions[from])
}

// IsTerminal — из статуса нет переходов.
func IsTerminal(s entity.DealStatus) bool {
	return len(transitions[s]) == 0
}

// Initial создаёт первую запись истории для новой сделки.
func (m *Machine) Initial(actor value.Actor) entity.DealStatusHistory {
	return entity.DealStatusHistory{
		ID:     uuid.New(),
		Status: entity.DealStatusDraft,
		Date:   m.now().UTC(),
		UserID: actor.String(),
		Notes:  "Deal created",
	}
}

// Transition переводит сделку в статус to и дописывает запись в историю.
// При недопустимом переходе сделка не меняется.
func (m *Machine) Transition(
	deal *entity.Deal,
	to entity.DealStatus,
	actor value.Actor,
	notes string,
) (entity.DealStatusHistory, error) {
	if !CanTransition(deal.Status, to) {
		return entity.DealStatusHistory{}, domain.InvalidOperation(
			errcodes.InvalidStatusTransition,
			fmt.Sprintf("cannot change deal status from %s to %s", deal.Status, to),
		)
	}

	entry := entity.DealStatusHistory{
		ID:     uuid.New(),
		Status: to,
		Date:   m.now().UTC(),
		UserID: actor.String(),
		Notes:  notes,
	}

	deal.Status = to
	deal.StatusHistory = append(deal.StatusHistory, entry)

	return entry, nil
}
