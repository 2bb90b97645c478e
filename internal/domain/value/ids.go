package value

import (
	"fmt"

	"github.com/google/uuid"
)

type DealID uuid.UUID

func NewDealID() DealID {
	return DealID(uuid.New())
}

func ParseDealID(s string) (DealID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return DealID{}, fmt.Errorf("uuid.Parse: %w", err)
	}

	return DealID(id), nil
}

func (id DealID) UUID() uuid.UUID {
	return uuid.UUID(id)
}

func (id DealID) String() string {
	return uuid.UUID(id).String()
}

func (id DealID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

type AddOnID uuid.UUID

func NewAddOnID() AddOnID {
	return AddOnID(uuid.New())
}

func ParseAddOnID(s string) (AddOnID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AddOnID{}, fmt.Errorf("uuid.Parse: %w", err)
	}

	return AddOnID(id), nil
}

func (id AddOnID) UUID() uuid.UUID {
	return uuid.UUID(id)
}

func (id AddOnID) String() string {
	return uuid.UUID(id).String()
}
