package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dms_sales/internal/domain/value"
)

// Deal — сделка по продаже, лизингу или кредиту автомобиля.
//
// TotalPrice всегда равен PurchasePrice + TaxAmount + Σfees + Σaddons − TradeInValue
// и пересчитывается при каждом изменении влияющих на цену полей.
type Deal struct {
	ID               value.DealID
	CustomerID       uuid.UUID
	VehicleID        uuid.UUID
	TradeInVehicleID *uuid.UUID
	SalesRepID       string
	Status           DealStatus
	DealType         DealType

	PurchasePrice       decimal.Decimal
	TradeInValue        decimal.Decimal
	DownPayment         decimal.Decimal
	TaxRate             decimal.Decimal // доля, например 0.07
	TaxAmount           decimal.Decimal
	TotalPrice          decimal.Decimal
	MonthlyPayment      *decimal.Decimal
	FinancingTermMonths *int
	FinancingRate       *decimal.Decimal // годовых, в процентах

	Fees          []Fee
	AddOns        []DealAddOn
	StatusHistory []DealStatusHistory

	// Version — токен оптимистичной блокировки, растёт на каждой записи.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fee принадлежит одной сделке и заменяется целиком при обновлении.
type Fee struct {
	ID          uuid.UUID
	Type        string
	Description string
	Amount      decimal.Decimal
}

type DealAddOn struct {
	ID          value.AddOnID
	DealID      value.DealID
	Type        string
	Name        string
	Description string
	Price       decimal.Decimal
	Cost        decimal.Decimal
	Term        string
	ProviderID  *uuid.UUID
	CreatedAt   time.Time
	CreatedBy   string
}

// DealStatusHistory — запись аудита, только добавляется.
type DealStatusHistory struct {
	ID     uuid.UUID
	Status DealStatus
	Date   time.Time
	UserID string
	Notes  string
}

// AddOnByID возвращает индекс допа в сделке или -1.
func (d *Deal) AddOnByID(id value.AddOnID) int {
	for i := range d.AddOns {
		if d.AddOns[i].ID == id {
			return i
		}
	}

	return -1
}

// Clone возвращает копию сделки, не разделяющую слайсы и указатели с исходной.
func (d *Deal) Clone() *Deal {
	c := *d

	c.Fees = append([]Fee(nil), d.Fees...)
	c.AddOns = append([]DealAddOn(nil), d.AddOns...)
	c.StatusHistory = append([]DealStatusHistory(nil), d.StatusHistory...)

	if d.TradeInVehicleID != nil {
		v := *d.TradeInVehicleID
		c.TradeInVehicleID = &v
	}
	if d.MonthlyPayment != nil {
		v := *d.MonthlyPayment
		c.MonthlyPayment = &v
	}
	if d.FinancingTermMonths != nil {
		v := *d.FinancingTermMonths
		c.FinancingTermMonths = &v
	}
	if d.FinancingRate != nil {
		v := *d.FinancingRate
		c.FinancingRate = &v
	}

	return &c
}
