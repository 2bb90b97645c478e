package deal

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/pkg/errcodes"
)

const maxFinancingTermMonths = 600

type FeeInput struct {
	Type        string
	Description string
	Amount      decimal.Decimal
}

type CreateInput struct {
	CustomerID          uuid.UUID
	VehicleID           uuid.UUID
	SalesRepID          *string
	DealType            entity.DealType
	PurchasePrice       decimal.Decimal
	TradeInVehicleID    *uuid.UUID
	TradeInValue        decimal.Decimal
	DownPayment         decimal.Decimal
	FinancingTermMonths *int
	FinancingRate       *decimal.Decimal
	TaxRate             decimal.Decimal
	Fees                []FeeInput
}

func (in CreateInput) Validate() error {
	if in.CustomerID == uuid.Nil {
		return invalidDeal("customer id is required")
	}
	if in.VehicleID == uuid.Nil {
		return invalidDeal("vehicle id is required")
	}
	if _, err := entity.ParseDealType(in.DealType.String()); err != nil {
		return domain.InvalidArgument(errcodes.InvalidDealType, err.Error())
	}

	return validateTerms(terms{
		purchasePrice:       &in.PurchasePrice,
		tradeInValue:        &in.TradeInValue,
		downPayment:         &in.DownPayment,
		taxRate:             &in.TaxRate,
		financingTermMonths: in.FinancingTermMonths,
		financingRate:       in.FinancingRate,
		fees:                &in.Fees,
	})
}

// Patch — частичное обновление: nil означает «не менять».
// Fees != nil заменяет список сборов целиком (в том числе пустым списком).
type Patch struct {
	SalesRepID          *string
	DealType            *entity.DealType
	PurchasePrice       *decimal.Decimal
	TradeInVehicleID    *uuid.UUID
	TradeInValue        *decimal.Decimal
	DownPayment         *decimal.Decimal
	FinancingTermMonths *int
	FinancingRate       *decimal.Decimal
	TaxRate             *decimal.Decimal
	Fees                *[]FeeInput
}

func (p Patch) Validate() error {
	if p.DealType != nil {
		if _, err := entity.ParseDealType(p.DealType.String()); err != nil {
			return domain.InvalidArgument(errcodes.InvalidDealType, err.Error())
		}
	}

	return validateTerms(terms{
		purchasePrice:       p.PurchasePrice,
		tradeInValue:        p.TradeInValue,
		downPayment:         p.DownPayment,
		taxRate:             p.TaxRate,
		financingTermMonths: p.FinancingTermMonths,
		financingRate:       p.FinancingRate,
		fees:                p.Fees,
	})
}

// Apply переносит заданные поля на сделку. Пересчёт цены — забота вызывающего.
func (p Patch) Apply(d *entity.Deal) {
	if p.SalesRepID != nil {
		d.SalesRepID = *p.SalesRepID
	}
	if p.DealType != nil {
		d.DealType = *p.DealType
	}
	if p.PurchasePrice != nil {
		d.PurchasePrice = *p.PurchasePrice
	}
	if p.TradeInVehicleID != nil {
		d.TradeInVehicleID = lo.ToPtr(*p.TradeInVehicleID)
	}
	if p.TradeInValue != nil {
		d.TradeInValue = *p.TradeInValue
	}
	if p.DownPayment != nil {
		d.DownPayment = *p.DownPayment
	}
	if p.FinancingTermMonths != nil {
		d.FinancingTermMonths = lo.ToPtr(*p.FinancingTermMonths)
	}
	if p.FinancingRate != nil {
		d.FinancingRate = lo.ToPtr(*p.FinancingRate)
	}
	if p.TaxRate != nil {
		d.TaxRate = *p.TaxRate
	}
	if p.Fees != nil {
		d.Fees = newFees(*p.Fees)
	}
}

type AddOnInput struct {
	Type        string
	Name        string
	Description string
	Price       decimal.Decimal
	Cost        decimal.Decimal
	Term        string
	ProviderID  *uuid.UUID
}

func (in AddOnInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return invalidAddOn("add-on name is required")
	case strings.TrimSpace(in.Type) == "":
		return invalidAddOn("add-on type is required")
	case in.Price.IsNegative():
		return invalidAddOn("add-on price must not be negative")
	case in.Cost.IsNegative():
		return invalidAddOn("add-on cost must not be negative")
	}

	return nil
}

// CalculateInput — параметры предварительного расчёта без сохранения.
// DealType == nil считает платёж при наличии срока и ставки, как для Finance.
// Fees == nil означает «сборы не заданы» (для CalculateForDeal: взять сборы сделки).
type CalculateInput struct {
	DealType            *entity.DealType
	PurchasePrice       decimal.Decimal
	TradeInValue        decimal.Decimal
	DownPayment         decimal.Decimal
	TaxRate             decimal.Decimal
	FinancingTermMonths *int
	FinancingRate       *decimal.Decimal
	Fees                []FeeInput
	AddOnPrices         []decimal.Decimal
}

func (in CalculateInput) Validate() error {
	if in.DealType != nil {
		if _, err := entity.ParseDealType(in.DealType.String()); err != nil {
			return domain.InvalidArgument(errcodes.InvalidDealType, err.Error())
		}
	}

	for _, price := range in.AddOnPrices {
		if price.IsNegative() {
			return invalidAddOn("add-on price must not be negative")
		}
	}

	return validateTerms(terms{
		purchasePrice:       &in.PurchasePrice,
		tradeInValue:        &in.TradeInValue,
		downPayment:         &in.DownPayment,
		taxRate:             &in.TaxRate,
		financingTermMonths: in.FinancingTermMonths,
		financingRate:       in.FinancingRate,
		fees:                &in.Fees,
	})
}

type terms struct {
	purchasePrice       *decimal.Decimal
	tradeInValue        *decimal.Decimal
	downPayment         *decimal.Decimal
	taxRate             *decimal.Decimal
	financingTermMonths *int
	financingRate       *decimal.Decimal
	fees                *[]FeeInput
}

func validateTerms(t terms) error {
	for name, amount := range map[string]*decimal.Decimal{
		"purchase price": t.purchasePrice,
		"trade-in value": t.tradeInValue,
		"down payment":   t.downPayment,
		"tax rate":       t.taxRate,
		"financing rate": t.financingRate,
	} {
		if amount != nil && amount.IsNegative() {
			return invalidDeal(name + " must not be negative")
		}
	}

	if t.taxRate != nil && t.taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return invalidDeal("tax rate must be a fraction below 1")
	}

	if t.financingTermMonths != nil {
		if months := *t.financingTermMonths; months <= 0 || months > maxFinancingTermMonths {
			return invalidDeal(fmt.Sprintf("financing term must be between 1 and %d months", maxFinancingTermMonths))
		}
	}

	if t.fees != nil {
		for i, fee := range *t.fees {
			if fee.Amount.IsNegative() {
				return invalidDeal(fmt.Sprintf("fee #%d amount must not be negative", i+1))
			}
		}
	}

	return nil
}

func newFees(in []FeeInput) []entity.Fee {
	return lo.Map(in, func(f FeeInput, _ int) entity.Fee {
		return entity.Fee{
			ID:          uuid.New(),
			Type:        f.Type,
			Description: f.Description,
			Amount:      f.Amount,
		}
	})
}

func invalidDeal(message string) error {
	return domain.InvalidArgument(errcodes.InvalidDeal, message)
}

func invalidAddOn(message string) error {
	return domain.InvalidArgument(errcodes.InvalidAddOn, message)
}
