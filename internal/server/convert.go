package server

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/service/deal"
	"dms_sales/internal/domain/service/pricing"
	"dms_sales/pkg/errcodes"
	"dms_sales/pkg/rest"
)

// Денежные суммы в ответе не округляются, кроме платежа.
const paymentPlaces = 2

func newRESTDeal(d *entity.Deal) rest.Deal {
	return rest.Deal{
		ID:                  d.ID.String(),
		CustomerID:          d.CustomerID.String(),
		VehicleID:           d.VehicleID.String(),
		TradeInVehicleID:    uuidString(d.TradeInVehicleID),
		SalesRepID:          d.SalesRepID,
		Status:              d.Status.String(),
		DealType:            d.DealType.String(),
		PurchasePrice:       d.PurchasePrice,
		TradeInValue:        d.TradeInValue,
		DownPayment:         d.DownPayment,
		TaxRate:             d.TaxRate,
		TaxAmount:           d.TaxAmount,
		TotalPrice:          d.TotalPrice,
		MonthlyPayment:      payment(d.MonthlyPayment),
		FinancingTermMonths: d.FinancingTermMonths,
		FinancingRate:       d.FinancingRate,
		Fees: lo.Map(d.Fees, func(f entity.Fee, _ int) rest.Fee {
			return rest.Fee{
				ID:          f.ID.String(),
				Type:        f.Type,
				Description: f.Description,
				Amount:      f.Amount,
			}
		}),
		AddOns: lo.Map(d.AddOns, func(a entity.DealAddOn, _ int) rest.AddOn {
			return newRESTAddOn(&a)
		}),
		StatusHistory: lo.Map(d.StatusHistory, func(h entity.DealStatusHistory, _ int) rest.StatusHistory {
			return rest.StatusHistory{
				ID:     h.ID.String(),
				Status: h.Status.String(),
				Date:   h.Date,
				UserID: h.UserID,
				Notes:  h.Notes,
			}
		}),
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func newRESTAddOn(a *entity.DealAddOn) rest.AddOn {
	return rest.AddOn{
		ID:          a.ID.String(),
		DealID:      a.DealID.String(),
		Type:        a.Type,
		Name:        a.Name,
		Description: a.Description,
		Price:       a.Price,
		Cost:        a.Cost,
		Term:        a.Term,
		ProviderID:  uuidString(a.ProviderID),
		CreatedAt:   a.CreatedAt,
		CreatedBy:   a.CreatedBy,
	}
}

func newRESTCalculation(r pricing.Result) rest.CalculateResponse {
	return rest.CalculateResponse{
		TaxAmount:      r.TaxAmount,
		TotalFees:      r.FeesAndAddOnsTotal,
		TotalPrice:     r.TotalPrice,
		AmountFinanced: r.AmountFinanced,
		MonthlyPayment: payment(r.MonthlyPayment),
	}
}

func newCreateInput(r rest.CreateDealRequest) (deal.CreateInput, error) {
	customerID, err := parseUUID("customerId", r.CustomerID)
	if err != nil {
		return deal.CreateInput{}, err
	}

	vehicleID, err := parseUUID("vehicleId", r.VehicleID)
	if err != nil {
		return deal.CreateInput{}, err
	}

	tradeInVehicleID, err := parseOptionalUUID("tradeInVehicleId", r.TradeInVehicleID)
	if err != nil {
		return deal.CreateInput{}, err
	}

	return deal.CreateInput{
		CustomerID:          customerID,
		VehicleID:           vehicleID,
		SalesRepID:          r.SalesRepID,
		DealType:            entity.DealType(r.DealType),
		PurchasePrice:       r.PurchasePrice,
		TradeInVehicleID:    tradeInVehicleID,
		TradeInValue:        r.TradeInValue,
		DownPayment:         r.DownPayment,
		FinancingTermMonths: r.FinancingTermMonths,
		FinancingRate:       r.FinancingRate,
		TaxRate:             r.TaxRate,
		Fees:                newFeeInputs(r.Fees),
	}, nil
}

func newPatch(r rest.UpdateDealRequest) (deal.Patch, error) {
	tradeInVehicleID, err := parseOptionalUUID("tradeInVehicleId", r.TradeInVehicleID)
	if err != nil {
		return deal.Patch{}, err
	}

	patch := deal.Patch{
		SalesRepID:          r.SalesRepID,
		PurchasePrice:       r.PurchasePrice,
		TradeInVehicleID:    tradeInVehicleID,
		TradeInValue:        r.TradeInValue,
		DownPayment:         r.DownPayment,
		FinancingTermMonths: r.FinancingTermMonths,
		FinancingRate:       r.FinancingRate,
		TaxRate:             r.TaxRate,
	}

	if r.DealType != nil {
		patch.DealType = lo.ToPtr(entity.DealType(*r.DealType))
	}

	if r.Fees != nil {
		patch.Fees = lo.ToPtr(newFeeInputs(*r.Fees))
	}

	return patch, nil
}

func newAddOnInput(r rest.AddOnRequest) (deal.AddOnInput, error) {
	providerID, err := parseOptionalUUID("providerId", r.ProviderID)
	if err != nil {
		return deal.AddOnInput{}, err
	}

	return deal.AddOnInput{
		Type:        r.Type,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Cost:        r.Cost,
		Term:        r.Term,
		ProviderID:  providerID,
	}, nil
}

func newCalculateInput(r rest.CalculateRequest) deal.CalculateInput {
	in := deal.CalculateInput{
		PurchasePrice:       r.PurchasePrice,
		TradeInValue:        r.TradeInValue,
		DownPayment:         r.DownPayment,
		TaxRate:             r.TaxRate,
		FinancingTermMonths: r.FinancingTermMonths,
		FinancingRate:       r.FinancingRate,
		AddOnPrices:         r.AddOnPrices,
	}

	if r.Fees != nil {
		in.Fees = newFeeInputs(r.Fees)
	}

	if r.DealType != nil {
		in.DealType = lo.ToPtr(entity.DealType(*r.DealType))
	}

	return in
}

func newFeeInputs(fees []rest.FeeRequest) []deal.FeeInput {
	return lo.Map(fees, func(f rest.FeeRequest, _ int) deal.FeeInput {
		return deal.FeeInput{
			Type:        f.Type,
			Description: f.Description,
			Amount:      f.Amount,
		}
	})
}

func payment(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}

	return lo.ToPtr(p.StringFixed(paymentPlaces))
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}

	return lo.ToPtr(id.String())
}

func parseUUID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domain.WrapError(
			fmt.Errorf("uuid.Parse: %w", err),
			domain.KindInvalidArgument,
			errcodes.ValidationError,
			field+" must be a UUID",
		)
	}

	return id, nil
}

func parseOptionalUUID(field string, s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil //nolint:nilnil
	}

	id, err := parseUUID(field, *s)
	if err != nil {
		return nil, err
	}

	return &id, nil
}
