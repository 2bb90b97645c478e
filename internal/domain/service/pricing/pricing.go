// Package pricing считает налоги, итоговую цену и ежемесячный платёж сделки.
// Вся арифметика в decimal, float64 не используется.
package pricing

import (
	"github.com/shopspring/decimal"

	"dms_sales/internal/domain/entity"
)

const (
	// compoundPrecision — знаков после запятой при возведении (1+r)^n.
	compoundPrecision = 28
)

var (
	monthsInYear = decimal.NewFromInt(12) //nolint:gochecknoglobals
	hundred      = decimal.NewFromInt(100) //nolint:gochecknoglobals
	one          = decimal.NewFromInt(1)   //nolint:gochecknoglobals
)

type Input struct {
	PurchasePrice      decimal.Decimal
	TaxRate            decimal.Decimal
	TradeInValue       decimal.Decimal
	DownPayment        decimal.Decimal
	FeesAndAddOnsTotal decimal.Decimal

	// Financed — считать ли платёж. Для сохранённых сделок это DealType == Finance.
	Financed            bool
	FinancingTermMonths *int
	FinancingRate       *decimal.Decimal
}

type Result struct {
	TaxAmount          decimal.Decimal
	FeesAndAddOnsTotal decimal.Decimal
	TotalPrice         decimal.Decimal
	AmountFinanced     decimal.Decimal
	MonthlyPayment     *decimal.Decimal
}

// Calculate применяет формулы:
//
//	taxAmount      = purchasePrice × taxRate
//	totalPrice     = purchasePrice + taxAmount + feesAndAddOns − tradeInValue
//	amountFinanced = totalPrice − downPayment
//
// Отрицательный amountFinanced допустим (переплата или дорогой трейд-ин).
func Calculate(in Input) Result {
	taxAmount := in.PurchasePrice.Mul(in.TaxRate)
	totalPrice := in.PurchasePrice.
		Add(taxAmount).
		Add(in.FeesAndAddOnsTotal).
		Sub(in.TradeInValue)
	amountFinanced := totalPrice.Sub(in.DownPayment)

	result := Result{
		TaxAmount:          taxAmount,
		FeesAndAddOnsTotal: in.FeesAndAddOnsTotal,
		TotalPrice:         totalPrice,
		AmountFinanced:     amountFinanced,
	}

	if in.Financed && in.FinancingTermMonths != nil && in.FinancingRate != nil {
		result.MonthlyPayment = MonthlyPayment(amountFinanced, *in.FinancingRate, *in.FinancingTermMonths)
	}

	return result
}

// MonthlyPayment — аннуитетный платёж:
//
//	r = annualRatePercent / 12 / 100
//	payment = principal × r × (1+r)^n / ((1+r)^n − 1)
//
// При нулевой ставке платёж равен principal / n. При n <= 0 или отрицательной
// ставке возвращает nil.
func MonthlyPayment(principal, annualRatePercent decimal.Decimal, months int) *decimal.Decimal {
	if months <= 0 || annualRatePercent.IsNegative() {
		return nil
	}

	n := decimal.NewFromInt(int64(months))

	if annualRatePercent.IsZero() {
		payment := principal.Div(n)
		return &payment
	}

	monthlyRate := annualRatePercent.Div(monthsInYear).Div(hundred)
	compound := compoundFactor(one.Add(monthlyRate), months)

	payment := principal.
		Mul(monthlyRate).
		Mul(compound).
		Div(compound.Sub(one))

	return &payment
}

// compoundFactor считает base^n повторным умножением с усечением до
// compoundPrecision знаков, чтобы разрядность не росла экспоненциально.
func compoundFactor(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for range n {
		result = result.Mul(base).Truncate(compoundPrecision)
	}

	return result
}

// ForDeal собирает Input из текущего состояния сделки.
func ForDeal(d *entity.Deal) Input {
	return Input{
		PurchasePrice:       d.PurchasePrice,
		TaxRate:             d.TaxRate,
		TradeInValue:        d.TradeInValue,
		DownPayment:         d.DownPayment,
		FeesAndAddOnsTotal:  Aggregate(d.Fees, d.AddOns),
		Financed:            d.DealType == entity.DealTypeFinance,
		FinancingTermMonths: d.FinancingTermMonths,
		FinancingRate:       d.FinancingRate,
	}
}

// Reprice пересчитывает денежные поля сделки по её компонентам.
func Reprice(d *entity.Deal) Result {
	result := Calculate(ForDeal(d))

	d.TaxAmount = result.TaxAmount
	d.TotalPrice = result.TotalPrice
	d.MonthlyPayment = result.MonthlyPayment

	return result
}
