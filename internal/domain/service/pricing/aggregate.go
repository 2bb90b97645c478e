package pricing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"dms_sales/internal/domain/entity"
)

// SumFees возвращает Σ fee.Amount.
func SumFees(fees []entity.Fee) decimal.Decimal {
	return lo.Reduce(fees, func(acc decimal.Decimal, fee entity.Fee, _ int) decimal.Decimal {
		return acc.Add(fee.Amount)
	}, decimal.Zero)
}

// SumAddOns возвращает Σ addOn.Price.
func SumAddOns(addOns []entity.DealAddOn) decimal.Decimal {
	return lo.Reduce(addOns, func(acc decimal.Decimal, addOn entity.DealAddOn, _ int) decimal.Decimal {
		return acc.Add(addOn.Price)
	}, decimal.Zero)
}

// Aggregate — сумма сборов и допов, которая входит в TotalPrice. Чистая функция.
func Aggregate(fees []entity.Fee, addOns []entity.DealAddOn) decimal.Decimal {
	return SumFees(fees).Add(SumAddOns(addOns))
}
