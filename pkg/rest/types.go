// Модели HTTP API сделок. Денежные поля передаются десятичными строками
// (на вход принимаются и числа).
package rest

import (
	"time"

	"github.com/shopspring/decimal"
)

type Fee struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type FeeRequest struct {
	Type        string          `json:"type"        validate:"required,max=64"`
	Description string          `json:"description" validate:"max=256"`
	Amount      decimal.Decimal `json:"amount"`
}

type AddOn struct {
	ID          string          `json:"id"`
	DealID      string          `json:"dealId"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Term        string          `json:"term"`
	ProviderID  *string         `json:"providerId"`
	CreatedAt   time.Time       `json:"createdAt"`
	CreatedBy   string          `json:"createdBy"`
}

type AddOnRequest struct {
	Type        string          `json:"type"        validate:"required,max=64"`
	Name        string          `json:"name"        validate:"required,max=128"`
	Description string          `json:"description" validate:"max=512"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Term        string          `json:"term"        validate:"max=64"`
	ProviderID  *string         `json:"providerId"  validate:"omitempty,uuid"`
}

type StatusHistory struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
	UserID string    `json:"userId"`
	Notes  string    `json:"notes"`
}

// Deal — сделка. MonthlyPayment округлён до копеек, остальные суммы точные.
type Deal struct {
	ID                  string           `json:"id"`
	CustomerID          string           `json:"customerId"`
	VehicleID           string           `json:"vehicleId"`
	TradeInVehicleID    *string          `json:"tradeInVehicleId"`
	SalesRepID          string           `json:"salesRepId"`
	Status              string           `json:"status"`
	DealType            string           `json:"dealType"`
	PurchasePrice       decimal.Decimal  `json:"purchasePrice"`
	TradeInValue        decimal.Decimal  `json:"tradeInValue"`
	DownPayment         decimal.Decimal  `json:"downPayment"`
	TaxRate             decimal.Decimal  `json:"taxRate"`
	TaxAmount           decimal.Decimal  `json:"taxAmount"`
	TotalPrice          decimal.Decimal  `json:"totalPrice"`
	MonthlyPayment      *string          `json:"monthlyPayment"`
	FinancingTermMonths *int             `json:"financingTermMonths"`
	FinancingRate       *decimal.Decimal `json:"financingRate"`
	Fees                []Fee            `json:"fees"`
	AddOns              []AddOn          `json:"addOns,omitempty"`
	StatusHistory       []StatusHistory  `json:"statusHistory"`
	Version             int64            `json:"version"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

type CreateDealRequest struct {
	CustomerID          string           `json:"customerId"          validate:"required,uuid"`
	VehicleID           string           `json:"vehicleId"           validate:"required,uuid"`
	SalesRepID          *string          `json:"salesRepId"          validate:"omitempty,max=64"`
	DealType            string           `json:"dealType"            validate:"required,oneof=Cash Finance Lease"`
	PurchasePrice       decimal.Decimal  `json:"purchasePrice"`
	TradeInVehicleID    *string          `json:"tradeInVehicleId"    validate:"omitempty,uuid"`
	TradeInValue        decimal.Decimal  `json:"tradeInValue"`
	DownPayment         decimal.Decimal  `json:"downPayment"`
	FinancingTermMonths *int             `json:"financingTermMonths" validate:"omitempty,min=1,max=600"`
	FinancingRate       *decimal.Decimal `json:"financingRate"`
	TaxRate             decimal.Decimal  `json:"taxRate"`
	Fees                []FeeRequest     `json:"fees"                validate:"dive"`
}

// UpdateDealRequest — частичное обновление. Fees, если передан, заменяет
// список сборов целиком.
type UpdateDealRequest struct {
	SalesRepID          *string          `json:"salesRepId"          validate:"omitempty,max=64"`
	DealType            *string          `json:"dealType"            validate:"omitempty,oneof=Cash Finance Lease"`
	PurchasePrice       *decimal.Decimal `json:"purchasePrice"`
	TradeInVehicleID    *string          `json:"tradeInVehicleId"    validate:"omitempty,uuid"`
	TradeInValue        *decimal.Decimal `json:"tradeInValue"`
	DownPayment         *decimal.Decimal `json:"downPayment"`
	FinancingTermMonths *int             `json:"financingTermMonths" validate:"omitempty,min=1,max=600"`
	FinancingRate       *decimal.Decimal `json:"financingRate"`
	TaxRate             *decimal.Decimal `json:"taxRate"`
	Fees                *[]FeeRequest    `json:"fees"                validate:"omitempty,dive"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"  validate:"max=1024"`
}

type CalculateRequest struct {
	DealType            *string           `json:"dealType"            validate:"omitempty,oneof=Cash Finance Lease"`
	PurchasePrice       decimal.Decimal   `json:"purchasePrice"`
	TradeInValue        decimal.Decimal   `json:"tradeInValue"`
	DownPayment         decimal.Decimal   `json:"downPayment"`
	TaxRate             decimal.Decimal   `json:"taxRate"`
	FinancingTermMonths *int              `json:"financingTermMonths" validate:"omitempty,min=1,max=600"`
	FinancingRate       *decimal.Decimal  `json:"financingRate"`
	Fees                []FeeRequest      `json:"fees"                validate:"dive"`
	AddOnPrices         []decimal.Decimal `json:"addOnPrices"`
}

type CalculateResponse struct {
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	TotalFees      decimal.Decimal `json:"totalFees"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	AmountFinanced decimal.Decimal `json:"amountFinanced"`
	MonthlyPayment *string         `json:"monthlyPayment"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке
	Message string `json:"message"`

	// SupportID Идентификатор запроса для обращения в поддержку
	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string
