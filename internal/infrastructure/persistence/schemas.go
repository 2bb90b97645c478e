package persistence

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/value"
)

// timestamp читает время и из TIMESTAMPTZ (Postgres), и из текста (SQLite).
type timestamp time.Time

var timestampLayouts = []string{ //nolint:gochecknoglobals
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = timestamp(v.UTC())
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = timestamp(parsed.UTC())
			return nil
		}
	}

	return fmt.Errorf("unsupported timestamp format %q", s)
}

func (t timestamp) Value() (driver.Value, error) {
	return time.Time(t).UTC(), nil
}

func (t timestamp) Time() time.Time {
	return time.Time(t)
}

type dealSchema struct {
	ID                  uuid.UUID           `db:"id"`
	CustomerID          uuid.UUID           `db:"customer_id"`
	VehicleID           uuid.UUID           `db:"vehicle_id"`
	TradeInVehicleID    uuid.NullUUID       `db:"trade_in_vehicle_id"`
	SalesRepID          string              `db:"sales_rep_id"`
	Status              string              `db:"status"`
	DealType            string              `db:"deal_type"`
	PurchasePrice       decimal.Decimal     `db:"purchase_price"`
	TradeInValue        decimal.Decimal     `db:"trade_in_value"`
	DownPayment         decimal.Decimal     `db:"down_payment"`
	TaxRate             decimal.Decimal     `db:"tax_rate"`
	TaxAmount           decimal.Decimal     `db:"tax_amount"`
	TotalPrice          decimal.Decimal     `db:"total_price"`
	MonthlyPayment      decimal.NullDecimal `db:"monthly_payment"`
	FinancingTermMonths sql.NullInt64       `db:"financing_term_months"`
	FinancingRate       decimal.NullDecimal `db:"financing_rate"`
	Version             int64               `db:"version"`
	CreatedAt           timestamp           `db:"created_at"`
	UpdatedAt           timestamp           `db:"updated_at"`
}

func fromDeal(d *entity.Deal) dealSchema {
	s := dealSchema{
		ID:            d.ID.UUID(),
		CustomerID:    d.CustomerID,
		VehicleID:     d.VehicleID,
		SalesRepID:    d.SalesRepID,
		Status:        d.Status.String(),
		DealType:      d.DealType.String(),
		PurchasePrice: d.PurchasePrice,
		TradeInValue:  d.TradeInValue,
		DownPayment:   d.DownPayment,
		TaxRate:       d.TaxRate,
		TaxAmount:     d.TaxAmount,
		TotalPrice:    d.TotalPrice,
		Version:       d.Version,
		CreatedAt:     timestamp(d.CreatedAt),
		UpdatedAt:     timestamp(d.UpdatedAt),
	}

	if d.TradeInVehicleID != nil {
		s.TradeInVehicleID = uuid.NullUUID{UUID: *d.TradeInVehicleID, Valid: true}
	}
	if d.MonthlyPayment != nil {
		s.MonthlyPayment = decimal.NewNullDecimal(*d.MonthlyPayment)
	}
	if d.FinancingTermMonths != nil {
		s.FinancingTermMonths = sql.NullInt64{Int64: int64(*d.FinancingTermMonths), Valid: true}
	}
	if d.FinancingRate != nil {
		s.FinancingRate = decimal.NewNullDecimal(*d.FinancingRate)
	}

	return s
}

func (s *dealSchema) toDomain() (*entity.Deal, error) {
	status, err := entity.ParseDealStatus(s.Status)
	if err != nil {
		return nil, err
	}

	dealType, err := entity.ParseDealType(s.DealType)
	if err != nil {
		return nil, err
	}

	d := &entity.Deal{
		ID:            value.DealID(s.ID),
		CustomerID:    s.CustomerID,
		VehicleID:     s.VehicleID,
		SalesRepID:    s.SalesRepID,
		Status:        status,
		DealType:      dealType,
		PurchasePrice: s.PurchasePrice,
		TradeInValue:  s.TradeInValue,
		DownPayment:   s.DownPayment,
		TaxRate:       s.TaxRate,
		TaxAmount:     s.TaxAmount,
		TotalPrice:    s.TotalPrice,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt.Time(),
		UpdatedAt:     s.UpdatedAt.Time(),
	}

	if s.TradeInVehicleID.Valid {
		id := s.TradeInVehicleID.UUID
		d.TradeInVehicleID = &id
	}
	if s.MonthlyPayment.Valid {
		payment := s.MonthlyPayment.Decimal
		d.MonthlyPayment = &payment
	}
	if s.FinancingTermMonths.Valid {
		months := int(s.FinancingTermMonths.Int64)
		d.FinancingTermMonths = &months
	}
	if s.FinancingRate.Valid {
		rate := s.FinancingRate.Decimal
		d.FinancingRate = &rate
	}

	return d, nil
}

type feeSchema struct {
	ID          uuid.UUID       `db:"id"`
	DealID      uuid.UUID       `db:"deal_id"`
	Position    int             `db:"position"`
	Type        string          `db:"type"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
}

func fromFees(dealID value.DealID, fees []entity.Fee) []feeSchema {
	schemas := make([]feeSchema, 0, len(fees))
	for i, f := range fees {
		schemas = append(schemas, feeSchema{
			ID:          f.ID,
			DealID:      dealID.UUID(),
			Position:    i,
			Type:        f.Type,
			Description: f.Description,
			Amount:      f.Amount,
		})
	}

	return schemas
}

func (s *feeSchema) toDomain() entity.Fee {
	return entity.Fee{
		ID:          s.ID,
		Type:        s.Type,
		Description: s.Description,
		Amount:      s.Amount,
	}
}

type addOnSchema struct {
	ID          uuid.UUID       `db:"id"`
	DealID      uuid.UUID       `db:"deal_id"`
	Type        string          `db:"type"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Cost        decimal.Decimal `db:"cost"`
	Term        string          `db:"term"`
	ProviderID  uuid.NullUUID   `db:"provider_id"`
	CreatedAt   timestamp       `db:"created_at"`
	CreatedBy   string          `db:"created_by"`
}

func fromAddOn(a entity.DealAddOn) addOnSchema {
	s := addOnSchema{
		ID:          a.ID.UUID(),
		DealID:      a.DealID.UUID(),
		Type:        a.Type,
		Name:        a.Name,
		Description: a.Description,
		Price:       a.Price,
		Cost:        a.Cost,
		Term:        a.Term,
		CreatedAt:   timestamp(a.CreatedAt),
		CreatedBy:   a.CreatedBy,
	}

	if a.ProviderID != nil {
		s.ProviderID = uuid.NullUUID{UUID: *a.ProviderID, Valid: true}
	}

	return s
}

func (s *addOnSchema) toDomain() entity.DealAddOn {
	a := entity.DealAddOn{
		ID:          value.AddOnID(s.ID),
		DealID:      value.DealID(s.DealID),
		Type:        s.Type,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		Cost:        s.Cost,
		Term:        s.Term,
		CreatedAt:   s.CreatedAt.Time(),
		CreatedBy:   s.CreatedBy,
	}

	if s.ProviderID.Valid {
		id := s.ProviderID.UUID
		a.ProviderID = &id
	}

	return a
}

type historySchema struct {
	ID        uuid.UUID `db:"id"`
	DealID    uuid.UUID `db:"deal_id"`
	Position  int       `db:"position"`
	Status    string    `db:"status"`
	ChangedAt timestamp `db:"changed_at"`
	UserID    string    `db:"user_id"`
	Notes     string    `db:"notes"`
}

func fromHistory(dealID value.DealID, position int, h entity.DealStatusHistory) historySchema {
	return historySchema{
		ID:        h.ID,
		DealID:    dealID.UUID(),
		Position:  position,
		Status:    h.Status.String(),
		ChangedAt: timestamp(h.Date),
		UserID:    h.UserID,
		Notes:     h.Notes,
	}
}

func (s *historySchema) toDomain() (entity.DealStatusHistory, error) {
	status, err := entity.ParseDealStatus(s.Status)
	if err != nil {
		return entity.DealStatusHistory{}, err
	}

	return entity.DealStatusHistory{
		ID:     s.ID,
		Status: status,
		Date:   s.ChangedAt.Time(),
		UserID: s.UserID,
		Notes:  s.Notes,
	}, nil
}

type statusCountSchema struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}
