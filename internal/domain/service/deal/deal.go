// Package deal координирует жизненный цикл сделки: создание, правку, допы,
// смену статуса и предварительный расчёт.
package deal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/service/pricing"
	"dms_sales/internal/domain/service/status"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/errcodes"
	"dms_sales/pkg/logx"
)

// DealRepository хранит сделки. Все пишущие методы сверяют deal.Version с
// сохранённой версией и при расхождении возвращают Conflict; при успехе
// увеличивают deal.Version.
type DealRepository interface {
	GetByID(ctx context.Context, id value.DealID) (*entity.Deal, error)
	List(ctx context.Context, filter entity.DealFilter) ([]entity.Deal, error)
	Create(ctx context.Context, deal *entity.Deal) error
	Update(ctx context.Context, deal *entity.Deal) error
	AppendStatusHistory(ctx context.Context, deal *entity.Deal, entry entity.DealStatusHistory) error
	AddAddOn(ctx context.Context, deal *entity.Deal, addOn entity.DealAddOn) error
	RemoveAddOn(ctx context.Context, deal *entity.Deal, addOnID value.AddOnID) error
}

// IdempotencyStore закрепляет ключ за идентификатором сделки.
// Reserve возвращает reserved=false и ранее закреплённый id, если ключ занят.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, id value.DealID) (existing value.DealID, reserved bool, err error)
	Release(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event entity.StatusChange) error
}

// Observer получает длительность и итог каждой операции (метрики).
type Observer interface {
	ObserveOperation(operation string, took time.Duration, err error)
}

type DealService struct {
	repo        DealRepository
	machine     *status.Machine
	idempotency IdempotencyStore
	publisher   EventPublisher
	observer    Observer
	now         func() time.Time
}

func NewDealService(repo DealRepository, machine *status.Machine) *DealService {
	return &DealService{
		repo:    repo,
		machine: machine,
		now:     time.Now,
	}
}

func (s *DealService) WithIdempotency(store IdempotencyStore) *DealService {
	s.idempotency = store
	return s
}

func (s *DealService) WithPublisher(publisher EventPublisher) *DealService {
	s.publisher = publisher
	return s
}

func (s *DealService) WithObserver(observer Observer) *DealService {
	s.observer = observer
	return s
}

func (s *DealService) WithClock(now func() time.Time) *DealService {
	s.now = now
	return s
}

func (s *DealService) observe(operation string, started time.Time, err *error) {
	if s.observer != nil {
		s.observer.ObserveOperation(operation, time.Since(started), *err)
	}
}

// CreateDeal создаёт сделку в статусе Draft с рассчитанными суммами и первой
// записью истории. Повтор с тем же idempotencyKey возвращает уже созданную
// сделку и created=false.
func (s *DealService) CreateDeal(
	ctx context.Context,
	actor value.Actor,
	in CreateInput,
	idempotencyKey string,
) (_ *entity.Deal, created bool, err error) {
	defer s.observe("create_deal", time.Now(), &err)

	if err := requireActor(actor); err != nil {
		return nil, false, err
	}

	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	now := s.now().UTC()

	deal := &entity.Deal{
		ID:                  value.NewDealID(),
		CustomerID:          in.CustomerID,
		VehicleID:           in.VehicleID,
		TradeInVehicleID:    in.TradeInVehicleID,
		SalesRepID:          actor.String(),
		Status:              entity.DealStatusDraft,
		DealType:            in.DealType,
		PurchasePrice:       in.PurchasePrice,
		TradeInValue:        in.TradeInValue,
		DownPayment:         in.DownPayment,
		TaxRate:             in.TaxRate,
		FinancingTermMonths: in.FinancingTermMonths,
		FinancingRate:       in.FinancingRate,
		Fees:                newFees(in.Fees),
		StatusHistory:       []entity.DealStatusHistory{s.machine.Initial(actor)},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if in.SalesRepID != nil && strings.TrimSpace(*in.SalesRepID) != "" {
		deal.SalesRepID = *in.SalesRepID
	}

	pricing.Reprice(deal)

	key := strings.TrimSpace(idempotencyKey)
	if key != "" && s.idempotency != nil {
		existing, reserved, err := s.idempotency.Reserve(ctx, key, deal.ID)
		if err != nil {
			return nil, false, fmt.Errorf("idempotency.Reserve: %w", err)
		}

		if !reserved {
			replayed, err := s.replay(ctx, existing)
			return replayed, false, err
		}
	}

	if err := s.repo.Create(ctx, deal); err != nil {
		s.release(ctx, key)
		return nil, false, fmt.Errorf("dealRepo.Create: %w", err)
	}

	logger(ctx).Info("deal created",
		slog.String(logx.FieldDealID, deal.ID.String()),
		slog.String(logx.FieldUserID, actor.String()),
		slog.String("total-price", deal.TotalPrice.String()),
	)

	return deal, true, nil
}

func (s *DealService) replay(ctx context.Context, id value.DealID) (*entity.Deal, error) {
	deal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.Conflict(errcodes.IdempotencyKeyInFlight,
				"request with this idempotency key is still being processed")
		}

		return nil, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	logger(ctx).Info("deal creation replayed", slog.String(logx.FieldDealID, id.String()))

	return deal, nil
}

func (s *DealService) release(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}

	if err := s.idempotency.Release(ctx, key); err != nil {
		logger(ctx).Warn("failed to release idempotency key", logx.Error(err))
	}
}

// GetDeal возвращает сделку со сборами и историей; допы — только при includeAll.
func (s *DealService) GetDeal(ctx context.Context, id value.DealID, includeAll bool) (_ *entity.Deal, err error) {
	defer s.observe("get_deal", time.Now(), &err)

	deal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	if !includeAll {
		deal.AddOns = nil
	}

	return deal, nil
}

func (s *DealService) ListDeals(ctx context.Context, filter entity.DealFilter) (_ []entity.Deal, err error) {
	defer s.observe("list_deals", time.Now(), &err)

	switch {
	case filter.Limit < 0 || filter.Offset < 0:
		return nil, domain.InvalidArgument(errcodes.InvalidPaging, "limit and offset must not be negative")
	case filter.Limit == 0:
		filter.Limit = entity.DefaultListLimit
	case filter.Limit > entity.MaxListLimit:
		filter.Limit = entity.MaxListLimit
	}

	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, domain.InvalidArgument(errcodes.InvalidDateRange, "from must not be after to")
	}

	deals, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("dealRepo.List: %w", err)
	}

	return deals, nil
}

// UpdateDeal применяет частичное обновление к черновику и пересчитывает суммы.
func (s *DealService) UpdateDeal(
	ctx context.Context,
	actor value.Actor,
	id value.DealID,
	patch Patch,
) (_ *entity.Deal, err error) {
	defer s.observe("update_deal", time.Now(), &err)

	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	deal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	if !deal.Status.AllowsEdit() {
		return nil, domain.InvalidOperation(errcodes.DealNotEditable,
			fmt.Sprintf("deal in status %s cannot be edited", deal.Status))
	}

	before := deal.Clone()

	patch.Apply(deal)
	pricing.Reprice(deal)

	// Повтор того же PUT ничего не пишет.
	if unchanged(before, deal) {
		return before, nil
	}

	deal.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, deal); err != nil {
		return nil, fmt.Errorf("dealRepo.Update: %w", err)
	}

	logger(ctx).Info("deal updated",
		slog.String(logx.FieldDealID, deal.ID.String()),
		slog.String(logx.FieldUserID, actor.String()),
	)

	return deal, nil
}

// UpdateStatus проводит сделку по таблице статусов и публикует событие.
// Ошибка публикации только логируется.
func (s *DealService) UpdateStatus(
	ctx context.Context,
	actor value.Actor,
	id value.DealID,
	to entity.DealStatus,
	notes string,
) (_ *entity.Deal, err error) {
	defer s.observe("update_status", time.Now(), &err)

	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if _, err := entity.ParseDealStatus(to.String()); err != nil {
		return nil, domain.InvalidArgument(errcodes.InvalidStatus, err.Error())
	}

	deal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	from := deal.Status

	entry, err := s.machine.Transition(deal, to, actor, notes)
	if err != nil {
		return nil, err
	}

	deal.UpdatedAt = entry.Date

	if err := s.repo.AppendStatusHistory(ctx, deal, entry); err != nil {
		return nil, fmt.Errorf("dealRepo.AppendStatusHistory: %w", err)
	}

	logger(ctx).Info("deal status changed",
		slog.String(logx.FieldDealID, deal.ID.String()),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String(logx.FieldUserID, actor.String()),
	)

	s.publish(ctx, entity.StatusChange{
		DealID:     deal.ID.String(),
		From:       from,
		To:         to,
		UserID:     actor.String(),
		Notes:      notes,
		TotalPrice: deal.TotalPrice.StringFixed(2),
		ChangedAt:  entry.Date,
	})

	return deal, nil
}

func (s *DealService) publish(ctx context.Context, event entity.StatusChange) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishStatusChanged(ctx, event); err != nil {
		logger(ctx).Error("failed to publish status change",
			slog.String(logx.FieldDealID, event.DealID),
			logx.Error(err),
		)
	}
}

// Calculate считает суммы без сохранения. Результат совпадает с тем, что
// CreateDeal сохранил бы для тех же параметров.
func (s *DealService) Calculate(ctx context.Context, in CalculateInput) (_ pricing.Result, err error) {
	defer s.observe("calculate", time.Now(), &err)

	if err := in.Validate(); err != nil {
		return pricing.Result{}, err
	}

	return pricing.Calculate(calculationInput(in, newFees(in.Fees), nil)), nil
}

// CalculateForDeal считает суммы с учётом допов существующей сделки: так
// выглядел бы результат UpdateDeal с теми же параметрами. Не переданные
// тип сделки и сборы берутся из сохранённой сделки.
func (s *DealService) CalculateForDeal(
	ctx context.Context,
	id value.DealID,
	in CalculateInput,
) (_ pricing.Result, err error) {
	defer s.observe("calculate", time.Now(), &err)

	if err := in.Validate(); err != nil {
		return pricing.Result{}, err
	}

	deal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return pricing.Result{}, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	if in.DealType == nil {
		dealType := deal.DealType
		in.DealType = &dealType
	}

	fees := deal.Fees
	if in.Fees != nil {
		fees = newFees(in.Fees)
	}

	return pricing.Calculate(calculationInput(in, fees, deal.AddOns)), nil
}

func calculationInput(in CalculateInput, fees []entity.Fee, addOns []entity.DealAddOn) pricing.Input {
	financed := in.DealType == nil || *in.DealType == entity.DealTypeFinance

	extra := pricing.SumAddOns(addOns)
	for _, price := range in.AddOnPrices {
		extra = extra.Add(price)
	}

	return pricing.Input{
		PurchasePrice:       in.PurchasePrice,
		TaxRate:             in.TaxRate,
		TradeInValue:        in.TradeInValue,
		DownPayment:         in.DownPayment,
		FeesAndAddOnsTotal:  pricing.SumFees(fees).Add(extra),
		Financed:            financed,
		FinancingTermMonths: in.FinancingTermMonths,
		FinancingRate:       in.FinancingRate,
	}
}

func unchanged(a, b *entity.Deal) bool {
	sameFees := slices.EqualFunc(a.Fees, b.Fees, func(x, y entity.Fee) bool {
		return x.Type == y.Type && x.Description == y.Description && x.Amount.Equal(y.Amount)
	})

	return sameFees &&
		a.SalesRepID == b.SalesRepID &&
		a.DealType == b.DealType &&
		a.PurchasePrice.Equal(b.PurchasePrice) &&
		a.TradeInValue.Equal(b.TradeInValue) &&
		a.DownPayment.Equal(b.DownPayment) &&
		a.TaxRate.Equal(b.TaxRate) &&
		equalPtr(a.TradeInVehicleID, b.TradeInVehicleID, func(x, y uuid.UUID) bool { return x == y }) &&
		equalPtr(a.FinancingTermMonths, b.FinancingTermMonths, func(x, y int) bool { return x == y }) &&
		equalPtr(a.FinancingRate, b.FinancingRate, decimal.Decimal.Equal)
}

func equalPtr[T any](a, b *T, eq func(x, y T) bool) bool {
	if a == nil || b == nil {
		return a == b
	}

	return eq(*a, *b)
}

func requireActor(actor value.Actor) error {
	if actor.IsZero() {
		return domain.InvalidArgument(errcodes.MissingUserID, "acting user is required")
	}

	return nil
}
