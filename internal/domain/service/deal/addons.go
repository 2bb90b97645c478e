package deal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/service/pricing"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/errcodes"
	"dms_sales/pkg/logx"
)

func (s *DealService) ListAddOns(ctx context.Context, dealID value.DealID) (_ []entity.DealAddOn, err error) {
	defer s.observe("list_add_ons", time.Now(), &err)

	deal, err := s.repo.GetByID(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	return deal.AddOns, nil
}

func (s *DealService) GetAddOn(
	ctx context.Context,
	dealID value.DealID,
	addOnID value.AddOnID,
) (_ *entity.DealAddOn, err error) {
	defer s.observe("get_add_on", time.Now(), &err)

	deal, err := s.repo.GetByID(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	idx := deal.AddOnByID(addOnID)
	if idx < 0 {
		return nil, addOnNotFound(addOnID)
	}

	return &deal.AddOns[idx], nil
}

// AddAddOn добавляет доп к сделке в Draft или Pending; TotalPrice растёт ровно
// на цену допа, платёж финансируемой сделки пересчитывается.
func (s *DealService) AddAddOn(
	ctx context.Context,
	actor value.Actor,
	dealID value.DealID,
	in AddOnInput,
) (_ *entity.DealAddOn, err error) {
	defer s.observe("add_add_on", time.Now(), &err)

	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	deal, err := s.repo.GetByID(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	if err := ensureAddOnsEditable(deal); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	addOn := entity.DealAddOn{
		ID:          value.NewAddOnID(),
		DealID:      deal.ID,
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Cost:        in.Cost,
		Term:        in.Term,
		ProviderID:  in.ProviderID,
		CreatedAt:   now,
		CreatedBy:   actor.String(),
	}

	deal.AddOns = append(deal.AddOns, addOn)
	pricing.Reprice(deal)
	deal.UpdatedAt = now

	if err := s.repo.AddAddOn(ctx, deal, addOn); err != nil {
		return nil, fmt.Errorf("dealRepo.AddAddOn: %w", err)
	}

	logger(ctx).Info("add-on added",
		slog.String(logx.FieldDealID, deal.ID.String()),
		slog.String(logx.FieldAddOnID, addOn.ID.String()),
		slog.String("total-price", deal.TotalPrice.String()),
	)

	return &addOn, nil
}

// RemoveAddOn удаляет доп; TotalPrice уменьшается ровно на его цену.
func (s *DealService) RemoveAddOn(
	ctx context.Context,
	actor value.Actor,
	dealID value.DealID,
	addOnID value.AddOnID,
) (err error) {
	defer s.observe("remove_add_on", time.Now(), &err)

	if err := requireActor(actor); err != nil {
		return err
	}

	deal, err := s.repo.GetByID(ctx, dealID)
	if err != nil {
		return fmt.Errorf("dealRepo.GetByID: %w", err)
	}

	if err := ensureAddOnsEditable(deal); err != nil {
		return err
	}

	idx := deal.AddOnByID(addOnID)
	if idx < 0 {
		return addOnNotFound(addOnID)
	}

	deal.AddOns = slices.Delete(deal.AddOns, idx, idx+1)
	pricing.Reprice(deal)
	deal.UpdatedAt = s.now().UTC()

	if err := s.repo.RemoveAddOn(ctx, deal, addOnID); err != nil {
		return fmt.Errorf("dealRepo.RemoveAddOn: %w", err)
	}

	logger(ctx).Info("add-on removed",
		slog.String(logx.FieldDealID, deal.ID.String()),
		slog.String(logx.FieldAddOnID, addOnID.String()),
		slog.String(logx.FieldUserID, actor.String()),
	)

	return nil
}

func ensureAddOnsEditable(deal *entity.Deal) error {
	if deal.Status.AllowsAddOnChanges() {
		return nil
	}

	return domain.InvalidOperation(errcodes.AddOnsLocked,
		fmt.Sprintf("add-ons cannot be changed for a deal in status %s", deal.Status))
}

func addOnNotFound(id value.AddOnID) error {
	return domain.NotFound(errcodes.AddOnNotFound, fmt.Sprintf("add-on %s not found", id))
}
