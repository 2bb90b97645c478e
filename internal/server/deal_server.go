package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/service/deal"
	"dms_sales/internal/domain/service/pricing"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/contextx"
	"dms_sales/pkg/errcodes"
	"dms_sales/pkg/httpx/reply"
	"dms_sales/pkg/httpx/req"
	"dms_sales/pkg/rest"
)

const headerNameIdempotencyKey = "Idempotency-Key"

type dealService interface {
	CreateDeal(context.Context, value.Actor, deal.CreateInput, string) (*entity.Deal, bool, error)
	GetDeal(context.Context, value.DealID, bool) (*entity.Deal, error)
	ListDeals(context.Context, entity.DealFilter) ([]entity.Deal, error)
	UpdateDeal(context.Context, value.Actor, value.DealID, deal.Patch) (*entity.Deal, error)
	UpdateStatus(context.Context, value.Actor, value.DealID, entity.DealStatus, string) (*entity.Deal, error)
	ListAddOns(context.Context, value.DealID) ([]entity.DealAddOn, error)
	GetAddOn(context.Context, value.DealID, value.AddOnID) (*entity.DealAddOn, error)
	AddAddOn(context.Context, value.Actor, value.DealID, deal.AddOnInput) (*entity.DealAddOn, error)
	RemoveAddOn(context.Context, value.Actor, value.DealID, value.AddOnID) error
	Calculate(context.Context, deal.CalculateInput) (pricing.Result, error)
	CalculateForDeal(context.Context, value.DealID, deal.CalculateInput) (pricing.Result, error)
}

type DealServer struct {
	dealService dealService
}

func NewDealServer(dealService dealService) DealServer {
	return DealServer{
		dealService: dealService,
	}
}

func (s DealServer) getV1Deals(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	filter, err := newDealFilter(r)
	if err != nil {
		return fmt.Errorf("newDealFilter: %w", err)
	}

	deals, err := s.dealService.ListDeals(ctx, filter)
	if err != nil {
		return fmt.Errorf("dealService.ListDeals: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lo.Map(deals, func(d entity.Deal, _ int) rest.Deal {
		return newRESTDeal(&d)
	}))

	return nil
}

func (s DealServer) postV1Deals(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	var request rest.CreateDealRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	in, err := newCreateInput(request)
	if err != nil {
		return fmt.Errorf("newCreateInput: %w", err)
	}

	key := strings.TrimSpace(r.Header.Get(headerNameIdempotencyKey))

	d, created, err := s.dealService.CreateDeal(ctx, actor, in, key)
	if err != nil {
		return fmt.Errorf("dealService.CreateDeal: %w", err)
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}

	reply.JSON(ctx, w, status, newRESTDeal(d))

	return nil
}

func (s DealServer) getV1Deal(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	includeAll, err := boolQuery(r, "includeAllData")
	if err != nil {
		return err
	}

	d, err := s.dealService.GetDeal(ctx, id, includeAll)
	if err != nil {
		return fmt.Errorf("dealService.GetDeal: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDeal(d))

	return nil
}

func (s DealServer) putV1Deal(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	var request rest.UpdateDealRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	patch, err := newPatch(request)
	if err != nil {
		return fmt.Errorf("newPatch: %w", err)
	}

	d, err := s.dealService.UpdateDeal(ctx, actor, id, patch)
	if err != nil {
		return fmt.Errorf("dealService.UpdateDeal: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDeal(d))

	return nil
}

func (s DealServer) postV1DealStatus(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	var request rest.StatusRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	d, err := s.dealService.UpdateStatus(ctx, actor, id, entity.DealStatus(request.Status), request.Notes)
	if err != nil {
		return fmt.Errorf("dealService.UpdateStatus: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDeal(d))

	return nil
}

func (s DealServer) postV1Calculate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.CalculateRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.dealService.Calculate(ctx, newCalculateInput(request))
	if err != nil {
		return fmt.Errorf("dealService.Calculate: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTCalculation(result))

	return nil
}

func (s DealServer) postV1DealCalculate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	var request rest.CalculateRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.dealService.CalculateForDeal(ctx, id, newCalculateInput(request))
	if err != nil {
		return fmt.Errorf("dealService.CalculateForDeal: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTCalculation(result))

	return nil
}

func (s DealServer) getV1DealAddOns(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	addOns, err := s.dealService.ListAddOns(ctx, id)
	if err != nil {
		return fmt.Errorf("dealService.ListAddOns: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lo.Map(addOns, func(a entity.DealAddOn, _ int) rest.AddOn {
		return newRESTAddOn(&a)
	}))

	return nil
}

func (s DealServer) getV1DealAddOn(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	addOnID, err := addOnIDFromPath(r)
	if err != nil {
		return err
	}

	addOn, err := s.dealService.GetAddOn(ctx, id, addOnID)
	if err != nil {
		return fmt.Errorf("dealService.GetAddOn: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTAddOn(addOn))

	return nil
}

func (s DealServer) postV1DealAddOns(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	var request rest.AddOnRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	in, err := newAddOnInput(request)
	if err != nil {
		return fmt.Errorf("newAddOnInput: %w", err)
	}

	addOn, err := s.dealService.AddAddOn(ctx, actor, id, in)
	if err != nil {
		return fmt.Errorf("dealService.AddAddOn: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTAddOn(addOn))

	return nil
}

func (s DealServer) deleteV1DealAddOn(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	id, err := dealIDFromPath(r)
	if err != nil {
		return err
	}

	addOnID, err := addOnIDFromPath(r)
	if err != nil {
		return err
	}

	if err = s.dealService.RemoveAddOn(ctx, actor, id, addOnID); err != nil {
		return fmt.Errorf("dealService.RemoveAddOn: %w", err)
	}

	reply.NoContent(w)

	return nil
}

func actorFromRequest(r *http.Request) (value.Actor, error) {
	userID, err := contextx.UserIDFromContext(r.Context())
	if err != nil {
		return "", domain.WrapError(err, domain.KindUnauthorized, errcodes.MissingUserID,
			"X-User-Id header is required")
	}

	return value.Actor(userID.String()), nil
}

func dealIDFromPath(r *http.Request) (value.DealID, error) {
	id, err := value.ParseDealID(r.PathValue("id"))
	if err != nil {
		return value.DealID{}, domain.WrapError(
			fmt.Errorf("value.ParseDealID: %w", err),
			domain.KindInvalidArgument,
			errcodes.InvalidDealID,
			"deal id must be a UUID",
		)
	}

	return id, nil
}

func addOnIDFromPath(r *http.Request) (value.AddOnID, error) {
	id, err := value.ParseAddOnID(r.PathValue("addOnId"))
	if err != nil {
		return value.AddOnID{}, domain.WrapError(
			fmt.Errorf("value.ParseAddOnID: %w", err),
			domain.KindInvalidArgument,
			errcodes.InvalidAddOnID,
			"add-on id must be a UUID",
		)
	}

	return id, nil
}

func newDealFilter(r *http.Request) (entity.DealFilter, error) {
	q := r.URL.Query()

	var (
		filter entity.DealFilter
		err    error
	)

	if s := q.Get("status"); s != "" {
		status, parseErr := entity.ParseDealStatus(s)
		if parseErr != nil {
			return filter, domain.WrapError(parseErr, domain.KindInvalidArgument, errcodes.InvalidStatus, parseErr.Error())
		}

		filter.Status = &status
	}

	if s := q.Get("salesRepId"); s != "" {
		filter.SalesRepID = lo.ToPtr(s)
	}

	if filter.CustomerID, err = uuidQuery(r, "customerId"); err != nil {
		return filter, err
	}

	if filter.VehicleID, err = uuidQuery(r, "vehicleId"); err != nil {
		return filter, err
	}

	if filter.CreatedFrom, err = timeQuery(r, "from", false); err != nil {
		return filter, err
	}

	if filter.CreatedTo, err = timeQuery(r, "to", true); err != nil {
		return filter, err
	}

	if filter.Limit, err = intQuery(r, "limit"); err != nil {
		return filter, err
	}

	if filter.Offset, err = intQuery(r, "offset"); err != nil {
		return filter, err
	}

	return filter, nil
}

func uuidQuery(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil //nolint:nilnil
	}

	id, err := parseUUID(name, s)
	if err != nil {
		return nil, err
	}

	return &id, nil
}

// timeQuery принимает RFC 3339 или дату YYYY-MM-DD. Дата означает начало
// суток UTC, а при endOfDay последнюю микросекунду этих суток: to=2026-10-19
// включает весь день.
func timeQuery(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil //nolint:nilnil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return lo.ToPtr(t.UTC()), nil
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
		}

		return lo.ToPtr(t), nil
	}

	return nil, domain.InvalidArgument(errcodes.InvalidDateRange,
		name+" must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}

func intQuery(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.WrapError(err, domain.KindInvalidArgument, errcodes.InvalidPaging, name+" must be an integer")
	}

	return n, nil
}

func boolQuery(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, domain.WrapError(err, domain.KindInvalidArgument, errcodes.ValidationError, name+" must be a boolean")
	}

	return b, nil
}
