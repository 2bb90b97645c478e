package deal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/service/deal"
	"dms_sales/internal/domain/service/pricing"
	"dms_sales/internal/domain/service/status"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/errcodes"
)

const actor value.Actor = "rep-42"

func fixedNow() time.Time {
	return time.Date(2026, 5, 2, 15, 4, 5, 0, time.UTC)
}

func newService(repo *memRepo) *deal.DealService {
	return deal.NewDealService(repo, status.NewMachine().WithClock(fixedNow)).
		WithClock(fixedNow)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// referenceInput: 25000 + 8% налога + 600 сборов − 2000 взноса = 25600 в кредит на 60 мес. под 5%.
func referenceInput() deal.CreateInput {
	return deal.CreateInput{
		CustomerID:          uuid.New(),
		VehicleID:           uuid.New(),
		DealType:            entity.DealTypeFinance,
		PurchasePrice:       dec("25000"),
		DownPayment:         dec("2000"),
		TaxRate:             dec("0.08"),
		FinancingTermMonths: lo.ToPtr(60),
		FinancingRate:       lo.ToPtr(dec("5")),
		Fees: []deal.FeeInput{
			{Type: "Documentation", Description: "Doc fee", Amount: dec("400")},
			{Type: "Registration", Description: "DMV", Amount: dec("200")},
		},
	}
}

func createDeal(t *testing.T, svc *deal.DealService, in deal.CreateInput) *entity.Deal {
	t.Helper()

	created, isNew, err := svc.CreateDeal(context.Background(), actor, in, "")
	require.NoError(t, err)
	require.True(t, isNew)

	return created
}

func moveTo(t *testing.T, svc *deal.DealService, id value.DealID, path ...entity.DealStatus) {
	t.Helper()

	for _, to := range path {
		_, err := svc.UpdateStatus(context.Background(), actor, id, to, "")
		require.NoError(t, err)
	}
}

func TestCreateDeal(t *testing.T) {
	rq := require.New(t)
	repo := newMemRepo()
	svc := newService(repo)

	created := createDeal(t, svc, referenceInput())

	rq.False(created.ID.IsZero())
	rq.Equal(entity.DealStatusDraft, created.Status)
	rq.Equal(actor.String(), created.SalesRepID)
	rq.Equal(int64(1), created.Version)
	rq.True(dec("2000").Equal(created.TaxAmount))
	rq.True(dec("27600").Equal(created.TotalPrice))
	rq.NotNil(created.MonthlyPayment)
	rq.Equal("483.10", created.MonthlyPayment.StringFixed(2))
	rq.Len(created.Fees, 2)

	rq.Len(created.StatusHistory, 1)
	rq.Equal(entity.DealStatusDraft, created.StatusHistory[0].Status)
	rq.Equal(actor.String(), created.StatusHistory[0].UserID)
	rq.True(fixedNow().Equal(created.StatusHistory[0].Date))

	stored := repo.stored(created.ID)
	rq.True(created.TotalPrice.Equal(stored.TotalPrice))
}

func TestCreateDealSalesRep(t *testing.T) {
	rq := require.New(t)
	svc := newService(newMemRepo())

	in := referenceInput()
	in.SalesRepID = lo.ToPtr("rep-7")

	created := createDeal(t, svc, in)
	rq.Equal("rep-7", created.SalesRepID)
}

func TestCreateDealCashHasNoPayment(t *testing.T) {
	rq := require.New(t)
	svc := newService(newMemRepo())

	in := referenceInput()
	in.DealType = entity.DealTypeCash

	created := createDeal(t, svc, in)
	rq.Nil(created.MonthlyPayment)
	rq.True(dec("27600").Equal(created.TotalPrice))
}

func TestCreateDealValidation(t *testing.T) {
	testCases := []struct {
		name   string
		actor  value.Actor
		modify func(in *deal.CreateInput)
		code   errcodes.ErrorCode
	}{
		{
			name:   "Negative price",
			actor:  actor,
			modify: func(in *deal.CreateInput) { in.PurchasePrice = dec("-1") },
			code:   errcodes.InvalidDeal,
		},
		{
			name:   "Negative fee",
			actor:  actor,
			modify: func(in *deal.CreateInput) { in.Fees[0].Amount = dec("-10") },
			code:   errcodes.InvalidDeal,
		},
		{
			name:   "Zero term",
			actor:  actor,
			modify: func(in *deal.CreateInput) { in.FinancingTermMonths = lo.ToPtr(0) },
			code:   errcodes.InvalidDeal,
		},
		{
			name:   "Unknown deal type",
			actor:  actor,
			modify: func(in *deal.CreateInput) { in.DealType = "Barter" },
			code:   errcodes.InvalidDealType,
		},
		{
			name:   "Missing vehicle",
			actor:  actor,
			modify: func(in *deal.CreateInput) { in.VehicleID = uuid.Nil },
			code:   errcodes.InvalidDeal,
		},
		{
			name:   "Missing actor",
			actor:  "  ",
			modify: func(*deal.CreateInput) {},
			code:   errcodes.MissingUserID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			repo := newMemRepo()
			svc := newService(repo)

			in := referenceInput()
			tc.modify(&in)

			_, _, err := svc.CreateDeal(context.Background(), tc.actor, in, "")
			rq.True(domain.IsInvalidArgument(err))

			code, _ := domain.GetCode(err)
			rq.Equal(tc.code, code)
			rq.Zero(repo.count())
		})
	}
}

func TestCreateDealIdempotency(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo).WithIdempotency(newMemIdempotency())

	first, created, err := svc.CreateDeal(ctx, actor, referenceInput(), "key-1")
	rq.NoError(err)
	rq.True(created)

	second, created, err := svc.CreateDeal(ctx, actor, referenceInput(), "key-1")
	rq.NoError(err)
	rq.False(created)

	rq.Equal(first.ID, second.ID)
	rq.Equal(1, repo.count())

	third, created, err := svc.CreateDeal(ctx, actor, referenceInput(), "key-2")
	rq.NoError(err)
	rq.True(created)
	rq.NotEqual(first.ID, third.ID)
	rq.Equal(2, repo.count())
}

func TestCreateDealReleasesKeyOnFailure(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo).WithIdempotency(newMemIdempotency())

	repo.failCreate = errStorage

	_, _, err := svc.CreateDeal(ctx, actor, referenceInput(), "key-1")
	rq.ErrorIs(err, errStorage)

	repo.failCreate = nil

	created, _, err := svc.CreateDeal(ctx, actor, referenceInput(), "key-1")
	rq.NoError(err)
	rq.Equal(created.ID, repo.stored(created.ID).ID)
}

func TestCreateDealKeyInFlight(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store := newMemIdempotency()
	svc := newService(newMemRepo()).WithIdempotency(store)

	_, _, err := store.Reserve(ctx, "key-1", value.NewDealID())
	rq.NoError(err)

	_, _, err = svc.CreateDeal(ctx, actor, referenceInput(), "key-1")
	rq.True(domain.IsConflict(err))

	code, _ := domain.GetCode(err)
	rq.Equal(errcodes.IdempotencyKeyInFlight, code)
}

func TestGetDeal(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	svc := newService(newMemRepo())

	created := createDeal(t, svc, referenceInput())

	_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Warranty", Name: "Gold", Price: dec("1500")})
	rq.NoError(err)

	short, err := svc.GetDeal(ctx, created.ID, false)
	rq.NoError(err)
	rq.Empty(short.AddOns)
	rq.Len(short.Fees, 2)
	rq.Len(short.StatusHistory, 1)

	full, err := svc.GetDeal(ctx, created.ID, true)
	rq.NoError(err)
	rq.Len(full.AddOns, 1)
	rq.True(full.TotalPrice.Equal(short.TotalPrice))

	_, err = svc.GetDeal(ctx, value.NewDealID(), true)
	rq.True(domain.IsNotFound(err))
}

func TestListDeals(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	svc := newService(newMemRepo())

	first := createDeal(t, svc, referenceInput())
	createDeal(t, svc, referenceInput())
	moveTo(t, svc, first.ID, entity.DealStatusPending)

	deals, err := svc.ListDeals(ctx, entity.DealFilter{Status: lo.ToPtr(entity.DealStatusPending)})
	rq.NoError(err)
	rq.Len(deals, 1)
	rq.Equal(first.ID, deals[0].ID)

	_, err = svc.ListDeals(ctx, entity.DealFilter{Limit: -1})
	rq.True(domain.IsInvalidArgument(err))

	_, err = svc.ListDeals(ctx, entity.DealFilter{
		CreatedFrom: lo.ToPtr(fixedNow()),
		CreatedTo:   lo.ToPtr(fixedNow().Add(-time.Hour)),
	})
	rq.True(domain.IsInvalidArgument(err))
}

func TestUpdateDeal(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	created := createDeal(t, svc, referenceInput())

	_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "GAP", Price: dec("700")})
	rq.NoError(err)

	updated, err := svc.UpdateDeal(ctx, actor, created.ID, deal.Patch{
		PurchasePrice: lo.ToPtr(dec("30000")),
		Fees:          &[]deal.FeeInput{{Type: "Documentation", Amount: dec("100")}},
	})
	rq.NoError(err)

	// 30000 + 2400 налога + 100 сбор + 700 доп.
	rq.True(dec("2400").Equal(updated.TaxAmount))
	rq.True(dec("33200").Equal(updated.TotalPrice))
	rq.Len(updated.Fees, 1)
	rq.Len(updated.AddOns, 1)
	rq.True(dec("2000").Equal(updated.DownPayment))

	expected := pricing.MonthlyPayment(dec("31200"), dec("5"), 60)
	rq.True(expected.Equal(*updated.MonthlyPayment))

	cleared, err := svc.UpdateDeal(ctx, actor, created.ID, deal.Patch{Fees: &[]deal.FeeInput{}})
	rq.NoError(err)
	rq.Empty(cleared.Fees)
	rq.True(dec("33100").Equal(cleared.TotalPrice))

	untouched, err := svc.UpdateDeal(ctx, actor, created.ID, deal.Patch{})
	rq.NoError(err)
	rq.Empty(untouched.Fees)
}

func TestUpdateDealSkipsNoopWrite(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	in := referenceInput()
	created := createDeal(t, svc, in)

	same, err := svc.UpdateDeal(ctx, actor, created.ID, deal.Patch{
		PurchasePrice: lo.ToPtr(dec("25000.00")),
		Fees:          &in.Fees,
	})
	rq.NoError(err)
	rq.Equal(created.Version, same.Version)
	rq.Equal(1, repo.writes)

	changed, err := svc.UpdateDeal(ctx, actor, created.ID, deal.Patch{DownPayment: lo.ToPtr(dec("2500"))})
	rq.NoError(err)
	rq.Equal(created.Version+1, changed.Version)
	rq.Equal(2, repo.writes)
}

func TestUpdateDealRejectsNonDraft(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	created := createDeal(t, svc, referenceInput())
	moveTo(t, svc, created.ID, entity.DealStatusPending)

	before := repo.stored(created.ID)

	_, err := svc.UpdateDeal(ctx, actor, created.ID, deal.Patch{PurchasePrice: lo.ToPtr(dec("1"))})
	rq.True(domain.IsInvalidOperation(err))

	code, _ := domain.GetCode(err)
	rq.Equal(errcodes.DealNotEditable, code)
	rq.Equal(before, repo.stored(created.ID))

	_, err = svc.UpdateDeal(ctx, actor, value.NewDealID(), deal.Patch{})
	rq.True(domain.IsNotFound(err))
}

func TestAddAndRemoveAddOn(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	created := createDeal(t, svc, referenceInput())
	price := dec("1234.56")

	addOn, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{
		Type:  "ServiceContract",
		Name:  "Platinum",
		Price: price,
		Cost:  dec("800"),
		Term:  "60 months",
	})
	rq.NoError(err)
	rq.Equal(created.ID, addOn.DealID)
	rq.Equal(actor.String(), addOn.CreatedBy)

	afterAdd := repo.stored(created.ID)
	rq.True(created.TotalPrice.Add(price).Equal(afterAdd.TotalPrice))
	rq.Equal(created.Version+1, afterAdd.Version)

	expected := pricing.MonthlyPayment(afterAdd.TotalPrice.Sub(afterAdd.DownPayment), dec("5"), 60)
	rq.True(expected.Equal(*afterAdd.MonthlyPayment))

	got, err := svc.GetAddOn(ctx, created.ID, addOn.ID)
	rq.NoError(err)
	rq.Equal("Platinum", got.Name)

	listed, err := svc.ListAddOns(ctx, created.ID)
	rq.NoError(err)
	rq.Len(listed, 1)

	rq.NoError(svc.RemoveAddOn(ctx, actor, created.ID, addOn.ID))

	afterRemove := repo.stored(created.ID)
	rq.True(afterAdd.TotalPrice.Sub(price).Equal(afterRemove.TotalPrice))
	rq.True(created.TotalPrice.Equal(afterRemove.TotalPrice))
	rq.Empty(afterRemove.AddOns)

	err = svc.RemoveAddOn(ctx, actor, created.ID, addOn.ID)
	rq.True(domain.IsNotFound(err))

	_, err = svc.GetAddOn(ctx, created.ID, addOn.ID)
	rq.True(domain.IsNotFound(err))
}

func TestAddOnsAllowedInPending(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	svc := newService(newMemRepo())

	created := createDeal(t, svc, referenceInput())
	moveTo(t, svc, created.ID, entity.DealStatusPending)

	_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Tire", Name: "Tire & Wheel", Price: dec("600")})
	rq.NoError(err)
}

func TestAddOnsLocked(t *testing.T) {
	locked := [][]entity.DealStatus{
		{entity.DealStatusPending, entity.DealStatusApproved},
		{entity.DealStatusPending, entity.DealStatusApproved, entity.DealStatusCompleted},
		{entity.DealStatusCancelled},
	}

	for _, path := range locked {
		t.Run(string(path[len(path)-1]), func(t *testing.T) {
			rq := require.New(t)
			ctx := context.Background()
			repo := newMemRepo()
			svc := newService(repo)

			created := createDeal(t, svc, referenceInput())
			moveTo(t, svc, created.ID, entity.DealStatusPending)

			addOn, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "GAP", Price: dec("500")})
			rq.NoError(err)

			if path[0] == entity.DealStatusCancelled {
				moveTo(t, svc, created.ID, entity.DealStatusCancelled)
			} else {
				moveTo(t, svc, created.ID, path[1:]...)
			}

			before := repo.stored(created.ID)

			_, err = svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "GAP", Price: dec("1")})
			rq.True(domain.IsInvalidOperation(err))

			err = svc.RemoveAddOn(ctx, actor, created.ID, addOn.ID)
			rq.True(domain.IsInvalidOperation(err))

			code, _ := domain.GetCode(err)
			rq.Equal(errcodes.AddOnsLocked, code)
			rq.Equal(before, repo.stored(created.ID))
		})
	}
}

func TestAddAddOnValidation(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	created := createDeal(t, svc, referenceInput())

	_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "GAP", Price: dec("-5")})
	rq.True(domain.IsInvalidArgument(err))

	_, err = svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Price: dec("5")})
	rq.True(domain.IsInvalidArgument(err))

	_, err = svc.AddAddOn(ctx, actor, value.NewDealID(), deal.AddOnInput{Type: "Gap", Name: "GAP", Price: dec("5")})
	rq.True(domain.IsNotFound(err))

	rq.Equal(created.Version, repo.stored(created.ID).Version)
}

func TestUpdateStatus(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	publisher := &recordingPublisher{}
	svc := newService(repo).WithPublisher(publisher)

	created := createDeal(t, svc, referenceInput())

	updated, err := svc.UpdateStatus(ctx, "manager-1", created.ID, entity.DealStatusPending, "sent to desk")
	rq.NoError(err)
	rq.Equal(entity.DealStatusPending, updated.Status)
	rq.Len(updated.StatusHistory, len(created.StatusHistory)+1)

	last := updated.StatusHistory[len(updated.StatusHistory)-1]
	rq.Equal(entity.DealStatusPending, last.Status)
	rq.Equal("manager-1", last.UserID)
	rq.Equal("sent to desk", last.Notes)
	rq.Len(repo.stored(created.ID).StatusHistory, 2)

	rq.Len(publisher.events, 1)
	rq.Equal(entity.StatusChange{
		DealID:     created.ID.String(),
		From:       entity.DealStatusDraft,
		To:         entity.DealStatusPending,
		UserID:     "manager-1",
		Notes:      "sent to desk",
		TotalPrice: "27600.00",
		ChangedAt:  fixedNow(),
	}, publisher.events[0])
}

func TestUpdateStatusRejected(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	publisher := &recordingPublisher{}
	svc := newService(repo).WithPublisher(publisher)

	created := createDeal(t, svc, referenceInput())
	moveTo(t, svc, created.ID, entity.DealStatusCancelled)

	before := repo.stored(created.ID)

	_, err := svc.UpdateStatus(ctx, actor, created.ID, entity.DealStatusDraft, "")
	rq.True(domain.IsInvalidOperation(err))
	rq.Equal(before, repo.stored(created.ID))
	rq.Len(publisher.events, 1)

	_, err = svc.UpdateStatus(ctx, actor, value.NewDealID(), entity.DealStatusPending, "")
	rq.True(domain.IsNotFound(err))

	_, err = svc.UpdateStatus(ctx, actor, created.ID, "Sold", "")
	rq.True(domain.IsInvalidArgument(err))
}

func TestUpdateStatusIgnoresPublishFailure(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo).WithPublisher(&recordingPublisher{err: errStorage})

	created := createDeal(t, svc, referenceInput())

	updated, err := svc.UpdateStatus(ctx, actor, created.ID, entity.DealStatusPending, "")
	rq.NoError(err)
	rq.Equal(entity.DealStatusPending, repo.stored(updated.ID).Status)
}

func TestCalculateMatchesPersisted(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		dealType entity.DealType
	}{
		{name: "Finance", dealType: entity.DealTypeFinance},
		{name: "Cash", dealType: entity.DealTypeCash},
		{name: "Lease", dealType: entity.DealTypeLease},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			svc := newService(newMemRepo())

			in := referenceInput()
			in.DealType = tc.dealType

			created := createDeal(t, svc, in)

			preview, err := svc.Calculate(ctx, deal.CalculateInput{
				DealType:            lo.ToPtr(tc.dealType),
				PurchasePrice:       in.PurchasePrice,
				DownPayment:         in.DownPayment,
				TaxRate:             in.TaxRate,
				FinancingTermMonths: in.FinancingTermMonths,
				FinancingRate:       in.FinancingRate,
				Fees:                in.Fees,
			})
			rq.NoError(err)

			rq.True(created.TaxAmount.Equal(preview.TaxAmount))
			rq.True(created.TotalPrice.Equal(preview.TotalPrice))
			rq.Equal(created.MonthlyPayment == nil, preview.MonthlyPayment == nil)

			if created.MonthlyPayment != nil {
				rq.True(created.MonthlyPayment.Equal(*preview.MonthlyPayment))
			}
		})
	}
}

func TestCalculateWithoutDealType(t *testing.T) {
	rq := require.New(t)
	svc := newService(newMemRepo())

	result, err := svc.Calculate(context.Background(), deal.CalculateInput{
		PurchasePrice:       dec("12000"),
		TaxRate:             dec("0"),
		FinancingTermMonths: lo.ToPtr(12),
		FinancingRate:       lo.ToPtr(dec("0")),
	})
	rq.NoError(err)
	rq.True(dec("1000").Equal(*result.MonthlyPayment))

	_, err = svc.Calculate(context.Background(), deal.CalculateInput{PurchasePrice: dec("-1")})
	rq.True(domain.IsInvalidArgument(err))
}

func TestCalculateForDeal(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	svc := newService(newMemRepo())

	in := referenceInput()
	created := createDeal(t, svc, in)

	_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "GAP", Price: dec("900")})
	rq.NoError(err)

	current, err := svc.GetDeal(ctx, created.ID, true)
	rq.NoError(err)

	preview, err := svc.CalculateForDeal(ctx, created.ID, deal.CalculateInput{
		DealType:            lo.ToPtr(entity.DealTypeFinance),
		PurchasePrice:       in.PurchasePrice,
		DownPayment:         in.DownPayment,
		TaxRate:             in.TaxRate,
		FinancingTermMonths: in.FinancingTermMonths,
		FinancingRate:       in.FinancingRate,
		Fees:                in.Fees,
	})
	rq.NoError(err)
	rq.True(current.TotalPrice.Equal(preview.TotalPrice))
	rq.True(current.MonthlyPayment.Equal(*preview.MonthlyPayment))

	_, err = svc.CalculateForDeal(ctx, value.NewDealID(), deal.CalculateInput{})
	rq.True(domain.IsNotFound(err))
}

func TestCalculateForDealUsesStoredTypeAndFees(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		dealType entity.DealType
	}{
		{name: "Cash", dealType: entity.DealTypeCash},
		{name: "Lease", dealType: entity.DealTypeLease},
		{name: "Finance", dealType: entity.DealTypeFinance},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			svc := newService(newMemRepo())

			in := referenceInput()
			in.DealType = tc.dealType

			created := createDeal(t, svc, in)

			preview, err := svc.CalculateForDeal(ctx, created.ID, deal.CalculateInput{
				PurchasePrice:       in.PurchasePrice,
				DownPayment:         in.DownPayment,
				TaxRate:             in.TaxRate,
				FinancingTermMonths: in.FinancingTermMonths,
				FinancingRate:       in.FinancingRate,
			})
			rq.NoError(err)

			rq.True(dec("600").Equal(preview.FeesAndAddOnsTotal))
			rq.True(created.TotalPrice.Equal(preview.TotalPrice))
			rq.Equal(created.MonthlyPayment == nil, preview.MonthlyPayment == nil)

			if created.MonthlyPayment != nil {
				rq.True(created.MonthlyPayment.Equal(*preview.MonthlyPayment))
			}
		})
	}
}

func TestCalculateForDealOverridesStoredValues(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	svc := newService(newMemRepo())

	in := referenceInput()
	in.DealType = entity.DealTypeCash

	created := createDeal(t, svc, in)

	preview, err := svc.CalculateForDeal(ctx, created.ID, deal.CalculateInput{
		DealType:            lo.ToPtr(entity.DealTypeFinance),
		PurchasePrice:       in.PurchasePrice,
		DownPayment:         in.DownPayment,
		TaxRate:             in.TaxRate,
		FinancingTermMonths: in.FinancingTermMonths,
		FinancingRate:       in.FinancingRate,
		Fees:                []deal.FeeInput{},
	})
	rq.NoError(err)
	rq.True(preview.FeesAndAddOnsTotal.IsZero())
	rq.True(dec("25000").Equal(preview.AmountFinanced))
	rq.NotNil(preview.MonthlyPayment)
}

func TestConcurrentModificationIsRejected(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	created := createDeal(t, svc, referenceInput())

	// Второй запрос успевает записать между чтением и записью первого.
	repo.beforeWrite = func() {
		_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "first", Price: dec("100")})
		rq.NoError(err)
	}

	_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "second", Price: dec("200")})
	rq.True(domain.IsConflict(err))

	stored := repo.stored(created.ID)
	rq.Len(stored.AddOns, 1)
	rq.Equal("first", stored.AddOns[0].Name)
	rq.True(created.TotalPrice.Add(dec("100")).Equal(stored.TotalPrice))
}

func TestConcurrentAddOns(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newMemRepo()
	svc := newService(repo)

	created := createDeal(t, svc, referenceInput())
	price := dec("250")

	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.AddAddOn(ctx, actor, created.ID, deal.AddOnInput{Type: "Gap", Name: "GAP", Price: price})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case domain.IsConflict(err):
				conflicts++
			}
		}()
	}

	wg.Wait()

	rq.Equal(workers, succeeded+conflicts)
	rq.Positive(succeeded)

	stored := repo.stored(created.ID)
	rq.Len(stored.AddOns, succeeded)
	rq.True(created.TotalPrice.Add(price.Mul(decimal.NewFromInt(int64(succeeded)))).Equal(stored.TotalPrice))
	rq.Equal(created.Version+int64(succeeded), stored.Version)
}

type countingObserver struct {
	mu     sync.Mutex
	calls  map[string]int
	failed map[string]int
}

func (o *countingObserver) ObserveOperation(operation string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls[operation]++
	if err != nil {
		o.failed[operation]++
	}
}

func TestObserver(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	observer := &countingObserver{calls: map[string]int{}, failed: map[string]int{}}
	svc := newService(newMemRepo()).WithObserver(observer)

	created := createDeal(t, svc, referenceInput())

	_, err := svc.GetDeal(ctx, value.NewDealID(), false)
	rq.Error(err)

	_, err = svc.GetDeal(ctx, created.ID, false)
	rq.NoError(err)

	rq.Equal(1, observer.calls["create_deal"])
	rq.Equal(2, observer.calls["get_deal"])
	rq.Equal(1, observer.failed["get_deal"])
}
