package entity

import "fmt"

type DealStatus string

const (
	DealStatusDraft             DealStatus = "Draft"
	DealStatusPending           DealStatus = "Pending"
	DealStatusApproved          DealStatus = "Approved"
	DealStatusFinancingRequired DealStatus = "FinancingRequired"
	DealStatusFinancingApproved DealStatus = "FinancingApproved"
	DealStatusFinancingRejected DealStatus = "FinancingRejected"
	DealStatusDepositPaid       DealStatus = "DepositPaid"
	DealStatusCompleted         DealStatus = "Completed"
	DealStatusCancelled         DealStatus = "Cancelled"
)

// DealStatuses перечисляет все статусы в порядке воронки продаж.
var DealStatuses = []DealStatus{ //nolint:gochecknoglobals
	DealStatusDraft,
	DealStatusPending,
	DealStatusApproved,
	DealStatusFinancingRequired,
	DealStatusFinancingApproved,
	DealStatusFinancingRejected,
	DealStatusDepositPaid,
	DealStatusCompleted,
	DealStatusCancelled,
}

func ParseDealStatus(s string) (DealStatus, error) {
	for _, status := range DealStatuses {
		if string(status) == s {
			return status, nil
		}
	}

	return "", fmt.Errorf("unknown deal status %q", s)
}

func (s DealStatus) String() string {
	return string(s)
}

// AllowsEdit — правка полей сделки разрешена только в черновике.
func (s DealStatus) AllowsEdit() bool {
	return s == DealStatusDraft
}

// AllowsAddOnChanges — допы можно добавлять и удалять в Draft и Pending.
func (s DealStatus) AllowsAddOnChanges() bool {
	return s == DealStatusDraft || s == DealStatusPending
}

type DealType string

const (
	DealTypeCash    DealType = "Cash"
	DealTypeFinance DealType = "Finance"
	DealTypeLease   DealType = "Lease"
)

func ParseDealType(s string) (DealType, error) {
	switch t := DealType(s); t {
	case DealTypeCash, DealTypeFinance, DealTypeLease:
		return t, nil
	default:
		return "", fmt.Errorf("unknown deal type %q", s)
	}
}

func (t DealType) String() string {
	return string(t)
}
