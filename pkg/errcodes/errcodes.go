package errcodes

type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

const (
	InternalServerError ErrorCode = "InternalServerError"
	ValidationError     ErrorCode = "ValidationError"
	NotFound            ErrorCode = "NotFound"
	InvalidOperation    ErrorCode = "InvalidOperation"
	Conflict            ErrorCode = "Conflict"
	Unauthorized        ErrorCode = "Unauthorized"

	InvalidDealID    ErrorCode = "InvalidDealID"
	InvalidAddOnID   ErrorCode = "InvalidAddOnID"
	InvalidDeal      ErrorCode = "InvalidDeal"
	InvalidAddOn     ErrorCode = "InvalidAddOn"
	InvalidDealType  ErrorCode = "InvalidDealType"
	InvalidStatus    ErrorCode = "InvalidStatus"
	InvalidPaging    ErrorCode = "InvalidPaging"
	InvalidDateRange ErrorCode = "InvalidDateRange"
	MissingUserID    ErrorCode = "MissingUserID"

	DealNotFound            ErrorCode = "DealNotFound"
	AddOnNotFound           ErrorCode = "AddOnNotFound"
	DealNotEditable         ErrorCode = "DealNotEditable"         // Правка разрешена только в Draft
	AddOnsLocked            ErrorCode = "AddOnsLocked"            // Допы меняются только в Draft/Pending
	InvalidStatusTransition ErrorCode = "InvalidStatusTransition" // Переход не из таблицы статусов
	DealVersionConflict     ErrorCode = "DealVersionConflict"     // Сделку успели изменить параллельно
	IdempotencyKeyInFlight  ErrorCode = "IdempotencyKeyInFlight"  // Ключ занят незавершённым запросом
)
