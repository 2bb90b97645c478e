package domain

import (
	"errors"
	"fmt"

	"dms_sales/pkg/errcodes"
)

// Kind классифицирует ошибку для вызывающей стороны (HTTP-статус, ретраи).
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindNotFound
	KindInvalidOperation
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindNotFound:
		return "not found"
	case KindInvalidOperation:
		return "invalid operation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// AppError представляет доменную ошибку приложения.
type AppError struct {
	Kind    Kind
	Code    errcodes.ErrorCode
	Message string
	cause   error
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap возвращает обёрнутую ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewError создаёт новую доменную ошибку.
func NewError(kind Kind, code errcodes.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WrapError оборачивает существующую ошибку с доменным контекстом.
func WrapError(err error, kind Kind, code errcodes.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		cause:   err,
	}
}

func NotFound(code errcodes.ErrorCode, message string) *AppError {
	return NewError(KindNotFound, code, message)
}

func InvalidArgument(code errcodes.ErrorCode, message string) *AppError {
	return NewError(KindInvalidArgument, code, message)
}

func InvalidOperation(code errcodes.ErrorCode, message string) *AppError {
	return NewError(KindInvalidOperation, code, message)
}

func Conflict(code errcodes.ErrorCode, message string) *AppError {
	return NewError(KindConflict, code, message)
}

func Internal(err error, message string) *AppError {
	return WrapError(err, KindInternal, errcodes.InternalServerError, message)
}

// IsAppError проверяет, является ли ошибка доменной.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode извлекает код ошибки, если это AppError.
func GetCode(err error) (errcodes.ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// GetKind возвращает KindInternal для всего, что не является AppError.
func GetKind(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Description возвращает сообщение без цепочки причин, пригодное для клиента.
func Description(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

func IsNotFound(err error) bool         { return GetKind(err) == KindNotFound }
func IsInvalidArgument(err error) bool  { return GetKind(err) == KindInvalidArgument }
func IsInvalidOperation(err error) bool { return GetKind(err) == KindInvalidOperation }
func IsConflict(err error) bool         { return GetKind(err) == KindConflict }
func IsUnauthorized(err error) bool     { return GetKind(err) == KindUnauthorized }
