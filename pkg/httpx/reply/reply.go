package reply

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"dms_sales/internal/domain"
	"dms_sales/pkg/contextx"
	"dms_sales/pkg/errcodes"
	"dms_sales/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SupportID string `json:"supportId"`
}

func (e *errorResponse) WithDefaultCode(code errcodes.ErrorCode) {
	if e.Code == "" {
		e.Code = code.String()
	}
}

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

func OK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

func Created(w http.ResponseWriter) {
	w.WriteHeader(http.StatusCreated)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func JSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger(ctx).Error("json.Encode", logx.Error(err))
	}
}

func Error(ctx context.Context, w http.ResponseWriter, err error) {
	code, _ := domain.GetCode(err)

	response := errorResponse{
		Code:      code.String(),
		Message:   domain.Description(err),
		SupportID: supportID(ctx),
	}

	switch domain.GetKind(err) {
	case domain.KindInvalidArgument:
		logger(ctx).Warn("invalid argument", logx.Error(err))
		response.WithDefaultCode(errcodes.ValidationError)
		JSON(ctx, w, http.StatusBadRequest, response)
	case domain.KindNotFound:
		logger(ctx).Warn("not found", logx.Error(err))
		response.WithDefaultCode(errcodes.NotFound)
		JSON(ctx, w, http.StatusNotFound, response)
	case domain.KindUnauthorized:
		logger(ctx).Warn("unauthorized", logx.Error(err))
		response.WithDefaultCode(errcodes.Unauthorized)
		JSON(ctx, w, http.StatusUnauthorized, response)
	case domain.KindConflict:
		logger(ctx).Warn("conflict", logx.Error(err))
		response.WithDefaultCode(errcodes.Conflict)
		JSON(ctx, w, http.StatusConflict, response)
	case domain.KindInvalidOperation:
		logger(ctx).Warn("invalid operation", logx.Error(err))
		response.WithDefaultCode(errcodes.InvalidOperation)
		JSON(ctx, w, http.StatusUnprocessableEntity, response)
	default:
		logger(ctx).Error("error", logx.Error(err))
		response.Code = errcodes.InternalServerError.String()
		JSON(ctx, w, http.StatusInternalServerError, response)
	}
}

func supportID(ctx context.Context) string {
	traceID, err := contextx.TraceIDFromContext(ctx)
	if err != nil {
		return "unsupported"
	}

	return traceID.String()
}
