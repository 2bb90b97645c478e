package middlewarex

import (
	"log/slog"
	"net/http"
	"strings"

	"dms_sales/pkg/contextx"
	"dms_sales/pkg/logx"
)

const HeaderNameUserID = "X-User-Id"

// UserID puts the acting identity from the X-User-Id header into the context
// and the request logger. Requests without the header pass through unchanged.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderNameUserID))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextx.WithUserID(r.Context(), contextx.UserID(userID))
		ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldUserID, userID)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
