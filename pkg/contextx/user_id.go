package contextx

import (
	"context"
	"fmt"
	"strings"
)

// UserID is the acting identity of a request (salesperson, manager, system
// job). It is put into the context by the HTTP layer and read back once by the
// handlers, which pass it explicitly to the domain.
type UserID string

type contextKeyUserID struct{}

func (u UserID) String() string {
	return string(u)
}

func WithUserID(ctx context.Context, userID UserID) context.Context {
	return context.WithValue(ctx, contextKeyUserID{}, userID)
}

func UserIDFromContext(ctx context.Context) (UserID, error) {
	userID, ok := ctx.Value(contextKeyUserID{}).(UserID)
	if !ok || strings.TrimSpace(userID.String()) == "" {
		return "", fmt.Errorf("user id: %w", ErrNoValue)
	}

	return userID, nil
}
