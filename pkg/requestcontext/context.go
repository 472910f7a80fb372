// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and the
// package stays free of net/http so services never import transport code.
package requestcontext

import (
	"context"

	id "domainwatch/pkg/domain"
)

type userIDKey struct{}

// ContextKeyUserID is exported for tests that need raw context.WithValue.
var ContextKeyUserID = userIDKey{}

// UserID retrieves the caller's user ID. Returns the nil UUID if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}
