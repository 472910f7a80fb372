// Package identity resolves the calling user for domain endpoints. The
// surrounding system authenticates users upstream and forwards the verified
// id in the X-User-ID header; this middleware validates the header shape and
// makes the typed id available to handlers.
package identity

import (
	"net/http"

	id "domainwatch/pkg/domain"
	dErrors "domainwatch/pkg/domain-errors"
	"domainwatch/pkg/platform/httputil"
	"domainwatch/pkg/requestcontext"
)

// UserHeader carries the authenticated user id set by the upstream gateway.
const UserHeader = "X-User-ID"

// RequireUser rejects requests without a well-formed user id and injects the
// parsed id into the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserHeader)
		if raw == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "X-User-ID header is required"))
			return
		}
		userID, err := id.ParseUserID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		ctx := requestcontext.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
