package middleware

import (
	"net/http"

	"github.com/edvin/vpanel/internal/api/response"
)

// RequireAdmin rejects callers whose acting identity lacks admin capability.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := GetAuthz(r.Context())
		if authz == nil || !authz.HasAdminCapability(r.Context()) {
			response.WriteError(w, http.StatusForbidden, "administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
