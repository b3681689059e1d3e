package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/api/response"
	"github.com/edvin/vpanel/internal/core"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	authzKey  contextKey = "authz"
)

// Auth validates the Bearer session token and injects its claims and an
// AuthorizationContext into the request context.
func Auth(sessions *core.SessionService, db core.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := sessions.Parse(token)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			authz := core.NewAuthorizationContext(db, claims.Stack)
			logger := zerolog.Ctx(r.Context()).With().
				Int64("account_id", authz.Acting.ID).
				Int64("true_account_id", authz.True.ID).
				Logger()

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, authzKey, authz)
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSession returns ctx carrying claims and authz, as Auth would set them.
func WithSession(ctx context.Context, claims *core.Claims, authz *core.AuthorizationContext) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, authzKey, authz)
}

// GetClaims extracts session claims from the request context.
func GetClaims(ctx context.Context) *core.Claims {
	claims, _ := ctx.Value(claimsKey).(*core.Claims)
	return claims
}

// GetAuthz extracts the AuthorizationContext from the request context.
func GetAuthz(ctx context.Context) *core.AuthorizationContext {
	authz, _ := ctx.Value(authzKey).(*core.AuthorizationContext)
	return authz
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
