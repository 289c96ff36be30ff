package middleware

import (
	"net/http"
	"strings"

	"github.com/medimart-health/medimart-backend/api/responses"
	"github.com/medimart-health/medimart-backend/pkg/auth"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
)

// Auth verifies the bearer token and stores the identity on the context.
func Auth(verifier *auth.Verifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				responses.WriteError(r.Context(), w, logg, errors.New(errors.CodeUnauthorized, "missing bearer token"))
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), w, logg, err)
				return
			}

			ctx := WithIdentity(r.Context(), identity.UserID, identity.Role)
			ctx = logg.WithUserID(ctx, identity.UserID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose authenticated role is not in the allow
// list.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	allowed := map[enums.UserRole]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := Role(r.Context())
			if !ok {
				responses.WriteError(r.Context(), w, logg, errors.New(errors.CodeUnauthorized, "no identity on request"))
				return
			}
			if !allowed[role] {
				responses.WriteError(r.Context(), w, logg, errors.New(errors.CodeForbidden, "role not permitted"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
