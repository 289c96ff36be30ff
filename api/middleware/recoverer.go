package middleware

import (
	"fmt"
	"net/http"

	"github.com/medimart-health/medimart-backend/api/responses"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
)

// Recoverer converts handler panics into opaque 500 responses.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := errors.Wrap(errors.CodeInternal, fmt.Errorf("panic: %v", rec), "handler panicked")
					responses.WriteError(r.Context(), w, logg, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
