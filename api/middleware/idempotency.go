package middleware

import (
	"net/http"
	"time"

	"github.com/medimart-health/medimart-backend/api/responses"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
	"github.com/medimart-health/medimart-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// Idempotency guards double-submits on money paths. When the client sends an
// Idempotency-Key, the first request claims it; replays within the TTL get a
// conflict instead of a second mutation. The header is optional.
//
// Redis being down fails open: losing replay protection is preferable to
// refusing orders.
func Idempotency(store redis.IdempotencyStore, scope string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, _ := UserID(r.Context())
			storeKey := store.IdempotencyKey(scope, userID.String()+":"+key)

			claimed, err := store.SetNX(r.Context(), storeKey, time.Now().UnixNano(), idempotencyTTL)
			if err != nil {
				logg.Warn(r.Context(), "idempotency store unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				responses.WriteError(r.Context(), w, logg,
					errors.New(errors.CodeIdempotency, "request with this idempotency key was already accepted").
						WithDetails(map[string]string{"key": key}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
