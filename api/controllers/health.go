package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/medimart-health/medimart-backend/api/responses"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Live handles GET /health/live.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Ready handles GET /health/ready: db and redis must both answer.
func Ready(db, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"db": "ok", "redis": "ok"}
		failed := false

		if err := db.Ping(ctx); err != nil {
			checks["db"] = err.Error()
			failed = true
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				failed = true
			}
		}

		if failed {
			responses.WriteError(ctx, w, logg,
				errors.New(errors.CodeDependency, "dependency check failed").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, http.StatusOK, checks)
	}
}
