package notifications

import (
	"net/http"

	"github.com/medimart-health/medimart-backend/api/middleware"
	"github.com/medimart-health/medimart-backend/api/responses"
	"github.com/medimart-health/medimart-backend/api/validators"
	notifsvc "github.com/medimart-health/medimart-backend/internal/notifications"
	"github.com/medimart-health/medimart-backend/pkg/logger"
)

// List handles GET /notifications.
func List(svc *notifsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)

		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		feed, err := svc.List(ctx, userID, params)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, feed)
	}
}

// MarkRead handles POST /notifications/{notificationId}/read.
func MarkRead(svc *notifsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)

		notificationID, err := validators.URLParamUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		if err := svc.MarkRead(ctx, userID, notificationID); err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "read"})
	}
}

// MarkAllRead handles POST /notifications/read-all.
func MarkAllRead(svc *notifsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)

		updated, err := svc.MarkAllRead(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, map[string]int64{"updated": updated})
	}
}
