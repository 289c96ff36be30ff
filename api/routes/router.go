package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medimart-health/medimart-backend/api/controllers"
	notifctrl "github.com/medimart-health/medimart-backend/api/controllers/notifications"
	ordersctrl "github.com/medimart-health/medimart-backend/api/controllers/orders"
	"github.com/medimart-health/medimart-backend/api/middleware"
	notifsvc "github.com/medimart-health/medimart-backend/internal/notifications"
	orderssvc "github.com/medimart-health/medimart-backend/internal/orders"
	"github.com/medimart-health/medimart-backend/pkg/auth"
	"github.com/medimart-health/medimart-backend/pkg/db"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/logger"
	"github.com/medimart-health/medimart-backend/pkg/metrics"
	"github.com/medimart-health/medimart-backend/pkg/redis"
)

// Deps carries everything the router wires together.
type Deps struct {
	Logger        *logger.Logger
	Verifier      *auth.Verifier
	Orders        *orderssvc.Service
	Notifications *notifsvc.Service
	DB            *db.Client
	Redis         *redis.Client
}

// New assembles the full route tree.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/health/live", controllers.Live())
	r.Get("/health/ready", controllers.Ready(deps.DB, deps.Redis, deps.Logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	authn := middleware.Auth(deps.Verifier, deps.Logger)
	buyerOnly := middleware.RequireRole(deps.Logger, enums.UserRoleBuyer)
	sellerOnly := middleware.RequireRole(deps.Logger, enums.UserRoleSeller)
	adminOnly := middleware.RequireRole(deps.Logger, enums.UserRoleAdmin)
	sellerOrAdmin := middleware.RequireRole(deps.Logger, enums.UserRoleSeller, enums.UserRoleAdmin)
	buyerOrAdmin := middleware.RequireRole(deps.Logger, enums.UserRoleBuyer, enums.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn)

		r.Route("/orders", func(r chi.Router) {
			r.With(buyerOnly, middleware.Idempotency(deps.Redis, "order-create", deps.Logger)).
				Post("/", ordersctrl.Create(deps.Orders, deps.Logger))
			r.With(buyerOnly).Get("/my-orders", ordersctrl.MyOrders(deps.Orders, deps.Logger))
			r.With(buyerOnly, middleware.Idempotency(deps.Redis, "payment-verify", deps.Logger)).
				Post("/verify-payment", ordersctrl.VerifyPayment(deps.Orders, deps.Logger))
			r.With(sellerOnly).Get("/seller/my-orders", ordersctrl.SellerOrders(deps.Orders, deps.Logger))
			r.With(adminOnly).Get("/admin/all", ordersctrl.AdminOrders(deps.Orders, deps.Logger))

			r.Get("/{orderId}", ordersctrl.Detail(deps.Orders, deps.Logger))
			r.With(sellerOrAdmin).Put("/{orderId}/status", ordersctrl.UpdateStatus(deps.Orders, deps.Logger))
			r.With(buyerOrAdmin, middleware.Idempotency(deps.Redis, "order-cancel", deps.Logger)).
				Put("/{orderId}/cancel", ordersctrl.Cancel(deps.Orders, deps.Logger))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notifctrl.List(deps.Notifications, deps.Logger))
			r.Post("/{notificationId}/read", notifctrl.MarkRead(deps.Notifications, deps.Logger))
			r.Post("/read-all", notifctrl.MarkAllRead(deps.Notifications, deps.Logger))
		})
	})

	return r
}
