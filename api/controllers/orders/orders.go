package orders

import (
	"net/http"

	"github.com/medimart-health/medimart-backend/api/middleware"
	"github.com/medimart-health/medimart-backend/api/responses"
	"github.com/medimart-health/medimart-backend/api/validators"
	orderssvc "github.com/medimart-health/medimart-backend/internal/orders"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
)

// Create handles POST /orders.
func Create(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := middleware.UserID(ctx)
		if !ok {
			responses.WriteError(ctx, w, logg, errors.New(errors.CodeUnauthorized, "no identity on request"))
			return
		}

		var input orderssvc.CreateOrderInput
		if err := validators.DecodeBody(r, &input); err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		order, err := svc.Create(ctx, userID, input)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, order)
	}
}

// MyOrders handles GET /orders/my-orders.
func MyOrders(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)

		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		page, err := svc.ListForBuyer(ctx, userID, params)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, page)
	}
}

// Detail handles GET /orders/{orderId}.
func Detail(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)
		role, _ := middleware.Role(ctx)

		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		order, err := svc.Get(ctx, userID, role, orderID)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, order)
	}
}

// UpdateStatus handles PUT /orders/{orderId}/status.
func UpdateStatus(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)
		role, _ := middleware.Role(ctx)

		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		var input orderssvc.UpdateStatusInput
		if err := validators.DecodeBody(r, &input); err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		order, err := svc.UpdateStatus(ctx, userID, role, orderID, input)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, order)
	}
}

// Cancel handles PUT /orders/{orderId}/cancel.
func Cancel(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)
		role, _ := middleware.Role(ctx)

		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		var input orderssvc.CancelInput
		if r.ContentLength > 0 {
			if err := validators.DecodeBody(r, &input); err != nil {
				responses.WriteError(ctx, w, logg, err)
				return
			}
		}

		order, err := svc.Cancel(ctx, userID, role, orderID, input)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, order)
	}
}

// VerifyPayment handles POST /orders/verify-payment.
func VerifyPayment(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)

		var input orderssvc.VerifyPaymentInput
		if err := validators.DecodeBody(r, &input); err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		order, err := svc.VerifyPayment(ctx, userID, input)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, order)
	}
}

// SellerOrders handles GET /orders/seller/my-orders.
func SellerOrders(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := middleware.UserID(ctx)

		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		page, err := svc.ListForSeller(ctx, userID, params)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, page)
	}
}

// AdminOrders handles GET /orders/admin/all.
func AdminOrders(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		status, err := validators.StatusFilter(r)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}

		page, err := svc.ListAll(ctx, orderssvc.ListFilter{Status: status}, params)
		if err != nil {
			responses.WriteError(ctx, w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, page)
	}
}
