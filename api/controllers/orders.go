package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/api/middleware"
	"github.com/mvalderas/tradepost-backend/api/responses"
	"github.com/mvalderas/tradepost-backend/api/validators"
	"github.com/mvalderas/tradepost-backend/internal/orders"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

// CreateOrder converts the buyer's cart into an order.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dto, err := svc.CreateOrder(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// GetOrder returns one order visible to the caller.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		dto, err := svc.GetOrder(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx), orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ListMyOrders pages through the caller's orders as buyer.
func ListMyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListBuyerOrders(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListMySales pages through orders containing the caller's items as seller.
func ListMySales(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListSellerOrders(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// CancelOrder cancels a pending order and restores stock.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(logg, svc.CancelOrder)
}

// ShipOrder moves a paid order to shipped.
func ShipOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(logg, svc.ShipOrder)
}

// CompleteOrder moves a shipped order to completed and accrues payouts.
func CompleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(logg, svc.CompleteOrder)
}

func orderTransition(logg *logger.Logger, fn func(ctx context.Context, actorID, orderID uuid.UUID) (*orders.OrderDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := fn(r.Context(), middleware.UserIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
