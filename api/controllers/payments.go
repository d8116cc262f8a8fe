package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mvalderas/tradepost-backend/api/middleware"
	"github.com/mvalderas/tradepost-backend/api/responses"
	"github.com/mvalderas/tradepost-backend/api/validators"
	"github.com/mvalderas/tradepost-backend/internal/payments"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

type createIntentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

type refundRequest struct {
	AmountCents *int `json:"amount_cents" validate:"omitempty,min=1"`
}

// CreatePaymentIntent opens a gateway payment intent for a pending order.
func CreatePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(req.OrderID, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreatePaymentIntent(r.Context(), middleware.UserIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// GetTransaction returns one payment transaction visible to the caller.
func GetTransaction(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID, err := validators.ParsePathUUID(chi.URLParam(r, "transactionID"), "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		dto, err := svc.GetTransaction(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx), transactionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// RefundPayment requests a gateway refund for a completed transaction. The
// local status flips when the refund webhook lands.
func RefundPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID, err := validators.ParsePathUUID(chi.URLParam(r, "transactionID"), "transactionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		dto, err := svc.RefundPayment(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx), transactionID, req.AmountCents)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
