package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/api/middleware"
	"github.com/mvalderas/tradepost-backend/api/responses"
	"github.com/mvalderas/tradepost-backend/api/validators"
	"github.com/mvalderas/tradepost-backend/internal/payouts"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

type payoutReasonRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// ListMyPayouts pages through the seller's payouts.
func ListMyPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parsePayoutStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListSellerPayouts(r.Context(), middleware.UserIDFromContext(r.Context()), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListAllPayouts is the admin view over every payout.
func ListAllPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parsePayoutStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListAllPayouts(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetPayout returns one payout visible to the caller.
func GetPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		dto, err := svc.GetPayout(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx), payoutID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ApprovePayout is the admin approval step.
func ApprovePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutTransition(logg, svc.Approve)
}

// ProcessPayout moves an approved payout into processing.
func ProcessPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutTransition(logg, svc.MarkProcessing)
}

// CompletePayout settles a processing payout.
func CompletePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutTransition(logg, svc.MarkCompleted)
}

// RejectPayout rejects a pending payout with a reason.
func RejectPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutReasonTransition(logg, svc.Reject)
}

// FailPayout records a failed transfer with a reason.
func FailPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutReasonTransition(logg, svc.MarkFailed)
}

func payoutTransition(logg *logger.Logger, fn func(ctx context.Context, adminID, payoutID uuid.UUID) (*payouts.PayoutDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := fn(r.Context(), middleware.UserIDFromContext(r.Context()), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func payoutReasonTransition(logg *logger.Logger, fn func(ctx context.Context, adminID, payoutID uuid.UUID, reason string) (*payouts.PayoutDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutID"), "payoutID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req payoutReasonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := fn(r.Context(), middleware.UserIDFromContext(r.Context()), payoutID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func parsePayoutStatus(r *http.Request) (*enums.PayoutStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParsePayoutStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return &status, nil
}
