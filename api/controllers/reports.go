package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mvalderas/tradepost-backend/api/middleware"
	"github.com/mvalderas/tradepost-backend/api/responses"
	"github.com/mvalderas/tradepost-backend/api/validators"
	"github.com/mvalderas/tradepost-backend/internal/reports"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

type flagListingRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"required"`
	Note      string `json:"note" validate:"max=2000"`
}

// FlagListing files a report against a listing.
func FlagListing(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req flagListingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := validators.ParsePathUUID(req.ListingID, "listing_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := enums.ParseReportReason(req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason"))
			return
		}

		dto, err := svc.FlagListing(r.Context(), middleware.UserIDFromContext(r.Context()), reports.FlagListingInput{
			ListingID: listingID,
			Reason:    reason,
			Note:      req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ListReports is the admin report queue.
func ListReports(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := validators.ParseQueryUUID(r, "listing_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unresolved, err := validators.ParseQueryBool(r, "unresolved")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListReports(r.Context(), reports.ListFilter{ListingID: listingID, Unresolved: unresolved}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ResolveReport closes a report. Admin only.
func ResolveReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, err := validators.ParsePathUUID(chi.URLParam(r, "reportID"), "reportID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.ResolveReport(r.Context(), reportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
