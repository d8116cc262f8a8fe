package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/api/middleware"
	"github.com/mvalderas/tradepost-backend/api/responses"
	"github.com/mvalderas/tradepost-backend/api/validators"
	"github.com/mvalderas/tradepost-backend/internal/listings"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

type createListingRequest struct {
	Title        string  `json:"title" validate:"required,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	PriceCents   int     `json:"price_cents" validate:"required,min=1"`
	AvailableQty int     `json:"available_qty" validate:"min=0"`
	CategoryID   *string `json:"category_id" validate:"omitempty,uuid"`
	ImageURL     *string `json:"image_url" validate:"omitempty,url,max=2048"`
	Activate     bool    `json:"activate"`
}

type updateListingRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	PriceCents   *int    `json:"price_cents" validate:"omitempty,min=1"`
	AvailableQty *int    `json:"available_qty" validate:"omitempty,min=0"`
	CategoryID   *string `json:"category_id" validate:"omitempty,uuid"`
	ImageURL     *string `json:"image_url" validate:"omitempty,url,max=2048"`
	Status       *string `json:"status" validate:"omitempty"`
}

// CreateListing creates a listing owned by the authenticated seller.
func CreateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createListingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := parseOptionalUUID(req.CategoryID, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateListing(r.Context(), middleware.UserIDFromContext(r.Context()), listings.CreateListingInput{
			Title:        req.Title,
			Description:  req.Description,
			PriceCents:   req.PriceCents,
			AvailableQty: req.AvailableQty,
			CategoryID:   categoryID,
			ImageURL:     req.ImageURL,
			Activate:     req.Activate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// UpdateListing applies partial changes to the seller's listing.
func UpdateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := validators.ParsePathUUID(chi.URLParam(r, "listingID"), "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateListingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := parseOptionalUUID(req.CategoryID, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := listings.UpdateListingInput{
			Title:        req.Title,
			Description:  req.Description,
			PriceCents:   req.PriceCents,
			AvailableQty: req.AvailableQty,
			CategoryID:   categoryID,
			ImageURL:     req.ImageURL,
		}
		if req.Status != nil {
			status, err := enums.ParseListingStatus(*req.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		dto, err := svc.UpdateListing(r.Context(), middleware.UserIDFromContext(r.Context()), listingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// RemoveListing soft-removes the seller's listing.
func RemoveListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := validators.ParsePathUUID(chi.URLParam(r, "listingID"), "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveListing(r.Context(), middleware.UserIDFromContext(r.Context()), listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// GetListing returns one visible listing.
func GetListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := validators.ParsePathUUID(chi.URLParam(r, "listingID"), "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetListing(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// BrowseListings is the public listing browse with optional filters.
func BrowseListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := validators.ParseQueryUUID(r, "seller_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListListings(r.Context(), listings.ListListingsInput{
			SellerID:   sellerID,
			CategoryID: categoryID,
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListMyListings returns every listing of the authenticated seller,
// drafts included.
func ListMyListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID := middleware.UserIDFromContext(r.Context())
		input := listings.ListListingsInput{
			SellerID:   &sellerID,
			Pagination: params,
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseListingStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		page, err := svc.ListListings(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "must be a uuid").WithDetails(map[string]any{"field": field})
	}
	return &id, nil
}
