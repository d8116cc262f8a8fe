package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mvalderas/tradepost-backend/api/responses"
	"github.com/mvalderas/tradepost-backend/api/validators"
	"github.com/mvalderas/tradepost-backend/internal/categories"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
)

type createCategoryRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=120"`
	Slug     string  `json:"slug" validate:"required,min=1,max=120"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

type renameCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// GetCategoryTree returns the whole category forest.
func GetCategoryTree(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := svc.GetTree(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tree)
	}
}

// CreateCategory adds a node to the tree. Admin only.
func CreateCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCategoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		parentID, err := parseOptionalUUID(req.ParentID, "parent_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateCategory(r.Context(), categories.CreateCategoryInput{
			Name:     req.Name,
			Slug:     req.Slug,
			ParentID: parentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// RenameCategory renames a node. Admin only.
func RenameCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := validators.ParsePathUUID(chi.URLParam(r, "categoryID"), "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req renameCategoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.RenameCategory(r.Context(), categoryID, req.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ListCategoryListings pages through active listings in a category subtree.
func ListCategoryListings(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := validators.ParsePathUUID(chi.URLParam(r, "categoryID"), "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListSubtreeListings(r.Context(), categoryID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
