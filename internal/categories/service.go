package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalderas/tradepost-backend/internal/listings"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	dbpkg "github.com/mvalderas/tradepost-backend/pkg/db"
	pkgerrors "github.com/mvalderas/tradepost-backend/pkg/errors"
	"github.com/mvalderas/tradepost-backend/pkg/pagination"
)

type subtreeLister interface {
	ListByCategoryIDs(ctx context.Context, categoryIDs []uuid.UUID, params pagination.Params) ([]models.Listing, int64, error)
}

// Service manages the category tree and subtree browsing.
type Service interface {
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	RenameCategory(ctx context.Context, categoryID uuid.UUID, name string) (*CategoryDTO, error)
	GetTree(ctx context.Context) ([]CategoryNodeDTO, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListSubtreeListings(ctx context.Context, categoryID uuid.UUID, params pagination.Params) (*pagination.Page[listings.ListingDTO], error)
}

type service struct {
	repo     *Repository
	listings subtreeLister
}

// NewService wires the categories service.
func NewService(repo *Repository, listingRepo subtreeLister) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listing lister required")
	}
	return &service{repo: repo, listings: listingRepo}, nil
}

// CreateCategoryInput carries the fields for a new category node.
type CreateCategoryInput struct {
	Name     string     `json:"name" validate:"required,min=1,max=120"`
	Slug     string     `json:"slug" validate:"required,min=1,max=120"`
	ParentID *uuid.UUID `json:"parent_id"`
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	slug := strings.TrimSpace(strings.ToLower(input.Slug))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name required")
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category slug required")
	}

	if input.ParentID != nil {
		exists, err := s.repo.Exists(ctx, *input.ParentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking parent category")
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
		}
	}

	category := models.Category{
		ParentID: input.ParentID,
		Name:     name,
		Slug:     slug,
	}
	if err := s.repo.Create(ctx, &category); err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating category")
	}
	return toCategoryDTO(&category), nil
}

func (s *service) RenameCategory(ctx context.Context, categoryID uuid.UUID, name string) (*CategoryDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name required")
	}

	category, err := s.load(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	category.Name = name
	if err := s.repo.Save(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "renaming category")
	}
	return toCategoryDTO(category), nil
}

// GetTree assembles the category forest from the flat rows. Children are
// attached through an index, no recursion over the database.
func (s *service) GetTree(ctx context.Context) ([]CategoryNodeDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}

	nodes := make(map[uuid.UUID]*CategoryNodeDTO, len(rows))
	order := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		nodes[rows[i].ID] = &CategoryNodeDTO{
			ID:       rows[i].ID,
			ParentID: rows[i].ParentID,
			Name:     rows[i].Name,
			Slug:     rows[i].Slug,
			Children: []CategoryNodeDTO{},
		}
		order = append(order, rows[i].ID)
	}

	tree := make([]CategoryNodeDTO, 0)
	for _, id := range order {
		node := nodes[id]
		isRoot := node.ParentID == nil
		if !isRoot {
			// Orphaned rows surface as roots rather than being dropped.
			_, parentKnown := nodes[*node.ParentID]
			isRoot = !parentKnown
		}
		if isRoot {
			tree = append(tree, s.materialize(nodes, id))
		}
	}
	return tree, nil
}

// materialize copies a subtree out of the node index with an explicit stack
// of pending parents.
func (s *service) materialize(nodes map[uuid.UUID]*CategoryNodeDTO, rootID uuid.UUID) CategoryNodeDTO {
	children := make(map[uuid.UUID][]uuid.UUID, len(nodes))
	for id, node := range nodes {
		if node.ParentID != nil {
			children[*node.ParentID] = append(children[*node.ParentID], id)
		}
	}

	built := make(map[uuid.UUID]*CategoryNodeDTO, len(nodes))
	stack := []uuid.UUID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		kids := children[id]

		ready := true
		for _, kid := range kids {
			if _, done := built[kid]; !done {
				ready = false
				stack = append(stack, kid)
			}
		}
		if !ready {
			continue
		}

		stack = stack[:len(stack)-1]
		if _, done := built[id]; done {
			continue
		}
		src := nodes[id]
		node := CategoryNodeDTO{
			ID:       src.ID,
			ParentID: src.ParentID,
			Name:     src.Name,
			Slug:     src.Slug,
			Children: make([]CategoryNodeDTO, 0, len(kids)),
		}
		for _, kid := range kids {
			node.Children = append(node.Children, *built[kid])
		}
		built[id] = &node
	}
	return *built[rootID]
}

func (s *service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

// ListSubtreeListings pages through active listings in the category and all
// of its descendants. The subtree is collected with an explicit stack.
func (s *service) ListSubtreeListings(ctx context.Context, categoryID uuid.UUID, params pagination.Params) (*pagination.Page[listings.ListingDTO], error) {
	if _, err := s.load(ctx, categoryID); err != nil {
		return nil, err
	}

	ids, err := s.subtreeIDs(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.listings.ListByCategoryIDs(ctx, ids, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing category listings")
	}
	return pagination.NewPage(listings.ToListingDTOs(rows), params, total), nil
}

// subtreeIDs walks the descendants of root iteratively.
func (s *service) subtreeIDs(ctx context.Context, root uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}

	children := make(map[uuid.UUID][]uuid.UUID, len(rows))
	for i := range rows {
		if rows[i].ParentID != nil {
			children[*rows[i].ParentID] = append(children[*rows[i].ParentID], rows[i].ID)
		}
	}

	ids := make([]uuid.UUID, 0, len(rows))
	stack := []uuid.UUID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids = append(ids, id)
		stack = append(stack, children[id]...)
	}
	return ids, nil
}

func (s *service) load(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	if categoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
	}
	return category, nil
}
