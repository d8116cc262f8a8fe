package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
)

// CategoryDTO is the flat API representation of one category.
type CategoryDTO struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	CreatedAt time.Time  `json:"created_at"`
}

// CategoryNodeDTO is one node of the category tree response.
type CategoryNodeDTO struct {
	ID       uuid.UUID         `json:"id"`
	ParentID *uuid.UUID        `json:"parent_id,omitempty"`
	Name     string            `json:"name"`
	Slug     string            `json:"slug"`
	Children []CategoryNodeDTO `json:"children"`
}

func toCategoryDTO(category *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:        category.ID,
		ParentID:  category.ParentID,
		Name:      category.Name,
		Slug:      category.Slug,
		CreatedAt: category.CreatedAt,
	}
}
