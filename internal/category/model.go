// File: internal/category/model.go
package category

import (
	"time"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
)

// Category is a node in the self-referential product category tree.
// Feed filters expand a category to itself plus all of its active
// descendants, so both leaves and intermediate nodes are selectable.
type Category struct {
	common.BaseModel
	Name        string     `gorm:"type:varchar(100);not null"`
	Slug        string     `gorm:"type:varchar(120);not null;uniqueIndex"`
	Description *string    `gorm:"type:text"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	IsActive    bool       `gorm:"not null;default:true"`

	Parent   *Category  `gorm:"foreignKey:ParentID"`
	Children []Category `gorm:"foreignKey:ParentID"`

	// PostCount counts live listings only (active and public) and is
	// populated by a correlated subquery on every read path.
	PostCount int64 `gorm:"->;-:migration" json:"-"`
}

// TableName specifies the table name for the Category model.
func (Category) TableName() string {
	return "categories"
}

// Node is the minimal projection used for tree walks.
type Node struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
	IsActive bool
}

// --- DTOs ---

// CreateCategoryRequest defines the payload for creating a category.
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=100"`
	Description *string    `json:"description,omitempty" binding:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
}

// UpdateCategoryRequest defines the payload for updating a category.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	Description *string    `json:"description,omitempty" binding:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// CategoryResponse is the API shape for a category node.
type CategoryResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description *string            `json:"description,omitempty"`
	ParentID    *uuid.UUID         `json:"parent_id,omitempty"`
	IsActive    bool               `json:"is_active"`
	PostCount   int64              `json:"post_count"`
	Children    []CategoryResponse `json:"children,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ToCategoryResponse converts a Category to its API shape, including one
// level of preloaded children.
func ToCategoryResponse(cat *Category) CategoryResponse {
	resp := CategoryResponse{
		ID:          cat.ID,
		Name:        cat.Name,
		Slug:        cat.Slug,
		Description: cat.Description,
		ParentID:    cat.ParentID,
		IsActive:    cat.IsActive,
		PostCount:   cat.PostCount,
		CreatedAt:   cat.CreatedAt,
	}
	for i := range cat.Children {
		resp.Children = append(resp.Children, ToCategoryResponse(&cat.Children[i]))
	}
	return resp
}
