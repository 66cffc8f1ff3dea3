// File: internal/category/repository.go
package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for category data operations.
type Repository interface {
	Create(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id uuid.UUID, preloadChildren bool) (*Category, error)
	FindBySlug(ctx context.Context, slug string, preloadChildren bool) (*Category, error)
	FindAll(ctx context.Context, activeOnly bool) ([]Category, error)
	FindAllNodes(ctx context.Context) ([]Node, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM category repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, category *Category) error {
	category.Slug = strings.ToLower(strings.TrimSpace(category.Slug))
	err := r.db.WithContext(ctx).Create(category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "unique constraint") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return common.ErrConflict.WithDetails("Category with this slug already exists.")
		}
		return err
	}
	return nil
}

// livePostCount counts only listings the public feed would surface.
func (r *gormRepository) livePostCount() *gorm.DB {
	return r.db.Table("posts").
		Select("count(*)").
		Where("posts.category_id = categories.id").
		Where("posts.status = ? AND posts.visibility = ?", "active", "public")
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID, preloadChildren bool) (*Category, error) {
	var category Category
	query := r.db.WithContext(ctx).Model(&Category{}).
		Select("categories.*, (?) as post_count", r.livePostCount())
	if preloadChildren {
		query = query.Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Select("categories.*, (?) as post_count", r.livePostCount()).
				Order("categories.name ASC")
		})
	}
	err := query.First(&category, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Category not found.")
		}
		return nil, err
	}
	return &category, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, slug string, preloadChildren bool) (*Category, error) {
	var category Category
	query := r.db.WithContext(ctx).Model(&Category{}).
		Select("categories.*, (?) as post_count", r.livePostCount())
	if preloadChildren {
		query = query.Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Select("categories.*, (?) as post_count", r.livePostCount()).
				Order("categories.name ASC")
		})
	}
	err := query.First(&category, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Category not found.")
		}
		return nil, err
	}
	return &category, nil
}

// FindAll returns categories with a correlated post-count subquery, ordered
// by name. With activeOnly set, inactive nodes are excluded.
func (r *gormRepository) FindAll(ctx context.Context, activeOnly bool) ([]Category, error) {
	var categories []Category
	query := r.db.WithContext(ctx).Model(&Category{}).
		Select("categories.*, (?) as post_count", r.livePostCount())
	if activeOnly {
		query = query.Where("categories.is_active = ?", true)
	}

	err := query.Order("categories.name ASC").Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// FindAllNodes returns the id, parent and active flag of every category.
// The service walks this projection instead of issuing recursive queries.
func (r *gormRepository) FindAllNodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	err := r.db.WithContext(ctx).Model(&Category{}).
		Select("id, parent_id, is_active").
		Scan(&nodes).Error
	return nodes, err
}

func (r *gormRepository) Update(ctx context.Context, category *Category) error {
	if category.Slug != "" {
		category.Slug = strings.ToLower(strings.TrimSpace(category.Slug))
	}
	err := r.db.WithContext(ctx).Save(category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "unique constraint") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return common.ErrConflict.WithDetails("Category with this slug already exists.")
		}
		return err
	}
	return nil
}

// Delete removes a category. Categories still referenced by posts or with
// children cannot be deleted.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var postCount int64
	if err := r.db.WithContext(ctx).Table("posts").Where("category_id = ?", id).Count(&postCount).Error; err != nil {
		return err
	}
	if postCount > 0 {
		return common.ErrConflict.WithDetails(
			fmt.Sprintf("Cannot delete category: %d posts are still associated with it.", postCount),
		)
	}

	var childCount int64
	if err := r.db.WithContext(ctx).Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
		return err
	}
	if childCount > 0 {
		return common.ErrConflict.WithDetails("Cannot delete category: it still has child categories.")
	}

	result := r.db.WithContext(ctx).Delete(&Category{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Category not found or already deleted.")
	}
	return nil
}
