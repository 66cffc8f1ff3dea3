// File: internal/post/repository.go
package post

import (
	"context"
	"errors"
	"strings"
	"time"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the storage interface for posts.
type Repository interface {
	Create(ctx context.Context, post *Post, images []PostImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*Post, error)
	FindBySlug(ctx context.Context, slug string) (*Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, post *Post) error

	// UpdateStatusCAS applies updates only when the current status is one of
	// from, returning the number of rows changed. Zero rows means the post is
	// missing or in a different state; callers re-check and report.
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from []string, updates map[string]interface{}) (int64, error)

	// IncrementViewCount bumps the counter atomically in SQL. Never a
	// read-modify-write.
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	SearchFeed(ctx context.Context, q FeedQuery) ([]Post, int64, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID, q OwnerQuery) ([]Post, int64, error)
	FindPendingReview(ctx context.Context, p common.PaginationQuery) ([]Post, int64, error)
	FindAllForModeration(ctx context.Context, q ModerationQuery) ([]Post, int64, error)

	AddImages(ctx context.Context, images []PostImage) error
	FindImage(ctx context.Context, postID, imageID uuid.UUID) (*PostImage, error)
	DeleteImage(ctx context.Context, postID, imageID uuid.UUID) error
	CountImages(ctx context.Context, postID uuid.UUID) (int64, error)
	MaxImagePosition(ctx context.Context, postID uuid.UUID) (int, error)

	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM post repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Create inserts the post and its image rows in one transaction, so a
// failed image insert leaves no orphan post behind.
func (r *gormRepository) Create(ctx context.Context, post *Post, images []PostImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			if isUniqueViolation(err) {
				return common.ErrConflict.WithDetails("A post with this slug already exists.")
			}
			return err
		}
		for i := range images {
			images[i].PostID = post.ID
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				if isUniqueViolation(err) {
					return common.NewFieldValidationError("order", "Duplicate image order for this post.")
				}
				return err
			}
			post.Images = images
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "unique constraint") ||
		strings.Contains(err.Error(), "duplicate key value violates unique constraint") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	var p Post
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		}).
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Post not found.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, slug string) (*Post, error) {
	var p Post
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		}).
		First(&p, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Post not found.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Post{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) Update(ctx context.Context, post *Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *gormRepository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from []string, updates map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Post{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// feedOrderings whitelists client-supplied orderings.
var feedOrderings = map[string]string{
	"created_at":    "posts.created_at ASC",
	"-created_at":   "posts.created_at DESC",
	"price":         "posts.price ASC",
	"-price":        "posts.price DESC",
	"quantity":      "posts.quantity ASC",
	"-quantity":     "posts.quantity DESC",
	"published_at":  "posts.published_at ASC",
	"-published_at": "posts.published_at DESC",
}

// SearchFeed runs the public feed query: active, public, unexpired, plus
// the caller's filters. The expansion of a category filter happens in the
// service layer; here an empty non-nil id set matches nothing.
func (r *gormRepository) SearchFeed(ctx context.Context, q FeedQuery) ([]Post, int64, error) {
	now := time.Now().UTC()
	query := r.db.WithContext(ctx).Model(&Post{}).
		Where("posts.status = ?", StatusActive).
		Where("posts.visibility = ?", VisibilityPublic).
		Where("posts.expires_at IS NULL OR posts.expires_at > ?", now)

	if q.CategoryIDs != nil {
		if len(q.CategoryIDs) == 0 {
			return []Post{}, 0, nil
		}
		query = query.Where("posts.category_id IN ?", q.CategoryIDs)
	}
	if q.MinPrice != nil {
		query = query.Where("posts.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query = query.Where("posts.price <= ?", *q.MaxPrice)
	}
	if q.MunicipalityID != nil {
		query = query.Where("posts.municipality_id = ?", *q.MunicipalityID)
	}
	if q.DepartmentID != nil {
		query = query.Joins("JOIN municipalities ON municipalities.id = posts.municipality_id").
			Where("municipalities.department_id = ?", *q.DepartmentID)
	}
	if q.Unit != "" {
		query = query.Where("LOWER(posts.unit) LIKE ?", "%"+strings.ToLower(q.Unit)+"%")
	}
	if q.IsFeatured != nil {
		query = query.Where("posts.is_featured = ?", *q.IsFeatured)
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	ordering, ok := feedOrderings[q.Ordering]
	if !ok {
		ordering = "posts.published_at DESC, posts.created_at DESC"
	}

	var posts []Post
	err := query.Order(ordering).
		Offset(q.Pagination.Offset()).
		Limit(q.Pagination.Limit()).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		}).
		Find(&posts).Error
	return posts, total, err
}

// FindByOwner lists the owner's posts across every status and visibility.
// Category filters here are exact, without descendant expansion.
func (r *gormRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, q OwnerQuery) ([]Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&Post{}).Where("posts.user_id = ?", ownerID)
	if q.Status != "" {
		query = query.Where("posts.status = ?", q.Status)
	}
	if q.Visibility != "" {
		query = query.Where("posts.visibility = ?", q.Visibility)
	}
	if q.CategoryID != nil {
		query = query.Where("posts.category_id = ?", *q.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []Post
	err := query.Order("posts.created_at DESC").
		Offset(q.Pagination.Offset()).
		Limit(q.Pagination.Limit()).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		}).
		Find(&posts).Error
	return posts, total, err
}

// FindPendingReview lists the moderation queue oldest-first.
func (r *gormRepository) FindPendingReview(ctx context.Context, p common.PaginationQuery) ([]Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&Post{}).Where("posts.status = ?", StatusPendingReview)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []Post
	err := query.Order("posts.created_at ASC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		}).
		Find(&posts).Error
	return posts, total, err
}

// moderationOrderings whitelists ordering params on the moderation list.
var moderationOrderings = map[string]string{
	"created_at":  "posts.created_at ASC",
	"-created_at": "posts.created_at DESC",
	"updated_at":  "posts.updated_at ASC",
	"-updated_at": "posts.updated_at DESC",
}

// FindAllForModeration lists every post regardless of owner, status or
// visibility, newest-first by default.
func (r *gormRepository) FindAllForModeration(ctx context.Context, q ModerationQuery) ([]Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&Post{})
	if q.Status != "" {
		query = query.Where("posts.status = ?", q.Status)
	}
	if q.Visibility != "" {
		query = query.Where("posts.visibility = ?", q.Visibility)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	ordering, ok := moderationOrderings[q.Ordering]
	if !ok {
		ordering = "posts.created_at DESC"
	}

	var posts []Post
	err := query.Order(ordering).
		Offset(q.Pagination.Offset()).
		Limit(q.Pagination.Limit()).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_images.position ASC")
		}).
		Find(&posts).Error
	return posts, total, err
}

func (r *gormRepository) AddImages(ctx context.Context, images []PostImage) error {
	if len(images) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		if isUniqueViolation(err) {
			return common.NewFieldValidationError("order", "Duplicate image order for this post.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindImage(ctx context.Context, postID, imageID uuid.UUID) (*PostImage, error) {
	var img PostImage
	err := r.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", imageID, postID).
		First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Image not found.")
		}
		return nil, err
	}
	return &img, nil
}

func (r *gormRepository) DeleteImage(ctx context.Context, postID, imageID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", imageID, postID).
		Delete(&PostImage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Image not found.")
	}
	return nil
}

func (r *gormRepository) CountImages(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PostImage{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) MaxImagePosition(ctx context.Context, postID uuid.UUID) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&PostImage{}).
		Where("post_id = ?", postID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

// ExpireOverdue flips active posts past their expiry to expired. Feed reads
// filter lazily, so correctness never depends on this sweep running.
func (r *gormRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Post{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", StatusActive, now).
		Update("status", StatusExpired)
	return res.RowsAffected, res.Error
}
