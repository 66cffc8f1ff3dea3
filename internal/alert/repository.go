// File: internal/alert/repository.go
package alert

import (
	"context"
	"errors"
	"strings"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/location"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the storage interface for alerts.
type Repository interface {
	Create(ctx context.Context, alert *Alert, images []AlertImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)

	// ListVisible applies the scope union filter for the caller's region.
	// A nil region restricts the result to global alerts.
	ListVisible(ctx context.Context, region *location.Region, q ListQuery) ([]Alert, int64, error)

	AddImages(ctx context.Context, images []AlertImage) error
	CountImages(ctx context.Context, alertID uuid.UUID) (int64, error)
	MaxImagePosition(ctx context.Context, alertID uuid.UUID) (int, error)

	ListCategories(ctx context.Context, search string) ([]AlertCategory, error)
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*AlertCategory, error)
	FindCategoryByName(ctx context.Context, name string) (*AlertCategory, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM alert repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Create inserts the alert and its image rows in one transaction.
func (r *gormRepository) Create(ctx context.Context, alert *Alert, images []AlertImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(alert).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].AlertID = alert.ID
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
			alert.Images = images
		}
		return nil
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	var a Alert
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("alert_images.position ASC")
		}).
		First(&a, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Alert not found.")
		}
		return nil, err
	}
	return &a, nil
}

// ListVisible builds the union filter: global alerts, OR departamental
// alerts for the caller's department, OR municipal alerts for the caller's
// municipality. Callers with no resolvable region see only global alerts.
func (r *gormRepository) ListVisible(ctx context.Context, region *location.Region, q ListQuery) ([]Alert, int64, error) {
	query := r.db.WithContext(ctx).Model(&Alert{})

	if region == nil {
		query = query.Where("alerts.scope = ?", ScopeGlobal)
	} else {
		query = query.Where(
			"alerts.scope = ? OR (alerts.scope = ? AND alerts.department_id = ?) OR (alerts.scope = ? AND alerts.municipality_id = ?)",
			ScopeGlobal,
			ScopeDepartamental, region.DepartmentID,
			ScopeMunicipal, region.MunicipalityID,
		)
	}

	if q.Scope != "" {
		query = query.Where("alerts.scope = ?", q.Scope)
	}
	if q.CategoryID != nil {
		query = query.Where("alerts.category_id = ?", *q.CategoryID)
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where("LOWER(alerts.title) LIKE ? OR LOWER(alerts.message) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alerts []Alert
	err := query.Order("alerts.created_at DESC").
		Offset(q.Pagination.Offset()).
		Limit(q.Pagination.Limit()).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("alert_images.position ASC")
		}).
		Find(&alerts).Error
	return alerts, total, err
}

func (r *gormRepository) AddImages(ctx context.Context, images []AlertImage) error {
	if len(images) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		if strings.Contains(err.Error(), "unique constraint") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return common.NewFieldValidationError("order", "Duplicate image order for this alert.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) CountImages(ctx context.Context, alertID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&AlertImage{}).
		Where("alert_id = ?", alertID).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) MaxImagePosition(ctx context.Context, alertID uuid.UUID) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&AlertImage{}).
		Where("alert_id = ?", alertID).
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

func (r *gormRepository) ListCategories(ctx context.Context, search string) ([]AlertCategory, error) {
	query := r.db.WithContext(ctx).Model(&AlertCategory{})
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	var categories []AlertCategory
	err := query.Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *gormRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*AlertCategory, error) {
	var ac AlertCategory
	err := r.db.WithContext(ctx).First(&ac, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Alert category not found.")
		}
		return nil, err
	}
	return &ac, nil
}

func (r *gormRepository) FindCategoryByName(ctx context.Context, name string) (*AlertCategory, error) {
	var ac AlertCategory
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&ac).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Alert category not found.")
		}
		return nil, err
	}
	return &ac, nil
}
