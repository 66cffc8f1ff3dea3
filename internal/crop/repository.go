// File: internal/crop/repository.go
package crop

import (
	"context"
	"errors"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the storage interface for crops and products.
type Repository interface {
	Create(ctx context.Context, crop *Crop) error
	// FindByIDForOwner scopes the lookup to the owner in the query itself,
	// so cross-owner access reads as not found.
	FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Crop, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, p common.PaginationQuery) ([]Crop, int64, error)
	Update(ctx context.Context, crop *Crop) error
	DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) error

	ListProducts(ctx context.Context, search string) ([]Product, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM crop repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, crop *Crop) error {
	return r.db.WithContext(ctx).Create(crop).Error
}

func (r *gormRepository) FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Crop, error) {
	var cr Crop
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&cr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Crop not found.")
		}
		return nil, err
	}
	return &cr, nil
}

func (r *gormRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, p common.PaginationQuery) ([]Crop, int64, error) {
	query := r.db.WithContext(ctx).Model(&Crop{}).Where("user_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var crops []Crop
	err := query.Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Preload("Product").
		Find(&crops).Error
	return crops, total, err
}

func (r *gormRepository) Update(ctx context.Context, crop *Crop) error {
	return r.db.WithContext(ctx).Save(crop).Error
}

func (r *gormRepository) DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&Crop{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Crop not found.")
	}
	return nil
}

func (r *gormRepository) ListProducts(ctx context.Context, search string) ([]Product, error) {
	query := r.db.WithContext(ctx).Model(&Product{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+search+"%")
	}
	var products []Product
	err := query.Order("name ASC").Find(&products).Error
	return products, err
}

func (r *gormRepository) FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Product not found.")
		}
		return nil, err
	}
	return &p, nil
}
