// File: internal/location/repository.go
package location

import (
	"context"
	"errors"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for location reference data.
type Repository interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	ListMunicipalities(ctx context.Context, departmentID *uuid.UUID) ([]Municipality, error)
	FindMunicipalityByID(ctx context.Context, id uuid.UUID) (*Municipality, error)
	FindRegionByUserID(ctx context.Context, userID uuid.UUID) (*Region, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM location repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// ListDepartments returns all departments ordered by name.
func (r *gormRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	var departments []Department
	err := r.db.WithContext(ctx).Order("name ASC").Find(&departments).Error
	return departments, err
}

// ListMunicipalities returns municipalities, optionally filtered by department.
func (r *gormRepository) ListMunicipalities(ctx context.Context, departmentID *uuid.UUID) ([]Municipality, error) {
	var municipalities []Municipality
	query := r.db.WithContext(ctx).Order("name ASC")
	if departmentID != nil {
		query = query.Where("department_id = ?", *departmentID)
	}
	err := query.Find(&municipalities).Error
	return municipalities, err
}

// FindMunicipalityByID retrieves a municipality by primary key.
func (r *gormRepository) FindMunicipalityByID(ctx context.Context, id uuid.UUID) (*Municipality, error) {
	var m Municipality
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Municipality not found.")
		}
		return nil, err
	}
	return &m, nil
}

// FindRegionByUserID resolves a user's profile municipality to its region.
// Returns (nil, nil) when the user has no profile or no municipality set.
func (r *gormRepository) FindRegionByUserID(ctx context.Context, userID uuid.UUID) (*Region, error) {
	var region Region
	err := r.db.WithContext(ctx).
		Table("profiles").
		Select("profiles.municipality_id AS municipality_id, municipalities.department_id AS department_id").
		Joins("JOIN municipalities ON municipalities.id = profiles.municipality_id").
		Where("profiles.user_id = ?", userID).
		Scan(&region).Error
	if err != nil {
		return nil, err
	}
	if region.MunicipalityID == uuid.Nil {
		return nil, nil
	}
	return &region, nil
}
