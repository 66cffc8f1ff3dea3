// File: internal/crop/service.go
package crop

import (
	"context"
	"time"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service handles owner-scoped crop CRUD.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new crop service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// validatedFields holds the parsed numeric and date fields of a request.
type validatedFields struct {
	area        decimal.Decimal
	production  decimal.Decimal
	startDate   time.Time
	harvestDate time.Time
}

// validate parses and checks the numeric and date fields: area strictly
// positive, production quantity non-negative, harvest on or after start.
func validate(req *CropRequest) (*validatedFields, map[string]string) {
	details := map[string]string{}
	var v validatedFields
	var err error

	if v.area, err = decimal.NewFromString(req.AreaHectares); err != nil {
		details["area_hectares"] = "Must be a valid decimal number."
	} else if !v.area.IsPositive() {
		details["area_hectares"] = "Must be greater than zero."
	}
	if v.production, err = decimal.NewFromString(req.ProductionQty); err != nil {
		details["production_qty"] = "Must be a valid decimal number."
	} else if v.production.IsNegative() {
		details["production_qty"] = "Must not be negative."
	}

	v.startDate, err = time.Parse(dateLayout, req.StartDate)
	if err != nil {
		details["start_date"] = "Must be a date in the format 2006-01-02."
	}
	v.harvestDate, err = time.Parse(dateLayout, req.HarvestDate)
	if err != nil {
		details["harvest_date"] = "Must be a date in the format 2006-01-02."
	}
	if _, ok := details["start_date"]; !ok {
		if _, ok := details["harvest_date"]; !ok && v.harvestDate.Before(v.startDate) {
			details["harvest_date"] = "Harvest date must not be before the start date."
		}
	}

	if len(details) > 0 {
		return nil, details
	}
	return &v, nil
}

// Create validates and stores a new crop record for the caller.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req CropRequest) (*Crop, error) {
	v, details := validate(&req)
	if details != nil {
		return nil, common.NewValidationAPIError(details)
	}
	if _, err := s.repo.FindProductByID(ctx, req.ProductID); err != nil {
		return nil, common.NewFieldValidationError("product_id", "Product does not exist.")
	}

	cr := &Crop{
		UserID:        ownerID,
		ProductID:     req.ProductID,
		CropType:      req.CropType,
		AreaHectares:  v.area,
		ProductionQty: v.production,
		StartDate:     v.startDate,
		HarvestDate:   v.harvestDate,
		Fertilizer:    defaultString(req.Fertilizer, FertilizerNone),
		Irrigation:    defaultString(req.Irrigation, IrrigationNone),
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, cr); err != nil {
		return nil, err
	}
	return s.repo.FindByIDForOwner(ctx, cr.ID, ownerID)
}

// Get returns the caller's crop record. Other owners' records read as not
// found.
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Crop, error) {
	return s.repo.FindByIDForOwner(ctx, id, ownerID)
}

// List returns the caller's crop records.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, p common.PaginationQuery) ([]Crop, int64, error) {
	return s.repo.ListByOwner(ctx, ownerID, p)
}

// Update replaces the caller's crop record fields.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, req CropRequest) (*Crop, error) {
	cr, err := s.repo.FindByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	v, details := validate(&req)
	if details != nil {
		return nil, common.NewValidationAPIError(details)
	}
	if _, err := s.repo.FindProductByID(ctx, req.ProductID); err != nil {
		return nil, common.NewFieldValidationError("product_id", "Product does not exist.")
	}

	cr.ProductID = req.ProductID
	cr.CropType = req.CropType
	cr.AreaHectares = v.area
	cr.ProductionQty = v.production
	cr.StartDate = v.startDate
	cr.HarvestDate = v.harvestDate
	cr.Fertilizer = defaultString(req.Fertilizer, FertilizerNone)
	cr.Irrigation = defaultString(req.Irrigation, IrrigationNone)
	cr.Notes = req.Notes

	if err := s.repo.Update(ctx, cr); err != nil {
		return nil, err
	}
	return s.repo.FindByIDForOwner(ctx, id, ownerID)
}

// Delete removes the caller's crop record.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.repo.DeleteForOwner(ctx, id, ownerID)
}

// ListProducts returns the product catalog.
func (s *Service) ListProducts(ctx context.Context, search string) ([]Product, error) {
	return s.repo.ListProducts(ctx, search)
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
