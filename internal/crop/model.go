// File: internal/crop/model.go

// Package crop holds the product catalog and per-owner crop records.
package crop

import (
	"time"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fertilizer types accepted on a crop record.
const (
	FertilizerNone     = "none"
	FertilizerOrganic  = "organic"
	FertilizerChemical = "chemical"
	FertilizerMixed    = "mixed"
)

// Irrigation methods accepted on a crop record.
const (
	IrrigationNone      = "none"
	IrrigationGravity   = "gravity"
	IrrigationDrip      = "drip"
	IrrigationSprinkler = "sprinkler"
	IrrigationOther     = "other"
)

// Product is a catalog entry crops reference (coffee, maize, beans, ...).
type Product struct {
	common.BaseModel
	Name        string  `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description *string `gorm:"type:text"`
}

// TableName specifies the table name for the Product model.
func (Product) TableName() string {
	return "products"
}

// Crop is one growing cycle owned by a user.
type Crop struct {
	common.BaseModel
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index;constraint:OnDelete:CASCADE"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CropType      string          `gorm:"type:varchar(100);not null"`
	AreaHectares  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	ProductionQty decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	StartDate     time.Time       `gorm:"type:date;not null"`
	HarvestDate   time.Time       `gorm:"type:date;not null"`
	Fertilizer    string          `gorm:"type:varchar(20);not null;default:'none'"`
	Irrigation    string          `gorm:"type:varchar(20);not null;default:'none'"`
	Notes         *string         `gorm:"type:text"`

	Product Product `gorm:"foreignKey:ProductID"`
}

// TableName specifies the table name for the Crop model.
func (Crop) TableName() string {
	return "crops"
}

// --- DTOs ---

// CropRequest is the payload for creating or replacing a crop record.
// Decimals arrive as strings so bad values produce field errors instead of
// bind failures.
type CropRequest struct {
	ProductID     uuid.UUID `json:"product_id" binding:"required"`
	CropType      string    `json:"crop_type" binding:"required,min=1,max=100"`
	AreaHectares  string    `json:"area_hectares" binding:"required"`
	ProductionQty string    `json:"production_qty" binding:"required"`
	StartDate     string    `json:"start_date" binding:"required,datetime=2006-01-02"`
	HarvestDate   string    `json:"harvest_date" binding:"required,datetime=2006-01-02"`
	Fertilizer    string    `json:"fertilizer,omitempty" binding:"omitempty,oneof=none organic chemical mixed"`
	Irrigation    string    `json:"irrigation,omitempty" binding:"omitempty,oneof=none gravity drip sprinkler other"`
	Notes         *string   `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// CropResponse is the API shape for a crop record.
type CropResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	CropType      string          `json:"crop_type"`
	AreaHectares  decimal.Decimal `json:"area_hectares"`
	ProductionQty decimal.Decimal `json:"production_qty"`
	StartDate     string          `json:"start_date"`
	HarvestDate   string          `json:"harvest_date"`
	Fertilizer    string          `json:"fertilizer"`
	Irrigation    string          `json:"irrigation"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProductResponse is the API shape for a catalog product.
type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

const dateLayout = "2006-01-02"

// ToCropResponse converts a Crop to its API shape.
func ToCropResponse(cr *Crop) CropResponse {
	return CropResponse{
		ID:            cr.ID,
		ProductID:     cr.ProductID,
		ProductName:   cr.Product.Name,
		CropType:      cr.CropType,
		AreaHectares:  cr.AreaHectares,
		ProductionQty: cr.ProductionQty,
		StartDate:     cr.StartDate.Format(dateLayout),
		HarvestDate:   cr.HarvestDate.Format(dateLayout),
		Fertilizer:    cr.Fertilizer,
		Irrigation:    cr.Irrigation,
		Notes:         cr.Notes,
		CreatedAt:     cr.CreatedAt,
	}
}

// ToProductResponse converts a Product to its API shape.
func ToProductResponse(p *Product) ProductResponse {
	return ProductResponse{ID: p.ID, Name: p.Name, Description: p.Description}
}
