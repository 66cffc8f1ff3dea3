// File: internal/location/model.go

// Package location holds the department and municipality reference data
// used for alert scoping and profile addresses.
package location

import (
	"agromarket_backend/internal/common"

	"github.com/google/uuid"
)

// Department is a first-level administrative region.
type Department struct {
	common.BaseModel
	Name string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Code string `gorm:"type:varchar(10);not null;uniqueIndex"`

	Municipalities []Municipality `gorm:"foreignKey:DepartmentID"`
}

// TableName specifies the table name for the Department model.
func (Department) TableName() string {
	return "departments"
}

// Municipality is a second-level region belonging to a department.
type Municipality struct {
	common.BaseModel
	DepartmentID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"type:varchar(100);not null"`
	Code         string    `gorm:"type:varchar(10);not null;uniqueIndex"`

	Department Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Municipality model.
func (Municipality) TableName() string {
	return "municipalities"
}

// Region is the resolved location of a user's profile. A nil Region means
// the user has no municipality on file and only sees global alerts.
type Region struct {
	MunicipalityID uuid.UUID
	DepartmentID   uuid.UUID
}

// --- DTOs ---

// DepartmentResponse is the API shape for a department.
type DepartmentResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// MunicipalityResponse is the API shape for a municipality.
type MunicipalityResponse struct {
	ID           uuid.UUID `json:"id"`
	DepartmentID uuid.UUID `json:"department_id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
}

// ToDepartmentResponse converts a Department to its API shape.
func ToDepartmentResponse(d *Department) DepartmentResponse {
	return DepartmentResponse{ID: d.ID, Name: d.Name, Code: d.Code}
}

// ToMunicipalityResponse converts a Municipality to its API shape.
func ToMunicipalityResponse(m *Municipality) MunicipalityResponse {
	return MunicipalityResponse{ID: m.ID, DepartmentID: m.DepartmentID, Name: m.Name, Code: m.Code}
}
