// File: internal/alert/model.go

// Package alert implements scoped notification broadcasts: global alerts
// everyone sees, and regional alerts matched against the caller's home
// region.
package alert

import (
	"time"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
)

// Alert scopes. A departamental alert targets one department, a municipal
// one a single municipality.
const (
	ScopeGlobal        = "global"
	ScopeDepartamental = "departamental"
	ScopeMunicipal     = "municipal"
)

// ValidScopes enumerates the accepted scope values.
var ValidScopes = []string{ScopeGlobal, ScopeDepartamental, ScopeMunicipal}

// Alert is a notification broadcast by a privileged user. Immutable after
// creation except for image attachment.
type Alert struct {
	common.BaseModel
	Scope          string     `gorm:"type:varchar(20);not null;index"`
	DepartmentID   *uuid.UUID `gorm:"type:uuid;index"`
	MunicipalityID *uuid.UUID `gorm:"type:uuid;index"`
	CategoryID     *uuid.UUID `gorm:"type:uuid;index"`
	Title          string     `gorm:"type:varchar(255);not null"`
	Message        string     `gorm:"type:text;not null"`
	CreatedByID    uuid.UUID  `gorm:"type:uuid;not null;index;constraint:OnDelete:CASCADE"`

	Category *AlertCategory `gorm:"foreignKey:CategoryID"`
	Images   []AlertImage   `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Alert model.
func (Alert) TableName() string {
	return "alerts"
}

// AlertCategory classifies alerts (pests, weather, prices, ...). Read-only
// reference data.
type AlertCategory struct {
	common.BaseModel
	Name        string  `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description *string `gorm:"type:text"`
}

// TableName specifies the table name for the AlertCategory model.
func (AlertCategory) TableName() string {
	return "alert_categories"
}

// AlertImage is a stored image attached to one alert.
type AlertImage struct {
	common.BaseModel
	AlertID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_alert_images_alert_position"`
	ObjectKey string    `gorm:"type:varchar(512);not null"`
	ImageURL  string    `gorm:"type:text;not null"`
	Position  int       `gorm:"not null;uniqueIndex:idx_alert_images_alert_position"`
}

// TableName specifies the table name for the AlertImage model.
func (AlertImage) TableName() string {
	return "alert_images"
}

// --- Inputs ---

// CreateAlertInput carries validated creation fields. Category may be
// given by id or by name; the service resolves either.
type CreateAlertInput struct {
	Scope          string
	DepartmentID   *uuid.UUID
	MunicipalityID *uuid.UUID
	CategoryID     *uuid.UUID
	CategoryName   string
	Title          string
	Message        string
}

// ListQuery filters the caller's visible alerts.
type ListQuery struct {
	Scope      string
	CategoryID *uuid.UUID
	Search     string
	Pagination common.PaginationQuery
}

// --- Responses ---

// AlertImageResponse is the API shape for an attached image.
type AlertImageResponse struct {
	ID       uuid.UUID `json:"id"`
	ImageURL string    `json:"image_url"`
	Order    int       `json:"order"`
}

// AlertResponse is the API shape for an alert.
type AlertResponse struct {
	ID             uuid.UUID            `json:"id"`
	Scope          string               `json:"scope"`
	DepartmentID   *uuid.UUID           `json:"department_id,omitempty"`
	MunicipalityID *uuid.UUID           `json:"municipality_id,omitempty"`
	CategoryID     *uuid.UUID           `json:"category_id,omitempty"`
	AlertTitle     string               `json:"alert_title"`
	Message        string               `json:"message"`
	CreatedByID    uuid.UUID            `json:"created_by_id"`
	CreatedAt      time.Time            `json:"created_at"`
	Images         []AlertImageResponse `json:"images"`
}

// AlertCategoryResponse is the API shape for an alert category.
type AlertCategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

// ToAlertResponse converts an Alert to its API shape.
func ToAlertResponse(a *Alert) AlertResponse {
	resp := AlertResponse{
		ID:             a.ID,
		Scope:          a.Scope,
		DepartmentID:   a.DepartmentID,
		MunicipalityID: a.MunicipalityID,
		CategoryID:     a.CategoryID,
		AlertTitle:     a.Title,
		Message:        a.Message,
		CreatedByID:    a.CreatedByID,
		CreatedAt:      a.CreatedAt,
		Images:         make([]AlertImageResponse, 0, len(a.Images)),
	}
	for i := range a.Images {
		img := &a.Images[i]
		resp.Images = append(resp.Images, AlertImageResponse{
			ID:       img.ID,
			ImageURL: img.ImageURL,
			Order:    img.Position,
		})
	}
	return resp
}

// ToAlertCategoryResponse converts an AlertCategory to its API shape.
func ToAlertCategoryResponse(ac *AlertCategory) AlertCategoryResponse {
	return AlertCategoryResponse{ID: ac.ID, Name: ac.Name, Description: ac.Description}
}
