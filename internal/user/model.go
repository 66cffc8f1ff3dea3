// File: internal/user/model.go
package user

import (
	"time"

	"agromarket_backend/internal/common"

	"github.com/google/uuid"
)

// User represents an account in the marketplace. Authentication issues an
// opaque API token whose hash is stored here; the middleware resolves it
// back to a caller on every request.
type User struct {
	common.BaseModel
	Email        string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName    *string `gorm:"type:varchar(100)"`
	LastName     *string `gorm:"type:varchar(100)"`
	Phone        *string `gorm:"type:varchar(30)"`
	Role         string  `gorm:"type:varchar(50);not null;default:'producer'"`
	IsActive     bool    `gorm:"not null;default:true"`
	APITokenHash *string `gorm:"type:varchar(64);uniqueIndex"`
	LastLoginAt  *time.Time

	Profile *Profile `gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsModerator reports whether the user holds the moderator role.
func (u *User) IsModerator() bool {
	return u.Role == common.RoleModerator
}

// IsStaff reports whether the user holds the staff role.
func (u *User) IsStaff() bool {
	return u.Role == common.RoleStaff
}

// Profile carries the public-facing producer details and the user's home
// municipality, which drives regional alert scoping.
type Profile struct {
	common.BaseModel
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	MunicipalityID *uuid.UUID `gorm:"type:uuid;index"`
	Organization   *string    `gorm:"type:varchar(255)"`
	Address        *string    `gorm:"type:varchar(255)"`
	Bio            *string    `gorm:"type:text"`
	PhotoURL       *string    `gorm:"type:text"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// --- DTOs ---

// CreateUserRequest defines the payload for registering a user account.
type CreateUserRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	FirstName *string `json:"first_name,omitempty" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" binding:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" binding:"omitempty,max=30"`
	Role      string  `json:"role,omitempty" binding:"omitempty,oneof=producer buyer moderator staff"`
}

// UpdateProfileRequest defines the payload for updating the caller's profile.
// Pointer fields distinguish "leave unchanged" from "clear".
type UpdateProfileRequest struct {
	MunicipalityID *uuid.UUID `json:"municipality_id,omitempty"`
	Organization   *string    `json:"organization,omitempty" binding:"omitempty,max=255"`
	Address        *string    `json:"address,omitempty" binding:"omitempty,max=255"`
	Bio            *string    `json:"bio,omitempty" binding:"omitempty,max=2000"`
	PhotoURL       *string    `json:"photo_url,omitempty" binding:"omitempty,max=2048,url"`
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   *string    `json:"first_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ProfileResponse defines the structure for profile data in API responses.
type ProfileResponse struct {
	UserID         uuid.UUID  `json:"user_id"`
	MunicipalityID *uuid.UUID `json:"municipality_id,omitempty"`
	Organization   *string    `json:"organization,omitempty"`
	Address        *string    `json:"address,omitempty"`
	Bio            *string    `json:"bio,omitempty"`
	PhotoURL       *string    `json:"photo_url,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TokenResponse carries a freshly issued API token. The raw token is shown
// once; only its hash is persisted.
type TokenResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// ToProfileResponse converts a Profile model to a ProfileResponse DTO.
func ToProfileResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		UserID:         p.UserID,
		MunicipalityID: p.MunicipalityID,
		Organization:   p.Organization,
		Address:        p.Address,
		Bio:            p.Bio,
		PhotoURL:       p.PhotoURL,
		UpdatedAt:      p.UpdatedAt,
	}
}
