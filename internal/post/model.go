// File: internal/post/model.go

// Package post implements the marketplace listing lifecycle: creation,
// moderation, owner self-service transitions, and the audience-scoped
// queries over the posts table.
package post

import (
	"time"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/image"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Post statuses. The machine is:
// pending_review -> {approved, rejected}; approved -> active;
// active -> {sold, paused, expired}; paused -> active.
// rejected, sold and expired are terminal for owner operations.
const (
	StatusPendingReview = "pending_review"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
	StatusActive        = "active"
	StatusSold          = "sold"
	StatusPaused        = "paused"
	StatusExpired       = "expired"
)

// Post visibilities. Unlisted posts resolve by direct link but never appear
// in the feed.
const (
	VisibilityPublic   = "public"
	VisibilityPrivate  = "private"
	VisibilityUnlisted = "unlisted"
)

// ValidStatuses enumerates every status accepted by moderation updates.
var ValidStatuses = []string{
	StatusPendingReview, StatusApproved, StatusRejected,
	StatusActive, StatusSold, StatusPaused, StatusExpired,
}

// ValidVisibilities enumerates the accepted visibility values.
var ValidVisibilities = []string{VisibilityPublic, VisibilityPrivate, VisibilityUnlisted}

// Post is a marketplace listing.
type Post struct {
	common.BaseModel
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index;constraint:OnDelete:CASCADE"`
	CategoryID     *uuid.UUID `gorm:"type:uuid;index;constraint:OnDelete:SET NULL"`
	MunicipalityID *uuid.UUID `gorm:"type:uuid;index"`

	Title   string `gorm:"type:varchar(255);not null"`
	Slug    string `gorm:"type:varchar(60);not null;uniqueIndex"`
	Content string `gorm:"type:text;not null"`

	Price    decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Quantity decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Unit     string          `gorm:"type:varchar(50);not null"`

	Status     string `gorm:"type:varchar(20);not null;default:'pending_review';index"`
	Visibility string `gorm:"type:varchar(20);not null;default:'public';index"`

	IsFeatured bool  `gorm:"not null;default:false"`
	ViewCount  int64 `gorm:"not null;default:0"`

	ExpiresAt   *time.Time `gorm:"index"`
	PublishedAt *time.Time `gorm:"index"`

	ReviewedByID *uuid.UUID `gorm:"type:uuid"`
	ReviewedAt   *time.Time
	ReviewNotes  *string `gorm:"type:text"`

	Images []PostImage `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Post model.
func (Post) TableName() string {
	return "posts"
}

// PostImage is a stored image attached to one post. (post, position) pairs
// are unique so clients control display order without ties.
type PostImage struct {
	common.BaseModel
	PostID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_post_images_post_position"`
	ObjectKey string    `gorm:"type:varchar(512);not null"`
	ImageURL  string    `gorm:"type:text;not null"`
	AltText   *string   `gorm:"type:varchar(255)"`
	Caption   *string   `gorm:"type:varchar(255)"`
	Position  int       `gorm:"not null;uniqueIndex:idx_post_images_post_position"`
}

// TableName specifies the table name for the PostImage model.
func (PostImage) TableName() string {
	return "post_images"
}

// --- Derived fields (never stored, always recomputed) ---

// IsAvailable reports whether the post is purchasable right now: public,
// active, and not past its expiry.
func (p *Post) IsAvailable(now time.Time) bool {
	if p.Visibility != VisibilityPublic || p.Status != StatusActive {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// TotalValue is price multiplied by quantity.
func (p *Post) TotalValue() decimal.Decimal {
	return p.Price.Mul(p.Quantity)
}

// IsSold reports whether the listing has been sold.
func (p *Post) IsSold() bool {
	return p.Status == StatusSold
}

// CanBeEditedBy reports whether the caller may mutate content fields.
func (p *Post) CanBeEditedBy(caller common.Caller) bool {
	return p.UserID == caller.UserID || caller.IsPrivileged()
}

// CanBeModeratedBy reports whether the caller may run moderation transitions.
func (p *Post) CanBeModeratedBy(caller common.Caller) bool {
	return caller.IsPrivileged()
}

// publiclyResolvable reports whether an anonymous caller may fetch the post
// by direct link. Unlisted posts resolve; private ones do not.
func (p *Post) publiclyResolvable(now time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	if p.Visibility != VisibilityPublic && p.Visibility != VisibilityUnlisted {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// --- Inputs ---

// CreatePostInput carries validated creation fields. Handlers build it from
// the multipart form after field-level validation.
type CreatePostInput struct {
	Title          string
	Content        string
	CategoryID     *uuid.UUID
	MunicipalityID *uuid.UUID
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	Unit           string
	Visibility     string
	ExpiresAt      *time.Time
}

// UpdatePostInput carries owner PATCH fields. Nil means unchanged.
type UpdatePostInput struct {
	Title          *string
	Content        *string
	CategoryID     *uuid.UUID
	MunicipalityID *uuid.UUID
	Price          *decimal.Decimal
	Quantity       *decimal.Decimal
	Unit           *string
	Visibility     *string
	ExpiresAt      *time.Time
}

// ModerationUpdateInput is the moderator's generic update. Any status
// change stamps the reviewer.
type ModerationUpdateInput struct {
	Status      *string
	Visibility  *string
	IsFeatured  *bool
	ReviewNotes *string
}

// FeedQuery is the filter set for the public feed.
type FeedQuery struct {
	// CategoryIDs is the already-expanded descendant set. Nil means no
	// category filter; an empty non-nil slice matches nothing.
	CategoryIDs    []uuid.UUID
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	MunicipalityID *uuid.UUID
	DepartmentID   *uuid.UUID
	Unit           string
	IsFeatured     *bool
	Search         string
	Ordering       string
	Pagination     common.PaginationQuery
}

// OwnerQuery filters the owner's own listings view.
type OwnerQuery struct {
	Status     string
	Visibility string
	CategoryID *uuid.UUID
	Pagination common.PaginationQuery
}

// ModerationQuery filters the moderator listing, which spans every owner,
// status and visibility.
type ModerationQuery struct {
	Status     string
	Visibility string
	Ordering   string
	Pagination common.PaginationQuery
}

// --- Responses ---

// PostImageResponse is the API shape for an attached image.
type PostImageResponse struct {
	ID       uuid.UUID `json:"id"`
	ImageURL string    `json:"image_url"`
	AltText  *string   `json:"alt_text,omitempty"`
	Caption  *string   `json:"caption,omitempty"`
	Order    int       `json:"order"`
}

// PostResponse is the API shape for a post. Owner- and moderator-facing
// views include moderation audit fields; the public view omits them.
type PostResponse struct {
	ID             uuid.UUID           `json:"id"`
	UserID         uuid.UUID           `json:"user_id"`
	CategoryID     *uuid.UUID          `json:"category_id,omitempty"`
	MunicipalityID *uuid.UUID          `json:"municipality_id,omitempty"`
	Title          string              `json:"title"`
	Slug           string              `json:"slug"`
	Content        string              `json:"content"`
	Price          decimal.Decimal     `json:"price"`
	Quantity       decimal.Decimal     `json:"quantity"`
	Unit           string              `json:"unit"`
	Status         string              `json:"status"`
	Visibility     string              `json:"visibility"`
	IsFeatured     bool                `json:"is_featured"`
	ViewCount      int64               `json:"view_count"`
	IsAvailable    bool                `json:"is_available"`
	IsSold         bool                `json:"is_sold"`
	TotalValue     decimal.Decimal     `json:"total_value"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty"`
	PublishedAt    *time.Time          `json:"published_at,omitempty"`
	ReviewedByID   *uuid.UUID          `json:"reviewed_by_id,omitempty"`
	ReviewedAt     *time.Time          `json:"reviewed_at,omitempty"`
	ReviewNotes    *string             `json:"review_notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Images         []PostImageResponse `json:"images"`
}

// CreatePostResponse pairs the created post with the per-file image report.
type CreatePostResponse struct {
	Post         PostResponse        `json:"post"`
	FailedImages []image.FailedImage `json:"failed_images,omitempty"`
}

// ToPostResponse converts a Post to its API shape. With audit set, the
// moderation fields are included.
func ToPostResponse(p *Post, audit bool) PostResponse {
	resp := PostResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		CategoryID:     p.CategoryID,
		MunicipalityID: p.MunicipalityID,
		Title:          p.Title,
		Slug:           p.Slug,
		Content:        p.Content,
		Price:          p.Price,
		Quantity:       p.Quantity,
		Unit:           p.Unit,
		Status:         p.Status,
		Visibility:     p.Visibility,
		IsFeatured:     p.IsFeatured,
		ViewCount:      p.ViewCount,
		IsAvailable:    p.IsAvailable(time.Now().UTC()),
		IsSold:         p.IsSold(),
		TotalValue:     p.TotalValue(),
		ExpiresAt:      p.ExpiresAt,
		PublishedAt:    p.PublishedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Images:         make([]PostImageResponse, 0, len(p.Images)),
	}
	if audit {
		resp.ReviewedByID = p.ReviewedByID
		resp.ReviewedAt = p.ReviewedAt
		resp.ReviewNotes = p.ReviewNotes
	}
	for i := range p.Images {
		img := &p.Images[i]
		resp.Images = append(resp.Images, PostImageResponse{
			ID:       img.ID,
			ImageURL: img.ImageURL,
			AltText:  img.AltText,
			Caption:  img.Caption,
			Order:    img.Position,
		})
	}
	return resp
}
