// File: internal/post/service.go
package post

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/config"
	"agromarket_backend/internal/image"
	"agromarket_backend/internal/platform/crypto"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	slugTitleMaxLen = 45
	slugSuffixBytes = 4
	slugMaxAttempts = 5
	imageKeyPrefix  = "posts"
)

// CategoryExpander expands a category to itself plus its active
// descendants. Satisfied by category.Service.
type CategoryExpander interface {
	DescendantIDs(ctx context.Context, rootID uuid.UUID) ([]uuid.UUID, error)
}

// Service implements the post lifecycle engine.
type Service struct {
	repo       Repository
	categories CategoryExpander
	images     image.Service
	cfg        *config.Config
	logger     *zap.Logger
}

// NewService creates a new post service.
func NewService(repo Repository, categories CategoryExpander, images image.Service, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{repo: repo, categories: categories, images: images, cfg: cfg, logger: logger}
}

// --- Creation ---

// Create validates input, generates a unique slug, applies the expiry
// floor, uploads the image batch and persists everything in one
// transaction. A privileged creator's post goes live immediately.
func (s *Service) Create(ctx context.Context, caller common.Caller, input CreatePostInput, files []image.FileInput) (*Post, *image.UploadResult, error) {
	if details := validateCreateInput(&input); len(details) > 0 {
		return nil, nil, common.NewValidationAPIError(details)
	}

	now := time.Now().UTC()
	p := &Post{
		UserID:         caller.UserID,
		CategoryID:     input.CategoryID,
		MunicipalityID: input.MunicipalityID,
		Title:          input.Title,
		Content:        input.Content,
		Price:          input.Price,
		Quantity:       input.Quantity,
		Unit:           input.Unit,
		Visibility:     input.Visibility,
		ExpiresAt:      s.applyExpiryFloor(input.ExpiresAt, now),
	}
	p.ID = uuid.New()

	postSlug, err := s.generateSlug(ctx, input.Title)
	if err != nil {
		return nil, nil, err
	}
	p.Slug = postSlug

	if caller.IsPrivileged() {
		p.Status = StatusActive
		p.PublishedAt = &now
	} else {
		p.Status = StatusPendingReview
	}

	var (
		uploadResult *image.UploadResult
		imageRows    []PostImage
	)
	if len(files) > 0 {
		uploadResult, err = s.images.UploadBatch(ctx, fmt.Sprintf("%s/%s", imageKeyPrefix, p.ID), s.cfg.MaxImagesPerPost, files)
		if err != nil {
			return nil, nil, err
		}
		if len(uploadResult.Succeeded) == 0 {
			// A requested batch that produced nothing aborts the whole
			// creation; no orphan post may exist.
			reasons := make([]string, 0, len(uploadResult.Failed))
			for _, f := range uploadResult.Failed {
				reasons = append(reasons, fmt.Sprintf("%s: %s", f.Filename, f.Reason))
			}
			return nil, uploadResult, common.NewFieldValidationError("images",
				"No image in the batch could be stored. "+strings.Join(reasons, "; "))
		}
		for i, stored := range uploadResult.Succeeded {
			imageRows = append(imageRows, PostImage{
				PostID:    p.ID,
				ObjectKey: stored.Key,
				ImageURL:  stored.URL,
				Position:  i,
			})
		}
	}

	if err := s.repo.Create(ctx, p, imageRows); err != nil {
		s.compensateUploads(ctx, uploadResult)
		return nil, uploadResult, err
	}

	s.logger.Info("Post created",
		zap.String("post_id", p.ID.String()),
		zap.String("status", p.Status),
		zap.Int("images", len(imageRows)))
	return p, uploadResult, nil
}

func validateCreateInput(input *CreatePostInput) map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "Title is required."
	} else if len(input.Title) > 255 {
		details["title"] = "Title must be at most 255 characters."
	}
	if strings.TrimSpace(input.Content) == "" {
		details["content"] = "Content is required."
	}
	if input.Price.IsNegative() {
		details["price"] = "Price must not be negative."
	}
	if input.Quantity.IsNegative() {
		details["quantity"] = "Quantity must not be negative."
	}
	if strings.TrimSpace(input.Unit) == "" {
		details["unit"] = "Unit of measure is required."
	}
	if input.Visibility == "" {
		input.Visibility = VisibilityPublic
	} else if !isValidVisibility(input.Visibility) {
		details["visibility"] = "Visibility must be one of public, private, unlisted."
	}
	return details
}

func isValidVisibility(v string) bool {
	for _, valid := range ValidVisibilities {
		if v == valid {
			return true
		}
	}
	return false
}

func isValidStatus(v string) bool {
	for _, valid := range ValidStatuses {
		if v == valid {
			return true
		}
	}
	return false
}

// applyExpiryFloor silently raises an expiry earlier than the configured
// floor; it never rejects.
func (s *Service) applyExpiryFloor(expiresAt *time.Time, now time.Time) *time.Time {
	if expiresAt == nil {
		return nil
	}
	floor := now.AddDate(0, 0, s.cfg.MinExpiryDays)
	if expiresAt.Before(floor) {
		return &floor
	}
	return expiresAt
}

// generateSlug derives a slug from the title and retries with fresh random
// suffixes on collision.
func (s *Service) generateSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if len(base) > slugTitleMaxLen {
		base = base[:slugTitleMaxLen]
	}
	base = strings.Trim(base, "-")

	for attempt := 0; attempt < slugMaxAttempts; attempt++ {
		suffix, err := crypto.GenerateSlugSuffix(slugSuffixBytes)
		if err != nil {
			return "", err
		}
		candidate := base + "-" + suffix
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", common.ErrConflict.WithDetails("Could not generate a unique slug for this title.")
}

func (s *Service) compensateUploads(ctx context.Context, result *image.UploadResult) {
	if result == nil || len(result.Succeeded) == 0 {
		return
	}
	keys := make([]string, 0, len(result.Succeeded))
	for _, stored := range result.Succeeded {
		keys = append(keys, stored.Key)
	}
	_ = s.images.DeleteObjects(ctx, keys)
}

// --- Reads ---

// Get resolves a post by id or slug for the given caller. Anonymous and
// third-party callers only resolve live public or unlisted posts; anything
// else reads as not found so the resource's existence does not leak. A
// public view by a non-owner bumps the view counter atomically.
func (s *Service) Get(ctx context.Context, caller common.Caller, idOrSlug string) (*Post, error) {
	var (
		p   *Post
		err error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		p, err = s.repo.FindByID(ctx, id)
	} else {
		p, err = s.repo.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	isOwner := caller.UserID != uuid.Nil && caller.UserID == p.UserID
	if p.publiclyResolvable(now) {
		if !isOwner {
			if err := s.repo.IncrementViewCount(ctx, p.ID); err != nil {
				s.logger.Warn("View count increment failed",
					zap.String("post_id", p.ID.String()), zap.Error(err))
			} else {
				p.ViewCount++
			}
		}
		return p, nil
	}

	if isOwner || caller.IsPrivileged() {
		return p, nil
	}
	return nil, common.ErrNotFound.WithDetails("Post not found.")
}

// Feed runs the public feed query, expanding a category filter to its
// active descendant set first.
func (s *Service) Feed(ctx context.Context, q FeedQuery, categoryID *uuid.UUID) ([]Post, int64, error) {
	if categoryID != nil {
		ids, err := s.categories.DescendantIDs(ctx, *categoryID)
		if err != nil {
			return nil, 0, err
		}
		// A non-nil empty set matches zero rows, never "ignore filter".
		q.CategoryIDs = ids
	}
	return s.repo.SearchFeed(ctx, q)
}

// ListOwn lists the caller's own posts across all statuses and
// visibilities.
func (s *Service) ListOwn(ctx context.Context, callerID uuid.UUID, q OwnerQuery) ([]Post, int64, error) {
	return s.repo.FindByOwner(ctx, callerID, q)
}

// ModerationQueue lists pending posts oldest-first. Privilege is enforced
// at the route gate.
func (s *Service) ModerationQueue(ctx context.Context, p common.PaginationQuery) ([]Post, int64, error) {
	return s.repo.FindPendingReview(ctx, p)
}

// ModerationList lists every post unrestricted by owner or visibility,
// with optional status and visibility filters.
func (s *Service) ModerationList(ctx context.Context, q ModerationQuery) ([]Post, int64, error) {
	if q.Status != "" && !isValidStatus(q.Status) {
		return nil, 0, common.NewFieldValidationError("status",
			fmt.Sprintf("Must be one of: %s.", strings.Join(ValidStatuses, ", ")))
	}
	if q.Visibility != "" && !isValidVisibility(q.Visibility) {
		return nil, 0, common.NewFieldValidationError("visibility",
			fmt.Sprintf("Must be one of: %s.", strings.Join(ValidVisibilities, ", ")))
	}
	return s.repo.FindAllForModeration(ctx, q)
}

// --- Owner mutations ---

// loadOwned fetches a post for mutation by its owner. Non-owners without
// privilege get not-found.
func (s *Service) loadOwned(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanBeEditedBy(caller) {
		return nil, common.ErrNotFound.WithDetails("Post not found.")
	}
	return p, nil
}

// Update applies owner PATCH semantics to content fields. Slug and status
// are immutable here.
func (s *Service) Update(ctx context.Context, caller common.Caller, id uuid.UUID, input UpdatePostInput) (*Post, error) {
	p, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	details := map[string]string{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			details["title"] = "Title must not be empty."
		} else {
			p.Title = *input.Title
		}
	}
	if input.Content != nil {
		if strings.TrimSpace(*input.Content) == "" {
			details["content"] = "Content must not be empty."
		} else {
			p.Content = *input.Content
		}
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			details["price"] = "Price must not be negative."
		} else {
			p.Price = *input.Price
		}
	}
	if input.Quantity != nil {
		if input.Quantity.IsNegative() {
			details["quantity"] = "Quantity must not be negative."
		} else {
			p.Quantity = *input.Quantity
		}
	}
	if input.Unit != nil {
		if strings.TrimSpace(*input.Unit) == "" {
			details["unit"] = "Unit must not be empty."
		} else {
			p.Unit = *input.Unit
		}
	}
	if input.Visibility != nil {
		if !isValidVisibility(*input.Visibility) {
			details["visibility"] = "Visibility must be one of public, private, unlisted."
		} else {
			p.Visibility = *input.Visibility
		}
	}
	if len(details) > 0 {
		return nil, common.NewValidationAPIError(details)
	}

	if input.CategoryID != nil {
		p.CategoryID = input.CategoryID
	}
	if input.MunicipalityID != nil {
		p.MunicipalityID = input.MunicipalityID
	}
	if input.ExpiresAt != nil {
		p.ExpiresAt = s.applyExpiryFloor(input.ExpiresAt, time.Now().UTC())
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleVisibility flips public and private. An unlisted post becomes
// public.
func (s *Service) ToggleVisibility(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error) {
	p, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if p.Visibility == VisibilityPublic {
		p.Visibility = VisibilityPrivate
	} else {
		p.Visibility = VisibilityPublic
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// MarkSold transitions active -> sold under a compare-and-swap guard.
func (s *Service) MarkSold(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error) {
	return s.casTransition(ctx, caller, id, "mark_as_sold",
		[]string{StatusActive},
		map[string]interface{}{"status": StatusSold})
}

// Pause transitions active -> paused.
func (s *Service) Pause(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error) {
	return s.casTransition(ctx, caller, id, "pause_listing",
		[]string{StatusActive},
		map[string]interface{}{"status": StatusPaused})
}

// Unpause transitions paused -> active. published_at was stamped on the
// first activation and is left untouched.
func (s *Service) Unpause(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error) {
	return s.casTransition(ctx, caller, id, "unpause_listing",
		[]string{StatusPaused},
		map[string]interface{}{"status": StatusActive})
}

// Archive is the owner's soft delete: visibility is forced to private, the
// status is untouched and the row persists.
func (s *Service) Archive(ctx context.Context, caller common.Caller, id uuid.UUID) error {
	p, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}
	p.Visibility = VisibilityPrivate
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.logger.Info("Post archived", zap.String("post_id", p.ID.String()))
	return nil
}

// casTransition runs an ownership-checked compare-and-swap status change.
// Zero affected rows means a racing transition or wrong state; the current
// row is re-read so the error names the actual status.
func (s *Service) casTransition(ctx context.Context, caller common.Caller, id uuid.UUID, op string, from []string, updates map[string]interface{}) (*Post, error) {
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return nil, err
	}

	updates["updated_at"] = time.Now().UTC()
	rows, err := s.repo.UpdateStatusCAS(ctx, id, from, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, common.NewInvalidStateError(op, current.Status)
	}
	return s.repo.FindByID(ctx, id)
}

// --- Moderation ---

// Approve transitions pending_review -> approved and stamps the reviewer.
func (s *Service) Approve(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error) {
	now := time.Now().UTC()
	return s.moderationCAS(ctx, id, "approve",
		[]string{StatusPendingReview},
		map[string]interface{}{
			"status":         StatusApproved,
			"reviewed_by_id": caller.UserID,
			"reviewed_at":    now,
			"updated_at":     now,
		})
}

// Reject transitions pending_review -> rejected, storing the notes
// verbatim.
func (s *Service) Reject(ctx context.Context, caller common.Caller, id uuid.UUID, notes string) (*Post, error) {
	now := time.Now().UTC()
	return s.moderationCAS(ctx, id, "reject",
		[]string{StatusPendingReview},
		map[string]interface{}{
			"status":         StatusRejected,
			"review_notes":   notes,
			"reviewed_by_id": caller.UserID,
			"reviewed_at":    now,
			"updated_at":     now,
		})
}

// Activate transitions approved -> active. published_at is stamped exactly
// once, on the first activation; COALESCE keeps later writes from touching
// it.
func (s *Service) Activate(ctx context.Context, caller common.Caller, id uuid.UUID) (*Post, error) {
	now := time.Now().UTC()
	return s.moderationCAS(ctx, id, "activate",
		[]string{StatusApproved},
		map[string]interface{}{
			"status":       StatusActive,
			"published_at": gorm.Expr("COALESCE(published_at, ?)", now),
			"updated_at":   now,
		})
}

func (s *Service) moderationCAS(ctx context.Context, id uuid.UUID, op string, from []string, updates map[string]interface{}) (*Post, error) {
	rows, err := s.repo.UpdateStatusCAS(ctx, id, from, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, common.NewInvalidStateError(op, current.Status)
	}
	return s.repo.FindByID(ctx, id)
}

// ModerationUpdate is the generic moderator write over status, visibility,
// featured flag and notes. Any status change stamps the reviewer; the
// first transition into active stamps published_at. Concurrent moderator
// writes resolve last-write-wins.
func (s *Service) ModerationUpdate(ctx context.Context, caller common.Caller, id uuid.UUID, input ModerationUpdateInput) (*Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := map[string]string{}
	if input.Status != nil && !isValidStatus(*input.Status) {
		details["status"] = "Unknown status value."
	}
	if input.Visibility != nil && !isValidVisibility(*input.Visibility) {
		details["visibility"] = "Visibility must be one of public, private, unlisted."
	}
	if len(details) > 0 {
		return nil, common.NewValidationAPIError(details)
	}

	now := time.Now().UTC()
	if input.Status != nil && *input.Status != p.Status {
		p.Status = *input.Status
		p.ReviewedByID = &caller.UserID
		p.ReviewedAt = &now
		if p.Status == StatusActive && p.PublishedAt == nil {
			p.PublishedAt = &now
		}
	}
	if input.Visibility != nil {
		p.Visibility = *input.Visibility
	}
	if input.IsFeatured != nil {
		p.IsFeatured = *input.IsFeatured
	}
	if input.ReviewNotes != nil {
		p.ReviewNotes = input.ReviewNotes
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// --- Images ---

// AttachImages uploads and attaches additional images to an existing post.
// The count limit covers existing plus new; explicit positions that clash,
// in the request or with stored rows, fail with a field error.
func (s *Service) AttachImages(ctx context.Context, caller common.Caller, id uuid.UUID, files []image.FileInput, positions []int) (*Post, *image.UploadResult, error) {
	p, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, common.NewFieldValidationError("images", "At least one file is required.")
	}
	if len(positions) > 0 && len(positions) != len(files) {
		return nil, nil, common.NewFieldValidationError("order", "When supplied, one order value per file is required.")
	}
	if dup := firstDuplicate(positions); dup != nil {
		return nil, nil, common.NewFieldValidationError("order",
			fmt.Sprintf("Duplicate image order %d in request.", *dup))
	}

	existing, err := s.repo.CountImages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if int(existing)+len(files) > s.cfg.MaxImagesPerPost {
		return nil, nil, common.NewFieldValidationError("images",
			fmt.Sprintf("A post may carry at most %d images.", s.cfg.MaxImagesPerPost))
	}

	result, err := s.images.UploadBatch(ctx, fmt.Sprintf("%s/%s", imageKeyPrefix, p.ID), s.cfg.MaxImagesPerPost, files)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Succeeded) == 0 {
		return nil, result, common.NewFieldValidationError("images", "No image in the batch could be stored.")
	}

	nextPos, err := s.repo.MaxImagePosition(ctx, id)
	if err != nil {
		s.compensateUploads(ctx, result)
		return nil, result, err
	}

	rows := make([]PostImage, 0, len(result.Succeeded))
	for i, stored := range result.Succeeded {
		pos := nextPos + 1 + i
		if len(positions) > 0 {
			pos = positions[i]
		}
		rows = append(rows, PostImage{
			PostID:    p.ID,
			ObjectKey: stored.Key,
			ImageURL:  stored.URL,
			Position:  pos,
		})
	}
	if err := s.repo.AddImages(ctx, rows); err != nil {
		s.compensateUploads(ctx, result)
		return nil, result, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	return updated, result, err
}

// RemoveImage detaches a stored image and deletes its object.
func (s *Service) RemoveImage(ctx context.Context, caller common.Caller, id, imageID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return err
	}
	img, err := s.repo.FindImage(ctx, id, imageID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteImage(ctx, id, imageID); err != nil {
		return err
	}
	return s.images.DeleteObjects(ctx, []string{img.ObjectKey})
}

func firstDuplicate(positions []int) *int {
	seen := make(map[int]bool, len(positions))
	for _, pos := range positions {
		if seen[pos] {
			p := pos
			return &p
		}
		seen[pos] = true
	}
	return nil
}

// --- Jobs ---

// ExpireOverdue flips overdue active posts to expired. Called by the cron
// sweep; feed reads stay correct without it.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Expired overdue posts", zap.Int64("count", n))
	}
	return n, nil
}

// --- Price parsing ---

// ParsePriceParam validates a decimal query parameter. Invalid or negative
// values produce a field-scoped error, never a panic or a silent skip.
func ParsePriceParam(field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, common.NewFieldValidationError(field, "Must be a valid decimal number.")
	}
	if d.IsNegative() {
		return nil, common.NewFieldValidationError(field, "Must not be negative.")
	}
	return &d, nil
}
