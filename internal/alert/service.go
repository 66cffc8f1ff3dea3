// File: internal/alert/service.go
package alert

import (
	"context"
	"fmt"
	"strings"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/config"
	"agromarket_backend/internal/image"
	"agromarket_backend/internal/location"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const imageKeyPrefix = "alerts"

// Service implements the alert scoping engine.
type Service struct {
	repo     Repository
	resolver location.Resolver
	images   image.Service
	cfg      *config.Config
	logger   *zap.Logger
}

// NewService creates a new alert service.
func NewService(repo Repository, resolver location.Resolver, images image.Service, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, images: images, cfg: cfg, logger: logger}
}

// Create validates the scope and region pairing, resolves the category,
// uploads the image batch and persists the alert. The route gate restricts
// this to moderators and staff.
func (s *Service) Create(ctx context.Context, caller common.Caller, input CreateAlertInput, files []image.FileInput) (*Alert, *image.UploadResult, error) {
	details := map[string]string{}
	if strings.TrimSpace(input.Title) == "" {
		details["alert_title"] = "Title is required."
	}
	if strings.TrimSpace(input.Message) == "" {
		details["message"] = "Message is required."
	}
	switch input.Scope {
	case ScopeGlobal:
		// Region references are ignored for global alerts.
		input.DepartmentID = nil
		input.MunicipalityID = nil
	case ScopeDepartamental:
		if input.DepartmentID == nil {
			details["department_id"] = "A departamental alert requires a department."
		}
	case ScopeMunicipal:
		if input.MunicipalityID == nil {
			details["municipality_id"] = "A municipal alert requires a municipality."
		}
	default:
		details["scope"] = "Scope must be one of global, departamental, municipal."
	}

	categoryID, catErr := s.resolveCategory(ctx, input)
	if catErr != "" {
		details["category"] = catErr
	}
	if len(details) > 0 {
		return nil, nil, common.NewValidationAPIError(details)
	}

	a := &Alert{
		Scope:          input.Scope,
		DepartmentID:   input.DepartmentID,
		MunicipalityID: input.MunicipalityID,
		CategoryID:     categoryID,
		Title:          input.Title,
		Message:        input.Message,
		CreatedByID:    caller.UserID,
	}
	a.ID = uuid.New()

	var (
		uploadResult *image.UploadResult
		imageRows    []AlertImage
		err          error
	)
	if len(files) > 0 {
		uploadResult, err = s.images.UploadBatch(ctx, fmt.Sprintf("%s/%s", imageKeyPrefix, a.ID), s.cfg.MaxImagesPerAlert, files)
		if err != nil {
			return nil, nil, err
		}
		if len(uploadResult.Succeeded) == 0 {
			return nil, uploadResult, common.NewFieldValidationError("images", "No image in the batch could be stored.")
		}
		for i, stored := range uploadResult.Succeeded {
			imageRows = append(imageRows, AlertImage{
				AlertID:   a.ID,
				ObjectKey: stored.Key,
				ImageURL:  stored.URL,
				Position:  i,
			})
		}
	}

	if err := s.repo.Create(ctx, a, imageRows); err != nil {
		s.compensateUploads(ctx, uploadResult)
		return nil, uploadResult, err
	}

	s.logger.Info("Alert created",
		zap.String("alert_id", a.ID.String()),
		zap.String("scope", a.Scope))
	return a, uploadResult, nil
}

// resolveCategory resolves a category by id or name. An unresolved lookup
// is a validation error naming the value, not a silent nil.
func (s *Service) resolveCategory(ctx context.Context, input CreateAlertInput) (*uuid.UUID, string) {
	if input.CategoryID != nil {
		ac, err := s.repo.FindCategoryByID(ctx, *input.CategoryID)
		if err != nil {
			return nil, fmt.Sprintf("Alert category %s does not exist.", input.CategoryID)
		}
		return &ac.ID, ""
	}
	if input.CategoryName != "" {
		ac, err := s.repo.FindCategoryByName(ctx, input.CategoryName)
		if err != nil {
			return nil, fmt.Sprintf("Alert category %q does not exist.", input.CategoryName)
		}
		return &ac.ID, ""
	}
	return nil, ""
}

// List returns the alerts visible to the caller: global ones plus regional
// ones matching the caller's resolved region.
func (s *Service) List(ctx context.Context, caller common.Caller, q ListQuery) ([]Alert, int64, error) {
	if q.Scope != "" && !isValidScope(q.Scope) {
		return nil, 0, common.NewFieldValidationError("scope", "Scope must be one of global, departamental, municipal.")
	}
	region, err := s.resolver.ResolveRegion(ctx, caller.UserID)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListVisible(ctx, region, q)
}

// Get returns one alert if the caller may see it, applying the same scope
// predicate as the list. Creators and privileged callers always resolve
// their alerts.
func (s *Service) Get(ctx context.Context, caller common.Caller, id uuid.UUID) (*Alert, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CreatedByID == caller.UserID || caller.IsPrivileged() || a.Scope == ScopeGlobal {
		return a, nil
	}

	region, err := s.resolver.ResolveRegion(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if region != nil {
		if a.Scope == ScopeDepartamental && a.DepartmentID != nil && *a.DepartmentID == region.DepartmentID {
			return a, nil
		}
		if a.Scope == ScopeMunicipal && a.MunicipalityID != nil && *a.MunicipalityID == region.MunicipalityID {
			return a, nil
		}
	}
	return nil, common.ErrNotFound.WithDetails("Alert not found.")
}

// AttachImages adds images to an existing alert. Alerts are otherwise
// immutable after creation.
func (s *Service) AttachImages(ctx context.Context, caller common.Caller, id uuid.UUID, files []image.FileInput) (*Alert, *image.UploadResult, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if a.CreatedByID != caller.UserID && !caller.IsStaff {
		return nil, nil, common.ErrNotFound.WithDetails("Alert not found.")
	}
	if len(files) == 0 {
		return nil, nil, common.NewFieldValidationError("images", "At least one file is required.")
	}

	existing, err := s.repo.CountImages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if int(existing)+len(files) > s.cfg.MaxImagesPerAlert {
		return nil, nil, common.NewFieldValidationError("images",
			fmt.Sprintf("An alert may carry at most %d images.", s.cfg.MaxImagesPerAlert))
	}

	result, err := s.images.UploadBatch(ctx, fmt.Sprintf("%s/%s", imageKeyPrefix, a.ID), s.cfg.MaxImagesPerAlert, files)
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
	rows := make([]AlertImage, 0, len(result.Succeeded))
	for i, stored := range result.Succeeded {
		rows = append(rows, AlertImage{
			AlertID:   a.ID,
			ObjectKey: stored.Key,
			ImageURL:  stored.URL,
			Position:  nextPos + 1 + i,
		})
	}
	if err := s.repo.AddImages(ctx, rows); err != nil {
		s.compensateUploads(ctx, result)
		return nil, result, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	return updated, result, err
}

// ListCategories returns alert categories with optional search.
func (s *Service) ListCategories(ctx context.Context, search string) ([]AlertCategory, error) {
	return s.repo.ListCategories(ctx, search)
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

func isValidScope(scope string) bool {
	for _, valid := range ValidScopes {
		if scope == valid {
			return true
		}
	}
	return false
}
