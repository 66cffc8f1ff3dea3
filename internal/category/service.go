// File: internal/category/service.go
package category

import (
	"context"
	"encoding/json"
	"errors"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/config"
	"agromarket_backend/internal/platform/cache"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const treeCacheKey = "agromarket:categories:tree"

// Service handles category management and descendant expansion.
type Service struct {
	repo   Repository
	cache  *cache.Cache
	cfg    *config.Config
	logger *zap.Logger
}

// NewService creates a new category service.
func NewService(repo Repository, cacheClient *cache.Cache, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{repo: repo, cache: cacheClient, cfg: cfg, logger: logger}
}

// List returns the category tree. Public callers see active nodes only.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Category, error) {
	return s.repo.FindAll(ctx, !includeInactive)
}

// GetByID returns a category with its immediate children.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.FindByID(ctx, id, true)
}

// GetBySlug returns a category with its immediate children.
func (s *Service) GetBySlug(ctx context.Context, catSlug string) (*Category, error) {
	return s.repo.FindBySlug(ctx, catSlug, true)
}

// DescendantIDs expands a category to itself plus every active descendant.
// An unknown or inactive root yields an empty set, which downstream filters
// translate to zero rows rather than an error. Inactive nodes prune their
// whole subtree.
func (s *Service) DescendantIDs(ctx context.Context, rootID uuid.UUID) ([]uuid.UUID, error) {
	nodes, err := s.loadNodes(ctx)
	if err != nil {
		return nil, err
	}

	active := make(map[uuid.UUID]bool, len(nodes))
	children := make(map[uuid.UUID][]uuid.UUID, len(nodes))
	for _, n := range nodes {
		active[n.ID] = n.IsActive
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n.ID)
		}
	}

	if !active[rootID] {
		return []uuid.UUID{}, nil
	}

	var result []uuid.UUID
	stack := []uuid.UUID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, id)
		for _, child := range children[id] {
			if active[child] {
				stack = append(stack, child)
			}
		}
	}
	return result, nil
}

func (s *Service) loadNodes(ctx context.Context) ([]Node, error) {
	if cached, err := s.cache.Get(ctx, treeCacheKey); err == nil {
		var nodes []Node
		if err := json.Unmarshal([]byte(cached), &nodes); err == nil {
			return nodes, nil
		}
		// A corrupt entry falls through to the database and gets rewritten.
	} else if !errors.Is(err, cache.ErrCacheDisabled) && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Category tree cache read failed", zap.Error(err))
	}

	nodes, err := s.repo.FindAllNodes(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(nodes); err == nil {
		if err := s.cache.Set(ctx, treeCacheKey, payload, s.cfg.CategoryCacheTTL); err != nil &&
			!errors.Is(err, cache.ErrCacheDisabled) {
			s.logger.Warn("Category tree cache write failed", zap.Error(err))
		}
	}
	return nodes, nil
}

func (s *Service) invalidateTree(ctx context.Context) {
	if err := s.cache.Delete(ctx, treeCacheKey); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Category tree cache invalidation failed", zap.Error(err))
	}
}

// Create adds a category under an optional parent.
func (s *Service) Create(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	if req.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *req.ParentID, false); err != nil {
			return nil, common.NewFieldValidationError("parent_id", "Parent category does not exist.")
		}
	}

	cat := &Category{
		Name:        req.Name,
		Slug:        slug.Make(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return cat, nil
}

// Update applies a partial update to a category.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*Category, error) {
	cat, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, common.NewFieldValidationError("parent_id", "A category cannot be its own parent.")
		}
		if _, err := s.repo.FindByID(ctx, *req.ParentID, false); err != nil {
			return nil, common.NewFieldValidationError("parent_id", "Parent category does not exist.")
		}
		cat.ParentID = req.ParentID
	}
	if req.Name != nil {
		cat.Name = *req.Name
		cat.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		cat.Description = req.Description
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return cat, nil
}

// Delete removes a category that has no posts and no children.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateTree(ctx)
	return nil
}
