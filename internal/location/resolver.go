// File: internal/location/resolver.go
package location

import (
	"context"

	"github.com/google/uuid"
)

// Resolver maps callers to their home region. The alert module depends on
// this interface rather than on profile storage.
type Resolver interface {
	ResolveRegion(ctx context.Context, userID uuid.UUID) (*Region, error)
}

type repoResolver struct {
	repo Repository
}

// NewResolver creates a Resolver backed by the location repository.
func NewResolver(repo Repository) Resolver {
	return &repoResolver{repo: repo}
}

func (r *repoResolver) ResolveRegion(ctx context.Context, userID uuid.UUID) (*Region, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	return r.repo.FindRegionByUserID(ctx, userID)
}
