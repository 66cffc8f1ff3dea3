// File: internal/user/service.go
package user

import (
	"context"
	"time"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/platform/crypto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const apiTokenBytes = 32

// Service handles account and profile operations. It also implements
// shared.TokenVerifier for the auth middleware.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Verify resolves a bearer token to a caller. Satisfies shared.TokenVerifier.
func (s *Service) Verify(ctx context.Context, token string) (common.Caller, error) {
	u, err := s.repo.FindByTokenHash(ctx, crypto.HashToken(token))
	if err != nil {
		return common.Caller{}, err
	}
	return common.Caller{
		UserID:      u.ID,
		IsModerator: u.IsModerator(),
		IsStaff:     u.IsStaff(),
	}, nil
}

// Register creates an account and issues its first API token. Privileged
// roles can only be assigned by a staff caller; everyone else gets the
// requested producer or buyer role.
func (s *Service) Register(ctx context.Context, caller common.Caller, req CreateUserRequest) (*TokenResponse, error) {
	role := req.Role
	if role == "" {
		role = common.RoleProducer
	}
	if (role == common.RoleModerator || role == common.RoleStaff) && !caller.IsStaff {
		return nil, common.ErrForbidden.WithDetails("Only staff may create privileged accounts.")
	}

	u := &User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      role,
		IsActive:  true,
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", u.ID.String()),
		zap.String("role", u.Role))

	return &TokenResponse{Token: token, User: ToUserResponse(u)}, nil
}

// RotateToken invalidates the caller's current API token and issues a new one.
func (s *Service) RotateToken(ctx context.Context, userID uuid.UUID) (*TokenResponse, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, User: ToUserResponse(u)}, nil
}

func (s *Service) issueToken(u *User) (string, error) {
	token, err := crypto.GenerateAPIToken(apiTokenBytes)
	if err != nil {
		return "", err
	}
	hash := crypto.HashToken(token)
	u.APITokenHash = &hash
	return token, nil
}

// GetByID returns an account by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// Delete removes an account. The database cascades the delete to the
// user's profile, posts, alerts, and crops; that removal is a stated
// policy, not an accident of schema.
func (s *Service) Delete(ctx context.Context, caller common.Caller, id uuid.UUID) error {
	if caller.UserID != id && !caller.IsStaff {
		return common.ErrForbidden.WithDetails("You may only delete your own account.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", zap.String("user_id", id.String()))
	return nil
}

// GetProfile returns the profile for a user, materializing an empty one if
// none has been saved yet.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Code == common.ErrNotFound.Code {
			return &Profile{UserID: userID}, nil
		}
		return nil, err
	}
	return p, nil
}

// UpdateProfile applies a partial update to the caller's profile, creating
// the row on first write.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*Profile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.MunicipalityID != nil {
		p.MunicipalityID = req.MunicipalityID
	}
	if req.Organization != nil {
		p.Organization = req.Organization
	}
	if req.Address != nil {
		p.Address = req.Address
	}
	if req.Bio != nil {
		p.Bio = req.Bio
	}
	if req.PhotoURL != nil {
		p.PhotoURL = req.PhotoURL
	}

	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
