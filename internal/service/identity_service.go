package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"go.uber.org/zap"
)

// IdentityService resolves an authenticated user id into a Membership
type IdentityService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(repos *repository.Repositories, logger *zap.Logger) *IdentityService {
	return &IdentityService{repos: repos, logger: logger}
}

// Resolve loads the user's company role, active project roles and resolved
// subcontractor affiliations. Inactive users do not resolve.
func (s *IdentityService) Resolve(ctx context.Context, userID uuid.UUID) (*access.Membership, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if !user.IsActive {
		return nil, domain.NewNotFoundError("user")
	}

	projectUsers, err := s.repos.Members.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project memberships: %w", err)
	}

	links, err := s.repos.Members.SubcontractorLinks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subcontractor links: %w", err)
	}

	return access.BuildMembership(user, projectUsers, links), nil
}

// Me describes the caller
func (s *IdentityService) Me(ctx context.Context, m *access.Membership) (*domain.MeDTO, error) {
	if m == nil {
		return nil, domain.NewUnauthorizedError("authentication required")
	}
	user, err := s.repos.Users.GetByID(ctx, m.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	dto := mapper.ToMeDTO(user, m)
	return &dto, nil
}
