package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectService administers projects, their members and subcontractor companies
type ProjectService struct {
	orch   *Orchestrator
	guard  *Guard
	logger *zap.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(orch *Orchestrator, guard *Guard, logger *zap.Logger) *ProjectService {
	return &ProjectService{orch: orch, guard: guard, logger: logger}
}

// Create creates a project in the caller's company. Only company owners and admins may.
func (s *ProjectService) Create(ctx context.Context, m *access.Membership, req *domain.CreateProjectRequest) (*domain.ProjectDTO, error) {
	if m == nil {
		return nil, domain.NewUnauthorizedError("authentication required")
	}
	if !m.CompanyRole.IsCompanyAdmin() {
		return nil, domain.NewForbiddenError(domain.CodeInsufficientRole, "only company owners and admins may create projects")
	}

	project := &domain.Project{
		CompanyID:     m.CompanyID,
		Name:          req.Name,
		ProjectNumber: req.ProjectNumber,
		Status:        req.Status,
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusActive
	}

	err := s.orch.Run(ctx, m.UserID, func(tx *TxContext) error {
		if err := tx.Repos.Projects.Create(tx.Ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		tx.Audit(project.ID, domain.AuditActionCreate, domain.EntityProject, project.ID, "", string(project.Status), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("company_id", project.CompanyID.String()))

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// GetByID returns a project the caller can access
func (s *ProjectService) GetByID(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.ProjectDTO, error) {
	project, _, err := s.guard.AuthorizeRecord(ctx, s.orch.Repos(), m, id, domain.EntityProject, access.ActionRead, "project")
	if err != nil {
		return nil, err
	}
	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// List returns the projects of the caller's company (owners and admins) plus
// those they are an active member of.
func (s *ProjectService) List(ctx context.Context, m *access.Membership, page domain.PageRequest) (*domain.Paged[domain.ProjectDTO], error) {
	if m == nil {
		return nil, domain.NewUnauthorizedError("authentication required")
	}
	page = pageOf(page)

	var adminCompanyID *uuid.UUID
	if m.CompanyRole.IsCompanyAdmin() {
		id := m.CompanyID
		adminCompanyID = &id
	}

	projects, total, err := s.orch.Repos().Projects.ListAccessible(ctx, adminCompanyID, m.ProjectIDs(), page)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	items := make([]domain.ProjectDTO, len(projects))
	for i := range projects {
		items[i] = mapper.ToProjectDTO(&projects[i])
	}
	return &domain.Paged[domain.ProjectDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}

// AddUser grants a user a role on the project
func (s *ProjectService) AddUser(ctx context.Context, m *access.Membership, projectID uuid.UUID, req *domain.AddProjectUserRequest) (*domain.ProjectUserDTO, error) {
	if !domain.IsValidProjectRole(req.Role) {
		return nil, domain.NewValidationError(domain.CodeValidation, "role", "unknown project role")
	}

	var pu *domain.ProjectUser
	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		if _, _, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, projectID, domain.EntityProject, access.ActionManageMembers); err != nil {
			return err
		}

		if _, err := tx.Repos.Users.GetByID(tx.Ctx, req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewValidationError(domain.CodeValidation, "userId", "user does not exist")
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		existing, err := tx.Repos.Members.Get(tx.Ctx, projectID, req.UserID)
		switch {
		case err == nil && existing.Status == domain.MembershipStatusActive:
			return domain.NewConflictError(domain.CodeDuplicateMember, "user is already a member of this project")
		case err == nil:
			existing.Role = req.Role
			existing.Status = domain.MembershipStatusActive
			if err := tx.Repos.Members.Update(tx.Ctx, existing); err != nil {
				return fmt.Errorf("failed to reactivate membership: %w", err)
			}
			pu = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			pu = &domain.ProjectUser{
				ProjectID: projectID,
				UserID:    req.UserID,
				Role:      req.Role,
				Status:    domain.MembershipStatusActive,
			}
			if err := tx.Repos.Members.Create(tx.Ctx, pu); err != nil {
				return conflictOn(err, domain.CodeDuplicateMember, "user is already a member of this project")
			}
		default:
			return fmt.Errorf("failed to load membership: %w", err)
		}

		tx.Audit(projectID, domain.AuditActionAssign, domain.EntityProject, projectID, "", string(req.Role),
			map[string]string{"userId": req.UserID.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToProjectUserDTO(pu)
	return &dto, nil
}

// AddSubcontractor engages a subcontractor company on the project
func (s *ProjectService) AddSubcontractor(ctx context.Context, m *access.Membership, projectID uuid.UUID, req *domain.CreateSubcontractorRequest) (*domain.SubcontractorCompanyDTO, error) {
	sc := &domain.SubcontractorCompany{
		ProjectID:   projectID,
		CompanyName: req.CompanyName,
		ABN:         req.ABN,
		Status:      req.Status,
	}
	if sc.Status == "" {
		sc.Status = domain.SubcontractorStatusPendingApproval
	}

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		if _, _, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, projectID, domain.EntityProject, access.ActionManageMembers); err != nil {
			return err
		}
		if err := tx.Repos.Subcontractors.Create(tx.Ctx, sc); err != nil {
			return fmt.Errorf("failed to create subcontractor company: %w", err)
		}
		tx.Audit(projectID, domain.AuditActionCreate, "subcontractor_company", sc.ID, "", string(sc.Status), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToSubcontractorCompanyDTO(sc)
	return &dto, nil
}

// AddSubcontractorUser links a user to a subcontractor company of the project
func (s *ProjectService) AddSubcontractorUser(ctx context.Context, m *access.Membership, projectID, subcontractorID uuid.UUID, req *domain.AddSubcontractorUserRequest) (*domain.SubcontractorUserDTO, error) {
	var su *domain.SubcontractorUser
	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		if _, _, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, projectID, domain.EntityProject, access.ActionManageMembers); err != nil {
			return err
		}

		sc, err := tx.Repos.Subcontractors.GetByID(tx.Ctx, subcontractorID)
		if err != nil {
			return notFoundOr(err, "subcontractor company")
		}
		if sc.ProjectID != projectID {
			return domain.NewNotFoundError("subcontractor company")
		}

		if _, err := tx.Repos.Users.GetByID(tx.Ctx, req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewValidationError(domain.CodeValidation, "userId", "user does not exist")
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		su = &domain.SubcontractorUser{
			UserID:                 req.UserID,
			SubcontractorCompanyID: sc.ID,
			Role:                   req.Role,
			Status:                 domain.MembershipStatusActive,
		}
		if err := tx.Repos.Subcontractors.AddUser(tx.Ctx, su); err != nil {
			return fmt.Errorf("failed to link subcontractor user: %w", err)
		}
		tx.Audit(projectID, domain.AuditActionAssign, "subcontractor_company", sc.ID, "", string(req.Role),
			map[string]string{"userId": req.UserID.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToSubcontractorUserDTO(su)
	return &dto, nil
}
