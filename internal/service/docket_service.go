package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
	"go.uber.org/zap"
)

// DocketService handles daily dockets and their approval
type DocketService struct {
	orch   *Orchestrator
	guard  *Guard
	logger *zap.Logger
}

// NewDocketService creates a new DocketService
func NewDocketService(orch *Orchestrator, guard *Guard, logger *zap.Logger) *DocketService {
	return &DocketService{orch: orch, guard: guard, logger: logger}
}

func docketVisible(d *domain.Docket) func(access.Scope) (bool, error) {
	return func(scope access.Scope) (bool, error) {
		return scope.AllowsDocket(d), nil
	}
}

// Create creates a draft docket. Subcontractor users always file for their own
// company; head-contractor users name the company.
func (s *DocketService) Create(ctx context.Context, m *access.Membership, req *domain.CreateDocketRequest) (*domain.DocketDTO, error) {
	docket := &domain.Docket{
		ProjectID:            req.ProjectID,
		DocketDate:           req.DocketDate,
		Status:               domain.DocketStatusDraft,
		LabourHoursSubmitted: req.LabourHours,
		PlantHoursSubmitted:  req.PlantHours,
		Notes:                req.Notes,
		CreatedByID:          actorOf(m),
	}

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		_, decision, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, req.ProjectID, domain.EntityDocket, access.ActionCreate)
		if err != nil {
			return err
		}

		switch {
		case decision.Scope.Restricted:
			own := decision.Scope.SubcontractorCompanyID
			if own == nil || (req.SubcontractorCompanyID != nil && *req.SubcontractorCompanyID != *own) {
				return domain.NewValidationError(domain.CodeSubcontractorNotOnProject, "subcontractorCompanyId",
					"dockets can only be filed for your own company")
			}
			docket.SubcontractorCompanyID = *own
		case req.SubcontractorCompanyID == nil:
			return domain.NewValidationError(domain.CodeValidation, "subcontractorCompanyId", "subcontractor company is required")
		default:
			docket.SubcontractorCompanyID = *req.SubcontractorCompanyID
		}

		if _, err := subcontractorOnProject(tx.Ctx, tx.Repos, req.ProjectID, docket.SubcontractorCompanyID, "subcontractorCompanyId"); err != nil {
			return err
		}
		if err := tx.Repos.Dockets.Create(tx.Ctx, docket); err != nil {
			return fmt.Errorf("failed to create docket: %w", err)
		}
		tx.Audit(docket.ProjectID, domain.AuditActionCreate, domain.EntityDocket, docket.ID, "", string(docket.Status), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToDocketDTO(docket)
	return &dto, nil
}

// GetByID returns a docket visible to the caller
func (s *DocketService) GetByID(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.DocketDTO, error) {
	repos := s.orch.Repos()
	docket, err := repos.Dockets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "docket")
	}
	if _, _, err := s.guard.Check(ctx, repos, m, docket.ProjectID, domain.EntityDocket, access.ActionRead, "docket", docketVisible(docket)); err != nil {
		return nil, err
	}
	dto := mapper.ToDocketDTO(docket)
	return &dto, nil
}

// List returns the project's dockets within the caller's scope
func (s *DocketService) List(ctx context.Context, m *access.Membership, projectID uuid.UUID, filter repository.DocketFilter, page domain.PageRequest) (*domain.Paged[domain.DocketDTO], error) {
	repos := s.orch.Repos()
	_, decision, err := s.guard.Authorize(ctx, repos, m, projectID, domain.EntityDocket, access.ActionRead)
	if err != nil {
		return nil, err
	}

	page = pageOf(page)
	dockets, total, err := repos.Dockets.List(ctx, projectID, decision.Scope, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list dockets: %w", err)
	}

	items := make([]domain.DocketDTO, len(dockets))
	for i := range dockets {
		items[i] = mapper.ToDocketDTO(&dockets[i])
	}
	return &domain.Paged[domain.DocketDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}

// mutate locks the docket, authorizes action and saves fn's changes
func (s *DocketService) mutate(ctx context.Context, m *access.Membership, id uuid.UUID, action access.Action, fn func(tx *TxContext, d *domain.Docket) error) (*domain.DocketDTO, error) {
	var docket *domain.Docket

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		var err error
		docket, err = tx.Repos.Dockets.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "docket")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, docket.ProjectID, domain.EntityDocket, action, "docket", docketVisible(docket)); err != nil {
			return err
		}

		from := docket.Status
		if err := fn(tx, docket); err != nil {
			return err
		}
		if err := tx.Repos.Dockets.Update(tx.Ctx, docket); err != nil {
			return fmt.Errorf("failed to update docket: %w", err)
		}

		auditAction := domain.AuditActionTransition
		if from == docket.Status {
			auditAction = domain.AuditActionUpdate
		}
		tx.Audit(docket.ProjectID, auditAction, domain.EntityDocket, docket.ID, string(from), string(docket.Status), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("docket updated",
		zap.String("docket_id", docket.ID.String()),
		zap.String("action", string(action)),
		zap.String("status", string(docket.Status)))

	dto := mapper.ToDocketDTO(docket)
	return &dto, nil
}

// Update edits a draft docket
func (s *DocketService) Update(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.UpdateDocketRequest) (*domain.DocketDTO, error) {
	return s.mutate(ctx, m, id, access.ActionUpdate, func(_ *TxContext, d *domain.Docket) error {
		if err := workflow.CheckDocketEditable(d); err != nil {
			return err
		}
		if req.DocketDate != nil {
			d.DocketDate = *req.DocketDate
		}
		if req.LabourHours != nil {
			d.LabourHoursSubmitted = *req.LabourHours
		}
		if req.PlantHours != nil {
			d.PlantHoursSubmitted = *req.PlantHours
		}
		if req.Notes != nil {
			d.Notes = *req.Notes
		}
		return nil
	})
}

// Delete removes a draft docket
func (s *DocketService) Delete(ctx context.Context, m *access.Membership, id uuid.UUID) error {
	return s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		docket, err := tx.Repos.Dockets.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "docket")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, docket.ProjectID, domain.EntityDocket, access.ActionDelete, "docket", docketVisible(docket)); err != nil {
			return err
		}
		if err := workflow.CheckDocketEditable(docket); err != nil {
			return err
		}
		if err := tx.Repos.Dockets.Delete(tx.Ctx, docket.ID); err != nil {
			return fmt.Errorf("failed to delete docket: %w", err)
		}
		tx.Audit(docket.ProjectID, domain.AuditActionDelete, domain.EntityDocket, docket.ID, string(docket.Status), "", nil)
		return nil
	})
}

// Submit sends a draft for approval. Every approver on the project and every owner
// or admin of the project company is notified exactly once.
func (s *DocketService) Submit(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.DocketDTO, error) {
	return s.mutate(ctx, m, id, access.ActionSubmit, func(tx *TxContext, d *domain.Docket) error {
		if err := workflow.SubmitDocket(d, m.UserID, tx.Now); err != nil {
			return err
		}

		recipients, err := s.approvers(tx, d.ProjectID)
		if err != nil {
			return err
		}
		tx.Notify(recipients, d.ProjectID, domain.NotificationDocketSubmitted,
			fmt.Sprintf("Docket for %s awaiting approval", d.DocketDate.Format("2006-01-02")),
			fmt.Sprintf("%.1f labour hours, %.1f plant hours", d.LabourHoursSubmitted, d.PlantHoursSubmitted),
			domain.EntityDocket, d.ID)
		return nil
	})
}

// approvers is the union of project members able to approve and company owners
// and admins acting on their company standing. An admin holding a project role
// is only included when that role approves.
func (s *DocketService) approvers(tx *TxContext, projectID uuid.UUID) ([]uuid.UUID, error) {
	project, err := tx.Repos.Projects.GetByID(tx.Ctx, projectID)
	if err != nil {
		return nil, notFoundOr(err, "project")
	}
	roles := s.guard.Evaluator().Matrix().Roles(domain.EntityDocket, access.ActionApprove)
	members, err := tx.Repos.Members.ListActiveWithRoles(tx.Ctx, projectID, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to load docket approvers: %w", err)
	}
	admins, err := tx.Repos.Users.ListCompanyAdmins(tx.Ctx, project.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company admins: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members)+len(admins))
	for _, pu := range members {
		ids = append(ids, pu.UserID)
	}
	for _, u := range admins {
		member, err := tx.Repos.Members.IsActiveMember(tx.Ctx, projectID, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check admin membership: %w", err)
		}
		if !member {
			ids = append(ids, u.ID)
		}
	}
	return uniqueIDs(ids), nil
}

// Approve approves a pending docket and tells the submitter
func (s *DocketService) Approve(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.ApproveDocketRequest) (*domain.DocketDTO, error) {
	return s.mutate(ctx, m, id, access.ActionApprove, func(tx *TxContext, d *domain.Docket) error {
		if err := workflow.ApproveDocket(d, m.UserID, *req, tx.Now); err != nil {
			return err
		}
		tx.Notify([]uuid.UUID{submitterOf(d)}, d.ProjectID, domain.NotificationDocketApproved,
			fmt.Sprintf("Docket for %s approved", d.DocketDate.Format("2006-01-02")),
			d.AdjustmentReason, domain.EntityDocket, d.ID)
		return nil
	})
}

// Reject rejects a pending docket and tells the submitter
func (s *DocketService) Reject(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.RejectDocketRequest) (*domain.DocketDTO, error) {
	return s.mutate(ctx, m, id, access.ActionReject, func(tx *TxContext, d *domain.Docket) error {
		if err := workflow.RejectDocket(d, m.UserID, req.Reason, tx.Now); err != nil {
			return err
		}
		tx.Notify([]uuid.UUID{submitterOf(d)}, d.ProjectID, domain.NotificationDocketRejected,
			fmt.Sprintf("Docket for %s rejected", d.DocketDate.Format("2006-01-02")),
			req.Reason, domain.EntityDocket, d.ID)
		return nil
	})
}

func submitterOf(d *domain.Docket) uuid.UUID {
	if d.SubmittedByID != nil {
		return *d.SubmittedByID
	}
	return d.CreatedByID
}
