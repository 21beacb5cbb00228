package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LotService handles lot lifecycle and subcontractor assignment
type LotService struct {
	orch   *Orchestrator
	guard  *Guard
	logger *zap.Logger
}

// NewLotService creates a new LotService
func NewLotService(orch *Orchestrator, guard *Guard, logger *zap.Logger) *LotService {
	return &LotService{orch: orch, guard: guard, logger: logger}
}

func (s *LotService) lotVisible(ctx context.Context, repos *repository.Repositories, lot *domain.Lot) func(access.Scope) (bool, error) {
	return func(scope access.Scope) (bool, error) {
		return s.guard.LotVisible(ctx, repos, scope, lot)
	}
}

// subcontractorOnProject fails unless the subcontractor company is engaged on the project
func subcontractorOnProject(ctx context.Context, repos *repository.Repositories, projectID, subcontractorID uuid.UUID, field string) (*domain.SubcontractorCompany, error) {
	sc, err := repos.Subcontractors.GetByID(ctx, subcontractorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load subcontractor company: %w", err)
	}
	if sc == nil || sc.ProjectID != projectID || sc.Status == domain.SubcontractorStatusRemoved {
		return nil, domain.NewValidationError(domain.CodeSubcontractorNotOnProject, field,
			"subcontractor company is not engaged on this project")
	}
	return sc, nil
}

// Create creates a lot
func (s *LotService) Create(ctx context.Context, m *access.Membership, req *domain.CreateLotRequest) (*domain.LotDTO, error) {
	if err := workflow.ValidateLotShape(req.LotType, req.AreaZone, req.StructureID); err != nil {
		return nil, err
	}

	lot := &domain.Lot{
		ProjectID:               req.ProjectID,
		LotNumber:               req.LotNumber,
		Description:             req.Description,
		LotType:                 req.LotType,
		AreaZone:                req.AreaZone,
		StructureID:             req.StructureID,
		Status:                  domain.LotStatusNotStarted,
		AssignedSubcontractorID: req.AssignedSubcontractorID,
		CreatedByID:             actorOf(m),
	}

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		if _, _, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, req.ProjectID, domain.EntityLot, access.ActionCreate); err != nil {
			return err
		}

		if req.AssignedSubcontractorID != nil {
			if _, err := subcontractorOnProject(tx.Ctx, tx.Repos, req.ProjectID, *req.AssignedSubcontractorID, "assignedSubcontractorId"); err != nil {
				return err
			}
		}

		exists, err := tx.Repos.Lots.NumberExists(tx.Ctx, req.ProjectID, req.LotNumber)
		if err != nil {
			return fmt.Errorf("failed to check lot number: %w", err)
		}
		if exists {
			return domain.NewConflictError(domain.CodeDuplicateLotNumber, "lot number already exists in this project")
		}

		if err := tx.Repos.Lots.Create(tx.Ctx, lot); err != nil {
			return conflictOn(err, domain.CodeDuplicateLotNumber, "lot number already exists in this project")
		}

		tx.Audit(lot.ProjectID, domain.AuditActionCreate, domain.EntityLot, lot.ID, "", string(lot.Status), nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lot created",
		zap.String("lot_id", lot.ID.String()),
		zap.String("lot_number", lot.LotNumber),
		zap.String("project_id", lot.ProjectID.String()))

	dto := mapper.ToLotDTO(lot, nil)
	return &dto, nil
}

// GetByID returns a lot visible to the caller
func (s *LotService) GetByID(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.LotDTO, error) {
	repos := s.orch.Repos()
	lot, err := repos.Lots.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "lot")
	}

	if _, _, err := s.guard.Check(ctx, repos, m, lot.ProjectID, domain.EntityLot, access.ActionRead, "lot", s.lotVisible(ctx, repos, lot)); err != nil {
		return nil, err
	}

	rows, err := repos.Assignments.ListByLots(ctx, []uuid.UUID{lot.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load lot assignments: %w", err)
	}
	dto := mapper.ToLotDTO(lot, rows)
	return &dto, nil
}

// List returns the project's lots within the caller's scope
func (s *LotService) List(ctx context.Context, m *access.Membership, projectID uuid.UUID, filter repository.LotFilter, page domain.PageRequest) (*domain.Paged[domain.LotDTO], error) {
	repos := s.orch.Repos()
	_, decision, err := s.guard.Authorize(ctx, repos, m, projectID, domain.EntityLot, access.ActionRead)
	if err != nil {
		return nil, err
	}

	page = pageOf(page)
	lots, total, err := repos.Lots.List(ctx, projectID, decision.Scope, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}

	ids := make([]uuid.UUID, len(lots))
	for i := range lots {
		ids[i] = lots[i].ID
	}
	rows, err := repos.Assignments.ListByLots(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load lot assignments: %w", err)
	}

	items := make([]domain.LotDTO, len(lots))
	for i := range lots {
		items[i] = mapper.ToLotDTO(&lots[i], rows)
	}
	return &domain.Paged[domain.LotDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}

// Update edits lot details and advances its status. Completion is gated on open
// NCRs, ITP items and hold points.
func (s *LotService) Update(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.UpdateLotRequest) (*domain.LotDTO, error) {
	var lot *domain.Lot
	var rows []domain.LotSubcontractorAssignment

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		var err error
		lot, err = tx.Repos.Lots.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "lot")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, lot.ProjectID, domain.EntityLot, access.ActionUpdate, "lot", s.lotVisible(tx.Ctx, tx.Repos, lot)); err != nil {
			return err
		}

		if req.Description != nil {
			lot.Description = *req.Description
		}
		if req.AreaZone != nil {
			lot.AreaZone = req.AreaZone
		}
		if req.StructureID != nil {
			lot.StructureID = req.StructureID
		}
		if err := workflow.ValidateLotShape(lot.LotType, lot.AreaZone, lot.StructureID); err != nil {
			return err
		}

		from := lot.Status
		if req.Status != nil {
			if err := workflow.ValidateLotTransition(from, *req.Status); err != nil {
				return err
			}
			if *req.Status == domain.LotStatusCompleted && from != domain.LotStatusCompleted {
				gate, err := s.completionGate(tx.Ctx, tx.Repos, lot)
				if err != nil {
					return err
				}
				if err := workflow.CheckLotCompletion(gate); err != nil {
					return err
				}
			}
			lot.Status = *req.Status
		}

		if err := tx.Repos.Lots.Update(tx.Ctx, lot); err != nil {
			return fmt.Errorf("failed to update lot: %w", err)
		}

		if from != lot.Status {
			tx.Audit(lot.ProjectID, domain.AuditActionTransition, domain.EntityLot, lot.ID, string(from), string(lot.Status), nil)
		} else {
			tx.Audit(lot.ProjectID, domain.AuditActionUpdate, domain.EntityLot, lot.ID, "", "", nil)
		}

		rows, err = tx.Repos.Assignments.ListByLots(tx.Ctx, []uuid.UUID{lot.ID})
		return err
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToLotDTO(lot, rows)
	return &dto, nil
}

func (s *LotService) completionGate(ctx context.Context, repos *repository.Repositories, lot *domain.Lot) (workflow.LotCompletionGate, error) {
	gate := workflow.LotCompletionGate{HasOpenNCR: lot.HasOpenNCR}

	unsatisfied, err := unsatisfiedITPItems(ctx, repos, lot.ID)
	if err != nil {
		return gate, err
	}
	gate.UnsatisfiedITPItems = unsatisfied

	unreleased, err := repos.HoldPoints.CountUnreleasedForLot(ctx, lot.ID)
	if err != nil {
		return gate, fmt.Errorf("failed to count hold points: %w", err)
	}
	gate.UnreleasedHoldPoints = int(unreleased)
	return gate, nil
}

// unsatisfiedITPItems counts checklist items of the lot's ITP that are not
// satisfied. A lot without an ITP has nothing outstanding.
func unsatisfiedITPItems(ctx context.Context, repos *repository.Repositories, lotID uuid.UUID) (int, error) {
	inst, err := repos.ITP.GetInstanceByLot(ctx, lotID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load ITP instance: %w", err)
	}
	items, err := repos.ITP.Items(ctx, inst.TemplateID)
	if err != nil {
		return 0, fmt.Errorf("failed to load ITP items: %w", err)
	}
	completions, err := repos.ITP.ListCompletions(ctx, inst.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load ITP completions: %w", err)
	}
	return workflow.UnsatisfiedItems(items, completions), nil
}

// Delete removes a lot that is not completed and has no NCR links
func (s *LotService) Delete(ctx context.Context, m *access.Membership, id uuid.UUID) error {
	return s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		lot, err := tx.Repos.Lots.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "lot")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, lot.ProjectID, domain.EntityLot, access.ActionDelete, "lot", s.lotVisible(tx.Ctx, tx.Repos, lot)); err != nil {
			return err
		}

		links, err := tx.Repos.Lots.CountNCRLinks(tx.Ctx, lot.ID)
		if err != nil {
			return fmt.Errorf("failed to count NCR links: %w", err)
		}
		if err := workflow.CheckLotDeletable(lot, links); err != nil {
			return err
		}

		if err := tx.Repos.Lots.Delete(tx.Ctx, lot.ID); err != nil {
			return fmt.Errorf("failed to delete lot: %w", err)
		}
		tx.Audit(lot.ProjectID, domain.AuditActionDelete, domain.EntityLot, lot.ID, string(lot.Status), "", nil)
		return nil
	})
}

// AssignSubcontractor adds or updates an assignment row for a subcontractor company
func (s *LotService) AssignSubcontractor(ctx context.Context, m *access.Membership, lotID uuid.UUID, req *domain.AssignLotSubcontractorRequest) (*domain.LotDTO, error) {
	var lot *domain.Lot
	var rows []domain.LotSubcontractorAssignment

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		var err error
		lot, err = tx.Repos.Lots.GetByIDForUpdate(tx.Ctx, lotID)
		if err != nil {
			return notFoundOr(err, "lot")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, lot.ProjectID, domain.EntityLot, access.ActionAssign, "lot", s.lotVisible(tx.Ctx, tx.Repos, lot)); err != nil {
			return err
		}
		if _, err := subcontractorOnProject(tx.Ctx, tx.Repos, lot.ProjectID, req.SubcontractorCompanyID, "subcontractorCompanyId"); err != nil {
			return err
		}

		existing, err := tx.Repos.Assignments.Get(tx.Ctx, lot.ID, req.SubcontractorCompanyID)
		switch {
		case err == nil:
			existing.CanCompleteITP = req.CanCompleteITP
			existing.ITPRequiresVerification = req.ITPRequiresVerification
			if existing.Status != domain.AssignmentStatusActive {
				existing.Status = domain.AssignmentStatusActive
				existing.AssignedByID = actorOf(m)
				existing.AssignedAt = tx.Now
			}
			if err := tx.Repos.Assignments.Update(tx.Ctx, existing); err != nil {
				return fmt.Errorf("failed to update assignment: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			a := &domain.LotSubcontractorAssignment{
				LotID:                   lot.ID,
				ProjectID:               lot.ProjectID,
				SubcontractorCompanyID:  req.SubcontractorCompanyID,
				CanCompleteITP:          req.CanCompleteITP,
				ITPRequiresVerification: req.ITPRequiresVerification,
				Status:                  domain.AssignmentStatusActive,
				AssignedByID:            actorOf(m),
				AssignedAt:              tx.Now,
			}
			if err := tx.Repos.Assignments.Create(tx.Ctx, a); err != nil {
				return fmt.Errorf("failed to create assignment: %w", err)
			}
		default:
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		tx.Audit(lot.ProjectID, domain.AuditActionAssign, domain.EntityLot, lot.ID, "", "", map[string]interface{}{
			"subcontractorCompanyId":  req.SubcontractorCompanyID.String(),
			"canCompleteItp":          req.CanCompleteITP,
			"itpRequiresVerification": req.ITPRequiresVerification,
		})

		rows, err = tx.Repos.Assignments.ListByLots(tx.Ctx, []uuid.UUID{lot.ID})
		return err
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToLotDTO(lot, rows)
	return &dto, nil
}

// RemoveSubcontractor ends a subcontractor's assignment on the lot, including
// the legacy single-assignment field when it names the same company.
func (s *LotService) RemoveSubcontractor(ctx context.Context, m *access.Membership, lotID, subcontractorID uuid.UUID) error {
	return s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		lot, err := tx.Repos.Lots.GetByIDForUpdate(tx.Ctx, lotID)
		if err != nil {
			return notFoundOr(err, "lot")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, lot.ProjectID, domain.EntityLot, access.ActionAssign, "lot", s.lotVisible(tx.Ctx, tx.Repos, lot)); err != nil {
			return err
		}

		removed := false
		existing, err := tx.Repos.Assignments.Get(tx.Ctx, lot.ID, subcontractorID)
		switch {
		case err == nil && existing.Status == domain.AssignmentStatusActive:
			existing.Status = domain.AssignmentStatusRemoved
			if err := tx.Repos.Assignments.Update(tx.Ctx, existing); err != nil {
				return fmt.Errorf("failed to remove assignment: %w", err)
			}
			removed = true
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		if lot.AssignedSubcontractorID != nil && *lot.AssignedSubcontractorID == subcontractorID {
			lot.AssignedSubcontractorID = nil
			if err := tx.Repos.Lots.Update(tx.Ctx, lot); err != nil {
				return fmt.Errorf("failed to clear legacy assignment: %w", err)
			}
			removed = true
		}

		if !removed {
			return domain.NewNotFoundError("lot assignment")
		}

		tx.Audit(lot.ProjectID, domain.AuditActionAssign, domain.EntityLot, lot.ID, "", "",
			map[string]string{"removedSubcontractorCompanyId": subcontractorID.String()})
		return nil
	})
}
