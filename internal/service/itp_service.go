package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ITPService manages inspection and test plans and item completion on lots
type ITPService struct {
	orch   *Orchestrator
	guard  *Guard
	logger *zap.Logger
}

// NewITPService creates a new ITPService
func NewITPService(orch *Orchestrator, guard *Guard, logger *zap.Logger) *ITPService {
	return &ITPService{orch: orch, guard: guard, logger: logger}
}

// CreateTemplate creates a checklist template. Items are numbered in request order.
func (s *ITPService) CreateTemplate(ctx context.Context, m *access.Membership, req *domain.CreateITPTemplateRequest) (*domain.ITPTemplateDTO, error) {
	tpl := &domain.ITPTemplate{
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		ActivityType: req.ActivityType,
	}
	for i, in := range req.Items {
		tpl.Items = append(tpl.Items, domain.ITPChecklistItem{
			Sequence:           i + 1,
			Description:        in.Description,
			AcceptanceCriteria: in.AcceptanceCriteria,
			PointType:          in.PointType,
			ResponsibleParty:   in.ResponsibleParty,
		})
	}

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		if _, _, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, req.ProjectID, domain.EntityITP, access.ActionManage); err != nil {
			return err
		}
		if err := tx.Repos.ITP.CreateTemplate(tx.Ctx, tpl); err != nil {
			return fmt.Errorf("failed to create ITP template: %w", err)
		}
		tx.Audit(tpl.ProjectID, domain.AuditActionCreate, "itp_template", tpl.ID, "", "",
			map[string]interface{}{"name": tpl.Name, "items": len(tpl.Items)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ITP template created",
		zap.String("template_id", tpl.ID.String()),
		zap.Int("items", len(tpl.Items)))

	dto := mapper.ToITPTemplateDTO(tpl)
	return &dto, nil
}

// CreateInstance binds a template to a lot and opens a hold point for every
// hold_point item of the template.
func (s *ITPService) CreateInstance(ctx context.Context, m *access.Membership, req *domain.CreateITPInstanceRequest) (*domain.ITPInstanceDTO, error) {
	var (
		inst *domain.ITPInstance
		tpl  *domain.ITPTemplate
	)

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		lot, err := tx.Repos.Lots.GetByIDForUpdate(tx.Ctx, req.LotID)
		if err != nil {
			return notFoundOr(err, "lot")
		}
		visible := func(scope access.Scope) (bool, error) {
			return s.guard.LotVisible(tx.Ctx, tx.Repos, scope, lot)
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, lot.ProjectID, domain.EntityITP, access.ActionManage, "lot", visible); err != nil {
			return err
		}

		tpl, err = tx.Repos.ITP.GetTemplate(tx.Ctx, req.TemplateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewValidationError(domain.CodeValidation, "templateId", "template does not exist")
			}
			return fmt.Errorf("failed to load ITP template: %w", err)
		}
		if tpl.ProjectID != lot.ProjectID {
			return domain.NewValidationError(domain.CodeValidation, "templateId", "template belongs to another project")
		}

		if _, err := tx.Repos.ITP.GetInstanceByLot(tx.Ctx, lot.ID); err == nil {
			return domain.NewConflictError(domain.CodeDuplicateITPInstance, "lot already has an ITP")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load ITP instance: %w", err)
		}

		inst = &domain.ITPInstance{TemplateID: tpl.ID, LotID: lot.ID, ProjectID: lot.ProjectID}
		if err := tx.Repos.ITP.CreateInstance(tx.Ctx, inst); err != nil {
			return conflictOn(err, domain.CodeDuplicateITPInstance, "lot already has an ITP")
		}

		var points []*domain.HoldPoint
		for _, item := range tpl.Items {
			if item.PointType != domain.ITPPointHoldPoint {
				continue
			}
			points = append(points, &domain.HoldPoint{
				ProjectID:       lot.ProjectID,
				LotID:           lot.ID,
				ITPInstanceID:   inst.ID,
				ChecklistItemID: item.ID,
				Description:     item.Description,
				Status:          domain.HoldPointStatusPending,
			})
		}
		if err := tx.Repos.HoldPoints.CreateBatch(tx.Ctx, points); err != nil {
			return fmt.Errorf("failed to create hold points: %w", err)
		}

		tx.Audit(lot.ProjectID, domain.AuditActionCreate, domain.EntityITP, inst.ID, "", "",
			map[string]interface{}{"lotId": lot.ID, "templateId": tpl.ID, "holdPoints": len(points)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToITPInstanceDTO(inst, tpl, nil)
	return &dto, nil
}

// GetInstance returns an instance with its items and completions
func (s *ITPService) GetInstance(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.ITPInstanceDTO, error) {
	repos := s.orch.Repos()
	inst, err := repos.ITP.GetInstance(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ITP instance")
	}
	lot, err := repos.Lots.GetByID(ctx, inst.LotID)
	if err != nil {
		return nil, notFoundOr(err, "ITP instance")
	}
	visible := func(scope access.Scope) (bool, error) {
		return s.guard.LotVisible(ctx, repos, scope, lot)
	}
	if _, _, err := s.guard.Check(ctx, repos, m, inst.ProjectID, domain.EntityITP, access.ActionRead, "ITP instance", visible); err != nil {
		return nil, err
	}

	tpl, err := repos.ITP.GetTemplate(ctx, inst.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ITP template: %w", err)
	}
	completions, err := repos.ITP.ListCompletions(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ITP completions: %w", err)
	}

	dto := mapper.ToITPInstanceDTO(inst, tpl, completions)
	return &dto, nil
}

// Complete marks a checklist item completed or pending. Subcontractor users need an
// active assignment on the lot that allows ITP completion.
func (s *ITPService) Complete(ctx context.Context, m *access.Membership, req *domain.ITPCompletionRequest) (*domain.ITPCompletionDTO, error) {
	var completion *domain.ITPCompletion

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		inst, err := tx.Repos.ITP.GetInstance(tx.Ctx, req.InstanceID)
		if err != nil {
			return notFoundOr(err, "ITP instance")
		}
		lot, err := tx.Repos.Lots.GetByIDForUpdate(tx.Ctx, inst.LotID)
		if err != nil {
			return notFoundOr(err, "ITP instance")
		}
		rows, err := tx.Repos.Assignments.ListByLots(tx.Ctx, []uuid.UUID{lot.ID})
		if err != nil {
			return fmt.Errorf("failed to load lot assignments: %w", err)
		}
		visible := func(scope access.Scope) (bool, error) {
			return scope.AllowsLot(lot, rows), nil
		}
		_, decision, err := s.guard.Check(tx.Ctx, tx.Repos, m, inst.ProjectID, domain.EntityITP, access.ActionComplete, "ITP instance", visible)
		if err != nil {
			return err
		}
		if req.IsCompleted == nil {
			return domain.NewValidationError(domain.CodeValidation, "isCompleted", "isCompleted is required")
		}
		completed := *req.IsCompleted

		item, err := tx.Repos.ITP.GetItem(tx.Ctx, req.ChecklistItemID)
		if err != nil || item.TemplateID != inst.TemplateID {
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to load checklist item: %w", err)
			}
			return domain.NewValidationError(domain.CodeValidation, "checklistItemId", "item is not part of this ITP")
		}

		var assignment *domain.LotSubcontractorAssignment
		if decision.Role.IsSubcontractor() {
			if decision.Scope.SubcontractorCompanyID != nil {
				assignment = access.ActiveAssignment(lot.ID, *decision.Scope.SubcontractorCompanyID, rows)
			}
			if err := workflow.CheckSubcontractorCompletion(assignment); err != nil {
				return err
			}
		}

		completion, err = tx.Repos.ITP.GetCompletionByItem(tx.Ctx, inst.ID, item.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			completion = &domain.ITPCompletion{InstanceID: inst.ID, ChecklistItemID: item.ID}
		case err != nil:
			return fmt.Errorf("failed to load completion: %w", err)
		}

		from := string(completion.Status)
		if completed {
			workflow.SetCompleted(completion, m.UserID, workflow.RequiresVerification(item, assignment), req.Notes, tx.Now)
		} else {
			workflow.SetPending(completion, req.Notes)
		}
		if err := tx.Repos.ITP.SaveCompletion(tx.Ctx, completion); err != nil {
			return conflictOn(err, domain.CodeConflict, "item was completed concurrently")
		}

		if completed && workflow.StartOnFirstCompletion(lot) {
			if err := tx.Repos.Lots.Update(tx.Ctx, lot); err != nil {
				return fmt.Errorf("failed to start lot: %w", err)
			}
			tx.Audit(lot.ProjectID, domain.AuditActionTransition, domain.EntityLot, lot.ID,
				string(domain.LotStatusNotStarted), string(lot.Status), map[string]string{"cause": "itp_completion"})
		}

		tx.Audit(inst.ProjectID, domain.AuditActionUpdate, domain.EntityITP, completion.ID, from, string(completion.Status),
			map[string]string{"checklistItemId": item.ID.String()})

		if completion.Status == domain.CompletionStatusCompleted &&
			completion.RequiresVerification &&
			completion.VerificationStatus != domain.VerificationStatusVerified {
			verifiers, err := tx.Repos.Members.ListActiveWithRoles(tx.Ctx, inst.ProjectID,
				s.guard.Evaluator().Matrix().Roles(domain.EntityITP, access.ActionVerify))
			if err != nil {
				return fmt.Errorf("failed to load verifiers: %w", err)
			}
			recipients := make([]uuid.UUID, 0, len(verifiers))
			for _, v := range verifiers {
				if v.UserID != m.UserID {
					recipients = append(recipients, v.UserID)
				}
			}
			tx.Notify(recipients, inst.ProjectID, domain.NotificationITPVerificationNeeded,
				fmt.Sprintf("Lot %s: item %d needs verification", lot.LotNumber, item.Sequence),
				item.Description, domain.EntityITP, inst.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ITP item updated",
		zap.String("completion_id", completion.ID.String()),
		zap.String("status", string(completion.Status)),
		zap.Bool("requires_verification", completion.RequiresVerification))

	dto := mapper.ToITPCompletionDTO(completion)
	return &dto, nil
}

// mutateCompletion locks a completion, authorizes action on its lot and saves fn's changes
func (s *ITPService) mutateCompletion(ctx context.Context, m *access.Membership, id uuid.UUID, action access.Action, fn func(tx *TxContext, c *domain.ITPCompletion) error) (*domain.ITPCompletionDTO, error) {
	var completion *domain.ITPCompletion

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		var err error
		completion, err = tx.Repos.ITP.GetCompletion(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "ITP completion")
		}
		inst, err := tx.Repos.ITP.GetInstance(tx.Ctx, completion.InstanceID)
		if err != nil {
			return notFoundOr(err, "ITP completion")
		}
		lot, err := tx.Repos.Lots.GetByID(tx.Ctx, inst.LotID)
		if err != nil {
			return notFoundOr(err, "ITP completion")
		}
		visible := func(scope access.Scope) (bool, error) {
			return s.guard.LotVisible(tx.Ctx, tx.Repos, scope, lot)
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, inst.ProjectID, domain.EntityITP, action, "ITP completion", visible); err != nil {
			return err
		}

		from := string(completion.VerificationStatus)
		if err := fn(tx, completion); err != nil {
			return err
		}
		if err := tx.Repos.ITP.SaveCompletion(tx.Ctx, completion); err != nil {
			return fmt.Errorf("failed to save completion: %w", err)
		}
		tx.Audit(inst.ProjectID, domain.AuditActionTransition, domain.EntityITP, completion.ID,
			from, string(completion.VerificationStatus), map[string]string{"action": string(action)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToITPCompletionDTO(completion)
	return &dto, nil
}

// Verify records independent verification of a completed item
func (s *ITPService) Verify(ctx context.Context, m *access.Membership, completionID uuid.UUID) (*domain.ITPCompletionDTO, error) {
	return s.mutateCompletion(ctx, m, completionID, access.ActionVerify, func(tx *TxContext, c *domain.ITPCompletion) error {
		return workflow.Verify(c, m.UserID, tx.Now)
	})
}

// Unverify reverses a verification
func (s *ITPService) Unverify(ctx context.Context, m *access.Membership, completionID uuid.UUID) (*domain.ITPCompletionDTO, error) {
	return s.mutateCompletion(ctx, m, completionID, access.ActionVerify, func(tx *TxContext, c *domain.ITPCompletion) error {
		return workflow.Unverify(c)
	})
}
