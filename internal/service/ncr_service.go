package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ncrCreateAttempts bounds retries when two creations race for the same number
const ncrCreateAttempts = 5

// NCRService handles the non-conformance report workflow
type NCRService struct {
	orch   *Orchestrator
	guard  *Guard
	logger *zap.Logger
}

// NewNCRService creates a new NCRService
func NewNCRService(orch *Orchestrator, guard *Guard, logger *zap.Logger) *NCRService {
	return &NCRService{orch: orch, guard: guard, logger: logger}
}

func (s *NCRService) ncrVisible(ctx context.Context, repos *repository.Repositories, ncr *domain.NCR) func(access.Scope) (bool, error) {
	return func(scope access.Scope) (bool, error) {
		return s.guard.NCRVisible(ctx, repos, scope, ncr)
	}
}

// checkResponsible requires the responsible user to hold an active membership on the project
func checkResponsible(ctx context.Context, repos *repository.Repositories, projectID, userID uuid.UUID) error {
	ok, err := repos.Members.IsActiveMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return domain.NewValidationError(domain.CodeResponsibleUserNotMember, "responsibleUserId",
			"responsible user is not an active member of this project")
	}
	return nil
}

// Create raises an NCR, numbers it, flags linked lots and notifies the responsible user.
// Concurrent creations that collide on a number are retried with a fresh number.
func (s *NCRService) Create(ctx context.Context, m *access.Membership, req *domain.CreateNCRRequest) (*domain.NCRDTO, error) {
	var created *domain.NCR

	backoff := retry.WithMaxRetries(ncrCreateAttempts, retry.NewConstant(20*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ncr, err := s.create(ctx, m, req)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("NCR number collision, retrying",
				zap.String("project_id", req.ProjectID.String()))
			return retry.RetryableError(err)
		}
		created = ncr
		return err
	})
	if err != nil {
		return nil, conflictOn(err, domain.CodeDuplicateNCRNumber, "could not allocate a unique NCR number")
	}

	s.logger.Info("NCR raised",
		zap.String("ncr_id", created.ID.String()),
		zap.String("ncr_number", created.NCRNumber),
		zap.String("severity", string(created.Severity)),
		zap.Int("lots", len(created.Lots)))

	dto := mapper.ToNCRDTO(created)
	return &dto, nil
}

func (s *NCRService) create(ctx context.Context, m *access.Membership, req *domain.CreateNCRRequest) (*domain.NCR, error) {
	var ncr *domain.NCR

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		_, decision, err := s.guard.Authorize(tx.Ctx, tx.Repos, m, req.ProjectID, domain.EntityNCR, access.ActionCreate)
		if err != nil {
			return err
		}

		if req.ResponsibleUserID != nil {
			if err := checkResponsible(tx.Ctx, tx.Repos, req.ProjectID, *req.ResponsibleUserID); err != nil {
				return err
			}
		}

		lotIDs := uniqueIDs(req.LotIDs)
		if len(lotIDs) > 0 {
			lots, err := tx.Repos.Lots.GetByIDs(tx.Ctx, req.ProjectID, lotIDs)
			if err != nil {
				return fmt.Errorf("failed to load lots: %w", err)
			}
			if len(lots) != len(lotIDs) {
				return domain.NewValidationError(domain.CodeValidation, "lotIds", "every linked lot must belong to the project")
			}
			for i := range lots {
				visible, err := s.guard.LotVisible(tx.Ctx, tx.Repos, decision.Scope, &lots[i])
				if err != nil {
					return err
				}
				if !visible {
					return domain.NewValidationError(domain.CodeValidation, "lotIds", "every linked lot must belong to the project")
				}
			}
		}

		seq, err := tx.Repos.Sequences.GetNextNumber(tx.Ctx, req.ProjectID, workflow.NCRNumberKind)
		if err != nil {
			return err
		}

		ncr = workflow.NewNCR(*req, m.UserID, workflow.FormatNCRNumber(seq))
		for _, lotID := range lotIDs {
			ncr.Lots = append(ncr.Lots, domain.NCRLot{LotID: lotID})
		}

		if err := tx.Repos.NCRs.Create(tx.Ctx, ncr); err != nil {
			return err
		}
		if err := tx.Repos.Lots.SetHasOpenNCR(tx.Ctx, lotIDs, true); err != nil {
			return fmt.Errorf("failed to flag lots: %w", err)
		}

		tx.Audit(ncr.ProjectID, domain.AuditActionCreate, domain.EntityNCR, ncr.ID, "", string(ncr.Status),
			map[string]interface{}{"ncrNumber": ncr.NCRNumber, "severity": ncr.Severity, "lotIds": lotIDs})

		if ncr.ResponsibleUserID != nil {
			tx.Notify([]uuid.UUID{*ncr.ResponsibleUserID}, ncr.ProjectID, domain.NotificationNCRAssigned,
				fmt.Sprintf("%s assigned to you", ncr.NCRNumber), ncr.Description, domain.EntityNCR, ncr.ID)
		}
		return nil
	})
	return ncr, err
}

// GetByID returns an NCR visible to the caller
func (s *NCRService) GetByID(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error) {
	repos := s.orch.Repos()
	ncr, err := repos.NCRs.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "NCR")
	}
	if _, _, err := s.guard.Check(ctx, repos, m, ncr.ProjectID, domain.EntityNCR, access.ActionRead, "NCR", s.ncrVisible(ctx, repos, ncr)); err != nil {
		return nil, err
	}
	dto := mapper.ToNCRDTO(ncr)
	return &dto, nil
}

// List returns the project's NCRs within the caller's scope
func (s *NCRService) List(ctx context.Context, m *access.Membership, projectID uuid.UUID, filter repository.NCRFilter, page domain.PageRequest) (*domain.Paged[domain.NCRDTO], error) {
	repos := s.orch.Repos()
	_, decision, err := s.guard.Authorize(ctx, repos, m, projectID, domain.EntityNCR, access.ActionRead)
	if err != nil {
		return nil, err
	}

	page = pageOf(page)
	ncrs, total, err := repos.NCRs.List(ctx, projectID, decision.Scope, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list NCRs: %w", err)
	}

	items := make([]domain.NCRDTO, len(ncrs))
	for i := range ncrs {
		items[i] = mapper.ToNCRDTO(&ncrs[i])
	}
	return &domain.Paged[domain.NCRDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}

// mutate loads the NCR under lock, authorizes action on it and persists fn's changes
func (s *NCRService) mutate(ctx context.Context, m *access.Membership, id uuid.UUID, action access.Action, fn func(tx *TxContext, ncr *domain.NCR) error) (*domain.NCRDTO, error) {
	var ncr *domain.NCR

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		var err error
		ncr, err = tx.Repos.NCRs.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "NCR")
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, ncr.ProjectID, domain.EntityNCR, action, "NCR", s.ncrVisible(tx.Ctx, tx.Repos, ncr)); err != nil {
			return err
		}

		from := ncr.Status
		if err := fn(tx, ncr); err != nil {
			return err
		}
		if err := tx.Repos.NCRs.Update(tx.Ctx, ncr); err != nil {
			return fmt.Errorf("failed to update NCR: %w", err)
		}

		if from != ncr.Status {
			tx.Audit(ncr.ProjectID, domain.AuditActionTransition, domain.EntityNCR, ncr.ID, string(from), string(ncr.Status),
				map[string]string{"action": string(action)})
		} else {
			tx.Audit(ncr.ProjectID, domain.AuditActionUpdate, domain.EntityNCR, ncr.ID, "", "",
				map[string]string{"action": string(action)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("NCR updated",
		zap.String("ncr_id", ncr.ID.String()),
		zap.String("action", string(action)),
		zap.String("status", string(ncr.Status)))

	dto := mapper.ToNCRDTO(ncr)
	return &dto, nil
}

// Update redirects the responsible user or records QM comments and due date
func (s *NCRService) Update(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.UpdateNCRRequest) (*domain.NCRDTO, error) {
	return s.mutate(ctx, m, id, access.ActionUpdate, func(tx *TxContext, ncr *domain.NCR) error {
		if req.ResponsibleUserID != nil {
			if err := checkResponsible(tx.Ctx, tx.Repos, ncr.ProjectID, *req.ResponsibleUserID); err != nil {
				return err
			}
			changed, err := workflow.Redirect(ncr, *req.ResponsibleUserID)
			if err != nil {
				return err
			}
			if changed {
				tx.Notify([]uuid.UUID{*req.ResponsibleUserID}, ncr.ProjectID, domain.NotificationNCRRedirected,
					fmt.Sprintf("%s redirected to you", ncr.NCRNumber), ncr.Description, domain.EntityNCR, ncr.ID)
			}
		}
		if req.QMComments != nil {
			ncr.QMComments = *req.QMComments
		}
		if req.DueDate != nil {
			ncr.DueDate = req.DueDate
		}
		return nil
	})
}

// Respond records rectification and moves the NCR into progress
func (s *NCRService) Respond(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.RespondNCRRequest) (*domain.NCRDTO, error) {
	return s.mutate(ctx, m, id, access.ActionRespond, func(tx *TxContext, ncr *domain.NCR) error {
		return workflow.Respond(ncr, req.RectificationNotes)
	})
}

// QMApprove records quality manager approval of a major NCR
func (s *NCRService) QMApprove(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.QMApproveNCRRequest) (*domain.NCRDTO, error) {
	return s.mutate(ctx, m, id, access.ActionQMApprove, func(tx *TxContext, ncr *domain.NCR) error {
		return workflow.QMApprove(ncr, m.UserID, req.Comments, tx.Now)
	})
}

// Reject sends the rectification back to the responsible user
func (s *NCRService) Reject(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.RejectNCRRequest) (*domain.NCRDTO, error) {
	return s.mutate(ctx, m, id, access.ActionReject, func(tx *TxContext, ncr *domain.NCR) error {
		if err := workflow.Reject(ncr, req.Reason); err != nil {
			return err
		}
		if ncr.ResponsibleUserID != nil {
			tx.Notify([]uuid.UUID{*ncr.ResponsibleUserID}, ncr.ProjectID, domain.NotificationNCRRejected,
				fmt.Sprintf("%s rectification rejected", ncr.NCRNumber), req.Reason, domain.EntityNCR, ncr.ID)
		}
		return nil
	})
}

// Close closes the NCR and clears the NCR overlay on lots with no other open NCR
func (s *NCRService) Close(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.CloseNCRRequest) (*domain.NCRDTO, error) {
	return s.mutate(ctx, m, id, access.ActionClose, func(tx *TxContext, ncr *domain.NCR) error {
		if err := workflow.Close(ncr, m.UserID, req.Concession, req.ConcessionJustification, tx.Now); err != nil {
			return err
		}

		var cleared []uuid.UUID
		for _, link := range ncr.Lots {
			open, err := tx.Repos.NCRs.CountOpenForLot(tx.Ctx, link.LotID, ncr.ID)
			if err != nil {
				return fmt.Errorf("failed to count open NCRs: %w", err)
			}
			if open == 0 {
				cleared = append(cleared, link.LotID)
			}
		}
		if err := tx.Repos.Lots.SetHasOpenNCR(tx.Ctx, cleared, false); err != nil {
			return fmt.Errorf("failed to clear lot NCR flag: %w", err)
		}
		return nil
	})
}

// NotifyClient records the client notification of a major NCR and hands the
// event to the project company's owners and admins.
func (s *NCRService) NotifyClient(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.NCRDTO, error) {
	return s.mutate(ctx, m, id, access.ActionNotifyClient, func(tx *TxContext, ncr *domain.NCR) error {
		if err := workflow.MarkClientNotified(ncr, tx.Now); err != nil {
			return err
		}
		project, err := tx.Repos.Projects.GetByID(tx.Ctx, ncr.ProjectID)
		if err != nil {
			return notFoundOr(err, "project")
		}
		admins, err := tx.Repos.Users.ListCompanyAdmins(tx.Ctx, project.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to load company admins: %w", err)
		}
		recipients := make([]uuid.UUID, 0, len(admins))
		for _, u := range admins {
			recipients = append(recipients, u.ID)
		}
		tx.Notify(recipients, ncr.ProjectID, domain.NotificationNCRClientNotified,
			fmt.Sprintf("Client notified of %s", ncr.NCRNumber), ncr.Description, domain.EntityNCR, ncr.ID)
		return nil
	})
}

// uniqueIDs drops duplicates while keeping order
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
