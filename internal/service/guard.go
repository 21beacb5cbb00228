package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Guard resolves the project behind a request and asks the evaluator for a decision
type Guard struct {
	evaluator *access.Evaluator
	logger    *zap.Logger
}

// NewGuard creates a guard over evaluator
func NewGuard(evaluator *access.Evaluator, logger *zap.Logger) *Guard {
	return &Guard{evaluator: evaluator, logger: logger}
}

// Evaluator exposes the underlying evaluator
func (g *Guard) Evaluator() *access.Evaluator {
	return g.evaluator
}

// Authorize evaluates action on a project named by the caller. A missing project
// is denied exactly like one belonging to another tenant.
func (g *Guard) Authorize(ctx context.Context, repos *repository.Repositories, m *access.Membership, projectID uuid.UUID, entity string, action access.Action) (*domain.Project, access.Decision, error) {
	if m == nil {
		return nil, access.Decision{}, domain.NewUnauthorizedError("authentication required")
	}

	project, err := repos.Projects.GetByID(ctx, projectID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, access.Decision{}, fmt.Errorf("failed to load project: %w", err)
	}

	decision, err := g.evaluator.Evaluate(m, project, entity, action)
	if err != nil {
		g.logger.Debug("access denied",
			zap.String("user_id", m.UserID.String()),
			zap.String("project_id", projectID.String()),
			zap.String("entity", entity),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, access.Decision{}, err
	}
	return project, decision, nil
}

// AuthorizeRecord is Authorize for an existing record addressed by id. Lack of
// project access is reported as the record not existing.
func (g *Guard) AuthorizeRecord(ctx context.Context, repos *repository.Repositories, m *access.Membership, projectID uuid.UUID, entity string, action access.Action, name string) (*domain.Project, access.Decision, error) {
	project, decision, err := g.Authorize(ctx, repos, m, projectID, entity, action)
	if domain.IsCode(err, domain.CodeProjectAccessDenied) {
		return nil, access.Decision{}, domain.NewNotFoundError(name)
	}
	return project, decision, err
}

// Check authorizes action on one record. Read access and scope are checked first,
// so a record outside the caller's scope is NotFound whatever their role.
func (g *Guard) Check(ctx context.Context, repos *repository.Repositories, m *access.Membership, projectID uuid.UUID, entity string, action access.Action, name string, visible func(access.Scope) (bool, error)) (*domain.Project, access.Decision, error) {
	project, decision, err := g.AuthorizeRecord(ctx, repos, m, projectID, entity, access.ActionRead, name)
	if err != nil {
		return nil, access.Decision{}, err
	}
	if visible != nil {
		ok, err := visible(decision.Scope)
		if err != nil {
			return nil, access.Decision{}, err
		}
		if !ok {
			return nil, access.Decision{}, domain.NewNotFoundError(name)
		}
	}
	if action == access.ActionRead {
		return project, decision, nil
	}
	decision, err = g.evaluator.Evaluate(m, project, entity, action)
	if err != nil {
		return nil, access.Decision{}, err
	}
	return project, decision, nil
}

// LotVisible applies the scope predicate to a loaded lot
func (g *Guard) LotVisible(ctx context.Context, repos *repository.Repositories, scope access.Scope, lot *domain.Lot) (bool, error) {
	if !scope.Restricted {
		return true, nil
	}
	rows, err := repos.Assignments.ListByLots(ctx, []uuid.UUID{lot.ID})
	if err != nil {
		return false, fmt.Errorf("failed to load lot assignments: %w", err)
	}
	return scope.AllowsLot(lot, rows), nil
}

// NCRVisible applies the scope predicate to a loaded NCR and its lot links
func (g *Guard) NCRVisible(ctx context.Context, repos *repository.Repositories, scope access.Scope, ncr *domain.NCR) (bool, error) {
	if !scope.Restricted {
		return true, nil
	}
	lotIDs := make([]uuid.UUID, 0, len(ncr.Lots))
	for _, link := range ncr.Lots {
		lotIDs = append(lotIDs, link.LotID)
	}

	visible := make(map[uuid.UUID]bool, len(lotIDs))
	if len(lotIDs) > 0 {
		lots, err := repos.Lots.GetByIDs(ctx, ncr.ProjectID, lotIDs)
		if err != nil {
			return false, fmt.Errorf("failed to load linked lots: %w", err)
		}
		rows, err := repos.Assignments.ListByLots(ctx, lotIDs)
		if err != nil {
			return false, fmt.Errorf("failed to load lot assignments: %w", err)
		}
		for i := range lots {
			visible[lots[i].ID] = scope.AllowsLot(&lots[i], rows)
		}
	}
	return scope.AllowsNCR(ncr, visible), nil
}

// notFoundOr converts a missing row into a NotFound error and wraps anything else
func notFoundOr(err error, name string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError(name)
	}
	return fmt.Errorf("failed to load %s: %w", name, err)
}

// conflictOn converts a unique violation into a Conflict error
func conflictOn(err error, code, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError(code, message)
	}
	return err
}

// pageOf normalizes a page request against the repository limits
func pageOf(p domain.PageRequest) domain.PageRequest {
	return repository.NormalizePage(p)
}

// actorOf is the audit identity of m; nil memberships are rejected by the guard
func actorOf(m *access.Membership) uuid.UUID {
	if m == nil {
		return uuid.Nil
	}
	return m.UserID
}
