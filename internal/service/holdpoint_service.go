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

// HoldPointService schedules, requests and releases hold points
type HoldPointService struct {
	orch   *Orchestrator
	guard  *Guard
	logger *zap.Logger
}

// NewHoldPointService creates a new HoldPointService
func NewHoldPointService(orch *Orchestrator, guard *Guard, logger *zap.Logger) *HoldPointService {
	return &HoldPointService{orch: orch, guard: guard, logger: logger}
}

// List returns the project's hold points within the caller's scope. Staleness is
// evaluated against the service clock.
func (s *HoldPointService) List(ctx context.Context, m *access.Membership, projectID uuid.UUID, filter repository.HoldPointFilter, page domain.PageRequest) (*domain.Paged[domain.HoldPointDTO], error) {
	repos := s.orch.Repos()
	_, decision, err := s.guard.Authorize(ctx, repos, m, projectID, domain.EntityHoldPoint, access.ActionRead)
	if err != nil {
		return nil, err
	}

	page = pageOf(page)
	points, total, err := repos.HoldPoints.List(ctx, projectID, decision.Scope, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list hold points: %w", err)
	}

	now := s.orch.Now()
	items := make([]domain.HoldPointDTO, len(points))
	for i := range points {
		items[i] = mapper.ToHoldPointDTO(&points[i], now)
	}
	return &domain.Paged[domain.HoldPointDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}

// Metrics summarises the visible hold points of a project
func (s *HoldPointService) Metrics(ctx context.Context, m *access.Membership, projectID uuid.UUID) (*domain.HoldPointMetricsDTO, error) {
	repos := s.orch.Repos()
	_, decision, err := s.guard.Authorize(ctx, repos, m, projectID, domain.EntityHoldPoint, access.ActionRead)
	if err != nil {
		return nil, err
	}
	points, err := repos.HoldPoints.ListAll(ctx, projectID, decision.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load hold points: %w", err)
	}
	metrics := workflow.HoldPointMetrics(points, s.orch.Now())
	return &metrics, nil
}

// mutate locks the hold point, authorizes action through its lot and saves fn's changes
func (s *HoldPointService) mutate(ctx context.Context, m *access.Membership, id uuid.UUID, action access.Action, fn func(tx *TxContext, hp *domain.HoldPoint, lot *domain.Lot) error) (*domain.HoldPointDTO, error) {
	var (
		hp  *domain.HoldPoint
		now = s.orch.Now()
	)

	err := s.orch.Run(ctx, actorOf(m), func(tx *TxContext) error {
		var err error
		hp, err = tx.Repos.HoldPoints.GetByIDForUpdate(tx.Ctx, id)
		if err != nil {
			return notFoundOr(err, "hold point")
		}
		lot, err := tx.Repos.Lots.GetByID(tx.Ctx, hp.LotID)
		if err != nil {
			return notFoundOr(err, "hold point")
		}
		visible := func(scope access.Scope) (bool, error) {
			return s.guard.LotVisible(tx.Ctx, tx.Repos, scope, lot)
		}
		if _, _, err := s.guard.Check(tx.Ctx, tx.Repos, m, hp.ProjectID, domain.EntityHoldPoint, action, "hold point", visible); err != nil {
			return err
		}

		from := hp.Status
		if err := fn(tx, hp, lot); err != nil {
			return err
		}
		if err := tx.Repos.HoldPoints.Update(tx.Ctx, hp); err != nil {
			return fmt.Errorf("failed to update hold point: %w", err)
		}
		tx.Audit(hp.ProjectID, domain.AuditActionTransition, domain.EntityHoldPoint, hp.ID, string(from), string(hp.Status), nil)
		now = tx.Now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("hold point updated",
		zap.String("hold_point_id", hp.ID.String()),
		zap.String("status", string(hp.Status)))

	dto := mapper.ToHoldPointDTO(hp, now)
	return &dto, nil
}

// Schedule books the inspection
func (s *HoldPointService) Schedule(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.ScheduleHoldPointRequest) (*domain.HoldPointDTO, error) {
	return s.mutate(ctx, m, id, access.ActionRequest, func(tx *TxContext, hp *domain.HoldPoint, _ *domain.Lot) error {
		return workflow.Schedule(hp, req.ScheduledFor)
	})
}

// Request asks for release and notifies every member able to release it
func (s *HoldPointService) Request(ctx context.Context, m *access.Membership, id uuid.UUID) (*domain.HoldPointDTO, error) {
	return s.mutate(ctx, m, id, access.ActionRequest, func(tx *TxContext, hp *domain.HoldPoint, lot *domain.Lot) error {
		if err := workflow.RequestRelease(hp, m.UserID, tx.Now); err != nil {
			return err
		}
		releasers, err := tx.Repos.Members.ListActiveWithRoles(tx.Ctx, hp.ProjectID,
			s.guard.Evaluator().Matrix().Roles(domain.EntityHoldPoint, access.ActionRelease))
		if err != nil {
			return fmt.Errorf("failed to load release roles: %w", err)
		}
		recipients := make([]uuid.UUID, 0, len(releasers))
		for _, r := range releasers {
			recipients = append(recipients, r.UserID)
		}
		tx.Notify(recipients, hp.ProjectID, domain.NotificationHoldPointRequested,
			fmt.Sprintf("Hold point release requested on lot %s", lot.LotNumber),
			hp.Description, domain.EntityHoldPoint, hp.ID)
		return nil
	})
}

// Release releases the hold point and tells the requester
func (s *HoldPointService) Release(ctx context.Context, m *access.Membership, id uuid.UUID, req *domain.ReleaseHoldPointRequest) (*domain.HoldPointDTO, error) {
	return s.mutate(ctx, m, id, access.ActionRelease, func(tx *TxContext, hp *domain.HoldPoint, lot *domain.Lot) error {
		if err := workflow.Release(hp, m.UserID, req.Notes, tx.Now); err != nil {
			return err
		}
		if hp.RequestedByID != nil {
			tx.Notify([]uuid.UUID{*hp.RequestedByID}, hp.ProjectID, domain.NotificationHoldPointReleased,
				fmt.Sprintf("Hold point released on lot %s", lot.LotNumber),
				req.Notes, domain.EntityHoldPoint, hp.ID)
		}
		return nil
	})
}
