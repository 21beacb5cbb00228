package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/mapper"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"go.uber.org/zap"
)

// AuditLogService reads the audit trail written by the orchestrator
type AuditLogService struct {
	orch   *Orchestrator
	guard  *Guard
	logger *zap.Logger
}

// NewAuditLogService creates a new AuditLogService
func NewAuditLogService(orch *Orchestrator, guard *Guard, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{orch: orch, guard: guard, logger: logger}
}

// AuditLogQuery filters a project's audit trail
type AuditLogQuery struct {
	ProjectID  uuid.UUID
	UserID     *uuid.UUID
	Action     *domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	StartTime  *time.Time
	EndTime    *time.Time
}

// List returns a page of audit rows for one project
func (s *AuditLogService) List(ctx context.Context, m *access.Membership, q AuditLogQuery, page domain.PageRequest) (*domain.Paged[domain.AuditLogDTO], error) {
	repos := s.orch.Repos()
	if _, _, err := s.guard.Authorize(ctx, repos, m, q.ProjectID, domain.EntityAudit, access.ActionRead); err != nil {
		return nil, err
	}

	projectID := q.ProjectID
	filter := &repository.AuditLogFilter{
		ProjectID:  &projectID,
		UserID:     q.UserID,
		Action:     q.Action,
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		StartTime:  q.StartTime,
		EndTime:    q.EndTime,
	}

	page = pageOf(page)
	logs, total, err := repos.AuditLogs.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	items := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		items[i] = mapper.ToAuditLogDTO(&logs[i])
	}
	return &domain.Paged[domain.AuditLogDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}
