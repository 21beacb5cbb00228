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

// NotificationService is the recipient's view of the notification outbox
type NotificationService struct {
	repo   *repository.NotificationRepository
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo *repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// NotificationQuery narrows the inbox
type NotificationQuery struct {
	UnreadOnly bool
	Type       string
}

// List returns the caller's notifications, newest first
func (s *NotificationService) List(ctx context.Context, m *access.Membership, q NotificationQuery, page domain.PageRequest) (*domain.Paged[domain.NotificationDTO], error) {
	if m == nil {
		return nil, domain.NewUnauthorizedError("authentication required")
	}

	page = pageOf(page)
	notifications, total, err := s.repo.ListByUser(ctx, m.UserID, page, q.UnreadOnly, q.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	items := make([]domain.NotificationDTO, len(notifications))
	for i := range notifications {
		items[i] = mapper.ToNotificationDTO(&notifications[i])
	}
	return &domain.Paged[domain.NotificationDTO]{Items: items, Pagination: domain.NewPagination(total, page.Page, page.Limit)}, nil
}

// UnreadCount counts the caller's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, m *access.Membership) (*domain.UnreadCountDTO, error) {
	if m == nil {
		return nil, domain.NewUnauthorizedError("authentication required")
	}
	count, err := s.repo.CountUnread(ctx, m.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	return &domain.UnreadCountDTO{Count: count}, nil
}

// MarkRead marks one of the caller's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, m *access.Membership, id uuid.UUID) error {
	if m == nil {
		return domain.NewUnauthorizedError("authentication required")
	}
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "notification")
	}
	if n.UserID != m.UserID {
		return domain.NewForbiddenError(domain.CodeNotificationNotOwned, "notification belongs to another user")
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkAsRead(ctx, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every notification of the caller read
func (s *NotificationService) MarkAllRead(ctx context.Context, m *access.Membership) error {
	if m == nil {
		return domain.NewUnauthorizedError("authentication required")
	}
	if err := s.repo.MarkAllAsRead(ctx, m.UserID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	s.logger.Debug("notifications marked read", zap.String("user_id", m.UserID.String()))
	return nil
}
