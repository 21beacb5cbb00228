package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Orchestrator runs every multi-step mutation in one database transaction.
// Audit rows and outbox notifications collected during the step are written
// before commit, so they exist if and only if the mutation does.
type Orchestrator struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator over db
func NewOrchestrator(db *gorm.DB, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		db:     db,
		repos:  repository.NewRepositories(db),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the wall clock. Tests use it to age hold points.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Now returns the service clock reading
func (o *Orchestrator) Now() time.Time {
	return o.now()
}

// Repos returns repositories bound to the root connection, for reads
func (o *Orchestrator) Repos() *repository.Repositories {
	return o.repos
}

// TxContext is handed to a mutation step. Repos are bound to the transaction.
type TxContext struct {
	Ctx   context.Context
	Repos *repository.Repositories
	Now   time.Time

	actor         uuid.UUID
	notifications []*domain.Notification
	audits        []*domain.AuditLog
}

// Emit queues an outbox notification
func (tx *TxContext) Emit(n *domain.Notification) {
	n.DeliveryStatus = domain.DeliveryStatusPending
	tx.notifications = append(tx.notifications, n)
}

// Notify queues one notification per distinct recipient
func (tx *TxContext) Notify(recipients []uuid.UUID, projectID uuid.UUID, kind domain.NotificationType, title, message, entityType string, entityID uuid.UUID) {
	seen := make(map[uuid.UUID]bool, len(recipients))
	for _, userID := range recipients {
		if userID == uuid.Nil || seen[userID] {
			continue
		}
		seen[userID] = true
		pid, eid := projectID, entityID
		tx.Emit(&domain.Notification{
			ProjectID:  &pid,
			UserID:     userID,
			Type:       string(kind),
			Title:      title,
			Message:    message,
			EntityType: entityType,
			EntityID:   &eid,
		})
	}
}

// Audit queues an audit row for the acting user
func (tx *TxContext) Audit(projectID uuid.UUID, action domain.AuditAction, entityType string, entityID uuid.UUID, from, to string, details interface{}) {
	entry := &domain.AuditLog{
		UserID:      tx.actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		FromState:   from,
		ToState:     to,
		PerformedAt: tx.Now,
	}
	if projectID != uuid.Nil {
		pid := projectID
		entry.ProjectID = &pid
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	tx.audits = append(tx.audits, entry)
}

// Run executes fn inside a transaction on behalf of actor. Errors from fn are
// returned unchanged after rollback.
func (o *Orchestrator) Run(ctx context.Context, actor uuid.UUID, fn func(tx *TxContext) error) error {
	return o.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		tx := &TxContext{
			Ctx:   ctx,
			Repos: repository.NewRepositories(db),
			Now:   o.now(),
			actor: actor,
		}

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Repos.AuditLogs.CreateBatch(ctx, tx.audits); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		if err := tx.Repos.Notifications.CreateBatch(ctx, tx.notifications); err != nil {
			return fmt.Errorf("failed to append notifications: %w", err)
		}

		if len(tx.notifications) > 0 {
			o.logger.Debug("notifications queued",
				zap.String("actor", actor.String()),
				zap.Int("count", len(tx.notifications)))
		}
		return nil
	})
}
