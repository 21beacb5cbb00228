// Package notify hands outbox notifications to the delivery collaborator.
// Delivery runs outside request handling; a failed delivery is recorded on the
// outbox row and retried by the dispatcher, never surfaced to the caller.
package notify

import (
	"context"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"go.uber.org/zap"
)

// Notifier delivers one notification. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Deliver(ctx context.Context, n *domain.Notification) error
}

// LogNotifier writes each notification to the structured log. It is the default
// collaborator until an email or push channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Deliver logs the notification
func (n *LogNotifier) Deliver(ctx context.Context, notification *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("notification_id", notification.ID.String()),
		zap.String("user_id", notification.UserID.String()),
		zap.String("type", notification.Type),
		zap.String("title", notification.Title),
	}
	if notification.ProjectID != nil {
		fields = append(fields, zap.String("project_id", notification.ProjectID.String()))
	}
	if notification.EntityID != nil {
		fields = append(fields,
			zap.String("entity_type", notification.EntityType),
			zap.String("entity_id", notification.EntityID.String()))
	}

	n.logger.Info("notification delivered", fields...)
	return nil
}

// Func adapts a function to Notifier
type Func func(ctx context.Context, n *domain.Notification) error

// Deliver calls f
func (f Func) Deliver(ctx context.Context, n *domain.Notification) error {
	return f(ctx, n)
}
