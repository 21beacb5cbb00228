package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/notify"
	"go.uber.org/zap"
)

// Job names registered with the scheduler
const (
	OutboxDispatchJobName = "outbox_dispatch"
	OutboxPurgeJobName    = "outbox_purge"
)

// Defaults used when configuration leaves a value unset
const (
	DefaultBatchSize   = 100
	DefaultMaxAttempts = 5
	DefaultRetention   = 30 * 24 * time.Hour
)

// OutboxStore is the slice of the notification repository the outbox jobs need.
type OutboxStore interface {
	ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]domain.Notification, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxOptions tunes the outbox jobs
type OutboxOptions struct {
	BatchSize   int
	MaxAttempts int
	Retention   time.Duration
	Timeout     time.Duration
}

func (o OutboxOptions) withDefaults() OutboxOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Minute
	}
	return o
}

// OutboxJob drains pending notifications to the notifier and purges old ones.
// Rows that fail delivery stay in the outbox until MaxAttempts is reached.
type OutboxJob struct {
	store    OutboxStore
	notifier notify.Notifier
	logger   *zap.Logger
	opts     OutboxOptions
	now      func() time.Time
}

// NewOutboxJob creates a new outbox job
func NewOutboxJob(store OutboxStore, notifier notify.Notifier, logger *zap.Logger, opts OutboxOptions) *OutboxJob {
	return &OutboxJob{
		store:    store,
		notifier: notifier,
		logger:   logger,
		opts:     opts.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch delivers one batch. Delivery failures are recorded per row and only
// a failure to read the outbox is returned.
func (j *OutboxJob) Dispatch(ctx context.Context) (sent int, failed int, err error) {
	pending, err := j.store.ListUndelivered(ctx, j.opts.MaxAttempts, j.opts.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	for i := range pending {
		n := &pending[i]
		if err := j.notifier.Deliver(ctx, n); err != nil {
			failed++
			j.logger.Warn("notification delivery failed",
				zap.String("notification_id", n.ID.String()),
				zap.Int("attempt", n.Attempts+1),
				zap.Error(err))
			if markErr := j.store.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				j.logger.Error("failed to record delivery failure",
					zap.String("notification_id", n.ID.String()),
					zap.Error(markErr))
			}
			continue
		}
		if err := j.store.MarkDispatched(ctx, n.ID, j.now()); err != nil {
			// delivered but not recorded; the row is delivered again next run
			j.logger.Error("failed to record delivery",
				zap.String("notification_id", n.ID.String()),
				zap.Error(err))
			failed++
			continue
		}
		sent++
	}
	return sent, failed, nil
}

// Run executes one dispatch pass. It is called by the scheduler.
func (j *OutboxJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.opts.Timeout)
	defer cancel()

	start := time.Now()
	sent, failed, err := j.Dispatch(ctx)
	if err != nil {
		j.logger.Error("outbox dispatch failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if sent > 0 || failed > 0 {
		j.logger.Info("outbox dispatch completed",
			zap.Int("sent", sent),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)))
	}
}

// Purge deletes delivered, read notifications older than the retention period
func (j *OutboxJob) Purge(ctx context.Context) (int64, error) {
	return j.store.PurgeDelivered(ctx, j.now().Add(-j.opts.Retention))
}

// RunPurge executes one purge pass. It is called by the scheduler.
func (j *OutboxJob) RunPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), j.opts.Timeout)
	defer cancel()

	deleted, err := j.Purge(ctx)
	if err != nil {
		j.logger.Error("outbox purge failed", zap.Error(err))
		return
	}
	j.logger.Info("outbox purge completed", zap.Int64("deleted", deleted))
}

// RegisterOutboxJobs registers the dispatcher and the purge with the scheduler.
// An empty purgeExpr leaves purging disabled.
func RegisterOutboxJobs(scheduler *Scheduler, job *OutboxJob, dispatchExpr, purgeExpr string) error {
	if err := scheduler.AddJob(OutboxDispatchJobName, dispatchExpr, job.Run); err != nil {
		return err
	}
	if purgeExpr == "" {
		return nil
	}
	return scheduler.AddJob(OutboxPurgeJobName, purgeExpr, job.RunPurge)
}
