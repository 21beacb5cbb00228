package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/jobs"
	"github.com/juggajay/site-proof-sub006/internal/notify"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu        sync.Mutex
	delivered []uuid.UUID
	fail      map[uuid.UUID]bool
}

func (r *recorder) Deliver(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[n.ID] {
		return errors.New("mailbox unavailable")
	}
	r.delivered = append(r.delivered, n.ID)
	return nil
}

func enqueue(t *testing.T, db *gorm.DB, userID uuid.UUID, title string) *domain.Notification {
	t.Helper()
	n := &domain.Notification{
		UserID:         userID,
		Type:           string(domain.NotificationNCRAssigned),
		Title:          title,
		DeliveryStatus: domain.DeliveryStatusPending,
	}
	require.NoError(t, db.Create(n).Error)
	return n
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) domain.Notification {
	t.Helper()
	var n domain.Notification
	require.NoError(t, db.First(&n, "id = ?", id).Error)
	return n
}

func TestOutboxJob_Dispatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	company := testutil.CreateCompany(t, db, "Outbox Pty")
	user := testutil.CreateUser(t, db, company.ID, domain.RoleMember)
	store := repository.NewNotificationRepository(db)

	ok := enqueue(t, db, user.ID, "first")
	bad := enqueue(t, db, user.ID, "second")

	rec := &recorder{fail: map[uuid.UUID]bool{bad.ID: true}}
	job := jobs.NewOutboxJob(store, rec, testutil.NewLogger(), jobs.OutboxOptions{MaxAttempts: 2})
	ctx := context.Background()

	t.Run("successful delivery is marked dispatched", func(t *testing.T) {
		sent, failed, err := job.Dispatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, 1, failed)

		got := reload(t, db, ok.ID)
		assert.Equal(t, domain.DeliveryStatusDispatched, got.DeliveryStatus)
		assert.NotNil(t, got.DispatchedAt)
		assert.Equal(t, 1, got.Attempts)
	})

	t.Run("failed delivery records the error", func(t *testing.T) {
		got := reload(t, db, bad.ID)
		assert.Equal(t, domain.DeliveryStatusFailed, got.DeliveryStatus)
		assert.Equal(t, "mailbox unavailable", got.LastError)
		assert.Equal(t, 1, got.Attempts)
	})

	t.Run("failed rows are retried until max attempts", func(t *testing.T) {
		sent, failed, err := job.Dispatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
		assert.Equal(t, 1, failed)

		sent, failed, err = job.Dispatch(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Zero(t, failed)
		assert.Equal(t, 2, reload(t, db, bad.ID).Attempts)
	})

	t.Run("a recovered notifier drains retries", func(t *testing.T) {
		late := enqueue(t, db, user.ID, "third")
		rec.mu.Lock()
		rec.fail = nil
		rec.mu.Unlock()

		sent, _, err := job.Dispatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Contains(t, rec.delivered, late.ID)
	})
}

func TestOutboxJob_Purge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	company := testutil.CreateCompany(t, db, "Purge Pty")
	user := testutil.CreateUser(t, db, company.ID, domain.RoleMember)
	store := repository.NewNotificationRepository(db)

	old := enqueue(t, db, user.ID, "old and read")
	unread := enqueue(t, db, user.ID, "old but unread")
	fresh := enqueue(t, db, user.ID, "fresh")

	job := jobs.NewOutboxJob(store, notify.NewLogNotifier(testutil.NewLogger()), testutil.NewLogger(), jobs.OutboxOptions{Retention: 24 * time.Hour})
	_, _, err := job.Dispatch(context.Background())
	require.NoError(t, err)

	past := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&domain.Notification{}).Where("id IN ?", []uuid.UUID{old.ID, unread.ID}).
		Update("created_at", past).Error)
	require.NoError(t, db.Model(&domain.Notification{}).Where("id IN ?", []uuid.UUID{old.ID, fresh.ID}).
		Update("read", true).Error)

	deleted, err := job.Purge(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining []domain.Notification
	require.NoError(t, db.Find(&remaining).Error)
	ids := make([]uuid.UUID, 0, len(remaining))
	for _, n := range remaining {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{unread.ID, fresh.ID}, ids)
}

func TestScheduler(t *testing.T) {
	s := jobs.NewScheduler(testutil.NewLogger())
	job := jobs.NewOutboxJob(nil, notify.Func(func(context.Context, *domain.Notification) error { return nil }),
		testutil.NewLogger(), jobs.OutboxOptions{})

	t.Run("registers both outbox jobs", func(t *testing.T) {
		require.NoError(t, jobs.RegisterOutboxJobs(s, job, "@every 30s", "@daily"))
		assert.Equal(t, []string{jobs.OutboxDispatchJobName, jobs.OutboxPurgeJobName}, s.JobNames())
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		assert.Error(t, s.AddJob(jobs.OutboxDispatchJobName, "@every 1m", func() {}))
	})

	t.Run("invalid expressions are rejected", func(t *testing.T) {
		assert.Error(t, s.AddJob("broken", "not a cron", func() {}))
	})

	t.Run("remove unregisters", func(t *testing.T) {
		require.NoError(t, s.RemoveJob(jobs.OutboxPurgeJobName))
		assert.Equal(t, []string{jobs.OutboxDispatchJobName}, s.JobNames())
		assert.Error(t, s.RemoveJob(jobs.OutboxPurgeJobName))
	})
}
