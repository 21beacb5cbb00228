package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/repository"
	"github.com/juggajay/site-proof-sub006/internal/service"
	"github.com/juggajay/site-proof-sub006/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *site) holdPointOn(t *testing.T, f *itpFixture) domain.HoldPointDTO {
	t.Helper()
	page, err := s.holdPoints.List(context.Background(), s.as(t, s.pm), s.project.ID,
		repository.HoldPointFilter{LotID: &f.lot.ID}, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	return page.Items[0]
}

func TestHoldPointService_Lifecycle(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()
	f := s.bindITP(t, "LOT-HP")
	hp := s.holdPointOn(t, f)

	t.Run("viewer may not request", func(t *testing.T) {
		_, err := s.holdPoints.Request(ctx, s.as(t, s.viewer), hp.ID)
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})

	t.Run("schedule books the inspection", func(t *testing.T) {
		at := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
		got, err := s.holdPoints.Schedule(ctx, s.as(t, s.engineer), hp.ID, &domain.ScheduleHoldPointRequest{ScheduledFor: at})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldPointStatusScheduled, got.Status)
		require.NotNil(t, got.ScheduledFor)
		assert.True(t, at.Equal(*got.ScheduledFor))
	})

	t.Run("request notifies every releaser", func(t *testing.T) {
		got, err := s.holdPoints.Request(ctx, s.as(t, s.engineer), hp.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldPointStatusRequested, got.Status)
		assert.NotNil(t, got.RequestedAt)

		assert.Len(t, s.notificationsFor(t, s.pm.ID, domain.NotificationHoldPointRequested), 1)
		assert.Len(t, s.notificationsFor(t, s.qm.ID, domain.NotificationHoldPointRequested), 1)
		assert.Empty(t, s.notificationsFor(t, s.foreman.ID, domain.NotificationHoldPointRequested))
	})

	t.Run("site engineer may not release", func(t *testing.T) {
		_, err := s.holdPoints.Release(ctx, s.as(t, s.engineer), hp.ID, &domain.ReleaseHoldPointRequest{})
		requireCode(t, err, domain.KindForbidden, domain.CodeInsufficientRole)
	})

	t.Run("release tells the requester", func(t *testing.T) {
		got, err := s.holdPoints.Release(ctx, s.as(t, s.qm), hp.ID, &domain.ReleaseHoldPointRequest{Notes: "inspected"})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldPointStatusReleased, got.Status)
		assert.Equal(t, "inspected", got.ReleaseNotes)
		assert.Equal(t, &s.qm.ID, got.ReleasedByID)
		assert.Len(t, s.notificationsFor(t, s.engineer.ID, domain.NotificationHoldPointReleased), 1)
	})

	t.Run("release is one way", func(t *testing.T) {
		_, err := s.holdPoints.Release(ctx, s.as(t, s.qm), hp.ID, &domain.ReleaseHoldPointRequest{})
		requireCode(t, err, domain.KindValidation, domain.CodeHoldPointReleased)

		_, err = s.holdPoints.Request(ctx, s.as(t, s.engineer), hp.ID)
		requireCode(t, err, domain.KindValidation, domain.CodeInvalidStatusTransition)
	})

	t.Run("pending hold point can be released directly", func(t *testing.T) {
		other := s.holdPointOn(t, s.bindITP(t, "LOT-HP2"))
		got, err := s.holdPoints.Release(ctx, s.as(t, s.pm), other.ID, &domain.ReleaseHoldPointRequest{})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldPointStatusReleased, got.Status)
	})
}

func TestHoldPointService_RequestUsesGuardMatrix(t *testing.T) {
	s := newSite(t)
	f := s.bindITP(t, "LOT-HPM")
	hp := s.holdPointOn(t, f)

	matrix := access.DefaultMatrix()
	matrix[access.Permission{Entity: domain.EntityHoldPoint, Action: access.ActionRelease}] = map[domain.Role]bool{
		domain.RoleForeman: true,
	}
	logger := testutil.NewLogger()
	holdPoints := service.NewHoldPointService(s.orch, service.NewGuard(access.NewEvaluator(matrix), logger), logger)

	_, err := holdPoints.Request(context.Background(), s.as(t, s.engineer), hp.ID)
	require.NoError(t, err)

	assert.Len(t, s.notificationsFor(t, s.foreman.ID, domain.NotificationHoldPointRequested), 1)
	assert.Empty(t, s.notificationsFor(t, s.pm.ID, domain.NotificationHoldPointRequested))
	assert.Empty(t, s.notificationsFor(t, s.qm.ID, domain.NotificationHoldPointRequested))
}

func TestHoldPointService_Staleness(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	pending := s.holdPointOn(t, s.bindITP(t, "LOT-OLD"))
	released := s.holdPointOn(t, s.bindITP(t, "LOT-DONE"))
	_, err := s.holdPoints.Release(ctx, s.as(t, s.qm), released.ID, &domain.ReleaseHoldPointRequest{})
	require.NoError(t, err)

	t.Run("fresh hold points are not stale", func(t *testing.T) {
		metrics, err := s.holdPoints.Metrics(ctx, s.as(t, s.pm), s.project.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, metrics.Total)
		assert.Equal(t, 0, metrics.Stale)
		assert.Equal(t, 1, metrics.Released)
		assert.NotNil(t, metrics.AverageHoursToRelease)
	})

	t.Run("unreleased hold point goes stale after seven days", func(t *testing.T) {
		s.orch.SetClock(func() time.Time { return time.Now().UTC().Add(8 * 24 * time.Hour) })
		t.Cleanup(func() { s.orch.SetClock(func() time.Time { return time.Now().UTC() }) })

		page, err := s.holdPoints.List(ctx, s.as(t, s.pm), s.project.ID, repository.HoldPointFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		for _, item := range page.Items {
			assert.Equal(t, item.ID == pending.ID, item.IsStale, "hold point %s", item.ID)
		}

		metrics, err := s.holdPoints.Metrics(ctx, s.as(t, s.pm), s.project.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, metrics.Stale)
		assert.Equal(t, 1, metrics.ByStatus[domain.HoldPointStatusPending])
	})
}

func TestHoldPointService_SubcontractorScope(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()

	visible := s.bindITP(t, "LOT-VIS")
	s.bindITP(t, "LOT-INVIS")
	_, err := s.lots.AssignSubcontractor(ctx, s.as(t, s.pm), visible.lot.ID, &domain.AssignLotSubcontractorRequest{SubcontractorCompanyID: s.sub.ID})
	require.NoError(t, err)

	page, err := s.holdPoints.List(ctx, s.as(t, s.subUser), s.project.ID, repository.HoldPointFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, visible.lot.ID, page.Items[0].LotID)

	metrics, err := s.holdPoints.Metrics(ctx, s.as(t, s.subUser), s.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Total)
}
