package workflow_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holdPoint(status domain.HoldPointStatus, age time.Duration, now time.Time) domain.HoldPoint {
	hp := domain.HoldPoint{Status: status}
	hp.CreatedAt = now.Add(-age)
	return hp
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		status domain.HoldPointStatus
		age    time.Duration
		stale  bool
	}{
		{"fresh pending", domain.HoldPointStatusPending, 24 * time.Hour, false},
		{"exactly seven days", domain.HoldPointStatusPending, workflow.StaleAfter, false},
		{"old pending", domain.HoldPointStatusPending, 8 * 24 * time.Hour, true},
		{"old scheduled", domain.HoldPointStatusScheduled, 10 * 24 * time.Hour, true},
		{"old requested", domain.HoldPointStatusRequested, 30 * 24 * time.Hour, true},
		{"old released", domain.HoldPointStatusReleased, 30 * 24 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp := holdPoint(tt.status, tt.age, now)
			assert.Equal(t, tt.stale, workflow.IsStale(&hp, now))
		})
	}
}

func TestHoldPointTransitions(t *testing.T) {
	now := time.Now()
	user := uuid.New()

	hp := holdPoint(domain.HoldPointStatusPending, 0, now)
	require.NoError(t, workflow.Schedule(&hp, now.Add(48*time.Hour)))
	require.NoError(t, workflow.Schedule(&hp, now.Add(72*time.Hour)))
	require.NoError(t, workflow.RequestRelease(&hp, user, now))
	assert.True(t, domain.IsCode(workflow.Schedule(&hp, now), domain.CodeInvalidStatusTransition))
	assert.True(t, domain.IsCode(workflow.RequestRelease(&hp, user, now), domain.CodeInvalidStatusTransition))

	require.NoError(t, workflow.Release(&hp, user, "Inspected OK", now))
	assert.Equal(t, domain.HoldPointStatusReleased, hp.Status)
	assert.True(t, domain.IsCode(workflow.Release(&hp, user, "", now), domain.CodeHoldPointReleased))
	assert.Error(t, workflow.RequestRelease(&hp, user, now))

	direct := holdPoint(domain.HoldPointStatusPending, 0, now)
	require.NoError(t, workflow.RequestRelease(&direct, user, now))
	assert.Equal(t, domain.HoldPointStatusRequested, direct.Status)
}

func TestHoldPointMetrics_AverageOverReleasedOnly(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	r1 := holdPoint(domain.HoldPointStatusReleased, 0, now)
	released1 := r1.CreatedAt.Add(10 * time.Hour)
	r1.ReleasedAt = &released1

	r2 := holdPoint(domain.HoldPointStatusReleased, 0, now)
	released2 := r2.CreatedAt.Add(30 * time.Hour)
	r2.ReleasedAt = &released2

	points := []domain.HoldPoint{
		r1,
		r2,
		holdPoint(domain.HoldPointStatusPending, 9*24*time.Hour, now),
		holdPoint(domain.HoldPointStatusRequested, time.Hour, now),
	}

	m := workflow.HoldPointMetrics(points, now)
	assert.Equal(t, 4, m.Total)
	assert.Equal(t, 2, m.Released)
	assert.Equal(t, 1, m.Stale)
	assert.Equal(t, 2, m.ByStatus[domain.HoldPointStatusReleased])
	require.NotNil(t, m.AverageHoursToRelease)
	assert.InDelta(t, 20.0, *m.AverageHoursToRelease, 0.001)

	empty := workflow.HoldPointMetrics(points[2:], now)
	assert.Nil(t, empty.AverageHoursToRelease)
}
