package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// StaleAfter is how long an unreleased hold point may wait before it is stale.
const StaleAfter = 7 * 24 * time.Hour

// IsStale is derived on every read and never stored.
func IsStale(hp *domain.HoldPoint, now time.Time) bool {
	if hp.Status == domain.HoldPointStatusReleased {
		return false
	}
	return now.Sub(hp.CreatedAt) > StaleAfter
}

// Schedule books or reschedules an inspection.
func Schedule(hp *domain.HoldPoint, at time.Time) error {
	switch hp.Status {
	case domain.HoldPointStatusPending, domain.HoldPointStatusScheduled:
	default:
		return invalidTransition("status", hp.Status, domain.HoldPointStatusScheduled)
	}
	hp.Status = domain.HoldPointStatusScheduled
	hp.ScheduledFor = &at
	return nil
}

// RequestRelease asks the superintendent to release the hold point.
func RequestRelease(hp *domain.HoldPoint, by uuid.UUID, now time.Time) error {
	switch hp.Status {
	case domain.HoldPointStatusPending, domain.HoldPointStatusScheduled:
	default:
		return invalidTransition("status", hp.Status, domain.HoldPointStatusRequested)
	}
	hp.Status = domain.HoldPointStatusRequested
	hp.RequestedAt = &now
	hp.RequestedByID = &by
	return nil
}

// Release is one-way.
func Release(hp *domain.HoldPoint, by uuid.UUID, notes string, now time.Time) error {
	if hp.Status == domain.HoldPointStatusReleased {
		return domain.NewValidationError(domain.CodeHoldPointReleased, "status", "hold point is already released")
	}
	hp.Status = domain.HoldPointStatusReleased
	hp.ReleasedAt = &now
	hp.ReleasedByID = &by
	hp.ReleaseNotes = notes
	return nil
}

// HoldPointMetrics summarises a set of hold points at now. The release average
// only covers released points.
func HoldPointMetrics(points []domain.HoldPoint, now time.Time) domain.HoldPointMetricsDTO {
	m := domain.HoldPointMetricsDTO{
		Total:    len(points),
		ByStatus: make(map[domain.HoldPointStatus]int),
	}
	var hours float64
	for i := range points {
		hp := &points[i]
		m.ByStatus[hp.Status]++
		if IsStale(hp, now) {
			m.Stale++
		}
		if hp.Status == domain.HoldPointStatusReleased && hp.ReleasedAt != nil {
			m.Released++
			hours += hp.ReleasedAt.Sub(hp.CreatedAt).Hours()
		}
	}
	if m.Released > 0 {
		avg := hours / float64(m.Released)
		m.AverageHoursToRelease = &avg
	}
	return m
}
