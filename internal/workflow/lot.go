// Package workflow holds the lifecycle rules of every quality record. Functions
// here validate and apply transitions on in-memory models; persistence and side
// effects belong to the service layer.
package workflow

import (
	"fmt"

	"github.com/juggajay/site-proof-sub006/internal/domain"
)

var lotProgression = map[domain.LotStatus]int{
	domain.LotStatusNotStarted:   0,
	domain.LotStatusInProgress:   1,
	domain.LotStatusAwaitingTest: 2,
	domain.LotStatusCompleted:    3,
}

func invalidTransition(field string, from, to interface{}) error {
	return domain.NewValidationError(
		domain.CodeInvalidStatusTransition,
		field,
		fmt.Sprintf("cannot transition from %v to %v", from, to),
	)
}

// ValidateLotShape enforces the location fields each lot type needs.
func ValidateLotShape(lotType domain.LotType, areaZone, structureID *string) error {
	switch lotType {
	case domain.LotTypeArea:
		if areaZone == nil || *areaZone == "" {
			return domain.NewValidationError(domain.CodeAreaZoneRequired, "areaZone", "area lots require a zone")
		}
	case domain.LotTypeStructure:
		if structureID == nil || *structureID == "" {
			return domain.NewValidationError(domain.CodeStructureIDRequired, "structureId", "structure lots require a structure identifier")
		}
	case domain.LotTypeChainage:
	default:
		return domain.NewValidationError(domain.CodeValidation, "lotType", "unknown lot type")
	}
	return nil
}

// ValidateLotTransition allows staying put or moving forward, skipping steps if
// needed. ncr_raised is never a target; it is derived from HasOpenNCR.
func ValidateLotTransition(from, to domain.LotStatus) error {
	fromRank, ok := lotProgression[from]
	if !ok {
		return invalidTransition("status", from, to)
	}
	toRank, ok := lotProgression[to]
	if !ok {
		return invalidTransition("status", from, to)
	}
	if toRank < fromRank {
		return invalidTransition("status", from, to)
	}
	return nil
}

// DisplayLotStatus is what clients see as the lot status.
func DisplayLotStatus(lot *domain.Lot) domain.LotStatus {
	if lot.HasOpenNCR {
		return domain.LotStatusNCRRaised
	}
	return lot.Status
}

// LotCompletionGate collects the facts that block completion of a lot.
type LotCompletionGate struct {
	HasOpenNCR           bool
	UnsatisfiedITPItems  int
	UnreleasedHoldPoints int
}

// CheckLotCompletion reports the first blocker, if any.
func CheckLotCompletion(g LotCompletionGate) error {
	if g.HasOpenNCR {
		return domain.NewValidationError(domain.CodeLotHasOpenNCR, "status", "lot has an open NCR")
	}
	if g.UnsatisfiedITPItems > 0 {
		return domain.NewValidationError(domain.CodeITPIncomplete, "status",
			fmt.Sprintf("%d ITP items are not complete or not verified", g.UnsatisfiedITPItems))
	}
	if g.UnreleasedHoldPoints > 0 {
		return domain.NewValidationError(domain.CodeHoldPointsUnreleased, "status",
			fmt.Sprintf("%d hold points are not released", g.UnreleasedHoldPoints))
	}
	return nil
}

// CheckLotDeletable allows deleting lots that are not completed and carry no NCR links.
func CheckLotDeletable(lot *domain.Lot, ncrLinks int64) error {
	if lot.Status == domain.LotStatusCompleted {
		return domain.NewValidationError(domain.CodeLotCompleted, "status", "completed lots cannot be deleted")
	}
	if ncrLinks > 0 {
		return domain.NewConflictError(domain.CodeLotHasNCRs, "lot is referenced by NCRs")
	}
	return nil
}

// StartOnFirstCompletion moves a not started lot into progress. It reports
// whether the status changed.
func StartOnFirstCompletion(lot *domain.Lot) bool {
	if lot.Status != domain.LotStatusNotStarted {
		return false
	}
	lot.Status = domain.LotStatusInProgress
	return true
}
