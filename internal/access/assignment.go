package access

import (
	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// EffectiveAssignments merges the legacy single-assignment field with the active
// assignment rows of the lot. The legacy company comes first, then rows in the
// given order, without duplicates.
func EffectiveAssignments(lot *domain.Lot, rows []domain.LotSubcontractorAssignment) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	out := make([]uuid.UUID, 0, len(rows)+1)

	if lot.AssignedSubcontractorID != nil {
		seen[*lot.AssignedSubcontractorID] = true
		out = append(out, *lot.AssignedSubcontractorID)
	}
	for _, row := range rows {
		if row.LotID != lot.ID || row.Status != domain.AssignmentStatusActive {
			continue
		}
		if seen[row.SubcontractorCompanyID] {
			continue
		}
		seen[row.SubcontractorCompanyID] = true
		out = append(out, row.SubcontractorCompanyID)
	}
	return out
}

// ActiveAssignment returns the active assignment row of companyID on the lot, or nil.
// The legacy field never yields a row.
func ActiveAssignment(lotID, companyID uuid.UUID, rows []domain.LotSubcontractorAssignment) *domain.LotSubcontractorAssignment {
	for i := range rows {
		row := &rows[i]
		if row.LotID == lotID && row.SubcontractorCompanyID == companyID && row.Status == domain.AssignmentStatusActive {
			return row
		}
	}
	return nil
}
