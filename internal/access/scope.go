package access

import (
	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// Scope narrows the records a caller may see. The zero value is unrestricted.
// A restricted scope without a subcontractor company grants only records where
// the user is personally named responsible.
type Scope struct {
	Restricted             bool
	SubcontractorCompanyID *uuid.UUID
	UserID                 uuid.UUID
}

// Unrestricted is the scope of head-contractor roles.
func Unrestricted() Scope {
	return Scope{}
}

// AllowsLot mirrors the lot scope SQL predicate in the repository layer.
func (s Scope) AllowsLot(lot *domain.Lot, assignments []domain.LotSubcontractorAssignment) bool {
	if !s.Restricted {
		return true
	}
	if s.SubcontractorCompanyID == nil {
		return false
	}
	for _, id := range EffectiveAssignments(lot, assignments) {
		if id == *s.SubcontractorCompanyID {
			return true
		}
	}
	return false
}

// AllowsNCR reports whether the NCR names the user responsible or links a lot
// in visibleLots.
func (s Scope) AllowsNCR(ncr *domain.NCR, visibleLots map[uuid.UUID]bool) bool {
	if !s.Restricted {
		return true
	}
	if ncr.ResponsibleUserID != nil && *ncr.ResponsibleUserID == s.UserID {
		return true
	}
	if s.SubcontractorCompanyID == nil {
		return false
	}
	for _, link := range ncr.Lots {
		if visibleLots[link.LotID] {
			return true
		}
	}
	return false
}

// AllowsDocket mirrors the docket scope predicate.
func (s Scope) AllowsDocket(docket *domain.Docket) bool {
	if !s.Restricted {
		return true
	}
	return s.SubcontractorCompanyID != nil && docket.SubcontractorCompanyID == *s.SubcontractorCompanyID
}
