package access

import (
	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// Affiliation is a user's resolved subcontractor company on one project.
type Affiliation struct {
	CompanyID uuid.UUID
	Role      domain.SubcontractorRole
}

// Membership is everything the evaluator needs to know about a user. It is
// built once per request and never mutated afterwards.
type Membership struct {
	UserID         uuid.UUID
	CompanyID      uuid.UUID
	CompanyRole    domain.Role
	ProjectRoles   map[uuid.UUID]domain.Role
	Subcontractors map[uuid.UUID]Affiliation
}

// SubcontractorLink is one active SubcontractorUser row joined to its
// non-removed SubcontractorCompany.
type SubcontractorLink struct {
	ProjectID uuid.UUID
	CompanyID uuid.UUID
	Role      domain.SubcontractorRole
}

// BuildMembership assembles a Membership from persisted rows. Only active project
// memberships count. A project with more than one distinct subcontractor company
// resolves to no affiliation at all.
func BuildMembership(user *domain.User, projectUsers []domain.ProjectUser, links []SubcontractorLink) *Membership {
	m := &Membership{
		UserID:         user.ID,
		CompanyID:      user.CompanyID,
		CompanyRole:    user.RoleInCompany,
		ProjectRoles:   make(map[uuid.UUID]domain.Role, len(projectUsers)),
		Subcontractors: make(map[uuid.UUID]Affiliation),
	}

	for _, pu := range projectUsers {
		if pu.UserID != user.ID || pu.Status != domain.MembershipStatusActive {
			continue
		}
		m.ProjectRoles[pu.ProjectID] = pu.Role
	}

	ambiguous := make(map[uuid.UUID]bool)
	for _, link := range links {
		if ambiguous[link.ProjectID] {
			continue
		}
		existing, ok := m.Subcontractors[link.ProjectID]
		if ok && existing.CompanyID != link.CompanyID {
			delete(m.Subcontractors, link.ProjectID)
			ambiguous[link.ProjectID] = true
			continue
		}
		m.Subcontractors[link.ProjectID] = Affiliation{CompanyID: link.CompanyID, Role: link.Role}
	}

	return m
}

// ProjectRole returns the active project-scoped role, if any.
func (m *Membership) ProjectRole(projectID uuid.UUID) (domain.Role, bool) {
	role, ok := m.ProjectRoles[projectID]
	return role, ok
}

// SubcontractorCompany returns the resolved subcontractor company for a project.
func (m *Membership) SubcontractorCompany(projectID uuid.UUID) (uuid.UUID, bool) {
	a, ok := m.Subcontractors[projectID]
	if !ok {
		return uuid.Nil, false
	}
	return a.CompanyID, true
}

// ProjectIDs lists the projects the user holds an explicit membership on.
func (m *Membership) ProjectIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m.ProjectRoles))
	for id := range m.ProjectRoles {
		ids = append(ids, id)
	}
	return ids
}
