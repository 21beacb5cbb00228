package access

import "github.com/juggajay/site-proof-sub006/internal/domain"

// Action is a verb in the permission matrix
type Action string

const (
	ActionRead          Action = "read"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionAssign        Action = "assign"
	ActionManageMembers Action = "manage_members"
	ActionRespond       Action = "respond"
	ActionQMApprove     Action = "qm_approve"
	ActionReject        Action = "reject"
	ActionClose         Action = "close"
	ActionNotifyClient  Action = "notify_client"
	ActionManage        Action = "manage"
	ActionComplete      Action = "complete"
	ActionVerify        Action = "verify"
	ActionRequest       Action = "request"
	ActionRelease       Action = "release"
	ActionSubmit        Action = "submit"
	ActionApprove       Action = "approve"
	ActionSupersede     Action = "supersede"
)

// Permission is one entity × action cell
type Permission struct {
	Entity string
	Action Action
}

// Matrix maps a permission to the set of roles granted it. Anything absent is denied.
type Matrix map[Permission]map[domain.Role]bool

// Allows reports whether role holds the permission
func (m Matrix) Allows(role domain.Role, entity string, action Action) bool {
	roles, ok := m[Permission{Entity: entity, Action: action}]
	if !ok {
		return false
	}
	return roles[role]
}

// Roles returns the roles granted a permission, in AllProjectRoles order.
func (m Matrix) Roles(entity string, action Action) []domain.Role {
	granted := m[Permission{Entity: entity, Action: action}]
	var out []domain.Role
	for _, r := range domain.AllProjectRoles {
		if granted[r] {
			out = append(out, r)
		}
	}
	return out
}

func roleSet(groups ...[]domain.Role) map[domain.Role]bool {
	set := make(map[domain.Role]bool)
	for _, g := range groups {
		for _, r := range g {
			set[r] = true
		}
	}
	return set
}

var (
	headContractor = []domain.Role{
		domain.RoleOwner,
		domain.RoleAdmin,
		domain.RoleProjectManager,
		domain.RoleSiteManager,
		domain.RoleQualityManager,
		domain.RoleForeman,
		domain.RoleSiteEngineer,
	}
	subcontractor = []domain.Role{domain.RoleSubcontractor, domain.RoleSubcontractorAdmin}
	everyone      = domain.AllProjectRoles

	managers         = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleProjectManager}
	lotEditors       = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleProjectManager, domain.RoleSiteManager, domain.RoleQualityManager, domain.RoleSiteEngineer}
	qualityLeads     = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleProjectManager, domain.RoleQualityManager}
	ncrEditors       = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleProjectManager, domain.RoleSiteManager, domain.RoleQualityManager}
	qmApprovers      = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleQualityManager}
	itpManagers      = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleProjectManager, domain.RoleQualityManager, domain.RoleSiteEngineer}
	docketApprovers  = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleProjectManager, domain.RoleSiteManager, domain.RoleForeman}
	lotAssigners     = []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleProjectManager, domain.RoleSiteManager}
	holdPointRelease = ncrEditors
)

// DefaultMatrix is the single source of truth for role-gated actions.
func DefaultMatrix() Matrix {
	return Matrix{
		{domain.EntityProject, ActionRead}:          roleSet(everyone),
		{domain.EntityProject, ActionManageMembers}: roleSet(managers),

		{domain.EntityLot, ActionRead}:   roleSet(everyone),
		{domain.EntityLot, ActionCreate}: roleSet(lotEditors),
		{domain.EntityLot, ActionUpdate}: roleSet(lotEditors),
		{domain.EntityLot, ActionDelete}: roleSet(qualityLeads),
		{domain.EntityLot, ActionAssign}: roleSet(lotAssigners),

		{domain.EntityNCR, ActionRead}:         roleSet(everyone),
		{domain.EntityNCR, ActionCreate}:       roleSet(everyone),
		{domain.EntityNCR, ActionUpdate}:       roleSet(ncrEditors),
		{domain.EntityNCR, ActionRespond}:      roleSet(headContractor, subcontractor),
		{domain.EntityNCR, ActionQMApprove}:    roleSet(qmApprovers),
		{domain.EntityNCR, ActionReject}:       roleSet(qualityLeads),
		{domain.EntityNCR, ActionClose}:        roleSet(qualityLeads),
		{domain.EntityNCR, ActionNotifyClient}: roleSet(qualityLeads),

		{domain.EntityITP, ActionRead}:     roleSet(everyone),
		{domain.EntityITP, ActionManage}:   roleSet(itpManagers),
		{domain.EntityITP, ActionComplete}: roleSet(headContractor, subcontractor),
		{domain.EntityITP, ActionVerify}:   roleSet(lotEditors),

		{domain.EntityHoldPoint, ActionRead}:    roleSet(everyone),
		{domain.EntityHoldPoint, ActionRequest}: roleSet(headContractor),
		{domain.EntityHoldPoint, ActionRelease}: roleSet(holdPointRelease),

		{domain.EntityDocket, ActionRead}:    roleSet(everyone),
		{domain.EntityDocket, ActionCreate}:  roleSet(managers, subcontractor),
		{domain.EntityDocket, ActionUpdate}:  roleSet(managers, subcontractor),
		{domain.EntityDocket, ActionDelete}:  roleSet(managers, subcontractor),
		{domain.EntityDocket, ActionSubmit}:  roleSet(managers, subcontractor),
		{domain.EntityDocket, ActionApprove}: roleSet(docketApprovers),
		{domain.EntityDocket, ActionReject}:  roleSet(docketApprovers),

		{domain.EntityDrawing, ActionRead}:      roleSet(everyone),
		{domain.EntityDrawing, ActionCreate}:    roleSet(lotEditors),
		{domain.EntityDrawing, ActionSupersede}: roleSet(lotEditors),
		{domain.EntityDrawing, ActionDelete}:    roleSet(managers),

		{domain.EntityAudit, ActionRead}: roleSet(qualityLeads),
	}
}
