package domain

// Role is used for both company-wide and project-scoped roles.
type Role string

const (
	RoleOwner              Role = "owner"
	RoleAdmin              Role = "admin"
	RoleProjectManager     Role = "project_manager"
	RoleSiteManager        Role = "site_manager"
	RoleQualityManager     Role = "quality_manager"
	RoleForeman            Role = "foreman"
	RoleSiteEngineer       Role = "site_engineer"
	RoleViewer             Role = "viewer"
	RoleSubcontractor      Role = "subcontractor"
	RoleSubcontractorAdmin Role = "subcontractor_admin"
	RoleMember             Role = "member"
)

// AllProjectRoles lists the roles assignable on a ProjectUser.
var AllProjectRoles = []Role{
	RoleOwner,
	RoleAdmin,
	RoleProjectManager,
	RoleSiteManager,
	RoleQualityManager,
	RoleForeman,
	RoleSiteEngineer,
	RoleViewer,
	RoleSubcontractor,
	RoleSubcontractorAdmin,
}

// IsSubcontractor reports whether the role is scoped to a subcontractor company.
func (r Role) IsSubcontractor() bool {
	return r == RoleSubcontractor || r == RoleSubcontractorAdmin
}

// IsCompanyAdmin reports whether the role grants standing on every project of the company.
func (r Role) IsCompanyAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

// IsValidProjectRole checks membership in AllProjectRoles
func IsValidProjectRole(r Role) bool {
	for _, valid := range AllProjectRoles {
		if r == valid {
			return true
		}
	}
	return false
}

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
)

type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusInactive MembershipStatus = "inactive"
	MembershipStatusRemoved  MembershipStatus = "removed"
)

type SubcontractorStatus string

const (
	SubcontractorStatusPendingApproval SubcontractorStatus = "pending_approval"
	SubcontractorStatusApproved        SubcontractorStatus = "approved"
	SubcontractorStatusSuspended       SubcontractorStatus = "suspended"
	SubcontractorStatusRemoved         SubcontractorStatus = "removed"
)

type SubcontractorRole string

const (
	SubcontractorRoleAdmin  SubcontractorRole = "admin"
	SubcontractorRoleMember SubcontractorRole = "member"
)

type LotType string

const (
	LotTypeChainage  LotType = "chainage"
	LotTypeArea      LotType = "area"
	LotTypeStructure LotType = "structure"
)

// LotStatus is the base progression of a lot. LotStatusNCRRaised is only ever
// reported in responses, derived from Lot.HasOpenNCR.
type LotStatus string

const (
	LotStatusNotStarted   LotStatus = "not_started"
	LotStatusInProgress   LotStatus = "in_progress"
	LotStatusAwaitingTest LotStatus = "awaiting_test"
	LotStatusCompleted    LotStatus = "completed"
	LotStatusNCRRaised    LotStatus = "ncr_raised"
)

type AssignmentStatus string

const (
	AssignmentStatusActive  AssignmentStatus = "active"
	AssignmentStatusRemoved AssignmentStatus = "removed"
)

type NCRSeverity string

const (
	NCRSeverityMinor NCRSeverity = "minor"
	NCRSeverityMajor NCRSeverity = "major"
)

type NCRStatus string

const (
	NCRStatusOpen             NCRStatus = "open"
	NCRStatusInProgress       NCRStatus = "in_progress"
	NCRStatusClosed           NCRStatus = "closed"
	NCRStatusClosedConcession NCRStatus = "closed_concession"
)

// IsClosed reports whether the NCR reached a terminal state
func (s NCRStatus) IsClosed() bool {
	return s == NCRStatusClosed || s == NCRStatusClosedConcession
}

type ITPPointType string

const (
	ITPPointStandard  ITPPointType = "standard"
	ITPPointWitness   ITPPointType = "witness"
	ITPPointHoldPoint ITPPointType = "hold_point"
)

type ResponsibleParty string

const (
	ResponsibleContractor     ResponsibleParty = "contractor"
	ResponsibleSubcontractor  ResponsibleParty = "subcontractor"
	ResponsibleSuperintendent ResponsibleParty = "superintendent"
)

type CompletionStatus string

const (
	CompletionStatusPending   CompletionStatus = "pending"
	CompletionStatusCompleted CompletionStatus = "completed"
)

type VerificationStatus string

const (
	VerificationStatusNone     VerificationStatus = "none"
	VerificationStatusVerified VerificationStatus = "verified"
)

type HoldPointStatus string

const (
	HoldPointStatusPending   HoldPointStatus = "pending"
	HoldPointStatusScheduled HoldPointStatus = "scheduled"
	HoldPointStatusRequested HoldPointStatus = "requested"
	HoldPointStatusReleased  HoldPointStatus = "released"
)

type DocketStatus string

const (
	DocketStatusDraft           DocketStatus = "draft"
	DocketStatusPendingApproval DocketStatus = "pending_approval"
	DocketStatusApproved        DocketStatus = "approved"
	DocketStatusRejected        DocketStatus = "rejected"
)

type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusDispatched DeliveryStatus = "dispatched"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

// NotificationType identifies the workflow event behind a notification
type NotificationType string

const (
	NotificationNCRAssigned           NotificationType = "ncr_assigned"
	NotificationNCRRedirected         NotificationType = "ncr_redirected"
	NotificationNCRRejected           NotificationType = "ncr_rejected"
	NotificationNCRClientNotified     NotificationType = "ncr_client_notified"
	NotificationDocketSubmitted       NotificationType = "docket_submitted"
	NotificationDocketApproved        NotificationType = "docket_approved"
	NotificationDocketRejected        NotificationType = "docket_rejected"
	NotificationHoldPointRequested    NotificationType = "hold_point_requested"
	NotificationHoldPointReleased     NotificationType = "hold_point_released"
	NotificationITPVerificationNeeded NotificationType = "itp_verification_needed"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionDelete     AuditAction = "delete"
	AuditActionTransition AuditAction = "transition"
	AuditActionAssign     AuditAction = "assign"
)

// Entity type names shared by audit rows, notifications and the permission matrix.
const (
	EntityProject   = "project"
	EntityLot       = "lot"
	EntityNCR       = "ncr"
	EntityITP       = "itp"
	EntityHoldPoint = "hold_point"
	EntityDocket    = "docket"
	EntityDrawing   = "drawing"
	EntityAudit     = "audit"
)
