package domain

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the envelope for every JSON response
type APIResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      *APIError   `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// APIError is the error part of the envelope
type APIError struct {
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Pagination describes one page of a list response
type Pagination struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination computes page metadata
func NewPagination(total int64, page, limit int) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Pagination{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// PageRequest carries list paging and sorting parameters
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Offset returns the row offset for the page
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Paged is a service list result
type Paged[T any] struct {
	Items      []T
	Pagination *Pagination
}

// ============================================================================
// Requests
// ============================================================================

type CreateProjectRequest struct {
	Name          string        `json:"name" validate:"required,max=200"`
	ProjectNumber string        `json:"projectNumber" validate:"max=50"`
	Status        ProjectStatus `json:"status" validate:"omitempty,oneof=active completed on_hold"`
}

type AddProjectUserRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Role   Role      `json:"role" validate:"required,oneof=owner admin project_manager site_manager quality_manager foreman site_engineer viewer subcontractor subcontractor_admin"`
}

type CreateSubcontractorRequest struct {
	CompanyName string              `json:"companyName" validate:"required,max=200"`
	ABN         string              `json:"abn" validate:"max=20"`
	Status      SubcontractorStatus `json:"status" validate:"omitempty,oneof=pending_approval approved suspended"`
}

type AddSubcontractorUserRequest struct {
	UserID uuid.UUID         `json:"userId" validate:"required"`
	Role   SubcontractorRole `json:"role" validate:"required,oneof=admin member"`
}

type CreateLotRequest struct {
	ProjectID               uuid.UUID  `json:"projectId" validate:"required"`
	LotNumber               string     `json:"lotNumber" validate:"required,max=50"`
	Description             string     `json:"description"`
	LotType                 LotType    `json:"lotType" validate:"required,oneof=chainage area structure"`
	AreaZone                *string    `json:"areaZone,omitempty" validate:"omitempty,max=100"`
	StructureID             *string    `json:"structureId,omitempty" validate:"omitempty,max=100"`
	AssignedSubcontractorID *uuid.UUID `json:"assignedSubcontractorId,omitempty"`
}

type UpdateLotRequest struct {
	Description *string    `json:"description,omitempty"`
	Status      *LotStatus `json:"status,omitempty" validate:"omitempty,oneof=not_started in_progress awaiting_test completed"`
	AreaZone    *string    `json:"areaZone,omitempty" validate:"omitempty,max=100"`
	StructureID *string    `json:"structureId,omitempty" validate:"omitempty,max=100"`
}

type AssignLotSubcontractorRequest struct {
	SubcontractorCompanyID  uuid.UUID `json:"subcontractorCompanyId" validate:"required"`
	CanCompleteITP          bool      `json:"canCompleteItp"`
	ITPRequiresVerification bool      `json:"itpRequiresVerification"`
}

type CreateNCRRequest struct {
	ProjectID         uuid.UUID   `json:"projectId" validate:"required"`
	Description       string      `json:"description" validate:"required"`
	Category          string      `json:"category" validate:"max=100"`
	Severity          NCRSeverity `json:"severity" validate:"required,oneof=minor major"`
	ResponsibleUserID *uuid.UUID  `json:"responsibleUserId,omitempty"`
	DueDate           *time.Time  `json:"dueDate,omitempty"`
	LotIDs            []uuid.UUID `json:"lotIds,omitempty"`
}

// UpdateNCRRequest redirects the responsible party or records QM comments. Status
// and severity cannot be changed here.
type UpdateNCRRequest struct {
	ResponsibleUserID *uuid.UUID `json:"responsibleUserId,omitempty"`
	QMComments        *string    `json:"qmComments,omitempty"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
}

type RespondNCRRequest struct {
	RectificationNotes string `json:"rectificationNotes" validate:"required"`
}

type QMApproveNCRRequest struct {
	Comments string `json:"comments"`
}

type RejectNCRRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type CloseNCRRequest struct {
	Concession              bool   `json:"concession"`
	ConcessionJustification string `json:"concessionJustification"`
}

type ITPChecklistItemInput struct {
	Description        string           `json:"description" validate:"required"`
	AcceptanceCriteria string           `json:"acceptanceCriteria"`
	PointType          ITPPointType     `json:"pointType" validate:"required,oneof=standard witness hold_point"`
	ResponsibleParty   ResponsibleParty `json:"responsibleParty" validate:"required,oneof=contractor subcontractor superintendent"`
}

type CreateITPTemplateRequest struct {
	ProjectID    uuid.UUID               `json:"projectId" validate:"required"`
	Name         string                  `json:"name" validate:"required,max=200"`
	ActivityType string                  `json:"activityType" validate:"max=100"`
	Items        []ITPChecklistItemInput `json:"items" validate:"required,min=1,dive"`
}

type CreateITPInstanceRequest struct {
	TemplateID uuid.UUID `json:"templateId" validate:"required"`
	LotID      uuid.UUID `json:"lotId" validate:"required"`
}

type ITPCompletionRequest struct {
	InstanceID      uuid.UUID `json:"instanceId" validate:"required"`
	ChecklistItemID uuid.UUID `json:"checklistItemId" validate:"required"`
	IsCompleted     *bool     `json:"isCompleted" validate:"required"`
	Notes           string    `json:"notes"`
}

type ScheduleHoldPointRequest struct {
	ScheduledFor time.Time `json:"scheduledFor" validate:"required"`
}

type ReleaseHoldPointRequest struct {
	Notes string `json:"notes"`
}

type CreateDocketRequest struct {
	ProjectID              uuid.UUID  `json:"projectId" validate:"required"`
	SubcontractorCompanyID *uuid.UUID `json:"subcontractorCompanyId,omitempty"`
	DocketDate             time.Time  `json:"docketDate" validate:"required"`
	LabourHours            float64    `json:"labourHours" validate:"gte=0"`
	PlantHours             float64    `json:"plantHours" validate:"gte=0"`
	Notes                  string     `json:"notes"`
}

type UpdateDocketRequest struct {
	DocketDate  *time.Time `json:"docketDate,omitempty"`
	LabourHours *float64   `json:"labourHours,omitempty" validate:"omitempty,gte=0"`
	PlantHours  *float64   `json:"plantHours,omitempty" validate:"omitempty,gte=0"`
	Notes       *string    `json:"notes,omitempty"`
}

// ApproveDocketRequest approves a pending docket. Supplying either adjusted value
// requires an adjustment reason.
type ApproveDocketRequest struct {
	LabourHoursApproved *float64 `json:"labourHoursApproved,omitempty" validate:"omitempty,gte=0"`
	PlantHoursApproved  *float64 `json:"plantHoursApproved,omitempty" validate:"omitempty,gte=0"`
	AdjustmentReason    string   `json:"adjustmentReason"`
}

type RejectDocketRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type CreateDrawingRequest struct {
	ProjectID     uuid.UUID `json:"projectId" validate:"required"`
	DrawingNumber string    `json:"drawingNumber" validate:"required,max=100"`
	Title         string    `json:"title" validate:"required,max=300"`
	Revision      string    `json:"revision" validate:"required,max=20"`
	Discipline    string    `json:"discipline" validate:"max=50"`
}

// SupersedeDrawingRequest creates the next revision. Title and discipline default
// to the superseded drawing's values.
type SupersedeDrawingRequest struct {
	Title      string `json:"title" validate:"max=300"`
	Revision   string `json:"revision" validate:"required,max=20"`
	Discipline string `json:"discipline" validate:"max=50"`
}

// ============================================================================
// Responses
// ============================================================================

type MeDTO struct {
	ID            uuid.UUID            `json:"id"`
	Email         string               `json:"email"`
	FullName      string               `json:"fullName"`
	CompanyID     uuid.UUID            `json:"companyId"`
	RoleInCompany Role                 `json:"roleInCompany"`
	ProjectRoles  map[string]Role      `json:"projectRoles"`
	Subcontractor map[string]uuid.UUID `json:"subcontractorCompanies"`
}

type ProjectDTO struct {
	ID            uuid.UUID     `json:"id"`
	CompanyID     uuid.UUID     `json:"companyId"`
	Name          string        `json:"name"`
	ProjectNumber string        `json:"projectNumber,omitempty"`
	Status        ProjectStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type ProjectUserDTO struct {
	ID        uuid.UUID        `json:"id"`
	ProjectID uuid.UUID        `json:"projectId"`
	UserID    uuid.UUID        `json:"userId"`
	Role      Role             `json:"role"`
	Status    MembershipStatus `json:"status"`
}

type SubcontractorCompanyDTO struct {
	ID          uuid.UUID           `json:"id"`
	ProjectID   uuid.UUID           `json:"projectId"`
	CompanyName string              `json:"companyName"`
	ABN         string              `json:"abn,omitempty"`
	Status      SubcontractorStatus `json:"status"`
}

type SubcontractorUserDTO struct {
	ID                     uuid.UUID         `json:"id"`
	UserID                 uuid.UUID         `json:"userId"`
	SubcontractorCompanyID uuid.UUID         `json:"subcontractorCompanyId"`
	Role                   SubcontractorRole `json:"role"`
	Status                 MembershipStatus  `json:"status"`
}

type LotAssignmentDTO struct {
	ID                      uuid.UUID        `json:"id"`
	SubcontractorCompanyID  uuid.UUID        `json:"subcontractorCompanyId"`
	CanCompleteITP          bool             `json:"canCompleteItp"`
	ITPRequiresVerification bool             `json:"itpRequiresVerification"`
	Status                  AssignmentStatus `json:"status"`
	AssignedAt              time.Time        `json:"assignedAt"`
}

// LotDTO reports Status as ncr_raised while an NCR is open; ProgressStatus always
// carries the base progression.
type LotDTO struct {
	ID                      uuid.UUID          `json:"id"`
	ProjectID               uuid.UUID          `json:"projectId"`
	LotNumber               string             `json:"lotNumber"`
	Description             string             `json:"description,omitempty"`
	LotType                 LotType            `json:"lotType"`
	AreaZone                *string            `json:"areaZone,omitempty"`
	StructureID             *string            `json:"structureId,omitempty"`
	Status                  LotStatus          `json:"status"`
	ProgressStatus          LotStatus          `json:"progressStatus"`
	HasOpenNCR              bool               `json:"hasOpenNcr"`
	AssignedSubcontractorID *uuid.UUID         `json:"assignedSubcontractorId,omitempty"`
	EffectiveAssignments    []uuid.UUID        `json:"effectiveAssignments"`
	Assignments             []LotAssignmentDTO `json:"assignments,omitempty"`
	CreatedAt               time.Time          `json:"createdAt"`
	UpdatedAt               time.Time          `json:"updatedAt"`
}

type NCRDTO struct {
	ID                         uuid.UUID   `json:"id"`
	ProjectID                  uuid.UUID   `json:"projectId"`
	NCRNumber                  string      `json:"ncrNumber"`
	Description                string      `json:"description"`
	Category                   string      `json:"category,omitempty"`
	Severity                   NCRSeverity `json:"severity"`
	Status                     NCRStatus   `json:"status"`
	ResponsibleUserID          *uuid.UUID  `json:"responsibleUserId,omitempty"`
	RaisedByID                 uuid.UUID   `json:"raisedById"`
	DueDate                    *time.Time  `json:"dueDate,omitempty"`
	QMApprovalRequired         bool        `json:"qmApprovalRequired"`
	QMApprovedByID             *uuid.UUID  `json:"qmApprovedById,omitempty"`
	QMApprovedAt               *time.Time  `json:"qmApprovedAt,omitempty"`
	QMComments                 string      `json:"qmComments,omitempty"`
	ClientNotificationRequired bool        `json:"clientNotificationRequired"`
	ClientNotifiedAt           *time.Time  `json:"clientNotifiedAt,omitempty"`
	RectificationNotes         string      `json:"rectificationNotes,omitempty"`
	RejectionCount             int         `json:"rejectionCount"`
	LastRejectionReason        string      `json:"lastRejectionReason,omitempty"`
	ConcessionJustification    string      `json:"concessionJustification,omitempty"`
	ClosedByID                 *uuid.UUID  `json:"closedById,omitempty"`
	ClosedAt                   *time.Time  `json:"closedAt,omitempty"`
	LotIDs                     []uuid.UUID `json:"lotIds"`
	CreatedAt                  time.Time   `json:"createdAt"`
}

type ITPChecklistItemDTO struct {
	ID                 uuid.UUID        `json:"id"`
	Sequence           int              `json:"sequence"`
	Description        string           `json:"description"`
	AcceptanceCriteria string           `json:"acceptanceCriteria,omitempty"`
	PointType          ITPPointType     `json:"pointType"`
	ResponsibleParty   ResponsibleParty `json:"responsibleParty"`
}

type ITPTemplateDTO struct {
	ID           uuid.UUID             `json:"id"`
	ProjectID    uuid.UUID             `json:"projectId"`
	Name         string                `json:"name"`
	ActivityType string                `json:"activityType,omitempty"`
	Items        []ITPChecklistItemDTO `json:"items"`
}

type ITPCompletionDTO struct {
	ID                   uuid.UUID          `json:"id"`
	InstanceID           uuid.UUID          `json:"instanceId"`
	ChecklistItemID      uuid.UUID          `json:"checklistItemId"`
	Status               CompletionStatus   `json:"status"`
	CompletedAt          *time.Time         `json:"completedAt,omitempty"`
	CompletedByID        *uuid.UUID         `json:"completedById,omitempty"`
	RequiresVerification bool               `json:"requiresVerification"`
	VerificationStatus   VerificationStatus `json:"verificationStatus"`
	VerifiedAt           *time.Time         `json:"verifiedAt,omitempty"`
	VerifiedByID         *uuid.UUID         `json:"verifiedById,omitempty"`
	Notes                string             `json:"notes,omitempty"`
	IsSatisfied          bool               `json:"isSatisfied"`
}

type ITPInstanceItemDTO struct {
	Item       ITPChecklistItemDTO `json:"item"`
	Completion *ITPCompletionDTO   `json:"completion,omitempty"`
}

type ITPInstanceDTO struct {
	ID           uuid.UUID            `json:"id"`
	TemplateID   uuid.UUID            `json:"templateId"`
	TemplateName string               `json:"templateName"`
	LotID        uuid.UUID            `json:"lotId"`
	ProjectID    uuid.UUID            `json:"projectId"`
	Items        []ITPInstanceItemDTO `json:"items"`
	IsSatisfied  bool                 `json:"isSatisfied"`
}

type HoldPointDTO struct {
	ID              uuid.UUID       `json:"id"`
	ProjectID       uuid.UUID       `json:"projectId"`
	LotID           uuid.UUID       `json:"lotId"`
	ChecklistItemID uuid.UUID       `json:"checklistItemId"`
	Description     string          `json:"description,omitempty"`
	Status          HoldPointStatus `json:"status"`
	IsStale         bool            `json:"isStale"`
	ScheduledFor    *time.Time      `json:"scheduledFor,omitempty"`
	RequestedAt     *time.Time      `json:"requestedAt,omitempty"`
	ReleasedAt      *time.Time      `json:"releasedAt,omitempty"`
	ReleasedByID    *uuid.UUID      `json:"releasedById,omitempty"`
	ReleaseNotes    string          `json:"releaseNotes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type HoldPointMetricsDTO struct {
	Total                 int                     `json:"total"`
	ByStatus              map[HoldPointStatus]int `json:"byStatus"`
	Stale                 int                     `json:"stale"`
	Released              int                     `json:"released"`
	AverageHoursToRelease *float64                `json:"averageHoursToRelease"`
}

type DocketDTO struct {
	ID                     uuid.UUID    `json:"id"`
	ProjectID              uuid.UUID    `json:"projectId"`
	SubcontractorCompanyID uuid.UUID    `json:"subcontractorCompanyId"`
	DocketDate             time.Time    `json:"docketDate"`
	Status                 DocketStatus `json:"status"`
	LabourHoursSubmitted   float64      `json:"labourHoursSubmitted"`
	PlantHoursSubmitted    float64      `json:"plantHoursSubmitted"`
	LabourHoursApproved    *float64     `json:"labourHoursApproved,omitempty"`
	PlantHoursApproved     *float64     `json:"plantHoursApproved,omitempty"`
	AdjustmentReason       string       `json:"adjustmentReason,omitempty"`
	Notes                  string       `json:"notes,omitempty"`
	SubmittedAt            *time.Time   `json:"submittedAt,omitempty"`
	ApprovedAt             *time.Time   `json:"approvedAt,omitempty"`
	ApprovedByID           *uuid.UUID   `json:"approvedById,omitempty"`
	RejectedAt             *time.Time   `json:"rejectedAt,omitempty"`
	RejectionReason        string       `json:"rejectionReason,omitempty"`
	CreatedByID            uuid.UUID    `json:"createdById"`
}

type DrawingDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProjectID      uuid.UUID  `json:"projectId"`
	DrawingNumber  string     `json:"drawingNumber"`
	Title          string     `json:"title"`
	Revision       string     `json:"revision"`
	Discipline     string     `json:"discipline,omitempty"`
	SupersededByID *uuid.UUID `json:"supersededById"`
	IsCurrent      bool       `json:"isCurrent"`
	FileName       string     `json:"fileName,omitempty"`
	ContentType    string     `json:"contentType,omitempty"`
	FileSize       int64      `json:"fileSize,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type NotificationDTO struct {
	ID         uuid.UUID  `json:"id"`
	ProjectID  *uuid.UUID `json:"projectId,omitempty"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	EntityType string     `json:"entityType,omitempty"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type UnreadCountDTO struct {
	Count int `json:"count"`
}

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	ProjectID   *uuid.UUID  `json:"projectId,omitempty"`
	UserID      uuid.UUID   `json:"userId"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entityType"`
	EntityID    uuid.UUID   `json:"entityId"`
	FromState   string      `json:"fromState,omitempty"`
	ToState     string      `json:"toState,omitempty"`
	Details     string      `json:"details,omitempty"`
	PerformedAt time.Time   `json:"performedAt"`
}
