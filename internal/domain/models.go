package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns the primary key client side so ids are known before insert
// and behave the same on Postgres and SQLite.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Company is the tenant root. Projects, users and subcontractor companies hang off it.
type Company struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null"`
	ABN  string `gorm:"type:varchar(20);column:abn"`
}

// User belongs to exactly one company.
type User struct {
	BaseModel
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName      string    `gorm:"type:varchar(200);not null"`
	RoleInCompany Role      `gorm:"type:varchar(50);not null;column:role_in_company"`
	IsActive      bool      `gorm:"not null;column:is_active"`
}

// Project is the unit of work that owns lots, NCRs, ITPs, dockets and drawings.
type Project struct {
	BaseModel
	CompanyID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	Name          string        `gorm:"type:varchar(200);not null"`
	ProjectNumber string        `gorm:"type:varchar(50);column:project_number"`
	Status        ProjectStatus `gorm:"type:varchar(20);not null"`
}

// ProjectUser scopes a user's role to a single project.
type ProjectUser struct {
	BaseModel
	ProjectID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_project_users_member"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_project_users_member;index"`
	Role      Role             `gorm:"type:varchar(50);not null"`
	Status    MembershipStatus `gorm:"type:varchar(20);not null"`
}

// SubcontractorCompany is a trade contractor engaged on one project. It belongs to
// the project's company as the contracting entity.
type SubcontractorCompany struct {
	BaseModel
	ProjectID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	CompanyName string              `gorm:"type:varchar(200);not null"`
	ABN         string              `gorm:"type:varchar(20);column:abn"`
	Status      SubcontractorStatus `gorm:"type:varchar(30);not null"`
}

// SubcontractorUser links a user to a subcontractor company.
type SubcontractorUser struct {
	BaseModel
	UserID                 uuid.UUID         `gorm:"type:uuid;not null;index"`
	SubcontractorCompanyID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Role                   SubcontractorRole `gorm:"type:varchar(20);not null"`
	Status                 MembershipStatus  `gorm:"type:varchar(20);not null"`
}

// Lot is a discrete unit of construction work. Status holds the base progression only;
// HasOpenNCR is the orthogonal non-conformance overlay.
type Lot struct {
	BaseModel
	ProjectID               uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_lots_project_number"`
	LotNumber               string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_lots_project_number"`
	Description             string     `gorm:"type:text"`
	LotType                 LotType    `gorm:"type:varchar(20);not null"`
	AreaZone                *string    `gorm:"type:varchar(100)"`
	StructureID             *string    `gorm:"type:varchar(100);column:structure_id"`
	Status                  LotStatus  `gorm:"type:varchar(20);not null"`
	HasOpenNCR              bool       `gorm:"not null;column:has_open_ncr"`
	AssignedSubcontractorID *uuid.UUID `gorm:"type:uuid;index;column:assigned_subcontractor_id"`
	CreatedByID             uuid.UUID  `gorm:"type:uuid;not null;column:created_by_id"`
}

// LotSubcontractorAssignment is the multi-assignment model for lots.
type LotSubcontractorAssignment struct {
	BaseModel
	LotID                   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_lot_assignments_pair"`
	ProjectID               uuid.UUID        `gorm:"type:uuid;not null;index"`
	SubcontractorCompanyID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_lot_assignments_pair;index"`
	CanCompleteITP          bool             `gorm:"not null;column:can_complete_itp"`
	ITPRequiresVerification bool             `gorm:"not null;column:itp_requires_verification"`
	Status                  AssignmentStatus `gorm:"type:varchar(20);not null"`
	AssignedByID            uuid.UUID        `gorm:"type:uuid;not null;column:assigned_by_id"`
	AssignedAt              time.Time        `gorm:"not null"`
}

// NCR is a non-conformance report. Severity never changes after creation.
type NCR struct {
	BaseModel
	ProjectID                  uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_ncrs_project_number"`
	NCRNumber                  string      `gorm:"type:varchar(20);not null;uniqueIndex:idx_ncrs_project_number;column:ncr_number"`
	Description                string      `gorm:"type:text;not null"`
	Category                   string      `gorm:"type:varchar(100)"`
	Severity                   NCRSeverity `gorm:"type:varchar(10);not null"`
	Status                     NCRStatus   `gorm:"type:varchar(30);not null"`
	ResponsibleUserID          *uuid.UUID  `gorm:"type:uuid;index;column:responsible_user_id"`
	RaisedByID                 uuid.UUID   `gorm:"type:uuid;not null;column:raised_by_id"`
	DueDate                    *time.Time
	QMApprovalRequired         bool       `gorm:"not null;column:qm_approval_required"`
	QMApprovedByID             *uuid.UUID `gorm:"type:uuid;column:qm_approved_by_id"`
	QMApprovedAt               *time.Time `gorm:"column:qm_approved_at"`
	QMComments                 string     `gorm:"type:text;column:qm_comments"`
	ClientNotificationRequired bool       `gorm:"not null;column:client_notification_required"`
	ClientNotifiedAt           *time.Time `gorm:"column:client_notified_at"`
	RectificationNotes         string     `gorm:"type:text"`
	RejectionCount             int        `gorm:"not null"`
	LastRejectionReason        string     `gorm:"type:text"`
	ConcessionJustification    string     `gorm:"type:text"`
	ClosedByID                 *uuid.UUID `gorm:"type:uuid;column:closed_by_id"`
	ClosedAt                   *time.Time
	Lots                       []NCRLot `gorm:"foreignKey:NCRID"`
}

func (NCR) TableName() string { return "ncrs" }

// NCRLot links an NCR to a lot.
type NCRLot struct {
	BaseModel
	NCRID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ncr_lots_pair;column:ncr_id"`
	LotID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ncr_lots_pair;index"`
}

func (NCRLot) TableName() string { return "ncr_lots" }

// ITPTemplate defines the ordered checklist for an activity type.
type ITPTemplate struct {
	BaseModel
	ProjectID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	Name         string             `gorm:"type:varchar(200);not null"`
	ActivityType string             `gorm:"type:varchar(100)"`
	Items        []ITPChecklistItem `gorm:"foreignKey:TemplateID"`
}

func (ITPTemplate) TableName() string { return "itp_templates" }

// ITPChecklistItem is one inspection step within a template.
type ITPChecklistItem struct {
	BaseModel
	TemplateID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	Sequence           int              `gorm:"not null"`
	Description        string           `gorm:"type:text;not null"`
	AcceptanceCriteria string           `gorm:"type:text"`
	PointType          ITPPointType     `gorm:"type:varchar(20);not null"`
	ResponsibleParty   ResponsibleParty `gorm:"type:varchar(30);not null"`
}

func (ITPChecklistItem) TableName() string { return "itp_checklist_items" }

// ITPInstance binds one template to one lot.
type ITPInstance struct {
	BaseModel
	TemplateID uuid.UUID `gorm:"type:uuid;not null"`
	LotID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index"`
}

func (ITPInstance) TableName() string { return "itp_instances" }

// ITPCompletion tracks completion and verification of one checklist item as two
// independent axes.
type ITPCompletion struct {
	BaseModel
	InstanceID           uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_itp_completions_item"`
	ChecklistItemID      uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_itp_completions_item"`
	Status               CompletionStatus   `gorm:"type:varchar(20);not null"`
	CompletedAt          *time.Time
	CompletedByID        *uuid.UUID         `gorm:"type:uuid;column:completed_by_id"`
	RequiresVerification bool               `gorm:"not null"`
	VerificationStatus   VerificationStatus `gorm:"type:varchar(20);not null"`
	VerifiedAt           *time.Time
	VerifiedByID         *uuid.UUID `gorm:"type:uuid;column:verified_by_id"`
	Notes                string     `gorm:"type:text"`
}

func (ITPCompletion) TableName() string { return "itp_completions" }

// HoldPoint mirrors a hold_point checklist item on a lot. Staleness is never stored.
type HoldPoint struct {
	BaseModel
	ProjectID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ITPInstanceID   uuid.UUID       `gorm:"type:uuid;not null;column:itp_instance_id"`
	ChecklistItemID uuid.UUID       `gorm:"type:uuid;not null"`
	Description     string          `gorm:"type:text"`
	Status          HoldPointStatus `gorm:"type:varchar(20);not null"`
	ScheduledFor    *time.Time
	RequestedAt     *time.Time
	RequestedByID   *uuid.UUID `gorm:"type:uuid;column:requested_by_id"`
	ReleasedAt      *time.Time
	ReleasedByID    *uuid.UUID `gorm:"type:uuid;column:released_by_id"`
	ReleaseNotes    string     `gorm:"type:text"`
}

// Docket is a subcontractor's daily labour and plant record. Submitted and approved
// hours are kept separately.
type Docket struct {
	BaseModel
	ProjectID              uuid.UUID    `gorm:"type:uuid;not null;index"`
	SubcontractorCompanyID uuid.UUID    `gorm:"type:uuid;not null;index"`
	DocketDate             time.Time    `gorm:"not null"`
	Status                 DocketStatus `gorm:"type:varchar(30);not null"`
	LabourHoursSubmitted   float64      `gorm:"not null"`
	PlantHoursSubmitted    float64      `gorm:"not null"`
	LabourHoursApproved    *float64
	PlantHoursApproved     *float64
	AdjustmentReason       string `gorm:"type:text"`
	Notes                  string `gorm:"type:text"`
	SubmittedAt            *time.Time
	SubmittedByID          *uuid.UUID `gorm:"type:uuid;column:submitted_by_id"`
	ApprovedAt             *time.Time
	ApprovedByID           *uuid.UUID `gorm:"type:uuid;column:approved_by_id"`
	RejectedAt             *time.Time
	RejectedByID           *uuid.UUID `gorm:"type:uuid;column:rejected_by_id"`
	RejectionReason        string     `gorm:"type:text"`
	CreatedByID            uuid.UUID  `gorm:"type:uuid;not null;column:created_by_id"`
}

// Drawing is one revision in a forward-linked chain. The current revision of a
// drawing number is the one with SupersededByID unset.
type Drawing struct {
	BaseModel
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_drawings_current_number,where:superseded_by_id IS NULL"`
	DrawingNumber  string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_drawings_current_number,where:superseded_by_id IS NULL"`
	Title          string     `gorm:"type:varchar(300);not null"`
	Revision       string     `gorm:"type:varchar(20);not null"`
	Discipline     string     `gorm:"type:varchar(50)"`
	SupersededByID *uuid.UUID `gorm:"type:uuid;index;column:superseded_by_id"`
	Version        int        `gorm:"not null"`
	StoragePath    string     `gorm:"type:varchar(500)"`
	FileName       string     `gorm:"type:varchar(255)"`
	ContentType    string     `gorm:"type:varchar(100)"`
	FileSize       int64
	UploadedByID   uuid.UUID `gorm:"type:uuid;not null;column:uploaded_by_id"`
}

// Notification is both the outbox row handed to the delivery collaborator and the
// recipient's in-app inbox entry.
type Notification struct {
	BaseModel
	ProjectID      *uuid.UUID     `gorm:"type:uuid;index"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type           string         `gorm:"type:varchar(50);not null"`
	Title          string         `gorm:"type:varchar(200);not null"`
	Message        string         `gorm:"type:text"`
	EntityType     string         `gorm:"type:varchar(50)"`
	EntityID       *uuid.UUID     `gorm:"type:uuid"`
	DeliveryStatus DeliveryStatus `gorm:"type:varchar(20);not null;index"`
	Attempts       int            `gorm:"not null"`
	LastError      string         `gorm:"type:text"`
	DispatchedAt   *time.Time
	Read           bool `gorm:"not null"`
	ReadAt         *time.Time
}

// NumberSequence is a row-locked per-project counter.
type NumberSequence struct {
	BaseModel
	ProjectID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_number_sequences_kind"`
	Kind         string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_number_sequences_kind"`
	LastSequence int       `gorm:"not null"`
}

// AuditLog is append-only and written in the same transaction as the change it records.
type AuditLog struct {
	BaseModel
	ProjectID   *uuid.UUID  `gorm:"type:uuid;index"`
	UserID      uuid.UUID   `gorm:"type:uuid;not null"`
	Action      AuditAction `gorm:"type:varchar(50);not null"`
	EntityType  string      `gorm:"type:varchar(50);not null;index:idx_audit_logs_entity"`
	EntityID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_audit_logs_entity"`
	FromState   string      `gorm:"type:varchar(30)"`
	ToState     string      `gorm:"type:varchar(30)"`
	Details     string      `gorm:"type:text"`
	PerformedAt time.Time   `gorm:"not null"`
}
