package repository

import "gorm.io/gorm"

// Repositories bundles every repository over one *gorm.DB. Built over a
// transaction handle it gives a transaction-bound set.
type Repositories struct {
	Users          *UserRepository
	Companies      *CompanyRepository
	Projects       *ProjectRepository
	Members        *MembershipRepository
	Subcontractors *SubcontractorRepository
	Lots           *LotRepository
	Assignments    *LotAssignmentRepository
	NCRs           *NCRRepository
	ITP            *ITPRepository
	HoldPoints     *HoldPointRepository
	Dockets        *DocketRepository
	Drawings       *DrawingRepository
	Notifications  *NotificationRepository
	Sequences      *NumberSequenceRepository
	AuditLogs      *AuditLogRepository
}

// NewRepositories creates the full repository set over db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:          NewUserRepository(db),
		Companies:      NewCompanyRepository(db),
		Projects:       NewProjectRepository(db),
		Members:        NewMembershipRepository(db),
		Subcontractors: NewSubcontractorRepository(db),
		Lots:           NewLotRepository(db),
		Assignments:    NewLotAssignmentRepository(db),
		NCRs:           NewNCRRepository(db),
		ITP:            NewITPRepository(db),
		HoldPoints:     NewHoldPointRepository(db),
		Dockets:        NewDocketRepository(db),
		Drawings:       NewDrawingRepository(db),
		Notifications:  NewNotificationRepository(db),
		Sequences:      NewNumberSequenceRepository(db),
		AuditLogs:      NewAuditLogRepository(db),
	}
}
