package mapper

import (
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
)

// ToMeDTO converts a user and its resolved membership to MeDTO
func ToMeDTO(user *domain.User, m *access.Membership) domain.MeDTO {
	dto := domain.MeDTO{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		CompanyID:     user.CompanyID,
		RoleInCompany: user.RoleInCompany,
		ProjectRoles:  make(map[string]domain.Role, len(m.ProjectRoles)),
		Subcontractor: make(map[string]uuid.UUID, len(m.Subcontractors)),
	}
	for projectID, role := range m.ProjectRoles {
		dto.ProjectRoles[projectID.String()] = role
	}
	for projectID, a := range m.Subcontractors {
		dto.Subcontractor[projectID.String()] = a.CompanyID
	}
	return dto
}

// ToProjectDTO converts Project to ProjectDTO
func ToProjectDTO(p *domain.Project) domain.ProjectDTO {
	return domain.ProjectDTO{
		ID:            p.ID,
		CompanyID:     p.CompanyID,
		Name:          p.Name,
		ProjectNumber: p.ProjectNumber,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
	}
}

// ToProjectUserDTO converts ProjectUser to ProjectUserDTO
func ToProjectUserDTO(pu *domain.ProjectUser) domain.ProjectUserDTO {
	return domain.ProjectUserDTO{
		ID:        pu.ID,
		ProjectID: pu.ProjectID,
		UserID:    pu.UserID,
		Role:      pu.Role,
		Status:    pu.Status,
	}
}

// ToSubcontractorCompanyDTO converts SubcontractorCompany to SubcontractorCompanyDTO
func ToSubcontractorCompanyDTO(sc *domain.SubcontractorCompany) domain.SubcontractorCompanyDTO {
	return domain.SubcontractorCompanyDTO{
		ID:          sc.ID,
		ProjectID:   sc.ProjectID,
		CompanyName: sc.CompanyName,
		ABN:         sc.ABN,
		Status:      sc.Status,
	}
}

// ToSubcontractorUserDTO converts SubcontractorUser to SubcontractorUserDTO
func ToSubcontractorUserDTO(su *domain.SubcontractorUser) domain.SubcontractorUserDTO {
	return domain.SubcontractorUserDTO{
		ID:                     su.ID,
		UserID:                 su.UserID,
		SubcontractorCompanyID: su.SubcontractorCompanyID,
		Role:                   su.Role,
		Status:                 su.Status,
	}
}

// ToLotAssignmentDTO converts LotSubcontractorAssignment to LotAssignmentDTO
func ToLotAssignmentDTO(a *domain.LotSubcontractorAssignment) domain.LotAssignmentDTO {
	return domain.LotAssignmentDTO{
		ID:                      a.ID,
		SubcontractorCompanyID:  a.SubcontractorCompanyID,
		CanCompleteITP:          a.CanCompleteITP,
		ITPRequiresVerification: a.ITPRequiresVerification,
		Status:                  a.Status,
		AssignedAt:              a.AssignedAt,
	}
}

// ToLotDTO converts Lot to LotDTO. rows may hold assignments of other lots;
// only this lot's active rows are reported.
func ToLotDTO(lot *domain.Lot, rows []domain.LotSubcontractorAssignment) domain.LotDTO {
	dto := domain.LotDTO{
		ID:                      lot.ID,
		ProjectID:               lot.ProjectID,
		LotNumber:               lot.LotNumber,
		Description:             lot.Description,
		LotType:                 lot.LotType,
		AreaZone:                lot.AreaZone,
		StructureID:             lot.StructureID,
		Status:                  workflow.DisplayLotStatus(lot),
		ProgressStatus:          lot.Status,
		HasOpenNCR:              lot.HasOpenNCR,
		AssignedSubcontractorID: lot.AssignedSubcontractorID,
		EffectiveAssignments:    access.EffectiveAssignments(lot, rows),
		CreatedAt:               lot.CreatedAt,
		UpdatedAt:               lot.UpdatedAt,
	}
	for i := range rows {
		if rows[i].LotID == lot.ID && rows[i].Status == domain.AssignmentStatusActive {
			dto.Assignments = append(dto.Assignments, ToLotAssignmentDTO(&rows[i]))
		}
	}
	return dto
}

// ToNCRDTO converts NCR to NCRDTO
func ToNCRDTO(ncr *domain.NCR) domain.NCRDTO {
	lotIDs := make([]uuid.UUID, 0, len(ncr.Lots))
	for _, link := range ncr.Lots {
		lotIDs = append(lotIDs, link.LotID)
	}
	return domain.NCRDTO{
		ID:                         ncr.ID,
		ProjectID:                  ncr.ProjectID,
		NCRNumber:                  ncr.NCRNumber,
		Description:                ncr.Description,
		Category:                   ncr.Category,
		Severity:                   ncr.Severity,
		Status:                     ncr.Status,
		ResponsibleUserID:          ncr.ResponsibleUserID,
		RaisedByID:                 ncr.RaisedByID,
		DueDate:                    ncr.DueDate,
		QMApprovalRequired:         ncr.QMApprovalRequired,
		QMApprovedByID:             ncr.QMApprovedByID,
		QMApprovedAt:               ncr.QMApprovedAt,
		QMComments:                 ncr.QMComments,
		ClientNotificationRequired: ncr.ClientNotificationRequired,
		ClientNotifiedAt:           ncr.ClientNotifiedAt,
		RectificationNotes:         ncr.RectificationNotes,
		RejectionCount:             ncr.RejectionCount,
		LastRejectionReason:        ncr.LastRejectionReason,
		ConcessionJustification:    ncr.ConcessionJustification,
		ClosedByID:                 ncr.ClosedByID,
		ClosedAt:                   ncr.ClosedAt,
		LotIDs:                     lotIDs,
		CreatedAt:                  ncr.CreatedAt,
	}
}

// ToITPChecklistItemDTO converts ITPChecklistItem to ITPChecklistItemDTO
func ToITPChecklistItemDTO(item *domain.ITPChecklistItem) domain.ITPChecklistItemDTO {
	return domain.ITPChecklistItemDTO{
		ID:                 item.ID,
		Sequence:           item.Sequence,
		Description:        item.Description,
		AcceptanceCriteria: item.AcceptanceCriteria,
		PointType:          item.PointType,
		ResponsibleParty:   item.ResponsibleParty,
	}
}

// ToITPTemplateDTO converts ITPTemplate to ITPTemplateDTO
func ToITPTemplateDTO(tpl *domain.ITPTemplate) domain.ITPTemplateDTO {
	items := make([]domain.ITPChecklistItemDTO, len(tpl.Items))
	for i := range tpl.Items {
		items[i] = ToITPChecklistItemDTO(&tpl.Items[i])
	}
	return domain.ITPTemplateDTO{
		ID:           tpl.ID,
		ProjectID:    tpl.ProjectID,
		Name:         tpl.Name,
		ActivityType: tpl.ActivityType,
		Items:        items,
	}
}

// ToITPCompletionDTO converts ITPCompletion to ITPCompletionDTO
func ToITPCompletionDTO(c *domain.ITPCompletion) domain.ITPCompletionDTO {
	return domain.ITPCompletionDTO{
		ID:                   c.ID,
		InstanceID:           c.InstanceID,
		ChecklistItemID:      c.ChecklistItemID,
		Status:               c.Status,
		CompletedAt:          c.CompletedAt,
		CompletedByID:        c.CompletedByID,
		RequiresVerification: c.RequiresVerification,
		VerificationStatus:   c.VerificationStatus,
		VerifiedAt:           c.VerifiedAt,
		VerifiedByID:         c.VerifiedByID,
		Notes:                c.Notes,
		IsSatisfied:          workflow.IsSatisfied(c),
	}
}

// ToITPInstanceDTO joins a template's checklist with the instance's completions
func ToITPInstanceDTO(inst *domain.ITPInstance, tpl *domain.ITPTemplate, completions []domain.ITPCompletion) domain.ITPInstanceDTO {
	byItem := make(map[uuid.UUID]*domain.ITPCompletion, len(completions))
	for i := range completions {
		byItem[completions[i].ChecklistItemID] = &completions[i]
	}

	items := make([]domain.ITPInstanceItemDTO, len(tpl.Items))
	for i := range tpl.Items {
		items[i] = domain.ITPInstanceItemDTO{Item: ToITPChecklistItemDTO(&tpl.Items[i])}
		if c, ok := byItem[tpl.Items[i].ID]; ok {
			cdto := ToITPCompletionDTO(c)
			items[i].Completion = &cdto
		}
	}

	return domain.ITPInstanceDTO{
		ID:           inst.ID,
		TemplateID:   inst.TemplateID,
		TemplateName: tpl.Name,
		LotID:        inst.LotID,
		ProjectID:    inst.ProjectID,
		Items:        items,
		IsSatisfied:  workflow.UnsatisfiedItems(tpl.Items, completions) == 0,
	}
}

// ToHoldPointDTO converts HoldPoint to HoldPointDTO. Staleness is computed against now.
func ToHoldPointDTO(hp *domain.HoldPoint, now time.Time) domain.HoldPointDTO {
	return domain.HoldPointDTO{
		ID:              hp.ID,
		ProjectID:       hp.ProjectID,
		LotID:           hp.LotID,
		ChecklistItemID: hp.ChecklistItemID,
		Description:     hp.Description,
		Status:          hp.Status,
		IsStale:         workflow.IsStale(hp, now),
		ScheduledFor:    hp.ScheduledFor,
		RequestedAt:     hp.RequestedAt,
		ReleasedAt:      hp.ReleasedAt,
		ReleasedByID:    hp.ReleasedByID,
		ReleaseNotes:    hp.ReleaseNotes,
		CreatedAt:       hp.CreatedAt,
	}
}

// ToDocketDTO converts Docket to DocketDTO
func ToDocketDTO(d *domain.Docket) domain.DocketDTO {
	return domain.DocketDTO{
		ID:                     d.ID,
		ProjectID:              d.ProjectID,
		SubcontractorCompanyID: d.SubcontractorCompanyID,
		DocketDate:             d.DocketDate,
		Status:                 d.Status,
		LabourHoursSubmitted:   d.LabourHoursSubmitted,
		PlantHoursSubmitted:    d.PlantHoursSubmitted,
		LabourHoursApproved:    d.LabourHoursApproved,
		PlantHoursApproved:     d.PlantHoursApproved,
		AdjustmentReason:       d.AdjustmentReason,
		Notes:                  d.Notes,
		SubmittedAt:            d.SubmittedAt,
		ApprovedAt:             d.ApprovedAt,
		ApprovedByID:           d.ApprovedByID,
		RejectedAt:             d.RejectedAt,
		RejectionReason:        d.RejectionReason,
		CreatedByID:            d.CreatedByID,
	}
}

// ToDrawingDTO converts Drawing to DrawingDTO
func ToDrawingDTO(d *domain.Drawing) domain.DrawingDTO {
	return domain.DrawingDTO{
		ID:             d.ID,
		ProjectID:      d.ProjectID,
		DrawingNumber:  d.DrawingNumber,
		Title:          d.Title,
		Revision:       d.Revision,
		Discipline:     d.Discipline,
		SupersededByID: d.SupersededByID,
		IsCurrent:      workflow.IsCurrent(d),
		FileName:       d.FileName,
		ContentType:    d.ContentType,
		FileSize:       d.FileSize,
		CreatedAt:      d.CreatedAt,
	}
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(n *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:         n.ID,
		ProjectID:  n.ProjectID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		Read:       n.Read,
		ReadAt:     n.ReadAt,
		CreatedAt:  n.CreatedAt,
	}
}

// ToAuditLogDTO converts AuditLog to AuditLogDTO
func ToAuditLogDTO(l *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          l.ID,
		ProjectID:   l.ProjectID,
		UserID:      l.UserID,
		Action:      l.Action,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		FromState:   l.FromState,
		ToState:     l.ToState,
		Details:     l.Details,
		PerformedAt: l.PerformedAt,
	}
}
