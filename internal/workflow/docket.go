package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// CheckDocketEditable allows edits and deletion of drafts only.
func CheckDocketEditable(d *domain.Docket) error {
	if d.Status != domain.DocketStatusDraft {
		return domain.NewValidationError(domain.CodeDocketNotDraft, "status", "only draft dockets can be changed")
	}
	return nil
}

// SubmitDocket moves a draft into approval.
func SubmitDocket(d *domain.Docket, by uuid.UUID, now time.Time) error {
	if d.Status != domain.DocketStatusDraft {
		return invalidTransition("status", d.Status, domain.DocketStatusPendingApproval)
	}
	d.Status = domain.DocketStatusPendingApproval
	d.SubmittedAt = &now
	d.SubmittedByID = &by
	return nil
}

// ApproveDocket approves a pending docket. Without adjusted values the submitted
// hours are copied exactly; supplying either adjusted value needs a reason.
func ApproveDocket(d *domain.Docket, by uuid.UUID, req domain.ApproveDocketRequest, now time.Time) error {
	if d.Status != domain.DocketStatusPendingApproval {
		return invalidTransition("status", d.Status, domain.DocketStatusApproved)
	}

	labour := d.LabourHoursSubmitted
	plant := d.PlantHoursSubmitted
	adjusted := req.LabourHoursApproved != nil || req.PlantHoursApproved != nil
	if req.LabourHoursApproved != nil {
		labour = *req.LabourHoursApproved
	}
	if req.PlantHoursApproved != nil {
		plant = *req.PlantHoursApproved
	}
	if adjusted && strings.TrimSpace(req.AdjustmentReason) == "" {
		return domain.NewValidationError(domain.CodeAdjustmentReasonRequired, "adjustmentReason", "adjusted hours require a reason")
	}

	d.Status = domain.DocketStatusApproved
	d.LabourHoursApproved = &labour
	d.PlantHoursApproved = &plant
	if adjusted {
		d.AdjustmentReason = req.AdjustmentReason
	}
	d.ApprovedAt = &now
	d.ApprovedByID = &by
	return nil
}

// RejectDocket rejects a pending docket with a reason.
func RejectDocket(d *domain.Docket, by uuid.UUID, reason string, now time.Time) error {
	if d.Status != domain.DocketStatusPendingApproval {
		return invalidTransition("status", d.Status, domain.DocketStatusRejected)
	}
	if strings.TrimSpace(reason) == "" {
		return domain.NewValidationError(domain.CodeRejectionReasonRequired, "reason", "a rejection reason is required")
	}
	d.Status = domain.DocketStatusRejected
	d.RejectionReason = reason
	d.RejectedAt = &now
	d.RejectedByID = &by
	return nil
}
