package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// NCRNumberKind is the sequence kind used for NCR numbering.
const NCRNumberKind = "ncr"

// FormatNCRNumber renders a per-project sequence value.
func FormatNCRNumber(seq int) string {
	return fmt.Sprintf("NCR-%04d", seq)
}

// NewNCR builds an open NCR. Major severity forces QM approval and client
// notification and nothing later relaxes them.
func NewNCR(req domain.CreateNCRRequest, raisedBy uuid.UUID, number string) *domain.NCR {
	ncr := &domain.NCR{
		ProjectID:         req.ProjectID,
		NCRNumber:         number,
		Description:       req.Description,
		Category:          req.Category,
		Severity:          req.Severity,
		Status:            domain.NCRStatusOpen,
		ResponsibleUserID: req.ResponsibleUserID,
		RaisedByID:        raisedBy,
		DueDate:           req.DueDate,
	}
	if ncr.Severity == domain.NCRSeverityMajor {
		ncr.QMApprovalRequired = true
		ncr.ClientNotificationRequired = true
	}
	return ncr
}

func ensureNotClosed(ncr *domain.NCR, to interface{}) error {
	if ncr.Status.IsClosed() {
		return invalidTransition("status", ncr.Status, to)
	}
	return nil
}

// Redirect changes the responsible user. It reports whether anything changed;
// status never does.
func Redirect(ncr *domain.NCR, userID uuid.UUID) (bool, error) {
	if err := ensureNotClosed(ncr, "redirect"); err != nil {
		return false, err
	}
	if ncr.ResponsibleUserID != nil && *ncr.ResponsibleUserID == userID {
		return false, nil
	}
	ncr.ResponsibleUserID = &userID
	return true, nil
}

// Respond records rectification and moves an open NCR into progress. A rejected
// NCR is already in progress and may respond again.
func Respond(ncr *domain.NCR, notes string) error {
	if err := ensureNotClosed(ncr, domain.NCRStatusInProgress); err != nil {
		return err
	}
	if strings.TrimSpace(notes) == "" {
		return domain.NewValidationError(domain.CodeValidation, "rectificationNotes", "rectification notes are required")
	}
	ncr.RectificationNotes = notes
	ncr.Status = domain.NCRStatusInProgress
	return nil
}

// QMApprove records quality manager sign-off.
func QMApprove(ncr *domain.NCR, approver uuid.UUID, comments string, now time.Time) error {
	if err := ensureNotClosed(ncr, "qm_approved"); err != nil {
		return err
	}
	if !ncr.QMApprovalRequired {
		return domain.NewValidationError(domain.CodeQMApprovalNotRequired, "qmApprovalRequired", "this NCR does not require QM approval")
	}
	ncr.QMApprovedByID = &approver
	ncr.QMApprovedAt = &now
	if comments != "" {
		ncr.QMComments = comments
	}
	return nil
}

// Reject sends the rectification back. The NCR stays in progress and any prior
// QM approval is withdrawn.
func Reject(ncr *domain.NCR, reason string) error {
	if ncr.Status != domain.NCRStatusInProgress {
		return invalidTransition("status", ncr.Status, "rejected")
	}
	if strings.TrimSpace(reason) == "" {
		return domain.NewValidationError(domain.CodeRejectionReasonRequired, "reason", "a rejection reason is required")
	}
	ncr.RejectionCount++
	ncr.LastRejectionReason = reason
	ncr.QMApprovedByID = nil
	ncr.QMApprovedAt = nil
	return nil
}

// Close finishes an in-progress NCR, with or without concession.
func Close(ncr *domain.NCR, closer uuid.UUID, concession bool, justification string, now time.Time) error {
	target := domain.NCRStatusClosed
	if concession {
		target = domain.NCRStatusClosedConcession
	}
	if ncr.Status != domain.NCRStatusInProgress {
		return invalidTransition("status", ncr.Status, target)
	}
	if ncr.QMApprovalRequired && ncr.QMApprovedAt == nil {
		return domain.NewValidationError(domain.CodeQMApprovalRequired, "qmApprovedAt", "major NCRs require QM approval before closing")
	}
	if concession && strings.TrimSpace(justification) == "" {
		return domain.NewValidationError(domain.CodeConcessionJustification, "concessionJustification", "a concession requires a justification")
	}
	ncr.Status = target
	ncr.ConcessionJustification = justification
	ncr.ClosedByID = &closer
	ncr.ClosedAt = &now
	return nil
}

// MarkClientNotified records that the client was told about the NCR.
func MarkClientNotified(ncr *domain.NCR, now time.Time) error {
	if !ncr.ClientNotificationRequired {
		return domain.NewValidationError(domain.CodeClientNotificationNotRequired, "clientNotificationRequired", "this NCR does not require client notification")
	}
	ncr.ClientNotifiedAt = &now
	return nil
}
