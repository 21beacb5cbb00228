package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// RequiresVerification is decided when an item is completed: hold point items
// always need it, and so does subcontractor work whose assignment says so.
func RequiresVerification(item *domain.ITPChecklistItem, assignment *domain.LotSubcontractorAssignment) bool {
	if item.PointType == domain.ITPPointHoldPoint {
		return true
	}
	return assignment != nil && assignment.ITPRequiresVerification
}

// CheckSubcontractorCompletion requires an active assignment with canCompleteITP.
func CheckSubcontractorCompletion(assignment *domain.LotSubcontractorAssignment) error {
	if assignment == nil || assignment.Status != domain.AssignmentStatusActive || !assignment.CanCompleteITP {
		return domain.NewForbiddenError(domain.CodeITPCompletionNotPermitted, "your company may not complete ITP items on this lot")
	}
	return nil
}

// IsSatisfied reports whether the item counts as done for lot progression.
func IsSatisfied(c *domain.ITPCompletion) bool {
	if c == nil || c.Status != domain.CompletionStatusCompleted {
		return false
	}
	return !c.RequiresVerification || c.VerificationStatus == domain.VerificationStatusVerified
}

// UnsatisfiedItems counts template items without a satisfied completion.
func UnsatisfiedItems(items []domain.ITPChecklistItem, completions []domain.ITPCompletion) int {
	byItem := make(map[uuid.UUID]*domain.ITPCompletion, len(completions))
	for i := range completions {
		byItem[completions[i].ChecklistItemID] = &completions[i]
	}
	n := 0
	for _, item := range items {
		if !IsSatisfied(byItem[item.ID]) {
			n++
		}
	}
	return n
}

// SetCompleted marks the item completed. An existing verification is kept.
func SetCompleted(c *domain.ITPCompletion, by uuid.UUID, requiresVerification bool, notes string, now time.Time) {
	c.Status = domain.CompletionStatusCompleted
	c.CompletedAt = &now
	c.CompletedByID = &by
	c.RequiresVerification = requiresVerification
	if c.VerificationStatus == "" {
		c.VerificationStatus = domain.VerificationStatusNone
	}
	if notes != "" {
		c.Notes = notes
	}
}

// SetPending un-completes the item. Verification is left untouched; reversing it
// is a separate action.
func SetPending(c *domain.ITPCompletion, notes string) {
	c.Status = domain.CompletionStatusPending
	c.CompletedAt = nil
	c.CompletedByID = nil
	if c.VerificationStatus == "" {
		c.VerificationStatus = domain.VerificationStatusNone
	}
	if notes != "" {
		c.Notes = notes
	}
}

// Verify records independent verification of a completed item.
func Verify(c *domain.ITPCompletion, verifier uuid.UUID, now time.Time) error {
	if c.Status != domain.CompletionStatusCompleted {
		return domain.NewValidationError(domain.CodeNotCompleted, "status", "only completed items can be verified")
	}
	if c.CompletedByID != nil && *c.CompletedByID == verifier {
		return domain.NewForbiddenError(domain.CodeSelfVerification, "an item cannot be verified by the user who completed it")
	}
	c.VerificationStatus = domain.VerificationStatusVerified
	c.VerifiedAt = &now
	c.VerifiedByID = &verifier
	return nil
}

// Unverify explicitly reverses a verification.
func Unverify(c *domain.ITPCompletion) error {
	if c.VerificationStatus != domain.VerificationStatusVerified {
		return domain.NewValidationError(domain.CodeNotVerified, "verificationStatus", "item is not verified")
	}
	c.VerificationStatus = domain.VerificationStatusNone
	c.VerifiedAt = nil
	c.VerifiedByID = nil
	return nil
}
