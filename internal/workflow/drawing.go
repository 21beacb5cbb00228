package workflow

import (
	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
)

// IsCurrent reports whether d heads its revision chain.
func IsCurrent(d *domain.Drawing) bool {
	return d.SupersededByID == nil
}

// CheckSupersedable fails for drawings that already have a successor.
func CheckSupersedable(d *domain.Drawing) error {
	if !IsCurrent(d) {
		return domain.NewConflictError(domain.CodeDrawingSuperseded, "drawing has already been superseded")
	}
	return nil
}

// CheckDrawingDeletable allows deleting the current revision only.
func CheckDrawingDeletable(d *domain.Drawing) error {
	if !IsCurrent(d) {
		return domain.NewConflictError(domain.CodeDrawingSuperseded, "only the current revision can be deleted")
	}
	return nil
}

// NextRevision builds the drawing that supersedes d, with its id assigned up front
// so the predecessor can point at it before insert.
func NextRevision(d *domain.Drawing, req domain.SupersedeDrawingRequest, uploadedBy uuid.UUID) *domain.Drawing {
	next := &domain.Drawing{
		ProjectID:     d.ProjectID,
		DrawingNumber: d.DrawingNumber,
		Title:         d.Title,
		Revision:      req.Revision,
		Discipline:    d.Discipline,
		Version:       1,
		UploadedByID:  uploadedBy,
	}
	next.ID = uuid.New()
	if req.Title != "" {
		next.Title = req.Title
	}
	if req.Discipline != "" {
		next.Discipline = req.Discipline
	}
	return next
}
