package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
)

// LotAssignmentRepository handles subcontractor assignments on lots
type LotAssignmentRepository struct {
	db *gorm.DB
}

// NewLotAssignmentRepository creates a new lot assignment repository
func NewLotAssignmentRepository(db *gorm.DB) *LotAssignmentRepository {
	return &LotAssignmentRepository{db: db}
}

// Get returns the assignment row for a lot and company regardless of status
func (r *LotAssignmentRepository) Get(ctx context.Context, lotID, companyID uuid.UUID) (*domain.LotSubcontractorAssignment, error) {
	var a domain.LotSubcontractorAssignment
	err := r.db.WithContext(ctx).
		Where("lot_id = ? AND subcontractor_company_id = ?", lotID, companyID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *LotAssignmentRepository) Create(ctx context.Context, a *domain.LotSubcontractorAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *LotAssignmentRepository) Update(ctx context.Context, a *domain.LotSubcontractorAssignment) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// ListByLots returns every assignment row (any status) of the given lots
func (r *LotAssignmentRepository) ListByLots(ctx context.Context, lotIDs []uuid.UUID) ([]domain.LotSubcontractorAssignment, error) {
	var rows []domain.LotSubcontractorAssignment
	if len(lotIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Where("lot_id IN ?", lotIDs).
		Order("assigned_at ASC").
		Find(&rows).Error
	return rows, err
}
