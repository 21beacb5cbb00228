package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
)

type SubcontractorRepository struct {
	db *gorm.DB
}

func NewSubcontractorRepository(db *gorm.DB) *SubcontractorRepository {
	return &SubcontractorRepository{db: db}
}

func (r *SubcontractorRepository) Create(ctx context.Context, sc *domain.SubcontractorCompany) error {
	return r.db.WithContext(ctx).Create(sc).Error
}

func (r *SubcontractorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SubcontractorCompany, error) {
	var sc domain.SubcontractorCompany
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sc).Error
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (r *SubcontractorRepository) AddUser(ctx context.Context, su *domain.SubcontractorUser) error {
	return r.db.WithContext(ctx).Create(su).Error
}

// ActiveUserIDs returns the active users of a subcontractor company
func (r *SubcontractorRepository) ActiveUserIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&domain.SubcontractorUser{}).
		Where("subcontractor_company_id = ? AND status = ?", companyID, domain.MembershipStatusActive).
		Pluck("user_id", &ids).Error
	return ids, err
}
