package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var docketSortFields = map[string]string{
	"docketDate": "dockets.docket_date",
	"status":     "dockets.status",
	"createdAt":  "dockets.created_at",
	"updatedAt":  "dockets.updated_at",
}

// DocketFilter narrows docket listings
type DocketFilter struct {
	Status                 *domain.DocketStatus
	SubcontractorCompanyID *uuid.UUID
}

type DocketRepository struct {
	db *gorm.DB
}

func NewDocketRepository(db *gorm.DB) *DocketRepository {
	return &DocketRepository{db: db}
}

func (r *DocketRepository) Create(ctx context.Context, d *domain.Docket) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Docket, error) {
	var d domain.Docket
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByIDForUpdate loads a docket under a row lock
func (r *DocketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Docket, error) {
	var d domain.Docket
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocketRepository) Update(ctx context.Context, d *domain.Docket) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DocketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Docket{}, "id = ?", id).Error
}

// List returns a page of project dockets visible within scope
func (r *DocketRepository) List(ctx context.Context, projectID uuid.UUID, scope access.Scope, filter DocketFilter, page domain.PageRequest) ([]domain.Docket, int64, error) {
	var dockets []domain.Docket

	query := r.db.WithContext(ctx).Model(&domain.Docket{}).Where("dockets.project_id = ?", projectID)
	query = ApplyDocketScope(query, scope)
	if filter.Status != nil {
		query = query.Where("dockets.status = ?", *filter.Status)
	}
	if filter.SubcontractorCompanyID != nil {
		query = query.Where("dockets.subcontractor_company_id = ?", *filter.SubcontractorCompanyID)
	}

	total, err := paginate(query, page, docketSortFields, "dockets.docket_date", &dockets)
	return dockets, total, err
}
