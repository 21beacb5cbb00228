package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ncrSortFields = map[string]string{
	"ncrNumber": "ncrs.ncr_number",
	"severity":  "ncrs.severity",
	"status":    "ncrs.status",
	"dueDate":   "ncrs.due_date",
	"createdAt": "ncrs.created_at",
	"updatedAt": "ncrs.updated_at",
}

var openNCRStatuses = []domain.NCRStatus{domain.NCRStatusOpen, domain.NCRStatusInProgress}

// NCRFilter narrows NCR listings
type NCRFilter struct {
	Status            *domain.NCRStatus
	Severity          *domain.NCRSeverity
	LotID             *uuid.UUID
	ResponsibleUserID *uuid.UUID
}

type NCRRepository struct {
	db *gorm.DB
}

func NewNCRRepository(db *gorm.DB) *NCRRepository {
	return &NCRRepository{db: db}
}

// Create inserts the NCR and its lot links
func (r *NCRRepository) Create(ctx context.Context, ncr *domain.NCR) error {
	return r.db.WithContext(ctx).Create(ncr).Error
}

func (r *NCRRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.NCR, error) {
	var ncr domain.NCR
	err := r.db.WithContext(ctx).Preload("Lots").Where("id = ?", id).First(&ncr).Error
	if err != nil {
		return nil, err
	}
	return &ncr, nil
}

// GetByIDForUpdate loads the NCR under a row lock
func (r *NCRRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.NCR, error) {
	var ncr domain.NCR
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&ncr).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("ncr_id = ?", ncr.ID).Find(&ncr.Lots).Error; err != nil {
		return nil, err
	}
	return &ncr, nil
}

// Update saves NCR columns only; lot links never change after creation
func (r *NCRRepository) Update(ctx context.Context, ncr *domain.NCR) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(ncr).Error
}

// CountOpenForLot counts open NCRs linked to the lot, ignoring excludeID
func (r *NCRRepository) CountOpenForLot(ctx context.Context, lotID uuid.UUID, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.NCR{}).
		Joins("JOIN ncr_lots ON ncr_lots.ncr_id = ncrs.id").
		Where("ncr_lots.lot_id = ? AND ncrs.id <> ? AND ncrs.status IN ?", lotID, excludeID, openNCRStatuses).
		Count(&count).Error
	return count, err
}

// List returns a page of project NCRs visible within scope
func (r *NCRRepository) List(ctx context.Context, projectID uuid.UUID, scope access.Scope, filter NCRFilter, page domain.PageRequest) ([]domain.NCR, int64, error) {
	var ncrs []domain.NCR

	query := r.db.WithContext(ctx).Model(&domain.NCR{}).Where("ncrs.project_id = ?", projectID)
	query = ApplyNCRScope(query, scope)

	if filter.Status != nil {
		query = query.Where("ncrs.status = ?", *filter.Status)
	}
	if filter.Severity != nil {
		query = query.Where("ncrs.severity = ?", *filter.Severity)
	}
	if filter.ResponsibleUserID != nil {
		query = query.Where("ncrs.responsible_user_id = ?", *filter.ResponsibleUserID)
	}
	if filter.LotID != nil {
		query = query.Where("EXISTS (SELECT 1 FROM ncr_lots f WHERE f.ncr_id = ncrs.id AND f.lot_id = ?)", *filter.LotID)
	}

	total, err := paginate(query, page, ncrSortFields, "ncrs.created_at", &ncrs, "Lots")
	return ncrs, total, err
}
