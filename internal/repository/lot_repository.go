package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lotSortFields = map[string]string{
	"lotNumber": "lots.lot_number",
	"status":    "lots.status",
	"lotType":   "lots.lot_type",
	"createdAt": "lots.created_at",
	"updatedAt": "lots.updated_at",
}

// LotFilter narrows lot listings
type LotFilter struct {
	Status  *domain.LotStatus
	LotType *domain.LotType
	Search  string
}

type LotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

func (r *LotRepository) Create(ctx context.Context, lot *domain.Lot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

func (r *LotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lot, error) {
	var lot domain.Lot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// GetByIDForUpdate loads the lot with a row lock held until the transaction ends
func (r *LotRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Lot, error) {
	var lot domain.Lot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// GetByIDs loads lots by id, restricted to one project
func (r *LotRepository) GetByIDs(ctx context.Context, projectID uuid.UUID, ids []uuid.UUID) ([]domain.Lot, error) {
	var lots []domain.Lot
	if len(ids) == 0 {
		return lots, nil
	}
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND id IN ?", projectID, ids).
		Find(&lots).Error
	return lots, err
}

// NumberExists reports whether lotNumber is taken within the project
func (r *LotRepository) NumberExists(ctx context.Context, projectID uuid.UUID, lotNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Lot{}).
		Where("project_id = ? AND lot_number = ?", projectID, lotNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *LotRepository) Update(ctx context.Context, lot *domain.Lot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// Delete removes the lot together with its assignment rows
func (r *LotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("lot_id = ?", id).Delete(&domain.LotSubcontractorAssignment{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.Lot{}, "id = ?", id).Error
}

// SetHasOpenNCR flips the NCR overlay flag on the given lots
func (r *LotRepository) SetHasOpenNCR(ctx context.Context, ids []uuid.UUID, open bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.Lot{}).
		Where("id IN ?", ids).
		Update("has_open_ncr", open).Error
}

// CountNCRLinks counts NCRs referencing the lot
func (r *LotRepository) CountNCRLinks(ctx context.Context, lotID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.NCRLot{}).
		Where("lot_id = ?", lotID).
		Count(&count).Error
	return count, err
}

// List returns a page of project lots visible within scope
func (r *LotRepository) List(ctx context.Context, projectID uuid.UUID, scope access.Scope, filter LotFilter, page domain.PageRequest) ([]domain.Lot, int64, error) {
	var lots []domain.Lot

	query := r.db.WithContext(ctx).Model(&domain.Lot{}).Where("lots.project_id = ?", projectID)
	query = ApplyLotScope(query, scope)

	if filter.Status != nil {
		if *filter.Status == domain.LotStatusNCRRaised {
			query = query.Where("lots.has_open_ncr = ?", true)
		} else {
			query = query.Where("lots.status = ?", *filter.Status)
		}
	}
	if filter.LotType != nil {
		query = query.Where("lots.lot_type = ?", *filter.LotType)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(lots.lot_number) LIKE ? OR LOWER(lots.description) LIKE ?", like, like)
	}

	total, err := paginate(query, page, lotSortFields, "lots.created_at", &lots)
	return lots, total, err
}

// VisibleIDs returns which of ids are visible within scope
func (r *LotRepository) VisibleIDs(ctx context.Context, scope access.Scope, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	visible := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return visible, nil
	}

	var found []uuid.UUID
	query := r.db.WithContext(ctx).Model(&domain.Lot{}).Where("lots.id IN ?", ids)
	if err := ApplyLotScope(query, scope).Pluck("lots.id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		visible[id] = true
	}
	return visible, nil
}
