package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var holdPointSortFields = map[string]string{
	"status":       "hold_points.status",
	"scheduledFor": "hold_points.scheduled_for",
	"createdAt":    "hold_points.created_at",
	"releasedAt":   "hold_points.released_at",
}

// HoldPointFilter narrows hold point listings
type HoldPointFilter struct {
	Status *domain.HoldPointStatus
	LotID  *uuid.UUID
}

type HoldPointRepository struct {
	db *gorm.DB
}

func NewHoldPointRepository(db *gorm.DB) *HoldPointRepository {
	return &HoldPointRepository{db: db}
}

func (r *HoldPointRepository) CreateBatch(ctx context.Context, points []*domain.HoldPoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(points).Error
}

// GetByIDForUpdate loads a hold point under a row lock
func (r *HoldPointRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.HoldPoint, error) {
	var hp domain.HoldPoint
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&hp).Error
	if err != nil {
		return nil, err
	}
	return &hp, nil
}

func (r *HoldPointRepository) Update(ctx context.Context, hp *domain.HoldPoint) error {
	return r.db.WithContext(ctx).Save(hp).Error
}

// CountUnreleasedForLot counts hold points on the lot that are not released
func (r *HoldPointRepository) CountUnreleasedForLot(ctx context.Context, lotID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.HoldPoint{}).
		Where("lot_id = ? AND status <> ?", lotID, domain.HoldPointStatusReleased).
		Count(&count).Error
	return count, err
}

func (r *HoldPointRepository) scoped(ctx context.Context, projectID uuid.UUID, scope access.Scope, filter HoldPointFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&domain.HoldPoint{}).Where("hold_points.project_id = ?", projectID)
	query = ApplyLotChildScope(query, scope, "hold_points")
	if filter.Status != nil {
		query = query.Where("hold_points.status = ?", *filter.Status)
	}
	if filter.LotID != nil {
		query = query.Where("hold_points.lot_id = ?", *filter.LotID)
	}
	return query
}

// List returns a page of hold points visible within scope
func (r *HoldPointRepository) List(ctx context.Context, projectID uuid.UUID, scope access.Scope, filter HoldPointFilter, page domain.PageRequest) ([]domain.HoldPoint, int64, error) {
	var points []domain.HoldPoint
	total, err := paginate(r.scoped(ctx, projectID, scope, filter), page, holdPointSortFields, "hold_points.created_at", &points)
	return points, total, err
}

// ListAll returns every visible hold point of the project, for metrics
func (r *HoldPointRepository) ListAll(ctx context.Context, projectID uuid.UUID, scope access.Scope) ([]domain.HoldPoint, error) {
	var points []domain.HoldPoint
	err := r.scoped(ctx, projectID, scope, HoldPointFilter{}).Find(&points).Error
	return points, err
}
