package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var drawingSortFields = map[string]string{
	"drawingNumber": "drawing_number",
	"title":         "title",
	"revision":      "revision",
	"discipline":    "discipline",
	"createdAt":     "created_at",
}

// DrawingFilter narrows drawing listings
type DrawingFilter struct {
	CurrentOnly   bool
	DrawingNumber string
	Discipline    string
}

type DrawingRepository struct {
	db *gorm.DB
}

func NewDrawingRepository(db *gorm.DB) *DrawingRepository {
	return &DrawingRepository{db: db}
}

func (r *DrawingRepository) Create(ctx context.Context, d *domain.Drawing) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DrawingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Drawing, error) {
	var d domain.Drawing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByIDForUpdate loads a drawing under a row lock
func (r *DrawingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Drawing, error) {
	var d domain.Drawing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CurrentExists reports whether the drawing number already has a current revision
func (r *DrawingRepository) CurrentExists(ctx context.Context, projectID uuid.UUID, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Drawing{}).
		Where("project_id = ? AND drawing_number = ? AND superseded_by_id IS NULL", projectID, number).
		Count(&count).Error
	return count > 0, err
}

// MarkSuperseded points id at its successor only while id is still current. It
// returns the number of rows changed; zero means another writer got there first.
func (r *DrawingRepository) MarkSuperseded(ctx context.Context, id, successorID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Drawing{}).
		Where("id = ? AND superseded_by_id IS NULL", id).
		Updates(map[string]interface{}{
			"superseded_by_id": successorID,
			"version":          gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// Predecessor returns the drawing superseded by id, or gorm.ErrRecordNotFound
func (r *DrawingRepository) Predecessor(ctx context.Context, id uuid.UUID) (*domain.Drawing, error) {
	var d domain.Drawing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("superseded_by_id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Reinstate makes a superseded drawing current again
func (r *DrawingRepository) Reinstate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Drawing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"superseded_by_id": nil,
			"version":          gorm.Expr("version + 1"),
		}).Error
}

// UpdateFile records the stored file of a drawing
func (r *DrawingRepository) UpdateFile(ctx context.Context, id uuid.UUID, path, name, contentType string, size int64) error {
	return r.db.WithContext(ctx).Model(&domain.Drawing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"storage_path": path,
			"file_name":    name,
			"content_type": contentType,
			"file_size":    size,
		}).Error
}

func (r *DrawingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Drawing{}, "id = ?", id).Error
}

// List returns a page of project drawings
func (r *DrawingRepository) List(ctx context.Context, projectID uuid.UUID, filter DrawingFilter, page domain.PageRequest) ([]domain.Drawing, int64, error) {
	var drawings []domain.Drawing

	query := r.db.WithContext(ctx).Model(&domain.Drawing{}).Where("project_id = ?", projectID)
	if filter.CurrentOnly {
		query = query.Where("superseded_by_id IS NULL")
	}
	if filter.DrawingNumber != "" {
		query = query.Where("drawing_number = ?", filter.DrawingNumber)
	}
	if filter.Discipline != "" {
		query = query.Where("discipline = ?", filter.Discipline)
	}

	total, err := paginate(query, page, drawingSortFields, "created_at", &drawings)
	return drawings, total, err
}
