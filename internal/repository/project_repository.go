package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
)

var projectSortFields = map[string]string{
	"name":          "name",
	"projectNumber": "project_number",
	"status":        "status",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
}

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListAccessible lists projects of adminCompanyID (when the caller administers a
// company) together with projects in memberOf.
func (r *ProjectRepository) ListAccessible(ctx context.Context, adminCompanyID *uuid.UUID, memberOf []uuid.UUID, page domain.PageRequest) ([]domain.Project, int64, error) {
	var projects []domain.Project

	query := r.db.WithContext(ctx).Model(&domain.Project{})
	switch {
	case adminCompanyID != nil && len(memberOf) > 0:
		query = query.Where("company_id = ? OR id IN ?", *adminCompanyID, memberOf)
	case adminCompanyID != nil:
		query = query.Where("company_id = ?", *adminCompanyID)
	case len(memberOf) > 0:
		query = query.Where("id IN ?", memberOf)
	default:
		return []domain.Project{}, 0, nil
	}

	total, err := paginate(query, page, projectSortFields, "created_at", &projects)
	return projects, total, err
}
