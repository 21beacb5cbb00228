package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
)

// MembershipRepository reads and writes project memberships and resolves
// subcontractor affiliations.
type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, pu *domain.ProjectUser) error {
	return r.db.WithContext(ctx).Create(pu).Error
}

func (r *MembershipRepository) Get(ctx context.Context, projectID, userID uuid.UUID) (*domain.ProjectUser, error) {
	var pu domain.ProjectUser
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&pu).Error
	if err != nil {
		return nil, err
	}
	return &pu, nil
}

func (r *MembershipRepository) Update(ctx context.Context, pu *domain.ProjectUser) error {
	return r.db.WithContext(ctx).Save(pu).Error
}

// IsActiveMember reports whether the user holds an active membership on the project
func (r *MembershipRepository) IsActiveMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ProjectUser{}).
		Where("project_id = ? AND user_id = ? AND status = ?", projectID, userID, domain.MembershipStatusActive).
		Count(&count).Error
	return count > 0, err
}

// ListActiveByUser returns all active memberships of a user
func (r *MembershipRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]domain.ProjectUser, error) {
	var rows []domain.ProjectUser
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.MembershipStatusActive).
		Find(&rows).Error
	return rows, err
}

// ListActiveWithRoles returns active memberships on a project holding one of roles
func (r *MembershipRepository) ListActiveWithRoles(ctx context.Context, projectID uuid.UUID, roles []domain.Role) ([]domain.ProjectUser, error) {
	var rows []domain.ProjectUser
	if len(roles) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ? AND role IN ?", projectID, domain.MembershipStatusActive, roles).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// SubcontractorLinks returns the user's active subcontractor rows joined to
// subcontractor companies that are not removed.
func (r *MembershipRepository) SubcontractorLinks(ctx context.Context, userID uuid.UUID) ([]access.SubcontractorLink, error) {
	type linkRow struct {
		ProjectID uuid.UUID
		CompanyID uuid.UUID
		Role      domain.SubcontractorRole
	}

	var rows []linkRow
	err := r.db.WithContext(ctx).
		Table("subcontractor_users su").
		Select("sc.project_id AS project_id, sc.id AS company_id, su.role AS role").
		Joins("JOIN subcontractor_companies sc ON sc.id = su.subcontractor_company_id").
		Where("su.user_id = ? AND su.status = ? AND sc.status <> ?",
			userID, domain.MembershipStatusActive, domain.SubcontractorStatusRemoved).
		Order("su.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	links := make([]access.SubcontractorLink, 0, len(rows))
	for _, row := range rows {
		links = append(links, access.SubcontractorLink{ProjectID: row.ProjectID, CompanyID: row.CompanyID, Role: row.Role})
	}
	return links, nil
}
