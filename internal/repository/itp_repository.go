package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ITPRepository covers templates, their checklist items, instances and completions
type ITPRepository struct {
	db *gorm.DB
}

func NewITPRepository(db *gorm.DB) *ITPRepository {
	return &ITPRepository{db: db}
}

// CreateTemplate inserts the template and its items
func (r *ITPRepository) CreateTemplate(ctx context.Context, tpl *domain.ITPTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// GetTemplate loads a template with items in sequence order
func (r *ITPRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.ITPTemplate, error) {
	var tpl domain.ITPTemplate
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *ITPRepository) GetItem(ctx context.Context, id uuid.UUID) (*domain.ITPChecklistItem, error) {
	var item domain.ITPChecklistItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ITPRepository) CreateInstance(ctx context.Context, inst *domain.ITPInstance) error {
	return r.db.WithContext(ctx).Create(inst).Error
}

func (r *ITPRepository) GetInstance(ctx context.Context, id uuid.UUID) (*domain.ITPInstance, error) {
	var inst domain.ITPInstance
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetInstanceByLot returns the lot's instance or gorm.ErrRecordNotFound
func (r *ITPRepository) GetInstanceByLot(ctx context.Context, lotID uuid.UUID) (*domain.ITPInstance, error) {
	var inst domain.ITPInstance
	err := r.db.WithContext(ctx).Where("lot_id = ?", lotID).First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *ITPRepository) ListCompletions(ctx context.Context, instanceID uuid.UUID) ([]domain.ITPCompletion, error) {
	var rows []domain.ITPCompletion
	err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).Find(&rows).Error
	return rows, err
}

func (r *ITPRepository) GetCompletion(ctx context.Context, id uuid.UUID) (*domain.ITPCompletion, error) {
	var c domain.ITPCompletion
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompletionByItem locks and returns the completion of one item in one instance
func (r *ITPRepository) GetCompletionByItem(ctx context.Context, instanceID, itemID uuid.UUID) (*domain.ITPCompletion, error) {
	var c domain.ITPCompletion
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("instance_id = ? AND checklist_item_id = ?", instanceID, itemID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCompletion inserts or updates a completion
func (r *ITPRepository) SaveCompletion(ctx context.Context, c *domain.ITPCompletion) error {
	if c.ID == uuid.Nil {
		return r.db.WithContext(ctx).Create(c).Error
	}
	return r.db.WithContext(ctx).Save(c).Error
}

// Items returns a template's checklist in sequence order
func (r *ITPRepository) Items(ctx context.Context, templateID uuid.UUID) ([]domain.ITPChecklistItem, error) {
	var items []domain.ITPChecklistItem
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("sequence ASC").
		Find(&items).Error
	return items, err
}
