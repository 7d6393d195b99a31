package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tiktok_shop_v1/internal/model"
)

// ==================== 接口定义 ====================

// CategoryRepository 平台类目仓储接口
type CategoryRepository interface {
	// UpsertCategories 批量写入类目树节点，按 (integration_id, external_id) 幂等
	UpsertCategories(ctx context.Context, categories []model.IntegrationCategory) error

	GetByExternalID(ctx context.Context, integrationID int64, externalID string) (*model.IntegrationCategory, error)
	ListLeaves(ctx context.Context, integrationID int64) ([]model.IntegrationCategory, error)

	// ReplaceAttributes 整体替换某类目的属性定义 (属性集随平台变动，不做增量)
	ReplaceAttributes(ctx context.Context, categoryID int64, attrs []model.CategoryAttribute) error
	GetAttributes(ctx context.Context, categoryID int64) ([]model.CategoryAttribute, error)
}

// ==================== 仓储实现 ====================

type categoryRepo struct {
	db *gorm.DB
}

// NewCategoryRepository 创建类目仓储
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) UpsertCategories(ctx context.Context, categories []model.IntegrationCategory) error {
	if len(categories) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "integration_id"}, {Name: "external_id"}},
		UpdateAll: true,
	}).CreateInBatches(categories, 200).Error
}

func (r *categoryRepo) GetByExternalID(ctx context.Context, integrationID int64, externalID string) (*model.IntegrationCategory, error) {
	var category model.IntegrationCategory
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND external_id = ?", integrationID, externalID).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) ListLeaves(ctx context.Context, integrationID int64) ([]model.IntegrationCategory, error) {
	var categories []model.IntegrationCategory
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND is_leaf = ?", integrationID, true).
		Order("breadcrumb ASC").
		Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) ReplaceAttributes(ctx context.Context, categoryID int64, attrs []model.CategoryAttribute) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", categoryID).
			Delete(&model.CategoryAttribute{}).Error; err != nil {
			return err
		}
		for i := range attrs {
			attrs[i].ID = 0
			attrs[i].CategoryID = categoryID
		}
		if len(attrs) == 0 {
			return nil
		}
		return tx.Create(&attrs).Error
	})
}

func (r *categoryRepo) GetAttributes(ctx context.Context, categoryID int64) ([]model.CategoryAttribute, error) {
	var attrs []model.CategoryAttribute
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("id ASC").
		Find(&attrs).Error
	return attrs, err
}
