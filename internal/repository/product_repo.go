package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tiktok_shop_v1/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// Upsert 按 (account_id, external_id) 幂等写入商品、变体和刊登记录
	Upsert(ctx context.Context, product *model.Product) error

	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByExternalID(ctx context.Context, accountID int64, externalID string) (*model.Product, error)

	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)

	// DeleteByExternalID 远端已删除 (状态 8) 时移除本地商品
	DeleteByExternalID(ctx context.Context, accountID int64, externalID string) error
}

// ==================== 过滤条件 ====================

// ProductFilter 商品列表过滤条件
type ProductFilter struct {
	AccountID int64
	Status    string
	Sku       string
	Page      int
	PageSize  int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

// Upsert 商品、变体、刊登在同一事务里写入
// 远端不再返回的变体会被删掉，保证本地与平台一致
func (r *productRepo) Upsert(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Product
		err := tx.Where("account_id = ? AND external_id = ?", product.AccountID, product.ExternalID).
			First(&existing).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if err == nil {
			product.ID = existing.ID
			product.CreatedAt = existing.CreatedAt
		}

		variants := product.Variants
		product.Variants = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "external_id"}},
			UpdateAll: true,
		}).Create(product).Error; err != nil {
			return err
		}

		keep := make([]string, 0, len(variants))
		for i := range variants {
			variants[i].ProductID = product.ID
			keep = append(keep, variants[i].ExternalID)

			listing := variants[i].Listing
			variants[i].Listing = nil
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "product_id"}, {Name: "external_id"}},
				UpdateAll: true,
			}).Create(&variants[i]).Error; err != nil {
				return err
			}

			if listing != nil {
				listing.AccountID = product.AccountID
				listing.ProductID = product.ID
				listing.ProductVariantID = &variants[i].ID

				var existingListing model.ProductListing
				err := tx.Where("product_variant_id = ?", variants[i].ID).First(&existingListing).Error
				if err != nil && err != gorm.ErrRecordNotFound {
					return err
				}
				if err == nil {
					listing.ID = existingListing.ID
					listing.CreatedAt = existingListing.CreatedAt
				}
				if err := tx.Save(listing).Error; err != nil {
					return err
				}
				variants[i].Listing = listing
			}
		}
		product.Variants = variants

		if len(keep) > 0 {
			if err := tx.Where("product_id = ? AND external_id NOT IN ?", product.ID, keep).
				Delete(&model.ProductVariant{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Variants.Listing").
		First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByExternalID(ctx context.Context, accountID int64, externalID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Variants.Listing").
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.AccountID > 0 {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Sku != "" {
		query = query.Where("associated_sku = ?", filter.Sku)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Preload("Variants").
		Preload("Variants.Listing").
		Order("updated_at DESC").
		Limit(filter.PageSize).Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepo) DeleteByExternalID(ctx context.Context, accountID int64, externalID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product model.Product
		err := tx.Where("account_id = ? AND external_id = ?", accountID, externalID).
			First(&product).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("product_id = ?", product.ID).Delete(&model.ProductListing{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&model.ProductVariant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
}
