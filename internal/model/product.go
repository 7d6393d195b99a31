package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 商品状态常量 ====================

// ProductStatus 通用商品状态
const (
	ProductStatusDraft    = "draft"
	ProductStatusLive     = "live"
	ProductStatusDisabled = "disabled"
)

// MarketplaceStatus 平台侧商品状态，和通用状态是两个维度
const (
	MarketplaceStatusPending   = "pending"
	MarketplaceStatusHasIssues = "has_issues"
	MarketplaceStatusLive      = "live"
	MarketplaceStatusDisabled  = "disabled"
	MarketplaceStatusBanned    = "banned"
)

// ==================== Product 商品主表 ====================

// Product 统一商品模型
// 不变式：转换之后 Variants 永远非空，远端没有 SKU 时会
// 从主商品字段合成一个默认变体
type Product struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	AccountID int64  `gorm:"uniqueIndex:uk_products_account_external;not null"`
	// 平台商品 id
	ExternalID string `gorm:"uniqueIndex:uk_products_account_external;size:64;not null"`

	Name             string `gorm:"size:512"`
	AssociatedSku    string `gorm:"size:255"` // 取第一个变体的 SKU
	ShortDescription string `gorm:"type:text"`
	HtmlDescription  string `gorm:"type:text"`

	BrandExternalID string `gorm:"size:64"`
	CategoryID      *int64 `gorm:"index"` // 关联 IntegrationCategory

	Status            string `gorm:"size:16;index"` // draft / live / disabled
	MarketplaceStatus string `gorm:"size:16;index"`

	// 主商品图列表 [{id,url,width,height,position}]
	Images datatypes.JSON

	// 主商品属性 (属性名 -> 展示值)
	Attributes datatypes.JSONMap `gorm:"type:jsonb"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ==================== ProductVariant 商品变体 ====================

type ProductVariant struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	ProductID int64 `gorm:"uniqueIndex:uk_variants_product_external;not null"`
	// 平台 SKU id，合成的默认变体沿用商品 id
	ExternalID string `gorm:"uniqueIndex:uk_variants_product_external;size:64;not null"`

	Name    string `gorm:"size:512"`
	Sku     string `gorm:"size:255;index"`
	Barcode string `gorm:"size:64"`

	Price float64
	Stock int

	Status string `gorm:"size:16"`

	// 包裹规格，远端缺失时为 0
	Weight        float64
	WeightUnit    string `gorm:"size:8;default:kg"`
	Length        float64
	Width         float64
	Height        float64
	DimensionUnit string `gorm:"size:8;default:cm"`

	MainImage string `gorm:"size:1024"`

	// 变体级刊登信息：平台标识、价格库存、销售属性、图片
	Listing *ProductListing `gorm:"foreignKey:ProductVariantID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ==================== ProductListing 刊登记录 ====================

// ProductListing 平台侧的刊登快照，变体级一条，主商品也有一条 (ProductVariantID 为空)
type ProductListing struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	AccountID        int64  `gorm:"index;not null"`
	ProductID        int64  `gorm:"index;not null"`
	ProductVariantID *int64 `gorm:"index"`

	Name string `gorm:"size:512"`

	// 平台标识 {external_id, sku}
	Identifiers datatypes.JSONMap `gorm:"type:jsonb"`

	Price float64
	Stock int

	MarketplaceStatus string `gorm:"size:16;index"`

	// [{id,url,width,height,position}]
	Images datatypes.JSON

	// 销售属性 (属性名 -> 展示值)
	Attributes datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalID 读刊登的平台 id
func (l *ProductListing) ExternalID() string {
	v, _ := l.Identifiers["external_id"].(string)
	return v
}
