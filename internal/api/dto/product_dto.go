package dto

import "time"

// ==================== 商品列表查询 ====================

// ListProductsRequest 商品列表请求
type ListProductsRequest struct {
	Status   string `form:"status"` // draft / live / disabled
	Sku      string `form:"sku"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// ListProductsResponse 商品列表响应
type ListProductsResponse struct {
	Total int64             `json:"total"`
	List  []ProductListItem `json:"list"`
}

// ProductListItem 商品列表项
type ProductListItem struct {
	ID                int64     `json:"id"`
	ExternalID        string    `json:"external_id"`
	Name              string    `json:"name"`
	AssociatedSku     string    `json:"associated_sku"`
	Status            string    `json:"status"`
	MarketplaceStatus string    `json:"marketplace_status"`
	VariantCount      int       `json:"variant_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ==================== 商品详情 ====================

// ProductDetailResponse 商品详情响应
type ProductDetailResponse struct {
	Product  *ProductVO  `json:"product"`
	Variants []VariantVO `json:"variants"`
}

// ProductVO 商品视图对象
type ProductVO struct {
	ID                int64          `json:"id"`
	ExternalID        string         `json:"external_id"`
	Name              string         `json:"name"`
	AssociatedSku     string         `json:"associated_sku"`
	ShortDescription  string         `json:"short_description,omitempty"`
	HtmlDescription   string         `json:"html_description,omitempty"`
	BrandExternalID   string         `json:"brand_external_id,omitempty"`
	CategoryID        *int64         `json:"category_id,omitempty"`
	Status            string         `json:"status"`
	MarketplaceStatus string         `json:"marketplace_status"`
	Attributes        map[string]any `json:"attributes,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// VariantVO 变体视图对象
type VariantVO struct {
	ID         int64   `json:"id"`
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Sku        string  `json:"sku"`
	Barcode    string  `json:"barcode,omitempty"`
	Price      float64 `json:"price"`
	Stock      int     `json:"stock"`
	Status     string  `json:"status"`
	MainImage  string  `json:"main_image,omitempty"`
}

// ==================== 商品操作 ====================

// CreateProductRequest 创建并刊登商品
type CreateProductRequest struct {
	CategoryExternalID string             `json:"category_external_id" binding:"required"`
	Name               string             `json:"name" binding:"required"`
	HtmlDescription    string             `json:"html_description"`
	BrandExternalID    string             `json:"brand_external_id"`
	Images             []string           `json:"images"` // 主图 URL 列表
	Attributes         map[string]any     `json:"attributes"`
	Variants           []CreateVariantDTO `json:"variants" binding:"required,min=1"`
}

// CreateVariantDTO 创建商品时的单个变体
type CreateVariantDTO struct {
	Sku        string         `json:"sku" binding:"required"`
	Barcode    string         `json:"barcode"`
	Price      float64        `json:"price" binding:"required"`
	Stock      int            `json:"stock"`
	Weight     float64        `json:"weight"`
	Length     float64        `json:"length"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	MainImage  string         `json:"main_image"`
	Attributes map[string]any `json:"attributes"` // 销售属性 (属性名 -> 展示值)
}

// UpdateProductRequest 更新已刊登商品，字段全量覆盖
type UpdateProductRequest = CreateProductRequest

// ToggleProductRequest 上下架
type ToggleProductRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// UpdateStockRequest 改单个变体库存
type UpdateStockRequest struct {
	VariantID int64 `json:"variant_id" binding:"required"`
	Stock     *int  `json:"stock" binding:"required"`
}

// ==================== 类目 ====================

// CategoryVO 平台类目节点
type CategoryVO struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Breadcrumb string `json:"breadcrumb"`
	IsLeaf     bool   `json:"is_leaf"`
}

// CategoryAttributeVO 类目属性
type CategoryAttributeVO struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Type       string `json:"type"` // text / single_select / multi_select
	IsRequired bool   `json:"is_required"`
	IsSaleProp bool   `json:"is_sale_prop"`
	Options    string `json:"options,omitempty"` // JSON 字符串 [{id,name}]
}

// BrandVO 平台品牌
type BrandVO struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}
