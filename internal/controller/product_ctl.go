package controller

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"tiktok_shop_v1/internal/api/dto"
	"tiktok_shop_v1/internal/integration"
	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/internal/service"
)

// ProductController 商品控制器
type ProductController struct {
	adapters   *integration.Registry
	accounts   repository.AccountRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	svc        *service.ProductService
	actions    *service.ProductActionService
}

// NewProductController 创建商品控制器
func NewProductController(
	adapters *integration.Registry,
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	svc *service.ProductService,
	actions *service.ProductActionService,
) *ProductController {
	return &ProductController{
		adapters:   adapters,
		accounts:   accounts,
		products:   products,
		categories: categories,
		svc:        svc,
		actions:    actions,
	}
}

// loadProduct 取路径上的商品并校验归属
func (c *ProductController) loadProduct(ctx *gin.Context, account *model.Account) (*model.Product, bool) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return nil, false
	}
	product, err := c.products.GetByID(ctx, id)
	if err != nil || product.AccountID != account.ID {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "商品不存在"})
		return nil, false
	}
	return product, true
}

// ==================== 列表与详情 ====================

// List 商品列表
// GET /api/accounts/:account_id/products
func (c *ProductController) List(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	var req dto.ListProductsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, total, err := c.products.List(ctx, repository.ProductFilter{
		AccountID: account.ID,
		Status:    req.Status,
		Sku:       req.Sku,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	list := make([]dto.ProductListItem, len(products))
	for i, p := range products {
		list[i] = dto.ProductListItem{
			ID:                p.ID,
			ExternalID:        p.ExternalID,
			Name:              p.Name,
			AssociatedSku:     p.AssociatedSku,
			Status:            p.Status,
			MarketplaceStatus: p.MarketplaceStatus,
			VariantCount:      len(p.Variants),
			UpdatedAt:         p.UpdatedAt,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": dto.ListProductsResponse{Total: total, List: list},
	})
}

// GetByID 商品详情
// GET /api/accounts/:account_id/products/:id
func (c *ProductController) GetByID(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	product, ok := c.loadProduct(ctx, account)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": buildProductDetailResponse(product)})
}

// ==================== 导入与同步 ====================

// Import 全量导入商品
// POST /api/accounts/:account_id/products/import
func (c *ProductController) Import(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	adapter, err := c.adapters.ForAccount(account)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := adapter.ImportProducts(ctx, account); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "商品导入完成"})
}

// Sync 同步商品库存与状态
// POST /api/accounts/:account_id/products/sync
func (c *ProductController) Sync(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	adapter, err := c.adapters.ForAccount(account)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := adapter.SyncProducts(ctx, account); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "商品同步完成"})
}

// ==================== 商品操作 ====================

// Create 创建并刊登商品
// POST /api/accounts/:account_id/products
func (c *ProductController) Create(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	var req dto.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attrs, ok := c.loadCategoryAttrs(ctx, account, req.CategoryExternalID)
	if !ok {
		return
	}

	product := productFromRequest(account, &req)
	created, err := c.actions.Create(ctx, account, product, attrs, req.CategoryExternalID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": buildProductDetailResponse(created)})
}

// Update 更新已刊登商品
// PUT /api/accounts/:account_id/products/:id
func (c *ProductController) Update(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	existing, ok := c.loadProduct(ctx, account)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attrs, ok := c.loadCategoryAttrs(ctx, account, req.CategoryExternalID)
	if !ok {
		return
	}

	product := productFromRequest(account, &req)
	product.ID = existing.ID
	product.ExternalID = existing.ExternalID

	updated, err := c.actions.Update(ctx, account, product, attrs, req.CategoryExternalID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": buildProductDetailResponse(updated)})
}

// Delete 删除商品 (远端和本地一起删)
// DELETE /api/accounts/:account_id/products/:id
func (c *ProductController) Delete(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	product, ok := c.loadProduct(ctx, account)
	if !ok {
		return
	}

	if err := c.actions.Delete(ctx, account, product); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "商品已删除"})
}

// Toggle 上下架
// POST /api/accounts/:account_id/products/:id/toggle
func (c *ProductController) Toggle(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	product, ok := c.loadProduct(ctx, account)
	if !ok {
		return
	}

	var req dto.ToggleProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.actions.ToggleEnable(ctx, account, product, *req.Enabled); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "状态已更新"})
}

// UpdateStock 改单个变体库存
// POST /api/accounts/:account_id/products/:id/stock
func (c *ProductController) UpdateStock(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	product, ok := c.loadProduct(ctx, account)
	if !ok {
		return
	}

	var req dto.UpdateStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var variant *model.ProductVariant
	for i := range product.Variants {
		if product.Variants[i].ID == req.VariantID {
			variant = &product.Variants[i]
			break
		}
	}
	if variant == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "变体不存在"})
		return
	}

	if err := c.actions.UpdateStock(ctx, account, product, variant, *req.Stock); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "库存已更新"})
}

// ==================== 类目与品牌 ====================

// SyncCategories 拉取平台类目树
// POST /api/accounts/:account_id/categories/sync
func (c *ProductController) SyncCategories(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	if err := c.svc.RetrieveCategories(ctx, account); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "类目已更新"})
}

// ListCategories 可刊登的叶子类目
// GET /api/accounts/:account_id/categories
func (c *ProductController) ListCategories(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	categories, err := c.categories.ListLeaves(ctx, account.IntegrationID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	list := make([]dto.CategoryVO, len(categories))
	for i, cat := range categories {
		list[i] = dto.CategoryVO{
			ID:         cat.ID,
			ExternalID: cat.ExternalID,
			Name:       cat.Name,
			Breadcrumb: cat.Breadcrumb,
			IsLeaf:     cat.IsLeaf,
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"data": list})
}

// CategoryAttributes 类目属性，本地没有时回源拉取
// GET /api/accounts/:account_id/categories/:external_id/attributes
func (c *ProductController) CategoryAttributes(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	category, err := c.categories.GetByExternalID(ctx, account.IntegrationID, ctx.Param("external_id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "类目不存在"})
		return
	}

	attrs, err := c.categories.GetAttributes(ctx, category.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if len(attrs) == 0 {
		attrs, err = c.svc.RetrieveCategoryAttributes(ctx, account, category)
		if err != nil {
			respondError(ctx, err)
			return
		}
	}

	list := make([]dto.CategoryAttributeVO, len(attrs))
	for i, attr := range attrs {
		list[i] = dto.CategoryAttributeVO{
			ID:         attr.ID,
			ExternalID: attr.ExternalID,
			Name:       attr.Label,
			Type:       attr.Type,
			IsRequired: attr.Required,
			IsSaleProp: attr.IsSaleProp,
			Options:    string(attr.Options),
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"data": list})
}

// ListBrands 平台品牌
// GET /api/accounts/:account_id/brands
func (c *ProductController) ListBrands(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	brands, err := c.svc.RetrieveBrands(ctx, account)
	if err != nil {
		respondError(ctx, err)
		return
	}

	list := make([]dto.BrandVO, len(brands))
	for i, b := range brands {
		list[i] = dto.BrandVO{ExternalID: b.ExternalID, Name: b.Name}
	}
	ctx.JSON(http.StatusOK, gin.H{"data": list})
}

// ==================== 辅助 ====================

// loadCategoryAttrs 取类目属性定义，属性还没拉过时回源
func (c *ProductController) loadCategoryAttrs(ctx *gin.Context, account *model.Account, categoryExternalID string) ([]model.CategoryAttribute, bool) {
	category, err := c.categories.GetByExternalID(ctx, account.IntegrationID, categoryExternalID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "类目不存在，请先同步类目"})
		return nil, false
	}

	attrs, err := c.categories.GetAttributes(ctx, category.ID)
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}
	if len(attrs) == 0 {
		attrs, err = c.svc.RetrieveCategoryAttributes(ctx, account, category)
		if err != nil {
			respondError(ctx, err)
			return nil, false
		}
	}
	return attrs, true
}

// productFromRequest 请求体组装成本地商品模型，只用于编码刊登载荷
func productFromRequest(account *model.Account, req *dto.CreateProductRequest) *model.Product {
	product := &model.Product{
		AccountID:       account.ID,
		Name:            req.Name,
		HtmlDescription: req.HtmlDescription,
		BrandExternalID: req.BrandExternalID,
		Attributes:      req.Attributes,
	}

	if len(req.Images) > 0 {
		images := make([]map[string]any, len(req.Images))
		for i, url := range req.Images {
			images[i] = map[string]any{"url": url, "position": i + 1}
		}
		if b, err := json.Marshal(images); err == nil {
			product.Images = b
		}
	}

	product.Variants = make([]model.ProductVariant, len(req.Variants))
	for i, v := range req.Variants {
		product.Variants[i] = model.ProductVariant{
			Sku:       v.Sku,
			Barcode:   v.Barcode,
			Price:     v.Price,
			Stock:     v.Stock,
			Weight:    v.Weight,
			Length:    v.Length,
			Width:     v.Width,
			Height:    v.Height,
			MainImage: v.MainImage,
		}
	}
	if len(product.Variants) > 0 {
		product.AssociatedSku = product.Variants[0].Sku
	}
	return product
}

func buildProductDetailResponse(product *model.Product) *dto.ProductDetailResponse {
	resp := &dto.ProductDetailResponse{
		Product: &dto.ProductVO{
			ID:                product.ID,
			ExternalID:        product.ExternalID,
			Name:              product.Name,
			AssociatedSku:     product.AssociatedSku,
			ShortDescription:  product.ShortDescription,
			HtmlDescription:   product.HtmlDescription,
			BrandExternalID:   product.BrandExternalID,
			CategoryID:        product.CategoryID,
			Status:            product.Status,
			MarketplaceStatus: product.MarketplaceStatus,
			Attributes:        product.Attributes,
			CreatedAt:         product.CreatedAt,
			UpdatedAt:         product.UpdatedAt,
		},
	}

	resp.Variants = make([]dto.VariantVO, len(product.Variants))
	for i, v := range product.Variants {
		resp.Variants[i] = dto.VariantVO{
			ID:         v.ID,
			ExternalID: v.ExternalID,
			Name:       v.Name,
			Sku:        v.Sku,
			Barcode:    v.Barcode,
			Price:      v.Price,
			Stock:      v.Stock,
			Status:     v.Status,
			MainImage:  v.MainImage,
		}
	}
	return resp
}
