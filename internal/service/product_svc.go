package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
)

// ==================== 常量 ====================

const (
	productPageSize = 100
	brandPageSize   = 100
)

// 平台商品状态码
const (
	remoteProductDraft        = 1
	remoteProductPending      = 2
	remoteProductFailed       = 3
	remoteProductLive         = 4
	remoteProductSellerDown   = 5
	remoteProductPlatformDown = 6
	remoteProductFrozen       = 7
	remoteProductDeleted      = 8
)

// Brand 平台品牌
type Brand struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

// ==================== 服务 ====================

// ProductService 商品抓取、转换与同步
type ProductService struct {
	clients       ClientFactory
	productRepo   repository.ProductRepository
	categoryRepo  repository.CategoryRepository
	integrationID int64
	logger        *zap.Logger
}

// NewProductService 创建商品服务
func NewProductService(clients ClientFactory, productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, integrationID int64, logger *zap.Logger) *ProductService {
	return &ProductService{
		clients:       clients,
		productRepo:   productRepo,
		categoryRepo:  categoryRepo,
		integrationID: integrationID,
		logger:        logger.Named("product"),
	}
}

// ==================== 抓取 ====================

// FetchAllProductIDs 分页拉全量商品 id
func (s *ProductService) FetchAllProductIDs(ctx context.Context, account *model.Account) ([]string, error) {
	client := s.clients(account)

	summaries, err := tiktok.FetchAllByPage(func(page int) ([]tiktok.ProductSummary, int, error) {
		data, err := client.Request(ctx, http.MethodPost, "products/search", &tiktok.RequestOptions{
			JSON: map[string]any{
				"page_number": page,
				"page_size":   productPageSize,
			},
		})
		if err != nil {
			return nil, 0, err
		}
		var out tiktok.ProductSearchData
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, 0, fmt.Errorf("product search decode: %w", err)
		}
		return out.Products, out.Total, nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(summaries))
	for _, p := range summaries {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// GetProduct 抓取单个商品详情并落库
// 远端已删除 (状态 8) 的商品会移除本地记录并返回 nil
func (s *ProductService) GetProduct(ctx context.Context, account *model.Account, externalID string) (*model.Product, error) {
	client := s.clients(account)

	data, err := client.Request(ctx, http.MethodGet, "products/details", &tiktok.RequestOptions{
		Query: map[string]string{"product_id": externalID},
	})
	if err != nil {
		return nil, err
	}

	var detail tiktok.ProductDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, &tiktok.TransformError{Entity: "product", Raw: string(data), Err: err}
	}

	warehouseID, err := s.resolveWarehouseID(ctx, account)
	if err != nil {
		return nil, err
	}

	category := s.lookupCategory(ctx, &detail)

	product, err := TransformProduct(account, &detail, warehouseID, category)
	if err != nil {
		return nil, err
	}
	if product == nil {
		if err := s.productRepo.DeleteByExternalID(ctx, account.ID, externalID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.productRepo.Upsert(ctx, product); err != nil {
		return nil, fmt.Errorf("upsert product %s: %w", externalID, err)
	}
	return product, nil
}

// ImportProducts 全量导入
func (s *ProductService) ImportProducts(ctx context.Context, account *model.Account) error {
	ids, err := s.FetchAllProductIDs(ctx, account)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.GetProduct(ctx, account, id); err != nil {
			s.logger.Error("product import failed",
				zap.Int64("account_id", account.ID),
				zap.String("external_id", id),
				zap.Error(err))
			return err
		}
	}
	return nil
}

// SyncProducts 同步已有商品的库存和状态，本地没有商品时跳过
func (s *ProductService) SyncProducts(ctx context.Context, account *model.Account) error {
	_, total, err := s.productRepo.List(ctx, repository.ProductFilter{AccountID: account.ID, PageSize: 1})
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	return s.ImportProducts(ctx, account)
}

func (s *ProductService) resolveWarehouseID(ctx context.Context, account *model.Account) (string, error) {
	return resolveWarehouseID(ctx, s.clients(account), account)
}

// lookupCategory 取报文里的叶子类目对应的本地类目，查不到不算错
func (s *ProductService) lookupCategory(ctx context.Context, detail *tiktok.ProductDetail) *model.IntegrationCategory {
	for _, node := range detail.CategoryList {
		if node.IsLeaf {
			category, err := s.categoryRepo.GetByExternalID(ctx, s.integrationID, node.ID)
			if err == nil {
				return category
			}
			if err != gorm.ErrRecordNotFound {
				s.logger.Warn("category lookup failed",
					zap.String("external_id", node.ID),
					zap.Error(err))
			}
			return nil
		}
	}
	return nil
}

// ==================== 转换 ====================

// TransformProduct 远端商品报文转统一商品模型，纯函数
// 返回 (nil, nil) 表示商品已在平台删除
func TransformProduct(account *model.Account, d *tiktok.ProductDetail, warehouseID string, category *model.IntegrationCategory) (*model.Product, error) {
	status, mpStatus, deleted, err := productStatus(d.ProductStatus)
	if err != nil {
		return nil, &tiktok.TransformError{Entity: "product", Raw: d.ProductID, Err: err}
	}
	if deleted {
		return nil, nil
	}

	product := &model.Product{
		AccountID:         account.ID,
		ExternalID:        d.ProductID,
		Name:              d.ProductName,
		HtmlDescription:   d.Description,
		Status:            status,
		MarketplaceStatus: mpStatus,
		Attributes:        transformAttributeValues(d.ProductAttributes),
	}
	if d.Brand != nil {
		product.BrandExternalID = d.Brand.ID
	}
	if category != nil {
		product.CategoryID = &category.ID
	}

	product.Images = marshalImages(d.Images)

	if len(d.Skus) == 0 {
		// 平台没有父 SKU，无变体商品合成一个默认变体，规格沿用主商品
		product.Variants = []model.ProductVariant{{
			ExternalID:    d.ProductID,
			Name:          d.ProductName,
			Status:        status,
			Weight:        d.PackageWeight.Float64(),
			WeightUnit:    "kg",
			Length:        d.PackageLength.Float64(),
			Width:         d.PackageWidth.Float64(),
			Height:        d.PackageHeight.Float64(),
			DimensionUnit: "cm",
			Listing: &model.ProductListing{
				AccountID:         account.ID,
				Name:              d.ProductName,
				Identifiers:       map[string]interface{}{"external_id": d.ProductID},
				MarketplaceStatus: mpStatus,
				Images:            marshalImages(d.Images),
				Attributes:        transformAttributeValues(d.ProductAttributes),
			},
		}}
		return product, nil
	}

	for _, sku := range d.Skus {
		variant := transformSKU(account, d, &sku, warehouseID, status, mpStatus)
		if product.AssociatedSku == "" {
			product.AssociatedSku = sku.SellerSku
		}
		product.Variants = append(product.Variants, variant)
	}
	return product, nil
}

func transformSKU(account *model.Account, d *tiktok.ProductDetail, sku *tiktok.SKU, warehouseID, status, mpStatus string) model.ProductVariant {
	// SKU 没有独立名称，用商品名拼 seller_sku
	name := d.ProductName + " ~ " + sku.SellerSku

	stock := 0
	if warehouseID == "" {
		for _, info := range sku.StockInfos {
			stock += info.AvailableStock
		}
	} else {
		for _, info := range sku.StockInfos {
			if info.WarehouseID == warehouseID {
				stock = info.AvailableStock
				break
			}
		}
	}

	var images []tiktok.ProductImage
	mainImage := ""
	for _, attr := range sku.SalesAttributes {
		if attr.SkuImg != nil && len(attr.SkuImg.URLList) > 0 {
			images = append(images, *attr.SkuImg)
			if mainImage == "" {
				mainImage = attr.SkuImg.URLList[0]
			}
		}
	}

	return model.ProductVariant{
		ExternalID:    sku.ID,
		Name:          name,
		Sku:           sku.SellerSku,
		Price:         sku.Price.OriginalPrice.Float64(),
		Stock:         stock,
		Status:        status,
		Weight:        sku.PackageWeight.Float64(),
		WeightUnit:    "kg",
		Length:        sku.PackageLength.Float64(),
		Width:         sku.PackageWidth.Float64(),
		Height:        sku.PackageHeight.Float64(),
		DimensionUnit: "cm",
		MainImage:     mainImage,
		Listing: &model.ProductListing{
			AccountID: account.ID,
			Name:      name,
			Identifiers: map[string]interface{}{
				"external_id": sku.ID,
				"sku":         sku.SellerSku,
			},
			Price:             sku.Price.OriginalPrice.Float64(),
			Stock:             stock,
			MarketplaceStatus: mpStatus,
			Images:            marshalImages(images),
			Attributes:        transformSalesAttributeValues(sku.SalesAttributes),
		},
	}
}

// productStatus 平台状态码转 (通用状态, 平台状态)
// 8 表示已删除；未知状态码视为报文损坏
func productStatus(code int) (status, mpStatus string, deleted bool, err error) {
	switch code {
	case remoteProductDraft, remoteProductPending:
		return model.ProductStatusDraft, model.MarketplaceStatusPending, false, nil
	case remoteProductFailed:
		return model.ProductStatusDraft, model.MarketplaceStatusHasIssues, false, nil
	case remoteProductLive:
		return model.ProductStatusLive, model.MarketplaceStatusLive, false, nil
	case remoteProductSellerDown, remoteProductFrozen:
		return model.ProductStatusDisabled, model.MarketplaceStatusDisabled, false, nil
	case remoteProductPlatformDown:
		return model.ProductStatusDisabled, model.MarketplaceStatusBanned, false, nil
	case remoteProductDeleted:
		return "", "", true, nil
	default:
		return "", "", false, fmt.Errorf("invalid product status %d", code)
	}
}

// transformAttributeValues 属性列表转 名称 -> 展示值
// 单值用 value_name，多值把候选值名用逗号拼起来
func transformAttributeValues(attrs []tiktok.ProductAttributeValue) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for _, attr := range attrs {
		if attr.ValueName != "" {
			out[attr.Name] = attr.ValueName
			continue
		}
		if len(attr.Values) > 0 {
			names := make([]string, 0, len(attr.Values))
			for _, v := range attr.Values {
				names = append(names, v.Name)
			}
			out[attr.Name] = strings.Join(names, ", ")
		}
	}
	return out
}

func transformSalesAttributeValues(attrs []tiktok.SalesAttribute) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for _, attr := range attrs {
		if attr.ValueName != "" {
			out[attr.Name] = attr.ValueName
			continue
		}
		if len(attr.Values) > 0 {
			names := make([]string, 0, len(attr.Values))
			for _, v := range attr.Values {
				names = append(names, v.Name)
			}
			out[attr.Name] = strings.Join(names, ", ")
		}
	}
	return out
}

func marshalImages(images []tiktok.ProductImage) datatypes.JSON {
	if len(images) == 0 {
		return nil
	}
	type img struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Position int    `json:"position"`
	}
	out := make([]img, 0, len(images))
	for i, im := range images {
		if len(im.URLList) == 0 {
			continue
		}
		out = append(out, img{ID: im.ID, URL: im.URLList[0], Width: im.Width, Height: im.Height, Position: i})
	}
	b, _ := json.Marshal(out)
	return datatypes.JSON(b)
}

// ==================== 类目 / 品牌 / 属性 ====================

// RetrieveCategories 拉全量类目树并落库，面包屑用 " > " 连接
func (s *ProductService) RetrieveCategories(ctx context.Context, account *model.Account) error {
	client := s.clients(account)

	data, err := client.Request(ctx, http.MethodGet, "products/categories", nil)
	if err != nil {
		return err
	}

	var out tiktok.CategoryListData
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("category list decode: %w", err)
	}

	byParent := make(map[string][]tiktok.CategoryNode)
	for _, node := range out.CategoryList {
		byParent[node.ParentID] = append(byParent[node.ParentID], node)
	}

	var categories []model.IntegrationCategory
	var walk func(parentID, parentBreadcrumb string)
	walk = func(parentID, parentBreadcrumb string) {
		for _, node := range byParent[parentID] {
			breadcrumb := node.LocalDisplayName
			if parentBreadcrumb != "" {
				breadcrumb = parentBreadcrumb + " > " + node.LocalDisplayName
			}
			categories = append(categories, model.IntegrationCategory{
				IntegrationID:    s.integrationID,
				ExternalID:       node.ID,
				ParentExternalID: node.ParentID,
				Name:             node.LocalDisplayName,
				Breadcrumb:       breadcrumb,
				IsLeaf:           node.IsLeaf,
			})
			walk(node.ID, breadcrumb)
		}
	}
	// 根节点的 parent_id 为 "0"
	walk("0", "")

	return s.categoryRepo.UpsertCategories(ctx, categories)
}

// RetrieveBrands 分页拉全量品牌
func (s *ProductService) RetrieveBrands(ctx context.Context, account *model.Account) ([]Brand, error) {
	client := s.clients(account)

	raw, err := tiktok.FetchAllByPage(func(page int) ([]tiktok.AttrValue, int, error) {
		data, err := client.Request(ctx, http.MethodGet, "products/brands", &tiktok.RequestOptions{
			Query: map[string]string{
				"page_size":   strconv.Itoa(brandPageSize),
				"page_number": strconv.Itoa(page),
			},
		})
		if err != nil {
			return nil, 0, err
		}
		var out tiktok.BrandListData
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, 0, fmt.Errorf("brand list decode: %w", err)
		}
		return out.BrandList, out.TotalNum, nil
	})
	if err != nil {
		return nil, err
	}

	brands := make([]Brand, 0, len(raw))
	for _, b := range raw {
		brands = append(brands, Brand{ExternalID: b.ID, Name: b.Name})
	}
	return brands, nil
}

// RetrieveCategoryAttributes 拉类目属性定义并整体替换本地记录
func (s *ProductService) RetrieveCategoryAttributes(ctx context.Context, account *model.Account, category *model.IntegrationCategory) ([]model.CategoryAttribute, error) {
	client := s.clients(account)

	data, err := client.Request(ctx, http.MethodGet, "products/attributes", &tiktok.RequestOptions{
		Query: map[string]string{"category_id": category.ExternalID},
	})
	if err != nil {
		return nil, err
	}

	var out tiktok.CategoryAttributeData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("category attribute decode: %w", err)
	}

	attrs := make([]model.CategoryAttribute, 0, len(out.Attributes))
	for _, remote := range out.Attributes {
		attrType := model.AttributeTypeText
		if len(remote.Values) > 0 {
			if remote.InputType.IsMultipleSelected {
				attrType = model.AttributeTypeMultiSelect
			} else {
				attrType = model.AttributeTypeSingleSelect
			}
		}

		var options datatypes.JSON
		if len(remote.Values) > 0 {
			b, _ := json.Marshal(remote.Values)
			options = datatypes.JSON(b)
		}

		attrs = append(attrs, model.CategoryAttribute{
			CategoryID: category.ID,
			ExternalID: remote.ID,
			Label:      remote.Name,
			Type:       attrType,
			Required:   remote.InputType.IsMandatory,
			Options:    options,
			// attribute_type == 2 是销售属性
			IsSaleProp: remote.AttributeType == 2,
		})
	}

	if err := s.categoryRepo.ReplaceAttributes(ctx, category.ID, attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
