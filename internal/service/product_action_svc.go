package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
	"tiktok_shop_v1/pkg/utils"
)

// ==================== 常量 ====================

const (
	// 商品写操作在平台侧异步生效，回读前等一下
	productSettleDelay = 1 * time.Second

	// img_scene 1 = 商品主图
	imageSceneProduct = 1

	// 条码统一按 ISBN 上报
	identifierCodeTypeISBN = 4
)

// ==================== 服务 ====================

// ProductActionService 商品写操作：创建、更新、删除、上下架、改库存
// 写操作成功后回读远端详情，本地快照永远以平台返回为准
type ProductActionService struct {
	clients     ClientFactory
	products    *ProductService
	productRepo repository.ProductRepository
	sleeper     utils.Sleeper
	download    *resty.Client
	logger      *zap.Logger
}

// NewProductActionService 创建商品操作服务
func NewProductActionService(clients ClientFactory, products *ProductService, productRepo repository.ProductRepository, sleeper utils.Sleeper, logger *zap.Logger) *ProductActionService {
	return &ProductActionService{
		clients:     clients,
		products:    products,
		productRepo: productRepo,
		sleeper:     sleeper,
		download:    resty.New().SetTimeout(60 * time.Second),
		logger:      logger.Named("product_action"),
	}
}

// ==================== 创建 / 更新 ====================

// Create 按本地商品模型在平台创建商品
// 需要先通过 RetrieveCategoryAttributes 同步过类目属性定义
func (s *ProductActionService) Create(ctx context.Context, account *model.Account, product *model.Product, categoryAttrs []model.CategoryAttribute, categoryExternalID string) (*model.Product, error) {
	if categoryExternalID == "" {
		return nil, &tiktok.InputError{Field: "category_id", Message: "a leaf category is required"}
	}
	if len(product.Variants) == 0 {
		return nil, &tiktok.InputError{Field: "variants", Message: "at least one variant is required"}
	}

	client := s.clients(account)
	body, err := s.buildProductPayload(ctx, client, account, product, categoryAttrs, categoryExternalID)
	if err != nil {
		return nil, err
	}

	data, err := client.Request(ctx, http.MethodPost, "products", &tiktok.RequestOptions{JSON: body})
	if err != nil {
		return nil, err
	}

	var out tiktok.CreateProductData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("create product decode: %w", err)
	}

	s.sleeper.Sleep(ctx, productSettleDelay)
	return s.products.GetProduct(ctx, account, out.ProductID)
}

// Update 推送本地商品模型的变更
func (s *ProductActionService) Update(ctx context.Context, account *model.Account, product *model.Product, categoryAttrs []model.CategoryAttribute, categoryExternalID string) (*model.Product, error) {
	if product.ExternalID == "" {
		return nil, &tiktok.InputError{Field: "external_id", Message: "product has no external id"}
	}

	client := s.clients(account)
	body, err := s.buildProductPayload(ctx, client, account, product, categoryAttrs, categoryExternalID)
	if err != nil {
		return nil, err
	}
	body["product_id"] = product.ExternalID

	if _, err := client.Request(ctx, http.MethodPut, "products", &tiktok.RequestOptions{JSON: body}); err != nil {
		return nil, err
	}

	s.sleeper.Sleep(ctx, productSettleDelay)
	return s.products.GetProduct(ctx, account, product.ExternalID)
}

// buildProductPayload 本地模型编码成创建/更新载荷
// 主商品图和每个变体的主图都要先传到平台换 img_id
func (s *ProductActionService) buildProductPayload(ctx context.Context, client *tiktok.Client, account *model.Account, product *model.Product, categoryAttrs []model.CategoryAttribute, categoryExternalID string) (map[string]any, error) {
	warehouseID, err := s.products.resolveWarehouseID(ctx, account)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"product_name": product.Name,
		"description":  product.HtmlDescription,
		"category_id":  categoryExternalID,
		"is_cod_open":  true,
	}

	// 包裹规格取第一个变体
	first := product.Variants[0]
	body["package_weight"] = first.Weight
	body["package_length"] = first.Length
	body["package_width"] = first.Width
	body["package_height"] = first.Height

	var imageIDs []string
	for _, url := range productImageURLs(product.Images) {
		if uploaded := s.uploadImage(ctx, client, url); uploaded != nil {
			imageIDs = append(imageIDs, uploaded.ImgID)
		}
	}
	body["images"] = imageIDs

	body["product_attributes"] = BuildAttributePayload(categoryAttrs, product.Attributes)

	skus := make([]tiktok.SKUPayload, 0, len(product.Variants))
	for _, variant := range product.Variants {
		sku := tiktok.SKUPayload{
			SellerSku:         variant.Sku,
			OriginalPrice:     variant.Price,
			SalesAttribute:    []map[string]any{},
			StockInfo:         []tiktok.StockInfo{},
			ProductAttributes: []any{},
		}

		if variant.MainImage != "" {
			if uploaded := s.uploadImage(ctx, client, variant.MainImage); uploaded != nil {
				sku.SalesAttribute = append(sku.SalesAttribute, map[string]any{
					"sku_img": map[string]any{"id": uploaded.ImgID},
				})
			}
		}

		if warehouseID != "" {
			sku.StockInfo = append(sku.StockInfo, tiktok.StockInfo{
				WarehouseID:    warehouseID,
				AvailableStock: variant.Stock,
			})
		}

		if variant.Barcode != "" {
			sku.ProductIdentifierCode = &tiktok.IdentifierCode{
				Code: variant.Barcode,
				Type: identifierCodeTypeISBN,
			}
		}

		skus = append(skus, sku)
	}
	body["skus"] = skus

	return body, nil
}

// BuildAttributePayload 按类目属性类型编码属性值
// text 用 value_name，select 用 value_id；匹配不上的属性跳过
func BuildAttributePayload(categoryAttrs []model.CategoryAttribute, values map[string]interface{}) []tiktok.ProductAttributePayload {
	payload := make([]tiktok.ProductAttributePayload, 0, len(categoryAttrs))

	for _, attr := range categoryAttrs {
		raw, ok := values[attr.ExternalID]
		if !ok {
			continue
		}

		var fields []tiktok.AttributeValueField
		switch attr.Type {
		case model.AttributeTypeText:
			if v, ok := raw.(string); ok && v != "" {
				fields = append(fields, tiktok.AttributeValueField{ValueName: v})
			}

		case model.AttributeTypeSingleSelect:
			// 存的是候选值名称，编码时查回 id
			name, ok := raw.(string)
			if !ok {
				continue
			}
			if id := lookupOptionID(attr.Options, name); id != "" {
				fields = append(fields, tiktok.AttributeValueField{ValueID: id})
			}

		case model.AttributeTypeMultiSelect:
			// 存的是已选候选值列表 [{id,name}]
			selected, ok := raw.([]interface{})
			if !ok {
				continue
			}
			for _, item := range selected {
				m, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if id, ok := m["id"].(string); ok && id != "" {
					fields = append(fields, tiktok.AttributeValueField{ValueID: id})
				}
			}
		}

		if len(fields) > 0 {
			payload = append(payload, tiktok.ProductAttributePayload{
				AttributeID:     attr.ExternalID,
				AttributeValues: fields,
			})
		}
	}
	return payload
}

func lookupOptionID(options []byte, name string) string {
	var values []tiktok.AttrValue
	if err := json.Unmarshal(options, &values); err != nil {
		return ""
	}
	for _, v := range values {
		if v.Name == name {
			return v.ID
		}
	}
	return ""
}

func productImageURLs(images []byte) []string {
	if len(images) == 0 {
		return nil
	}
	var parsed []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(images, &parsed); err != nil {
		return nil
	}
	urls := make([]string, 0, len(parsed))
	for _, img := range parsed {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}

// uploadImage 下载图片转 base64 上传，失败降级为 nil，不中断整个商品操作
func (s *ProductActionService) uploadImage(ctx context.Context, client *tiktok.Client, imageURL string) *tiktok.ImageUploadData {
	resp, err := s.download.R().SetContext(ctx).Get(imageURL)
	if err != nil || resp.StatusCode() != http.StatusOK {
		s.logger.Warn("image download failed", zap.String("url", imageURL), zap.Error(err))
		return nil
	}

	data, err := client.Request(ctx, http.MethodPost, "products/upload_imgs", &tiktok.RequestOptions{
		JSON: map[string]any{
			"img_data":  base64.StdEncoding.EncodeToString(resp.Body()),
			"img_scene": imageSceneProduct,
		},
	})
	if err != nil {
		s.logger.Warn("image upload failed", zap.String("url", imageURL), zap.Error(err))
		return nil
	}

	var out tiktok.ImageUploadData
	if err := json.Unmarshal(data, &out); err != nil || out.ImgID == "" {
		return nil
	}
	return &out
}

// ==================== 删除 / 上下架 ====================

// Delete 删除平台商品并移除本地记录
func (s *ProductActionService) Delete(ctx context.Context, account *model.Account, product *model.Product) error {
	if product.ExternalID == "" {
		return &tiktok.InputError{Field: "external_id", Message: "product has no external id"}
	}

	client := s.clients(account)
	_, err := client.Request(ctx, http.MethodDelete, "products", &tiktok.RequestOptions{
		JSON: map[string]any{"product_ids": []string{product.ExternalID}},
	})
	if err != nil {
		return err
	}

	return s.productRepo.DeleteByExternalID(ctx, account.ID, product.ExternalID)
}

// ToggleEnable 上架或下架商品
func (s *ProductActionService) ToggleEnable(ctx context.Context, account *model.Account, product *model.Product, enabled bool) error {
	if product.ExternalID == "" {
		return &tiktok.InputError{Field: "external_id", Message: "product has no external id"}
	}

	path := "products/inactivated_products"
	if enabled {
		path = "products/activate"
	}

	client := s.clients(account)
	_, err := client.Request(ctx, http.MethodPost, path, &tiktok.RequestOptions{
		JSON: map[string]any{"product_ids": []string{product.ExternalID}},
	})
	if err != nil {
		return err
	}

	s.sleeper.Sleep(ctx, productSettleDelay)
	_, err = s.products.GetProduct(ctx, account, product.ExternalID)
	return err
}

// ==================== 库存 ====================

// UpdateStock 改单个变体的库存，改完回读远端确认
func (s *ProductActionService) UpdateStock(ctx context.Context, account *model.Account, product *model.Product, variant *model.ProductVariant, stock int) error {
	if variant.ExternalID == "" || variant.ExternalID == product.ExternalID {
		return &tiktok.InputError{Field: "variant", Message: "stock updates require a real variant"}
	}
	if stock < 0 {
		return &tiktok.InputError{Field: "stock", Message: "stock must not be negative"}
	}

	warehouseID, err := s.products.resolveWarehouseID(ctx, account)
	if err != nil {
		return err
	}

	stockInfo := map[string]any{"available_stock": stock}
	if warehouseID != "" {
		stockInfo["warehouse_id"] = warehouseID
	}

	client := s.clients(account)
	_, err = client.Request(ctx, http.MethodPut, "products/stocks", &tiktok.RequestOptions{
		JSON: map[string]any{
			"product_id": product.ExternalID,
			"skus": []map[string]any{{
				"id":          variant.ExternalID,
				"stock_infos": []map[string]any{stockInfo},
			}},
		},
	})
	if err != nil {
		return err
	}

	_, err = s.products.GetProduct(ctx, account, product.ExternalID)
	return err
}
