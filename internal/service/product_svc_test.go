package service

import (
	"encoding/json"
	"testing"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/pkg/tiktok"
)

// ==================== 测试辅助 ====================

func sampleProductDetail() *tiktok.ProductDetail {
	return &tiktok.ProductDetail{
		ProductID:     "100001",
		ProductName:   "Ceramic Mug",
		Description:   "<p>A mug</p>",
		ProductStatus: 4,
		Brand:         &tiktok.BrandRef{ID: "b1", Name: "MugCo"},
		Images: []tiktok.ProductImage{
			{ID: "img1", URLList: []string{"https://cdn/img1.jpg"}, Width: 800, Height: 800},
		},
		ProductAttributes: []tiktok.ProductAttributeValue{
			{ID: "a1", Name: "Material", ValueName: "Ceramic"},
			{ID: "a2", Name: "Color", Values: []tiktok.AttrValue{{ID: "v1", Name: "Red"}, {ID: "v2", Name: "Blue"}}},
		},
		Skus: []tiktok.SKU{
			{
				ID:        "sku-1",
				SellerSku: "MUG-RED",
				Price:     tiktok.SKUPrice{OriginalPrice: 12.5},
				StockInfos: []tiktok.StockInfo{
					{WarehouseID: "wh-1", AvailableStock: 3},
					{WarehouseID: "wh-2", AvailableStock: 7},
				},
				SalesAttributes: []tiktok.SalesAttribute{
					{ID: "sa1", Name: "Color", ValueName: "Red",
						SkuImg: &tiktok.ProductImage{ID: "simg", URLList: []string{"https://cdn/red.jpg"}}},
				},
			},
			{
				ID:        "sku-2",
				SellerSku: "MUG-BLUE",
				Price:     tiktok.SKUPrice{OriginalPrice: 13},
				StockInfos: []tiktok.StockInfo{
					{WarehouseID: "wh-1", AvailableStock: 5},
				},
			},
		},
	}
}

// ==================== 商品转换 ====================

func TestTransformProduct(t *testing.T) {
	account := testOrderAccount()
	category := &model.IntegrationCategory{ID: 9, ExternalID: "c9", IsLeaf: true}

	product, err := TransformProduct(account, sampleProductDetail(), "", category)
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}

	if product.ExternalID != "100001" || product.Name != "Ceramic Mug" {
		t.Errorf("标识字段错误: %+v", product)
	}
	if product.Status != model.ProductStatusLive || product.MarketplaceStatus != model.MarketplaceStatusLive {
		t.Errorf("状态 = %s / %s", product.Status, product.MarketplaceStatus)
	}
	if product.BrandExternalID != "b1" {
		t.Errorf("品牌 = %s", product.BrandExternalID)
	}
	if product.CategoryID == nil || *product.CategoryID != 9 {
		t.Errorf("类目 = %v", product.CategoryID)
	}
	if product.AssociatedSku != "MUG-RED" {
		t.Errorf("AssociatedSku = %s, want 第一个变体的 SKU", product.AssociatedSku)
	}

	// 属性: 单值用 value_name，多值拼接
	if product.Attributes["Material"] != "Ceramic" {
		t.Errorf("Material = %v", product.Attributes["Material"])
	}
	if product.Attributes["Color"] != "Red, Blue" {
		t.Errorf("Color = %v", product.Attributes["Color"])
	}

	if len(product.Variants) != 2 {
		t.Fatalf("变体数 = %d, want 2", len(product.Variants))
	}

	red := product.Variants[0]
	if red.Name != "Ceramic Mug ~ MUG-RED" {
		t.Errorf("变体名 = %s", red.Name)
	}
	if red.Price != 12.5 {
		t.Errorf("价格 = %v", red.Price)
	}
	// 未绑定仓库时各仓库存求和
	if red.Stock != 10 {
		t.Errorf("库存 = %d, want 10", red.Stock)
	}
	if red.MainImage != "https://cdn/red.jpg" {
		t.Errorf("主图 = %s", red.MainImage)
	}
	if red.Listing == nil || red.Listing.ExternalID() != "sku-1" {
		t.Errorf("刊登记录错误: %+v", red.Listing)
	}
	if red.Listing.Attributes["Color"] != "Red" {
		t.Errorf("销售属性 = %v", red.Listing.Attributes)
	}
}

func TestTransformProduct_WarehouseBound(t *testing.T) {
	product, err := TransformProduct(testOrderAccount(), sampleProductDetail(), "wh-2", nil)
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	// 绑定仓库时只取该仓的库存
	if product.Variants[0].Stock != 7 {
		t.Errorf("变体 1 库存 = %d, want 7", product.Variants[0].Stock)
	}
	// 该仓没有库存记录则为 0
	if product.Variants[1].Stock != 0 {
		t.Errorf("变体 2 库存 = %d, want 0", product.Variants[1].Stock)
	}
}

func TestTransformProduct_SyntheticDefaultVariant(t *testing.T) {
	d := sampleProductDetail()
	d.Skus = nil
	d.PackageWeight = 0.4
	d.PackageLength = 10

	product, err := TransformProduct(testOrderAccount(), d, "", nil)
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	if len(product.Variants) != 1 {
		t.Fatalf("无 SKU 商品应合成一个默认变体, got %d", len(product.Variants))
	}

	v := product.Variants[0]
	if v.ExternalID != "100001" {
		t.Errorf("默认变体沿用商品 id, got %s", v.ExternalID)
	}
	if v.Name != "Ceramic Mug" {
		t.Errorf("默认变体名 = %s", v.Name)
	}
	if v.Weight != 0.4 || v.Length != 10 {
		t.Errorf("包裹规格未沿用主商品: %v %v", v.Weight, v.Length)
	}
	if v.Listing == nil || v.Listing.ExternalID() != "100001" {
		t.Errorf("默认变体刊登记录错误: %+v", v.Listing)
	}
}

func TestTransformProduct_Deleted(t *testing.T) {
	d := sampleProductDetail()
	d.ProductStatus = 8

	product, err := TransformProduct(testOrderAccount(), d, "", nil)
	if err != nil {
		t.Fatalf("已删除商品不应报错: %v", err)
	}
	if product != nil {
		t.Error("已删除商品应返回 nil")
	}
}

func TestTransformProduct_UnknownStatus(t *testing.T) {
	d := sampleProductDetail()
	d.ProductStatus = 99

	if _, err := TransformProduct(testOrderAccount(), d, "", nil); err == nil {
		t.Fatal("未知状态码应转换失败")
	}
}

func TestProductStatus(t *testing.T) {
	cases := []struct {
		code       int
		wantStatus string
		wantMp     string
	}{
		{1, model.ProductStatusDraft, model.MarketplaceStatusPending},
		{2, model.ProductStatusDraft, model.MarketplaceStatusPending},
		{3, model.ProductStatusDraft, model.MarketplaceStatusHasIssues},
		{4, model.ProductStatusLive, model.MarketplaceStatusLive},
		{5, model.ProductStatusDisabled, model.MarketplaceStatusDisabled},
		{6, model.ProductStatusDisabled, model.MarketplaceStatusBanned},
		{7, model.ProductStatusDisabled, model.MarketplaceStatusDisabled},
	}
	for _, tc := range cases {
		status, mp, deleted, err := productStatus(tc.code)
		if err != nil || deleted {
			t.Errorf("productStatus(%d) err=%v deleted=%v", tc.code, err, deleted)
			continue
		}
		if status != tc.wantStatus || mp != tc.wantMp {
			t.Errorf("productStatus(%d) = %s/%s, want %s/%s", tc.code, status, mp, tc.wantStatus, tc.wantMp)
		}
	}
}

func TestMarshalImages(t *testing.T) {
	images := []tiktok.ProductImage{
		{ID: "i1", URLList: []string{"https://cdn/1.jpg"}, Width: 100, Height: 200},
		{ID: "i2"}, // 无 URL，跳过
		{ID: "i3", URLList: []string{"https://cdn/3.jpg", "https://cdn/3b.jpg"}},
	}

	raw := marshalImages(images)
	var out []map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("图片数 = %d, want 2", len(out))
	}
	if out[0]["url"] != "https://cdn/1.jpg" || out[1]["id"] != "i3" {
		t.Errorf("图片内容错误: %v", out)
	}
	// 第一个 URL 之外的备选 URL 丢弃
	if out[1]["url"] != "https://cdn/3.jpg" {
		t.Errorf("url = %v", out[1]["url"])
	}
}
