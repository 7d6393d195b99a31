package repository

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tiktok_shop_v1/internal/model"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&model.Product{}, &model.ProductVariant{}, &model.ProductListing{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestProduct(externalID string, skuIDs ...string) *model.Product {
	p := &model.Product{
		AccountID:         1,
		ExternalID:        externalID,
		Name:              "Ceramic Mug",
		AssociatedSku:     "MUG-1",
		Status:            model.ProductStatusLive,
		MarketplaceStatus: model.MarketplaceStatusLive,
	}
	for _, id := range skuIDs {
		p.Variants = append(p.Variants, model.ProductVariant{
			ExternalID: id,
			Name:       "Ceramic Mug ~ " + id,
			Sku:        id,
			Price:      12.5,
			Stock:      10,
			Listing: &model.ProductListing{
				Name:        "Ceramic Mug ~ " + id,
				Identifiers: map[string]interface{}{"external_id": id, "sku": id},
				Price:       12.5,
				Stock:       10,
			},
		})
	}
	return p
}

func TestProductRepo_Upsert(t *testing.T) {
	repo := NewProductRepository(setupProductTestDB(t))
	ctx := context.Background()

	product := newTestProduct("prod-1", "sku-1", "sku-2")
	if err := repo.Upsert(ctx, product); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if product.ID == 0 {
		t.Fatal("ID 应该被自动分配")
	}
	firstID := product.ID

	found, err := repo.GetByExternalID(ctx, 1, "prod-1")
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if len(found.Variants) != 2 {
		t.Fatalf("变体数 = %d, want 2", len(found.Variants))
	}
	if found.Variants[0].Listing == nil || found.Variants[0].Listing.ExternalID() != "sku-1" {
		t.Errorf("刊登记录缺失: %+v", found.Variants[0].Listing)
	}

	// 再次写入：更新主键不变
	updated := newTestProduct("prod-1", "sku-1", "sku-2")
	updated.Status = model.ProductStatusDisabled
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert() 更新失败: %v", err)
	}
	if updated.ID != firstID {
		t.Errorf("更新后 ID = %d, want %d", updated.ID, firstID)
	}

	found, _ = repo.GetByExternalID(ctx, 1, "prod-1")
	if found.Status != model.ProductStatusDisabled {
		t.Errorf("Status = %s, want disabled", found.Status)
	}
	if len(found.Variants) != 2 {
		t.Errorf("变体数 = %d, want 2 (不应重复)", len(found.Variants))
	}
}

func TestProductRepo_Upsert_PrunesRemovedVariants(t *testing.T) {
	repo := NewProductRepository(setupProductTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, newTestProduct("prod-1", "sku-1", "sku-2")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// 远端不再返回 sku-2
	if err := repo.Upsert(ctx, newTestProduct("prod-1", "sku-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	found, _ := repo.GetByExternalID(ctx, 1, "prod-1")
	if len(found.Variants) != 1 || found.Variants[0].ExternalID != "sku-1" {
		t.Errorf("消失的变体应被删除: %+v", found.Variants)
	}
}

func TestProductRepo_List(t *testing.T) {
	repo := NewProductRepository(setupProductTestDB(t))
	ctx := context.Background()

	live := newTestProduct("prod-1", "sku-1")
	draft := newTestProduct("prod-2", "sku-2")
	draft.Status = model.ProductStatusDraft
	draft.AssociatedSku = "MUG-2"

	for _, p := range []*model.Product{live, draft} {
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	products, total, err := repo.List(ctx, ProductFilter{AccountID: 1, Status: model.ProductStatusDraft})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || products[0].ExternalID != "prod-2" {
		t.Errorf("状态过滤错误: total=%d", total)
	}

	products, total, err = repo.List(ctx, ProductFilter{AccountID: 1, Sku: "MUG-2"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || products[0].ExternalID != "prod-2" {
		t.Errorf("SKU 过滤错误: total=%d", total)
	}
}

func TestProductRepo_DeleteByExternalID(t *testing.T) {
	repo := NewProductRepository(setupProductTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, newTestProduct("prod-1", "sku-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.DeleteByExternalID(ctx, 1, "prod-1"); err != nil {
		t.Fatalf("DeleteByExternalID() error = %v", err)
	}
	if _, err := repo.GetByExternalID(ctx, 1, "prod-1"); err != gorm.ErrRecordNotFound {
		t.Errorf("删除后应查不到, got %v", err)
	}

	// 幂等：不存在时静默返回
	if err := repo.DeleteByExternalID(ctx, 1, "prod-404"); err != nil {
		t.Errorf("不存在的商品删除应为 no-op, got %v", err)
	}
}
