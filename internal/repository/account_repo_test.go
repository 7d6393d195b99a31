package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tiktok_shop_v1/internal/model"
)

func setupAccountTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&model.Account{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestAccount(username string, expireIn int64) *model.Account {
	a := &model.Account{
		Name:          "Test Shop",
		Username:      username,
		ShopID:        100,
		IntegrationID: 11006,
		RegionID:      1,
		Currency:      "USD",
		Status:        model.AccountStatusActive,
	}
	if expireIn > 0 {
		a.SetCredentials(&model.Credentials{
			AccessToken:         "token-" + username,
			AccessTokenExpireIn: expireIn,
			RefreshToken:        "refresh-" + username,
		})
	}
	return a
}

func TestAccountRepo_CreateAndGet(t *testing.T) {
	repo := NewAccountRepository(setupAccountTestDB(t))
	ctx := context.Background()

	account := newTestAccount("seller-a", 0)
	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if account.ID == 0 {
		t.Fatal("ID 应该被自动分配")
	}

	found, err := repo.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Username != "seller-a" || found.IntegrationID != 11006 {
		t.Errorf("账号内容错误: %+v", found)
	}
}

func TestAccountRepo_FindByUnique(t *testing.T) {
	repo := NewAccountRepository(setupAccountTestDB(t))
	ctx := context.Background()

	repo.Create(ctx, newTestAccount("seller-a", 0))
	other := newTestAccount("seller-a", 0)
	other.ShopID = 200
	repo.Create(ctx, other)

	found, err := repo.FindByUnique(ctx, "seller-a", 11006, 1, 200)
	if err != nil {
		t.Fatalf("FindByUnique() error = %v", err)
	}
	if found.ShopID != 200 {
		t.Errorf("ShopID = %d, want 200", found.ShopID)
	}

	if _, err := repo.FindByUnique(ctx, "seller-b", 11006, 1, 100); err != gorm.ErrRecordNotFound {
		t.Errorf("不存在的账号应返回 ErrRecordNotFound, got %v", err)
	}
}

func TestAccountRepo_FindExpiring(t *testing.T) {
	repo := NewAccountRepository(setupAccountTestDB(t))
	ctx := context.Background()
	now := time.Now()

	expiring := newTestAccount("expiring", now.Add(24*time.Hour).Unix())
	fresh := newTestAccount("fresh", now.Add(30*24*time.Hour).Unix())
	noCred := newTestAccount("no-cred", 0)
	disabled := newTestAccount("disabled", now.Add(24*time.Hour).Unix())
	disabled.Status = model.AccountStatusRequireAuth

	for _, a := range []*model.Account{expiring, fresh, noCred, disabled} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	found, err := repo.FindExpiring(ctx, 11006, now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("FindExpiring() error = %v", err)
	}
	if len(found) != 1 || found[0].Username != "expiring" {
		t.Errorf("应只返回即将过期的活跃账号: %+v", found)
	}
}

func TestAccountRepo_SaveCredentials(t *testing.T) {
	repo := NewAccountRepository(setupAccountTestDB(t))
	ctx := context.Background()

	account := newTestAccount("seller-a", 0)
	repo.Create(ctx, account)

	cred := &model.Credentials{
		AccessToken:         "new-token",
		AccessTokenExpireIn: 1700000000,
		RefreshToken:        "new-refresh",
	}
	if err := repo.SaveCredentials(ctx, account, cred); err != nil {
		t.Fatalf("SaveCredentials() error = %v", err)
	}

	found, _ := repo.GetByID(ctx, account.ID)
	got := found.GetCredentials()
	if got == nil || got.AccessToken != "new-token" || got.AccessTokenExpireIn != 1700000000 {
		t.Errorf("凭证未落盘: %+v", got)
	}
}

func TestAccountRepo_SetStatus(t *testing.T) {
	repo := NewAccountRepository(setupAccountTestDB(t))
	ctx := context.Background()

	account := newTestAccount("seller-a", 0)
	repo.Create(ctx, account)

	if err := repo.SetStatus(ctx, account, model.AccountStatusRequireAuth, "token refresh failed"); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	found, _ := repo.GetByID(ctx, account.ID)
	if found.Status != model.AccountStatusRequireAuth {
		t.Errorf("Status = %s, want require_auth", found.Status)
	}
	if found.DisabledReason != "token refresh failed" {
		t.Errorf("DisabledReason = %q", found.DisabledReason)
	}

	active, err := repo.ListActive(ctx, 11006)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("停用账号不应出现在活跃列表: %+v", active)
	}
}

func TestAccountRepo_SyncTimestamps(t *testing.T) {
	repo := NewAccountRepository(setupAccountTestDB(t))
	ctx := context.Background()

	account := newTestAccount("seller-a", 0)
	repo.Create(ctx, account)

	if _, ok := repo.GetSyncTimestamp(ctx, account, "orders"); ok {
		t.Error("未设置过的检查点不应存在")
	}

	ts := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	if err := repo.SetSyncTimestamp(ctx, account, "orders", ts); err != nil {
		t.Fatalf("SetSyncTimestamp() error = %v", err)
	}

	found, _ := repo.GetByID(ctx, account.ID)
	got, ok := repo.GetSyncTimestamp(ctx, found, "orders")
	if !ok || !got.Equal(ts) {
		t.Errorf("检查点 = %v (%v), want %v", got, ok, ts)
	}
}
