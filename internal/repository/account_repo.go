package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tiktok_shop_v1/internal/model"
)

// ==================== 接口定义 ====================

// AccountRepository 接入账号仓储接口
// 同时实现 tiktok.Store，客户端通过它落盘凭证和状态
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error

	// FindByUnique 授权回调里定位账号：同店铺 + 平台 + 区域 + 卖家名唯一
	FindByUnique(ctx context.Context, username string, integrationID, regionID, shopID int64) (*model.Account, error)

	ListActive(ctx context.Context, integrationID int64) ([]model.Account, error)
	FindExpiring(ctx context.Context, integrationID int64, before time.Time) ([]model.Account, error)

	// 凭证与状态 (tiktok.Store)
	SaveCredentials(ctx context.Context, account *model.Account, cred *model.Credentials) error
	SetStatus(ctx context.Context, account *model.Account, status, reason string) error

	// 同步检查点，key -> 时间
	GetSyncTimestamp(ctx context.Context, account *model.Account, key string) (time.Time, bool)
	SetSyncTimestamp(ctx context.Context, account *model.Account, key string, ts time.Time) error
}

// ==================== 仓储实现 ====================

type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepository 创建账号仓储
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Update(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *accountRepo) FindByUnique(ctx context.Context, username string, integrationID, regionID, shopID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("username = ? AND integration_id = ? AND region_id = ? AND shop_id = ?",
			username, integrationID, regionID, shopID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) ListActive(ctx context.Context, integrationID int64) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND status = ?", integrationID, model.AccountStatusActive).
		Find(&accounts).Error
	return accounts, err
}

// FindExpiring 保活任务用：活跃账号里 access_token 在 before 之前过期的
// 过期时间存在凭证 JSON 里，不适合下推到 SQL，取回来在内存里筛
func (r *accountRepo) FindExpiring(ctx context.Context, integrationID int64, before time.Time) ([]model.Account, error) {
	accounts, err := r.ListActive(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	expiring := make([]model.Account, 0, len(accounts))
	for _, account := range accounts {
		cred := account.GetCredentials()
		if cred == nil {
			continue
		}
		if time.Unix(cred.AccessTokenExpireIn, 0).Before(before) {
			expiring = append(expiring, account)
		}
	}
	return expiring, nil
}

// ==================== 凭证与状态 ====================

func (r *accountRepo) SaveCredentials(ctx context.Context, account *model.Account, cred *model.Credentials) error {
	account.SetCredentials(cred)
	return r.db.WithContext(ctx).
		Model(account).
		Update("credentials", account.Credentials).Error
}

func (r *accountRepo) SetStatus(ctx context.Context, account *model.Account, status, reason string) error {
	account.Status = status
	account.DisabledReason = reason
	return r.db.WithContext(ctx).
		Model(account).
		Updates(map[string]interface{}{
			"status":          status,
			"disabled_reason": reason,
		}).Error
}

// ==================== 同步检查点 ====================

func (r *accountRepo) GetSyncTimestamp(ctx context.Context, account *model.Account, key string) (time.Time, bool) {
	raw, ok := account.SyncData[key].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (r *accountRepo) SetSyncTimestamp(ctx context.Context, account *model.Account, key string, ts time.Time) error {
	if account.SyncData == nil {
		account.SyncData = map[string]interface{}{}
	}
	account.SyncData[key] = ts.UTC().Format(time.RFC3339)
	return r.db.WithContext(ctx).
		Model(account).
		Update("sync_data", account.SyncData).Error
}
