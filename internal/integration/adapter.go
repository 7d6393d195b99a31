package integration

import (
	"context"
	"fmt"
	"sync"

	"tiktok_shop_v1/internal/model"
)

// ==================== 平台常量 ====================

// 平台 id，和账号表的 integration_id 对应
const (
	TikTokID int64 = 11006
)

// ==================== 适配器接口 ====================

// Adapter 一个市场平台的统一接入面
// 上层 (API、任务) 只面向这个接口，不直接碰平台客户端
type Adapter interface {
	// AuthorizationURL 生成卖家授权链接
	AuthorizationURL(shopID, regionID int64) (string, error)
	// Authenticate 授权回调，落账号
	Authenticate(ctx context.Context, state, code string) (*model.Account, error)

	// ImportOrders 按 id 导入订单
	ImportOrders(ctx context.Context, account *model.Account, externalIDs []string) error
	// ImportAllOrders 全量导入订单
	ImportAllOrders(ctx context.Context, account *model.Account) error
	// SyncOrders 增量同步订单
	SyncOrders(ctx context.Context, account *model.Account) error

	// ImportProducts 全量导入商品
	ImportProducts(ctx context.Context, account *model.Account) error
	// SyncProducts 同步商品库存与状态
	SyncProducts(ctx context.Context, account *model.Account) error
}

// ==================== 注册表 ====================

// Registry 按平台 id 持有适配器
type Registry struct {
	mu       sync.RWMutex
	adapters map[int64]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[int64]Adapter)}
}

// Register 注册适配器，同 id 重复注册视为编程错误
func (r *Registry) Register(id int64, adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[id]; exists {
		return fmt.Errorf("integration %d already registered", id)
	}
	r.adapters[id] = adapter
	return nil
}

// Get 按平台 id 取适配器
func (r *Registry) Get(id int64) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("integration %d not registered", id)
	}
	return adapter, nil
}

// ForAccount 按账号取适配器
func (r *Registry) ForAccount(account *model.Account) (Adapter, error) {
	return r.Get(account.IntegrationID)
}
