package task

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/internal/service"
)

// ==================== 订单同步 ====================

// OrderSyncTask 活跃账号的订单增量同步
type OrderSyncTask struct {
	accountRepo   repository.AccountRepository
	orders        *service.OrderService
	integrationID int64
	concurrency   int
	logger        *zap.Logger
}

func NewOrderSyncTask(accountRepo repository.AccountRepository, orders *service.OrderService, integrationID int64, logger *zap.Logger) *OrderSyncTask {
	return &OrderSyncTask{
		accountRepo:   accountRepo,
		orders:        orders,
		integrationID: integrationID,
		concurrency:   5,
		logger:        logger.Named("order_task"),
	}
}

func (t *OrderSyncTask) Run(ctx context.Context) {
	forEachActiveAccount(ctx, t.accountRepo, t.integrationID, t.concurrency, t.logger, func(account *model.Account) {
		if err := t.orders.SyncOrders(ctx, account); err != nil {
			t.logger.Error("order sync failed",
				zap.Int64("account_id", account.ID),
				zap.Error(err))
		}
	})
}

// ==================== 商品同步 ====================

// ProductSyncTask 活跃账号的商品库存与状态同步
type ProductSyncTask struct {
	accountRepo   repository.AccountRepository
	products      *service.ProductService
	integrationID int64
	concurrency   int
	logger        *zap.Logger
}

func NewProductSyncTask(accountRepo repository.AccountRepository, products *service.ProductService, integrationID int64, logger *zap.Logger) *ProductSyncTask {
	return &ProductSyncTask{
		accountRepo:   accountRepo,
		products:      products,
		integrationID: integrationID,
		concurrency:   3,
		logger:        logger.Named("product_task"),
	}
}

func (t *ProductSyncTask) Run(ctx context.Context) {
	forEachActiveAccount(ctx, t.accountRepo, t.integrationID, t.concurrency, t.logger, func(account *model.Account) {
		if err := t.products.SyncProducts(ctx, account); err != nil {
			t.logger.Error("product sync failed",
				zap.Int64("account_id", account.ID),
				zap.Error(err))
		}
	})
}

// ==================== 结算回填 ====================

// SettlementTask 每日结算金额回填
type SettlementTask struct {
	accountRepo   repository.AccountRepository
	settlements   *service.SettlementService
	integrationID int64
	concurrency   int
	logger        *zap.Logger
}

func NewSettlementTask(accountRepo repository.AccountRepository, settlements *service.SettlementService, integrationID int64, logger *zap.Logger) *SettlementTask {
	return &SettlementTask{
		accountRepo:   accountRepo,
		settlements:   settlements,
		integrationID: integrationID,
		concurrency:   3,
		logger:        logger.Named("settlement_task"),
	}
}

func (t *SettlementTask) Run(ctx context.Context) {
	forEachActiveAccount(ctx, t.accountRepo, t.integrationID, t.concurrency, t.logger, func(account *model.Account) {
		if err := t.settlements.SettleAccount(ctx, account); err != nil {
			t.logger.Error("settlement failed",
				zap.Int64("account_id", account.ID),
				zap.Error(err))
		}
	})
}

// ==================== 公共骨架 ====================

// forEachActiveAccount 信号量限流地遍历活跃账号
func forEachActiveAccount(ctx context.Context, repo repository.AccountRepository, integrationID int64, concurrency int, logger *zap.Logger, fn func(account *model.Account)) {
	accounts, err := repo.ListActive(ctx, integrationID)
	if err != nil {
		logger.Error("active account query failed", zap.Error(err))
		return
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range accounts {
		select {
		case <-ctx.Done():
			logger.Warn("round cancelled")
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)

		account := &accounts[i]
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fn(account)
		}()
	}

	wg.Wait()
}
