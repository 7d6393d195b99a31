package task

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/internal/service"
)

// TokenRefreshTask Token 保活：把临近过期的账号凭证提前刷掉
type TokenRefreshTask struct {
	accountRepo   repository.AccountRepository
	clients       service.ClientFactory
	integrationID int64
	logger        *zap.Logger

	// 控制并发刷新的数量，防止同时打爆令牌接口
	concurrencyLimit int
	sleepTime        time.Duration
}

func NewTokenRefreshTask(accountRepo repository.AccountRepository, clients service.ClientFactory, integrationID int64, logger *zap.Logger) *TokenRefreshTask {
	return &TokenRefreshTask{
		accountRepo:      accountRepo,
		clients:          clients,
		integrationID:    integrationID,
		logger:           logger.Named("token_task"),
		concurrencyLimit: 10,
		sleepTime:        50 * time.Millisecond, // 每个协程启动间隔，平滑波峰
	}
}

// Run 单轮保活
// 凭证有效期窗口是 2 天，这里提前到 3 天开始刷，留出重试余量
func (t *TokenRefreshTask) Run(ctx context.Context) {
	before := time.Now().Add(72 * time.Hour)
	accounts, err := t.accountRepo.FindExpiring(ctx, t.integrationID, before)
	if err != nil {
		t.logger.Error("expiring account query failed", zap.Error(err))
		return
	}
	if len(accounts) == 0 {
		return
	}

	t.logger.Info("refreshing expiring accounts",
		zap.Int("count", len(accounts)),
		zap.Int("concurrency", t.concurrencyLimit))

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	for i := range accounts {
		select {
		case <-ctx.Done():
			t.logger.Warn("token refresh round cancelled")
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		account := &accounts[i]
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t.clients(account).EnsureFresh(ctx); err != nil {
				// 失败的账号已被置为 require_auth，这里只记日志
				t.logger.Error("token refresh failed",
					zap.Int64("account_id", account.ID),
					zap.Error(err))
			}
		}()
	}

	wg.Wait()
}
