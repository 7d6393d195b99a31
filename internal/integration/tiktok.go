package integration

import (
	"context"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/service"
)

// TikTokAdapter TikTok Shop 平台适配器，把各业务服务拼成统一接口
type TikTokAdapter struct {
	auth     *service.AuthService
	orders   *service.OrderService
	products *service.ProductService
}

func NewTikTokAdapter(auth *service.AuthService, orders *service.OrderService, products *service.ProductService) *TikTokAdapter {
	return &TikTokAdapter{
		auth:     auth,
		orders:   orders,
		products: products,
	}
}

func (a *TikTokAdapter) AuthorizationURL(shopID, regionID int64) (string, error) {
	return a.auth.AuthorizationURL(shopID, regionID)
}

func (a *TikTokAdapter) Authenticate(ctx context.Context, state, code string) (*model.Account, error) {
	return a.auth.HandleCallback(ctx, state, code)
}

func (a *TikTokAdapter) ImportOrders(ctx context.Context, account *model.Account, externalIDs []string) error {
	return a.orders.ImportOrders(ctx, account, externalIDs)
}

func (a *TikTokAdapter) ImportAllOrders(ctx context.Context, account *model.Account) error {
	return a.orders.ImportAllOrders(ctx, account)
}

func (a *TikTokAdapter) SyncOrders(ctx context.Context, account *model.Account) error {
	return a.orders.SyncOrders(ctx, account)
}

func (a *TikTokAdapter) ImportProducts(ctx context.Context, account *model.Account) error {
	return a.products.ImportProducts(ctx, account)
}

func (a *TikTokAdapter) SyncProducts(ctx context.Context, account *model.Account) error {
	return a.products.SyncProducts(ctx, account)
}
