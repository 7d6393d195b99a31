package service

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"tiktok_shop_v1/internal/event"
	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
)

// ==================== 测试辅助 ====================

type settleOrderRepo struct {
	orders        []model.Order
	listedDay     time.Time
	updatedID     int64
	updatedFields map[string]interface{}
}

func (r *settleOrderRepo) Upsert(context.Context, *model.Order) (bool, error) { return false, nil }
func (r *settleOrderRepo) GetByID(context.Context, int64) (*model.Order, error) {
	return nil, nil
}
func (r *settleOrderRepo) GetByExternalID(context.Context, int64, string) (*model.Order, error) {
	return nil, nil
}
func (r *settleOrderRepo) List(context.Context, repository.OrderFilter) ([]model.Order, int64, error) {
	return nil, 0, nil
}

func (r *settleOrderRepo) ListCreatedOn(_ context.Context, _ int64, day time.Time) ([]model.Order, error) {
	r.listedDay = day
	return r.orders, nil
}

func (r *settleOrderRepo) UpdateSettlement(_ context.Context, id int64, fields map[string]interface{}) error {
	r.updatedID = id
	r.updatedFields = fields
	return nil
}

func settlementField(t *testing.T, fields map[string]interface{}, key string, want float64) {
	t.Helper()
	got, ok := fields[key].(float64)
	if !ok {
		t.Fatalf("%s 缺失: %v", key, fields)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", key, got, want)
	}
}

// ==================== 聚合 ====================

func TestAggregateSettlement(t *testing.T) {
	list := []tiktok.Settlement{
		{SettlementInfo: tiktok.SettlementInfo{
			PlatformCommission:           1.2,
			SettlementAmount:             18.5,
			PlatformPromotion:            0.5,
			SalesFee:                     20,
			SubtotalAfterSellerDiscounts: 19,
			ShippingFee:                  -3,
			LogisticsReimbursement:       1,
			TransactionFee:               0.6,
			TransactionFeeRefund:         0.1,
			PaymentFee:                   0.4,
			SmallOrderFee:                0.2,
		}},
		{SettlementInfo: tiktok.SettlementInfo{
			PlatformCommission: 0.8,
			SettlementAmount:   4,
			ShippingFee:        -1,
		}},
	}

	fields := aggregateSettlement(list)

	settlementField(t, fields, "commission_fee", 2.0)
	settlementField(t, fields, "settlement_amount", 22.5)
	settlementField(t, fields, "integration_discount", 0.5)
	settlementField(t, fields, "seller_discount", 1.0)
	// 平台给的运费是负数，落库取反
	settlementField(t, fields, "seller_shipping_fee", 4.0)
	settlementField(t, fields, "actual_shipping_fee", 4.0)
	settlementField(t, fields, "integration_shipping_fee", 1.0)
	settlementField(t, fields, "transaction_fee", 0.5)
	settlementField(t, fields, "service_fee", 0.6)
}

// ==================== 结算流程 ====================

func TestSettleAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/finance/order/settlements", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order_id"); got != "order-1" {
			t.Errorf("order_id = %q", got)
		}
		writeEnvelope(w, map[string]any{"settlement_list": []any{
			map[string]any{"settlement_info": map[string]any{
				"platform_commission": 1.5,
				"settlement_amount":   10,
			}},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &tiktok.Config{AppKey: "test-key", AppSecret: "test-secret", APIBaseURI: srv.URL, AuthBaseURI: srv.URL}
	factory := func(a *model.Account) *tiktok.Client {
		return tiktok.NewClient(cfg, a, nopStore{}, zap.NewNop())
	}

	repo := &settleOrderRepo{orders: []model.Order{{ID: 5, AccountID: 7, ExternalID: "order-1"}}}
	bus := &event.MemoryBus{}
	svc := NewSettlementService(factory, repo, nil, bus, zap.NewNop())

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	if err := svc.SettleAccount(context.Background(), actionAccount()); err != nil {
		t.Fatalf("结算失败: %v", err)
	}

	if !repo.listedDay.Equal(time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("查询日期 = %v, want 昨天", repo.listedDay)
	}
	if repo.updatedID != 5 {
		t.Errorf("回填的订单 = %d, want 5", repo.updatedID)
	}
	settlementField(t, repo.updatedFields, "commission_fee", 1.5)
	settlementField(t, repo.updatedFields, "settlement_amount", 10)

	if len(bus.Events) != 1 {
		t.Fatalf("事件数 = %d, want 1", len(bus.Events))
	}
	ev := bus.Events[0]
	if ev.OrderID != 5 || ev.ExternalID != "order-1" || ev.Reason != "settlement" {
		t.Errorf("事件内容错误: %+v", ev)
	}
	if ev.LogID == "" {
		t.Error("事件缺少 log_id")
	}
}

func TestSettleAccount_NoSettlementYet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/finance/order/settlements", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"settlement_list": []any{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &tiktok.Config{AppKey: "test-key", AppSecret: "test-secret", APIBaseURI: srv.URL, AuthBaseURI: srv.URL}
	factory := func(a *model.Account) *tiktok.Client {
		return tiktok.NewClient(cfg, a, nopStore{}, zap.NewNop())
	}

	repo := &settleOrderRepo{orders: []model.Order{{ID: 5, AccountID: 7, ExternalID: "order-1"}}}
	bus := &event.MemoryBus{}
	svc := NewSettlementService(factory, repo, nil, bus, zap.NewNop())

	if err := svc.SettleAccount(context.Background(), actionAccount()); err != nil {
		t.Fatalf("无结算数据不应报错: %v", err)
	}
	if repo.updatedFields != nil {
		t.Errorf("无结算数据不应回填: %v", repo.updatedFields)
	}
	if len(bus.Events) != 0 {
		t.Errorf("无结算数据不应发事件: %v", bus.Events)
	}
}
