package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
)

// ==================== 测试辅助 ====================

// newSyncTestService 假开放平台 + 内存库，返回完整装配的订单服务
func newSyncTestService(t *testing.T, mux *http.ServeMux) (*OrderService, *model.Account, repository.OrderRepository) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Account{}, &model.Order{}, &model.OrderItem{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	account := actionAccount()
	account.ID = 0
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}

	cfg := &tiktok.Config{AppKey: "test-key", AppSecret: "test-secret", APIBaseURI: srv.URL, AuthBaseURI: srv.URL}
	factory := func(a *model.Account) *tiktok.Client {
		return tiktok.NewClient(cfg, a, nopStore{}, zap.NewNop())
	}
	orderRepo := repository.NewOrderRepository(db)
	svc := NewOrderService(factory, orderRepo, repository.NewAccountRepository(db), zap.NewNop())
	return svc, account, orderRepo
}

// remoteOrder 详情接口里一笔最小可转换的订单
func remoteOrder(id, warehouseID string) map[string]any {
	return map[string]any{
		"order_id":     id,
		"order_status": 111,
		"warehouse_id": warehouseID,
		"create_time":  1700000000000,
		"paid_time":    1700010000000,
		"recipient_address": map[string]any{
			"name": "Jane Buyer",
		},
		"payment_info": map[string]any{
			"shipping_fee": 1,
		},
	}
}

func stubWarehouses(mux *http.ServeMux, list ...map[string]any) {
	mux.HandleFunc("/api/logistics/get_warehouse_list", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"warehouse_list": list})
	})
}

// ==================== 仓库过滤 ====================

func TestGetOrderDetails_DefaultWarehouseFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/detail/query", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"order_list": []any{remoteOrder("o-1", "wh-1")}})
	})
	stubWarehouses(mux, map[string]any{"warehouse_id": "wh-2", "warehouse_effect_status": 1, "is_default": true})

	// 账号没绑仓库，应落到平台默认仓 wh-2，wh-1 的订单被过滤掉
	svc, account, _ := newSyncTestService(t, mux)
	orders, err := svc.GetOrderDetails(context.Background(), account, []string{"o-1"})
	if err != nil {
		t.Fatalf("GetOrderDetails() error = %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("订单数 = %d, want 0", len(orders))
	}
}

func TestGetOrderDetails_ExplicitWarehouseSetting(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/detail/query", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"order_list": []any{
			remoteOrder("o-1", "wh-1"),
			remoteOrder("o-2", "wh-9"),
		}})
	})
	// 显式设置优先，不应发默认仓查询 (mux 上没有仓库接口，发了就 404)

	svc, account, _ := newSyncTestService(t, mux)
	account.Settings = datatypes.JSONMap{"account": map[string]any{"warehouse": "wh-1"}}

	orders, err := svc.GetOrderDetails(context.Background(), account, []string{"o-1", "o-2"})
	if err != nil {
		t.Fatalf("GetOrderDetails() error = %v", err)
	}
	if len(orders) != 1 || orders[0].ExternalID != "o-1" {
		t.Errorf("应只保留绑定仓库的订单: %+v", orders)
	}
}

// ==================== 转换失败 ====================

func TestGetOrderDetails_TransformFailureAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/detail/query", func(w http.ResponseWriter, r *http.Request) {
		bad := remoteOrder("", "wh-1")
		writeEnvelope(w, map[string]any{"order_list": []any{remoteOrder("o-1", "wh-1"), bad}})
	})

	svc, account, _ := newSyncTestService(t, mux)
	account.Settings = datatypes.JSONMap{"account": map[string]any{"warehouse": "wh-1"}}

	orders, err := svc.GetOrderDetails(context.Background(), account, []string{"o-1", "o-2"})
	var transformErr *tiktok.TransformError
	if !errors.As(err, &transformErr) {
		t.Fatalf("err = %v, want TransformError", err)
	}
	if transformErr.Raw == nil {
		t.Error("错误里应带上原始报文")
	}
	if orders != nil {
		t.Errorf("失败时不应返回半截结果: %+v", orders)
	}
}

// ==================== 全量导入 ====================

func TestImportAllOrders_PagesWithoutTimeWindow(t *testing.T) {
	var searchBodies []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		searchBodies = append(searchBodies, body)

		if len(searchBodies) == 1 {
			writeEnvelope(w, map[string]any{
				"order_list":  []any{map[string]any{"order_id": "o-1"}},
				"more":        true,
				"next_cursor": "c1",
			})
			return
		}
		writeEnvelope(w, map[string]any{
			"order_list": []any{map[string]any{"order_id": "o-2"}},
			"more":       false,
		})
	})
	mux.HandleFunc("/api/orders/detail/query", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrderIDList []string `json:"order_id_list"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		list := make([]any, 0, len(body.OrderIDList))
		for _, id := range body.OrderIDList {
			list = append(list, remoteOrder(id, "wh-1"))
		}
		writeEnvelope(w, map[string]any{"order_list": list})
	})

	svc, account, orderRepo := newSyncTestService(t, mux)
	account.Settings = datatypes.JSONMap{"account": map[string]any{"warehouse": "wh-1"}}

	if err := svc.ImportAllOrders(context.Background(), account); err != nil {
		t.Fatalf("ImportAllOrders() error = %v", err)
	}

	if len(searchBodies) != 2 {
		t.Fatalf("搜索请求数 = %d, want 2", len(searchBodies))
	}
	// 全量导入按创建时间翻页，不带时间窗口
	if searchBodies[0]["sort_by"] != "CREATE_TIME" {
		t.Errorf("sort_by = %v, want CREATE_TIME", searchBodies[0]["sort_by"])
	}
	if _, ok := searchBodies[0]["update_time_from"]; ok {
		t.Error("全量导入不应带时间窗口")
	}
	if searchBodies[1]["cursor"] != "c1" {
		t.Errorf("第二页游标 = %v, want c1", searchBodies[1]["cursor"])
	}

	for _, id := range []string{"o-1", "o-2"} {
		if _, err := orderRepo.GetByExternalID(context.Background(), account.ID, id); err != nil {
			t.Errorf("订单 %s 未落库: %v", id, err)
		}
	}
}

// ==================== 增量同步 ====================

func TestSyncOrders_CheckpointAdvancesToStartTime(t *testing.T) {
	var searchBodies []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		searchBodies = append(searchBodies, body)
		writeEnvelope(w, map[string]any{"order_list": []any{}, "more": false})
	})

	svc, account, _ := newSyncTestService(t, mux)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return t0 })
	if err := svc.SyncOrders(context.Background(), account); err != nil {
		t.Fatalf("第一轮同步失败: %v", err)
	}

	// 第二轮在一小时后发起，窗口下界是上一轮的开始时刻回拨 10 分钟
	t1 := t0.Add(time.Hour)
	svc.SetClock(func() time.Time { return t1 })
	if err := svc.SyncOrders(context.Background(), account); err != nil {
		t.Fatalf("第二轮同步失败: %v", err)
	}

	if len(searchBodies) != 2 {
		t.Fatalf("搜索请求数 = %d, want 2", len(searchBodies))
	}
	if searchBodies[1]["sort_by"] != "UPDATE_TIME" {
		t.Errorf("sort_by = %v, want UPDATE_TIME", searchBodies[1]["sort_by"])
	}
	gotFrom := int64(searchBodies[1]["update_time_from"].(float64))
	if want := t0.Add(-10 * time.Minute).Unix(); gotFrom != want {
		t.Errorf("第二轮窗口下界 = %d, want %d", gotFrom, want)
	}
	gotTo := int64(searchBodies[1]["update_time_to"].(float64))
	if gotTo != t1.Unix() {
		t.Errorf("第二轮窗口上界 = %d, want %d", gotTo, t1.Unix())
	}
}
