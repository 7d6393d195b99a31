package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"tiktok_shop_v1/internal/model"
)

// ==================== 测试辅助 ====================

// memStore 内存版凭证存储
type memStore struct {
	saved    *model.Credentials
	status   string
	reason   string
	saveErr  error
	setCalls int
}

func (s *memStore) SaveCredentials(ctx context.Context, account *model.Account, cred *model.Credentials) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = cred
	account.SetCredentials(cred)
	return nil
}

func (s *memStore) SetStatus(ctx context.Context, account *model.Account, status, reason string) error {
	s.setCalls++
	s.status = status
	s.reason = reason
	account.Status = status
	return nil
}

var testNow = time.Unix(1700000000, 0)

func testAccount(expireIn int64) *model.Account {
	account := &model.Account{
		ID:       7,
		ShopID:   100,
		Currency: "USD",
		Status:   model.AccountStatusActive,
	}
	account.SetCredentials(&model.Credentials{
		AccessToken:          "token-old",
		AccessTokenExpireIn:  expireIn,
		RefreshToken:         "refresh-old",
		RefreshTokenExpireIn: testNow.Add(300 * 24 * time.Hour).Unix(),
	})
	return account
}

func newTestClient(apiURL, authURL string, account *model.Account, store Store) *Client {
	client := NewClient(&Config{
		AppKey:      "app-key",
		AppSecret:   "app-secret",
		APIBaseURI:  apiURL + "/",
		AuthBaseURI: authURL,
	}, account, store, zap.NewNop())
	client.SetClock(func() time.Time { return testNow })
	return client
}

func envelope(code int, message string, data any) []byte {
	b, _ := json.Marshal(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "req-1",
		"data":       data,
	})
	return b
}

// 过期时间离现在还有 100 小时，在 48 小时刷新余量之外
func validExpiry() int64 { return testNow.Add(100 * time.Hour).Unix() }

// ==================== 请求 ====================

func TestClient_Request_Success(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/search" {
			t.Errorf("path = %s, want /api/orders/search", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write(envelope(0, "", map[string]any{"total": 1}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL, testAccount(validExpiry()), &memStore{})

	data, err := client.Request(context.Background(), http.MethodPost, "orders/search",
		&RequestOptions{Query: map[string]string{"page_size": "50"}})
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}

	var out struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Total != 1 {
		t.Errorf("data = %s", data)
	}

	// 签名参数齐全，且签名覆盖业务参数
	if gotQuery["app_key"] != "app-key" {
		t.Errorf("app_key = %s", gotQuery["app_key"])
	}
	if gotQuery["access_token"] != "token-old" {
		t.Errorf("access_token = %s", gotQuery["access_token"])
	}
	if gotQuery["timestamp"] == "" || gotQuery["sign"] == "" {
		t.Error("缺少 timestamp 或 sign")
	}
	want := Sign("api/orders/search", map[string]string{
		"app_key":   "app-key",
		"timestamp": gotQuery["timestamp"],
		"page_size": "50",
	}, "app-secret")
	if gotQuery["sign"] != want {
		t.Errorf("sign = %s, want %s", gotQuery["sign"], want)
	}
}

func TestClient_Request_EnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(36004001, "invalid param", nil))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL, testAccount(validExpiry()), &memStore{})

	_, err := client.Request(context.Background(), http.MethodGet, "products/details", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != 36004001 || apiErr.Message != "invalid param" {
		t.Errorf("code = %d, message = %s", apiErr.Code, apiErr.Message)
	}
	if apiErr.Info == nil || apiErr.Info.Method != http.MethodGet {
		t.Error("缺少请求诊断上下文")
	}
}

func TestClient_Request_401DisablesAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":105002,"message":"access token invalid"}`))
	}))
	defer srv.Close()

	store := &memStore{}
	account := testAccount(validExpiry())
	client := newTestClient(srv.URL, srv.URL, account, store)

	_, err := client.Request(context.Background(), http.MethodGet, "orders/detail/query", nil)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if store.status != model.AccountStatusRequireAuth {
		t.Errorf("账号状态 = %s, want require_auth", store.status)
	}
	if account.Status != model.AccountStatusRequireAuth {
		t.Error("内存中的账号状态未更新")
	}
}

// ==================== 凭证刷新 ====================

func TestClient_RefreshBeforeRequest(t *testing.T) {
	refreshed := false
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/token/refresh" {
			t.Errorf("path = %s, want /api/v2/token/refresh", r.URL.Path)
		}
		if r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %s", r.URL.Query().Get("grant_type"))
		}
		if r.URL.Query().Get("refresh_token") != "refresh-old" {
			t.Errorf("refresh_token = %s", r.URL.Query().Get("refresh_token"))
		}
		refreshed = true
		w.Write(envelope(0, "", map[string]any{
			"access_token":           "token-new",
			"access_token_expire_in": testNow.Add(7 * 24 * time.Hour).Unix(),
			"refresh_token":          "refresh-new",
		}))
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("access_token"); got != "token-new" {
			t.Errorf("access_token = %s, want token-new (刷新后的令牌)", got)
		}
		w.Write(envelope(0, "", map[string]any{}))
	}))
	defer api.Close()

	store := &memStore{}
	// 还有 1 小时过期，进入刷新余量
	account := testAccount(testNow.Add(time.Hour).Unix())
	client := newTestClient(api.URL, auth.URL, account, store)

	if client.IsCredentialsValid() {
		t.Fatal("临期凭证不应判定为有效")
	}

	if _, err := client.Request(context.Background(), http.MethodGet, "orders/search", nil); err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	if !refreshed {
		t.Fatal("未触发刷新")
	}
	if store.saved == nil || store.saved.AccessToken != "token-new" {
		t.Error("刷新后的凭证未持久化")
	}
	// 刷新接口没返回的字段保持原值
	if store.saved.RefreshTokenExpireIn != testNow.Add(300*24*time.Hour).Unix() {
		t.Error("未返回的字段被覆盖")
	}
}

func TestClient_RefreshFailureDisablesAccount(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(36004004, "refresh token expired", nil))
	}))
	defer auth.Close()

	apiCalled := false
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalled = true
	}))
	defer api.Close()

	store := &memStore{}
	account := testAccount(testNow.Add(time.Hour).Unix())
	client := newTestClient(api.URL, auth.URL, account, store)

	_, err := client.Request(context.Background(), http.MethodGet, "orders/search", nil)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if store.status != model.AccountStatusRequireAuth {
		t.Errorf("账号状态 = %s, want require_auth", store.status)
	}
	if apiCalled {
		t.Error("刷新失败后不应发业务请求")
	}
}

func TestClient_IsCredentialsValid(t *testing.T) {
	cases := []struct {
		name     string
		expireIn int64
		want     bool
	}{
		{"有效期充足", testNow.Add(72 * time.Hour).Unix(), true},
		{"恰好在边界", testNow.Add(48 * time.Hour).Unix(), true},
		{"进入刷新余量", testNow.Add(47 * time.Hour).Unix(), false},
		{"已过期", testNow.Add(-time.Hour).Unix(), false},
		{"无过期时间", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient("http://unused", "http://unused", testAccount(tc.expireIn), &memStore{})
			if got := client.IsCredentialsValid(); got != tc.want {
				t.Errorf("IsCredentialsValid() = %v, want %v", got, tc.want)
			}
		})
	}
}

// ==================== 仓库 ====================

func TestClient_GetWarehouses_FiltersInactive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(0, "", map[string]any{
			"warehouse_list": []map[string]any{
				{"warehouse_id": "w1", "warehouse_effect_status": 1, "is_default": false},
				{"warehouse_id": "w2", "warehouse_effect_status": 2, "is_default": true},
				{"warehouse_id": "w3", "warehouse_effect_status": 1, "is_default": true},
			},
		}))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, srv.URL, testAccount(validExpiry()), &memStore{})

	warehouses, err := client.GetWarehouses(context.Background())
	if err != nil {
		t.Fatalf("拉取仓库失败: %v", err)
	}
	if len(warehouses) != 2 {
		t.Fatalf("仓库数 = %d, want 2 (过滤停用仓)", len(warehouses))
	}

	wh, err := client.GetDefaultWarehouse(context.Background())
	if err != nil {
		t.Fatalf("取默认仓失败: %v", err)
	}
	if wh == nil || wh.WarehouseID != "w3" {
		t.Errorf("默认仓 = %+v, want w3", wh)
	}
}
