package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tiktok_shop_v1/internal/model"
)

// ==================== 配置与依赖 ====================

// Config 开放平台应用配置
type Config struct {
	AppKey      string
	AppSecret   string
	APIBaseURI  string // 业务接口，如 https://open-api.tiktokglobalshop.com/
	AuthBaseURI string // 令牌接口单独一个域名
}

// NewAuthClient 构造指向令牌域名的 HTTP 客户端
func (cfg *Config) NewAuthClient() *resty.Client {
	return resty.New().
		SetBaseURL(cfg.AuthBaseURI).
		SetTimeout(requestTimeout)
}

// Store 凭证与账号状态的持久化边界，由仓储层实现
type Store interface {
	// SaveCredentials 持久化合并后的凭证
	SaveCredentials(ctx context.Context, account *model.Account, cred *model.Credentials) error
	// SetStatus 更新账号状态，reason 记录停用原因
	SetStatus(ctx context.Context, account *model.Account, status, reason string) error
}

const (
	connectTimeout = 20 * time.Second
	requestTimeout = 180 * time.Second

	// refreshMargin 提前刷新余量：access_token 剩余有效期不足 2 天就刷新，
	// 而不是等到真正过期才处理
	refreshMargin = 48 * time.Hour
)

// ==================== Client ====================

// Client 单账号的签名请求客户端
// 凭证是核心里唯一的可变共享状态，刷新-签名-发送按顺序串行执行
type Client struct {
	cfg     *Config
	account *model.Account
	store   Store
	http    *resty.Client
	auth    *resty.Client
	logger  *zap.Logger
	now     func() time.Time

	// 同一账号同时只允许一次刷新，并发刷新会打断 refresh_token 轮换
	mu sync.Mutex
}

func NewClient(cfg *Config, account *model.Account, store Store, logger *zap.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	httpc := resty.New().
		SetBaseURL(cfg.APIBaseURI).
		SetTimeout(requestTimeout).
		SetTransport(transport).
		SetHeader("Content-Type", "application/json")

	return &Client{
		cfg:     cfg,
		account: account,
		store:   store,
		http:    httpc,
		auth:    cfg.NewAuthClient(),
		logger:  logger.Named("account"),
		now:     time.Now,
	}
}

// SetClock 注入时钟，测试用
func (c *Client) SetClock(now func() time.Time) { c.now = now }

func (c *Client) Account() *model.Account { return c.account }

// ==================== 凭证生命周期 ====================

// IsCredentialsValid 凭证是否还在安全有效期内 (过期时间 >= 当前时间 + 2 天)
func (c *Client) IsCredentialsValid() bool {
	cred := c.account.GetCredentials()
	if cred == nil || cred.AccessTokenExpireIn == 0 {
		return false
	}
	expiry := time.Unix(cred.AccessTokenExpireIn, 0)
	return !expiry.Before(c.now().Add(refreshMargin))
}

// EnsureFresh 供保活任务调用：临近过期则刷新，刷新失败账号进 require_auth
func (c *Client) EnsureFresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshIfExpiring(ctx)
}

// refreshIfExpiring 调用方必须已持有 c.mu
// 刷新失败不重试，直接把账号置为 require_auth 并让当前调用失败
func (c *Client) refreshIfExpiring(ctx context.Context) error {
	if c.IsCredentialsValid() {
		return nil
	}
	if err := c.refreshToken(ctx); err != nil {
		_ = c.store.SetStatus(ctx, c.account, model.AccountStatusRequireAuth, err.Error())
		c.logger.Error("credentials expired and could not be refreshed",
			zap.Int64("account_id", c.account.ID),
			zap.Error(err))
		return &AuthError{
			AccountID: c.account.ID,
			Reason:    "credentials expired and could not be refreshed",
			Err:       err,
		}
	}
	return nil
}

func (c *Client) refreshToken(ctx context.Context) error {
	cred := c.account.GetCredentials()
	if cred == nil || cred.RefreshToken == "" {
		return fmt.Errorf("account %d has no refresh token", c.account.ID)
	}

	data, err := RequestToken(ctx, c.auth, "api/v2/token/refresh", map[string]string{
		"app_key":       c.cfg.AppKey,
		"app_secret":    c.cfg.AppSecret,
		"refresh_token": cred.RefreshToken,
		"grant_type":    "refresh_token",
	})
	if err != nil {
		c.logger.Error("unable to refresh token",
			zap.Int64("account_id", c.account.ID),
			zap.Error(err))
		return err
	}

	// 读-改-合-写：接口没返回的字段保持原值
	cred.Merge(&model.Credentials{
		AccessToken:          data.AccessToken,
		AccessTokenExpireIn:  data.AccessTokenExpireIn,
		RefreshToken:         data.RefreshToken,
		RefreshTokenExpireIn: data.RefreshTokenExpireIn,
		SellerName:           data.SellerName,
	})
	return c.store.SaveCredentials(ctx, c.account, cred)
}

// freshCredentials 先刷新后取快照，保证签名用的是刷新后的凭证
func (c *Client) freshCredentials(ctx context.Context) (*model.Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshIfExpiring(ctx); err != nil {
		return nil, err
	}
	cred := c.account.GetCredentials()
	if cred == nil || cred.AccessToken == "" {
		return nil, &AuthError{AccountID: c.account.ID, Reason: "account has no credentials"}
	}
	return cred, nil
}

// ==================== 请求入口 ====================

// RequestOptions 调用方自定义的查询参数和 JSON 请求体
type RequestOptions struct {
	Query map[string]string
	JSON  any
}

// Request 发起一次签名请求，成功返回信封里的 data 字段
// 失败一律携带 RequestInfo 诊断上下文 (方法、uri、参数、起止时间)
func (c *Client) Request(ctx context.Context, method, path string, opts *RequestOptions) (json.RawMessage, error) {
	info := &RequestInfo{
		Method:    method,
		URI:       path,
		StartedAt: c.now(),
	}
	if opts != nil {
		info.Query = opts.Query
		info.Body = opts.JSON
	}

	data, err := c.do(ctx, method, path, opts, info)
	info.EndedAt = c.now()
	return data, err
}

func (c *Client) do(ctx context.Context, method, path string, opts *RequestOptions, info *RequestInfo) (json.RawMessage, error) {
	cred, err := c.freshCredentials(ctx)
	if err != nil {
		if ae, ok := err.(*AuthError); ok && ae.Info == nil {
			ae.Info = info
		}
		return nil, err
	}

	// 刷新之后仍然不可用，直接失败，不发网络请求
	if c.account.Status == model.AccountStatusRequireAuth {
		return nil, &AuthError{AccountID: c.account.ID, Reason: "account requires re-authorization", Info: info}
	}

	apiPath := "api/" + strings.TrimPrefix(path, "/")

	query := make(map[string]string, len(info.Query)+4)
	if opts != nil {
		for k, v := range opts.Query {
			query[k] = v
		}
	}
	query["app_key"] = c.cfg.AppKey
	query["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
	// 签名覆盖除 sign/access_token 之外的全部查询参数
	query["sign"] = Sign(apiPath, query, c.cfg.AppSecret)
	query["access_token"] = cred.AccessToken

	info.Query = query
	info.URI = c.cfg.APIBaseURI + apiPath

	req := c.http.R().SetContext(ctx).SetQueryParams(query)
	if opts != nil && opts.JSON != nil {
		req.SetBody(opts.JSON)
	}

	resp, err := req.Execute(method, apiPath)
	if err != nil {
		c.logger.Error("request failed",
			zap.Int64("account_id", c.account.ID),
			zap.String("method", method),
			zap.String("uri", info.URI),
			zap.Error(err))
		return nil, &APIError{AccountID: c.account.ID, Message: "network error", Info: info, Err: err}
	}

	body := resp.Body()

	switch resp.StatusCode() {
	case http.StatusOK:
		var env Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			c.logger.Error("request returned unparseable body",
				zap.Int64("account_id", c.account.ID),
				zap.String("uri", info.URI),
				zap.ByteString("response", body))
			return nil, &APIError{AccountID: c.account.ID, StatusCode: resp.StatusCode(), RawBody: string(body), Info: info, Err: err}
		}
		if env.Code == 0 {
			return env.Data, nil
		}
		c.logger.Error("request rejected",
			zap.Int64("account_id", c.account.ID),
			zap.String("uri", info.URI),
			zap.Any("options", info.Body),
			zap.Int("code", env.Code),
			zap.String("message", env.Message),
			zap.ByteString("response", body))
		return nil, &APIError{
			AccountID:  c.account.ID,
			StatusCode: resp.StatusCode(),
			Code:       env.Code,
			Message:    env.Message,
			RawBody:    string(body),
			Info:       info,
		}

	case http.StatusUnauthorized:
		_ = c.store.SetStatus(ctx, c.account, model.AccountStatusRequireAuth, string(body))
		c.logger.Error("account disabled by 401",
			zap.Int64("account_id", c.account.ID),
			zap.String("uri", info.URI),
			zap.Any("options", info.Body),
			zap.ByteString("response", body))
		return nil, &AuthError{AccountID: c.account.ID, Reason: "invalid access token", Info: info}

	default:
		c.logger.Error("request failed",
			zap.Int64("account_id", c.account.ID),
			zap.String("uri", info.URI),
			zap.Any("options", info.Body),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("response", body))
		return nil, &APIError{AccountID: c.account.ID, StatusCode: resp.StatusCode(), RawBody: string(body), Info: info}
	}
}

// ==================== 令牌接口 ====================

// RequestToken 调用令牌接口 (授权换码与刷新共用这套信封)
func RequestToken(ctx context.Context, httpc *resty.Client, path string, query map[string]string) (*TokenData, error) {
	resp, err := httpc.R().SetContext(ctx).SetQueryParams(query).Get(path)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode(), resp.String())
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("token response decode: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("token endpoint code %d: %s", env.Code, env.Message)
	}

	var data TokenData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("token data decode: %w", err)
	}
	if data.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned empty access_token")
	}
	return &data, nil
}

// ==================== 仓库 ====================

// GetWarehouses 拉取启用中的仓库列表 (warehouse_effect_status == 1)
func (c *Client) GetWarehouses(ctx context.Context) ([]Warehouse, error) {
	data, err := c.Request(ctx, http.MethodGet, "logistics/get_warehouse_list", nil)
	if err != nil {
		return nil, err
	}

	var list WarehouseListData
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("warehouse list decode: %w", err)
	}

	active := make([]Warehouse, 0, len(list.WarehouseList))
	for _, w := range list.WarehouseList {
		if w.EffectStatus == 1 {
			active = append(active, w)
		}
	}
	return active, nil
}

// GetDefaultWarehouse 取默认仓，没有可用仓库时返回 nil
func (c *Client) GetDefaultWarehouse(ctx context.Context) (*Warehouse, error) {
	warehouses, err := c.GetWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	for i := range warehouses {
		if warehouses[i].IsDefault {
			return &warehouses[i], nil
		}
	}
	return nil, nil
}
