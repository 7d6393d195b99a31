package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
	"tiktok_shop_v1/pkg/utils"
)

// ==================== 配置 ====================

// AuthConfig 授权流程配置
type AuthConfig struct {
	IntegrationID   int64
	AuthorizeURL    string // 卖家授权页，如 https://auth.tiktok-shops.com/oauth/authorize
	DefaultCurrency string // 区域没配币种时的兜底
}

// ==================== 服务 ====================

// AuthService 卖家授权流程：生成授权链接、回调换 token、落账号
type AuthService struct {
	cfg         *AuthConfig
	tkCfg       *tiktok.Config
	accountRepo repository.AccountRepository
	states      *utils.KVCache
	logger      *zap.Logger
}

// NewAuthService 创建授权服务
func NewAuthService(cfg *AuthConfig, tkCfg *tiktok.Config, accountRepo repository.AccountRepository, states *utils.KVCache, logger *zap.Logger) *AuthService {
	return &AuthService{
		cfg:         cfg,
		tkCfg:       tkCfg,
		accountRepo: accountRepo,
		states:      states,
		logger:      logger.Named("auth"),
	}
}

// ==================== 授权链接 ====================

// AuthorizationURL 生成带 state 的授权链接
// state 在回调时换回 shop_id 和 region_id，10 分钟有效
func (s *AuthService) AuthorizationURL(shopID, regionID int64) (string, error) {
	state := uuid.NewString()
	s.states.Set(state, fmt.Sprintf("%d:%d", shopID, regionID))

	q := url.Values{}
	q.Set("app_key", s.tkCfg.AppKey)
	q.Set("state", state)
	return s.cfg.AuthorizeURL + "?" + q.Encode(), nil
}

// ==================== 回调 ====================

// HandleCallback 授权回调：校验 state、授权码换 token、创建或更新账号
func (s *AuthService) HandleCallback(ctx context.Context, state, code string) (*model.Account, error) {
	if code == "" {
		return nil, &tiktok.InputError{Field: "code", Message: "authorization code is required"}
	}

	cached, ok := s.states.Get(state)
	if !ok {
		return nil, &tiktok.InputError{Field: "state", Message: "unknown or expired state"}
	}
	s.states.Delete(state) // 用完即焚

	shopID, regionID, err := parseStatePayload(cached)
	if err != nil {
		return nil, err
	}

	data, err := tiktok.RequestToken(ctx, s.tkCfg.NewAuthClient(), "api/v2/token/get", map[string]string{
		"app_key":    s.tkCfg.AppKey,
		"app_secret": s.tkCfg.AppSecret,
		"auth_code":  code,
		"grant_type": "authorized_code",
	})
	if err != nil {
		s.logger.Error("authorization code exchange failed",
			zap.Int64("shop_id", shopID),
			zap.Error(err))
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	account, err := s.upsertAccount(ctx, shopID, regionID, data)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account authorized",
		zap.Int64("account_id", account.ID),
		zap.Int64("shop_id", shopID),
		zap.String("seller", data.SellerName))
	return account, nil
}

// upsertAccount 同一卖家重复授权时复用原账号，只合并凭证
func (s *AuthService) upsertAccount(ctx context.Context, shopID, regionID int64, data *tiktok.TokenData) (*model.Account, error) {
	account, err := s.accountRepo.FindByUnique(ctx, data.SellerName, s.cfg.IntegrationID, regionID, shopID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	incoming := &model.Credentials{
		AccessToken:          data.AccessToken,
		AccessTokenExpireIn:  data.AccessTokenExpireIn,
		RefreshToken:         data.RefreshToken,
		RefreshTokenExpireIn: data.RefreshTokenExpireIn,
		SellerName:           data.SellerName,
	}

	if err == gorm.ErrRecordNotFound {
		account = &model.Account{
			Name:          data.SellerName,
			Username:      data.SellerName,
			ShopID:        shopID,
			IntegrationID: s.cfg.IntegrationID,
			RegionID:      regionID,
			Currency:      s.cfg.DefaultCurrency,
			Status:        model.AccountStatusActive,
		}
		account.SetCredentials(incoming)
		if err := s.accountRepo.Create(ctx, account); err != nil {
			return nil, err
		}
		return account, nil
	}

	cred := account.GetCredentials()
	if cred == nil {
		cred = &model.Credentials{}
	}
	cred.Merge(incoming)
	account.SetCredentials(cred)
	account.Status = model.AccountStatusActive
	account.DisabledReason = ""
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func parseStatePayload(payload string) (shopID, regionID int64, err error) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return 0, 0, &tiktok.InputError{Field: "state", Message: "malformed state payload"}
	}
	shopID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, &tiktok.InputError{Field: "state", Message: "malformed state payload"}
	}
	regionID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, &tiktok.InputError{Field: "state", Message: "malformed state payload"}
	}
	return shopID, regionID, nil
}
