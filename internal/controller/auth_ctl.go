package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiktok_shop_v1/internal/api/dto"
	"tiktok_shop_v1/internal/integration"
	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
)

// AuthController 授权与账号管理
type AuthController struct {
	adapters      *integration.Registry
	accounts      repository.AccountRepository
	integrationID int64
}

func NewAuthController(adapters *integration.Registry, accounts repository.AccountRepository, integrationID int64) *AuthController {
	return &AuthController{
		adapters:      adapters,
		accounts:      accounts,
		integrationID: integrationID,
	}
}

// ==================== 授权流程 ====================

// Authorize 生成授权链接
// GET /api/auth/authorize
func (c *AuthController) Authorize(ctx *gin.Context) {
	var req dto.AuthorizeRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adapter, err := c.adapters.Get(c.integrationID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	url, err := adapter.AuthorizationURL(req.ShopID, req.RegionID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": dto.AuthorizeResponse{URL: url}})
}

// Callback 授权回调，换 token 并落账号
// GET /api/auth/callback
func (c *AuthController) Callback(ctx *gin.Context) {
	var req dto.CallbackRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adapter, err := c.adapters.Get(c.integrationID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	account, err := adapter.Authenticate(ctx, req.State, req.Code)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": toAccountVO(account)})
}

// ==================== 账号管理 ====================

// ListAccounts 有效账号列表
// GET /api/accounts
func (c *AuthController) ListAccounts(ctx *gin.Context) {
	accounts, err := c.accounts.ListActive(ctx, c.integrationID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	list := make([]dto.AccountVO, len(accounts))
	for i := range accounts {
		list[i] = toAccountVO(&accounts[i])
	}
	ctx.JSON(http.StatusOK, gin.H{"data": list})
}

// GetAccount 账号详情
// GET /api/accounts/:account_id
func (c *AuthController) GetAccount(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": toAccountVO(account)})
}

func toAccountVO(account *model.Account) dto.AccountVO {
	return dto.AccountVO{
		ID:             account.ID,
		Name:           account.Name,
		Username:       account.Username,
		ShopID:         account.ShopID,
		IntegrationID:  account.IntegrationID,
		RegionID:       account.RegionID,
		Currency:       account.Currency,
		Status:         account.Status,
		DisabledReason: account.DisabledReason,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      account.UpdatedAt,
	}
}
