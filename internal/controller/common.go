package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
)

// ==================== 错误映射 ====================

// respondError 业务错误到 HTTP 状态码的统一映射
func respondError(ctx *gin.Context, err error) {
	var inputErr *tiktok.InputError
	if errors.As(err, &inputErr) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error(), "field": inputErr.Field})
		return
	}

	var authErr *tiktok.AuthError
	if errors.As(err, &authErr) {
		// 账号已被置为待重新授权，前端应引导用户重走授权流程
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error(), "require_auth": true})
		return
	}

	var apiErr *tiktok.APIError
	if errors.As(err, &apiErr) {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Error(), "code": apiErr.Code})
		return
	}

	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// ==================== 参数辅助 ====================

// pathID 取路径里的数字 id，非法时直接回 400 并返回 false
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的" + name})
		return 0, false
	}
	return id, true
}

// loadAccount 按路径参数 account_id 取账号，不存在回 404
func loadAccount(ctx *gin.Context, repo repository.AccountRepository) (*model.Account, bool) {
	id, ok := pathID(ctx, "account_id")
	if !ok {
		return nil, false
	}
	account, err := repo.GetByID(ctx, id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "账号不存在"})
		return nil, false
	}
	return account, true
}
