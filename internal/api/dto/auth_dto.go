package dto

import "time"

// ==================== 授权 ====================

// AuthorizeRequest 生成授权链接请求
type AuthorizeRequest struct {
	ShopID   int64 `form:"shop_id" binding:"required"`
	RegionID int64 `form:"region_id" binding:"required"`
}

// AuthorizeResponse 授权链接响应
type AuthorizeResponse struct {
	URL string `json:"url"`
}

// CallbackRequest 授权回调，state 是发起时下发的随机串
type CallbackRequest struct {
	State string `form:"state" binding:"required"`
	Code  string `form:"code" binding:"required"`
}

// ==================== 账号 ====================

// AccountVO 账号视图对象，不回传凭证
type AccountVO struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	ShopID         int64     `json:"shop_id"`
	IntegrationID  int64     `json:"integration_id"`
	RegionID       int64     `json:"region_id"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	DisabledReason string    `json:"disabled_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
