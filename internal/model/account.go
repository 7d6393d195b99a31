package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ==================== 账号状态常量 ====================

const (
	AccountStatusActive      = "active"       // 正常
	AccountStatusRequireAuth = "require_auth" // 凭证失效，等待重新授权
	AccountStatusDisabled    = "disabled"     // 手动停用
)

// ==================== Account 接入账号 ====================

// Account 一个店铺在某个市场平台下的接入账号
// Credentials 只由 token 刷新协议写入，其他代码只读
type Account struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:255"`
	Username      string `gorm:"size:255;index"` // 平台侧卖家名
	ShopID        int64  `gorm:"index;not null"`
	IntegrationID int64  `gorm:"index;not null"`
	RegionID      int64  `gorm:"index"`
	Currency      string `gorm:"size:8"`

	Status         string `gorm:"size:32;index;default:active"`
	DisabledReason string `gorm:"type:text"`

	// 凭证 JSON 包：access_token / refresh_token / 各自过期时间戳
	Credentials datatypes.JSON

	// 账号设置 (feature 开关、绑定仓库等)，结构与前端设置面板一致
	Settings datatypes.JSONMap `gorm:"type:jsonb"`

	// 同步检查点，key -> RFC3339 时间
	SyncData datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials 平台凭证，过期时间是 Unix 秒时间戳
type Credentials struct {
	AccessToken          string `json:"access_token"`
	AccessTokenExpireIn  int64  `json:"access_token_expire_in"`
	RefreshToken         string `json:"refresh_token"`
	RefreshTokenExpireIn int64  `json:"refresh_token_expire_in"`
	SellerName           string `json:"seller_name,omitempty"`
}

// Merge 把 in 中的非零字段覆盖到 c 上，in 没有返回的字段保持原值
// 刷新接口不保证每次都返回全部字段，所以必须读-改-合-写，不能整体覆盖
func (c *Credentials) Merge(in *Credentials) {
	if in == nil {
		return
	}
	if in.AccessToken != "" {
		c.AccessToken = in.AccessToken
	}
	if in.AccessTokenExpireIn != 0 {
		c.AccessTokenExpireIn = in.AccessTokenExpireIn
	}
	if in.RefreshToken != "" {
		c.RefreshToken = in.RefreshToken
	}
	if in.RefreshTokenExpireIn != 0 {
		c.RefreshTokenExpireIn = in.RefreshTokenExpireIn
	}
	if in.SellerName != "" {
		c.SellerName = in.SellerName
	}
}

// GetCredentials 解析凭证 JSON，没有凭证时返回 nil
func (a *Account) GetCredentials() *Credentials {
	if len(a.Credentials) == 0 {
		return nil
	}
	var c Credentials
	if err := json.Unmarshal(a.Credentials, &c); err != nil {
		return nil
	}
	return &c
}

// SetCredentials 序列化凭证 JSON
func (a *Account) SetCredentials(c *Credentials) {
	if c == nil {
		a.Credentials = nil
		return
	}
	b, _ := json.Marshal(c)
	a.Credentials = datatypes.JSON(b)
}

// GetSetting 按路径读设置值，如 GetSetting("account", "warehouse")
func (a *Account) GetSetting(path ...string) any {
	var cur any = map[string]any(a.Settings)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// GetSettingString 读字符串设置值，缺失或类型不符返回空串
func (a *Account) GetSettingString(path ...string) string {
	if v, ok := a.GetSetting(path...).(string); ok {
		return v
	}
	return ""
}

// HasFeature 判断功能开关是否打开，兼容 bool 和 0/1 两种写法
func (a *Account) HasFeature(group, name string) bool {
	switch v := a.GetSetting("features", group, name).(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}
