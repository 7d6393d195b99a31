package tiktok

import (
	"fmt"
	"time"
)

// ==================== 错误分类 ====================
//
// 所有对外暴露的失败都归入四类，调用方用 errors.As 判断：
//   - AuthError      凭证缺失/过期/被拒，账号会被置为 require_auth，不自动重试
//   - InputError     调用方参数缺失或非法，未发起任何远程调用
//   - APIError       远程接口失败 (非 2xx、信封 code != 0、响应不可解析)
//   - TransformError 远程数据结构不符合预期，携带原始报文便于排查

// RequestInfo 一次请求的诊断上下文，失败时随错误一起抛出
type RequestInfo struct {
	Method    string
	URI       string
	Query     map[string]string
	Body      any
	StartedAt time.Time
	EndedAt   time.Time
}

// AuthError 鉴权失败
type AuthError struct {
	AccountID int64
	Reason    string
	Info      *RequestInfo
	Err       error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tiktok auth failed (account %d): %s: %v", e.AccountID, e.Reason, e.Err)
	}
	return fmt.Sprintf("tiktok auth failed (account %d): %s", e.AccountID, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// InputError 调用方输入错误，发现即返回，不会发起远程调用
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// APIError 远程接口失败
type APIError struct {
	AccountID  int64
	StatusCode int    // HTTP 状态码，0 表示传输层失败
	Code       int    // 信封里的业务码
	Message    string // 信封里的 message，可能为空
	RawBody    string
	Info       *RequestInfo
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "tiktok api request failed due to unknown reason"
	}
	return fmt.Sprintf("tiktok api error (account %d, http %d, code %d): %s", e.AccountID, e.StatusCode, e.Code, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// TransformError 远程报文转换失败，Raw 保留出错的原始数据
type TransformError struct {
	Entity string // "order" / "product"
	Raw    any
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s failed: %v", e.Entity, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
