package tiktok

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign 计算 TikTok 开放平台签名 (HMAC-SHA256)
// 拼接规则: secret + "/" + path + (按 key 字典序排列的 key+value) + secret
// key 排序是正确性的关键：map 的遍历顺序是随机的，不排序签名就不稳定
func Sign(path string, query map[string]string, secret string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var input strings.Builder
	input.WriteString(secret)
	input.WriteString("/")
	input.WriteString(path)
	for _, k := range keys {
		input.WriteString(k)
		input.WriteString(query[k])
	}
	input.WriteString(secret)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(input.String()))
	return hex.EncodeToString(mac.Sum(nil))
}
