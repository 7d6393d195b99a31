package utils

import (
	"sync"
	"time"
)

// KVCache 带过期时间的进程内键值缓存
// 授权 state 和其他短生命周期的跨请求状态都放这里，使用 sync.Map 保证并发安全
type KVCache struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

type cacheItem struct {
	value      string
	expiration int64
}

// NewKVCache ttl <= 0 时默认 10 分钟，足够完成一次授权流程
func NewKVCache(ttl time.Duration) *KVCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &KVCache{ttl: ttl, now: time.Now}
}

// SetClock 注入时钟，测试用
func (c *KVCache) SetClock(now func() time.Time) { c.now = now }

// Set 写入缓存，同 key 覆盖
func (c *KVCache) Set(key, value string) {
	c.items.Store(key, cacheItem{
		value:      value,
		expiration: c.now().Add(c.ttl).Unix(),
	})
}

// Get 读取缓存并验证是否过期
func (c *KVCache) Get(key string) (string, bool) {
	val, ok := c.items.Load(key)
	if !ok {
		return "", false
	}

	item := val.(cacheItem)

	if c.now().Unix() > item.expiration {
		c.items.Delete(key) // 懒删除
		return "", false
	}

	return item.value, true
}

// Delete 删除缓存 (用完即焚)
func (c *KVCache) Delete(key string) {
	c.items.Delete(key)
}
