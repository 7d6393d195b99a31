package utils

import (
	"testing"
	"time"
)

func TestKVCache_SetGet(t *testing.T) {
	cache := NewKVCache(time.Minute)

	cache.Set("k1", "v1")
	got, ok := cache.Get("k1")
	if !ok || got != "v1" {
		t.Errorf("Get(k1) = %v, %v", got, ok)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("不存在的 key 不应命中")
	}
}

func TestKVCache_Expiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cache := NewKVCache(10 * time.Minute)
	cache.SetClock(func() time.Time { return now })

	cache.Set("k", "v")
	if _, ok := cache.Get("k"); !ok {
		t.Fatal("未过期的 key 应命中")
	}

	now = now.Add(11 * time.Minute)
	if _, ok := cache.Get("k"); ok {
		t.Error("过期的 key 不应命中")
	}
	// 过期时惰性删除，再次读取仍然未命中
	if _, ok := cache.Get("k"); ok {
		t.Error("过期的 key 应已删除")
	}
}

func TestKVCache_Delete(t *testing.T) {
	cache := NewKVCache(time.Minute)
	cache.Set("k", "v")
	cache.Delete("k")
	if _, ok := cache.Get("k"); ok {
		t.Error("删除后不应命中")
	}
}
