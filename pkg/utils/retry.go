package utils

import (
	"context"
	"time"
)

// Sleeper 抽象等待行为，测试里注入空实现避免真实睡眠
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// RealSleeper 生产实现，可被 context 取消打断
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// NopSleeper 测试用，不等待
type NopSleeper struct{}

func (NopSleeper) Sleep(context.Context, time.Duration) {}

// Retry 固定间隔重试，首次失败后每次重试前等待 delay
// 返回最后一次的错误
func Retry(ctx context.Context, attempts int, delay time.Duration, sleeper Sleeper, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			sleeper.Sleep(ctx, delay)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
