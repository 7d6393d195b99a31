package task

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(time.Minute, zap.NewNop())

	s.Register(
		Job{Name: "token_refresh", Spec: "*/40 * * * *", Run: func(context.Context) {}},
		Job{Name: "order_sync", Spec: "*/15 * * * *", Run: func(context.Context) {}},
	)

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("任务数 = %d, want 2", len(jobs))
	}
	if jobs[0].Name != "token_refresh" || jobs[1].Name != "order_sync" {
		t.Errorf("注册顺序错误: %+v", jobs)
	}

	// Jobs 返回的是快照
	jobs[0].Name = "mutated"
	if s.Jobs()[0].Name != "token_refresh" {
		t.Error("对快照的修改不应影响注册表")
	}
}

func TestScheduler_StartRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(time.Minute, zap.NewNop())
	s.Register(Job{Name: "broken", Spec: "not a cron spec", Run: func(context.Context) {}})

	if err := s.Start(); err == nil {
		t.Fatal("非法 cron 表达式应让 Start 失败")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(0, zap.NewNop())
	if s.timeout != 30*time.Minute {
		t.Errorf("默认超时 = %v, want 30m", s.timeout)
	}

	s.Register(Job{Name: "noop", Spec: "0 2 * * *", Run: func(context.Context) {}})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
}
