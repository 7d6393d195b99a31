package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ==================== 任务注册表 ====================

// Job 一条后台任务：名称、cron 表达式 (5 段) 和入口函数
// 所有周期任务都显式注册在这张表里，不在各处散落 AddFunc
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context)
}

// Scheduler 周期任务调度器
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler 创建调度器，timeout 是单次任务执行的上限
func NewScheduler(timeout time.Duration, logger *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		timeout: timeout,
		logger:  logger.Named("task"),
	}
}

// Register 注册任务，重复注册同名任务由调用方保证不发生
func (s *Scheduler) Register(jobs ...Job) {
	s.jobs = append(s.jobs, jobs...)
}

// Jobs 当前注册表快照
func (s *Scheduler) Jobs() []Job {
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Start 挂载全部任务并启动调度
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		job := job
		_, err := s.cron.AddFunc(job.Spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			started := time.Now()
			s.logger.Info("job started", zap.String("job", job.Name))
			job.Run(ctx)
			s.logger.Info("job finished",
				zap.String("job", job.Name),
				zap.Duration("elapsed", time.Since(started)))
		})
		if err != nil {
			return err
		}
		s.logger.Info("job registered",
			zap.String("job", job.Name),
			zap.String("spec", job.Spec))
	}

	s.cron.Start()
	return nil
}

// Stop 停止调度，等待在跑的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
