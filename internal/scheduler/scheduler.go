package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fachebot/talk-wrapup/internal/config"
	"github.com/fachebot/talk-wrapup/internal/logger"
	"github.com/fachebot/talk-wrapup/internal/model"
	"github.com/fachebot/talk-wrapup/internal/wrapup"
	"github.com/robfig/cron/v3"
)

// entryProvider 获取会话记录（便于测试注入 mock）
type entryProvider interface {
	ListBySession(ctx context.Context, session string) ([]*model.Entry, error)
}

// runRecorder 保存执行记录（便于测试注入 mock）
type runRecorder interface {
	Create(ctx context.Context, name, session string) (*model.Run, error)
	MarkCompleted(ctx context.Context, id, chatlogPath, outlinePath, outlineStatus string) error
	MarkFailed(ctx context.Context, id string, errorMsg string) error
}

// wrapupBuilder 生成 wrapup 文件（便于测试注入 mock）
type wrapupBuilder interface {
	Build(ctx context.Context, entries []wrapup.LogEntry, name string, outline bool) (*wrapup.Result, error)
}

type Scheduler struct {
	cron       *cron.Cron
	builder    wrapupBuilder
	entryModel entryProvider
	runModel   runRecorder
	config     *config.Schedule
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
}

// locUTC UTC 标准时间（UTC）
var locUTC = time.UTC

func NewScheduler(
	builder *wrapup.Builder,
	entryModel *model.EntryModel,
	runModel *model.RunModel,
	cfg *config.Schedule,
) *Scheduler {
	return newScheduler(builder, entryModel, runModel, cfg)
}

func newScheduler(builder wrapupBuilder, entryModel entryProvider, runModel runRecorder, cfg *config.Schedule) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(locUTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
		),
		builder:    builder,
		entryModel: entryModel,
		runModel:   runModel,
		config:     cfg,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	if len(s.config.Jobs) == 0 {
		return fmt.Errorf("未配置任何定时任务")
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	// 注册定时 wrapup 任务
	_, err := s.cron.AddFunc(s.config.Cron, s.runScheduledWrapups)
	if err != nil {
		return fmt.Errorf("注册定时 wrapup 任务失败: %w", err)
	}

	s.cron.Start()
	logger.Infof("[Scheduler] 调度器已启动，定时任务: %s，共 %d 个会话", s.config.Cron, len(s.config.Jobs))
	return nil
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Infof("[Scheduler] 调度器已停止")
}

// runScheduledWrapups 依次执行所有配置的任务（cron 触发）
func (s *Scheduler) runScheduledWrapups() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	for _, job := range s.config.Jobs {
		select {
		case <-ctx.Done():
			logger.Infof("[Scheduler] 任务已取消，退出")
			return
		default:
		}

		if err := s.RunJob(ctx, job); err != nil {
			logger.Errorf("[Scheduler] wrapup 执行失败 (session=%s, name=%s): %v", job.Session, job.Name, err)
		}
	}
}

// RunJob 执行单个任务并记录结果，失败不重试
// 会话没有任何记录时跳过，不创建执行记录
func (s *Scheduler) RunJob(ctx context.Context, job config.ScheduleJob) error {
	entries, err := s.entryModel.ListBySession(ctx, job.Session)
	if err != nil {
		return fmt.Errorf("获取记录失败: %w", err)
	}
	if len(entries) == 0 {
		logger.Infof("[Scheduler] 会话 %s 暂无记录，跳过", job.Session)
		return nil
	}

	run, err := s.runModel.Create(ctx, job.Name, job.Session)
	if err != nil {
		return fmt.Errorf("创建执行记录失败: %w", err)
	}

	result, err := s.builder.Build(ctx, wrapup.FromModel(entries), job.Name, job.Outline)
	if err != nil {
		// 构建可能因 ctx 取消而失败，状态仍需写回
		if markErr := s.runModel.MarkFailed(context.WithoutCancel(ctx), run.ID, err.Error()); markErr != nil {
			logger.Errorf("[Scheduler] 更新执行记录失败 (id=%s): %v", run.ID, markErr)
		}
		return err
	}

	outlinePath, _ := result.OutlinePath()
	if err := s.runModel.MarkCompleted(ctx, run.ID, result.ChatlogPath, outlinePath, result.Outline.Status.String()); err != nil {
		return fmt.Errorf("更新执行记录失败: %w", err)
	}
	logger.Infof("[Scheduler] wrapup 完成: session=%s, name=%s, outline=%s", job.Session, job.Name, result.Outline.Status)
	return nil
}

// cronLogger 将 cron 内部日志转到 logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debugf("[Scheduler] %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Errorf("[Scheduler] %s: %v %v", msg, err, keysAndValues)
}
