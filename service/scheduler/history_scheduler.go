/*
 * @module service/scheduler/history_scheduler
 * @description 历史记录调度器，定时回填已完成运行的历史记录并执行保留期清理
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 启动调度器 -> cron触发 -> 获取分布式锁 -> 回填/清理 -> 释放锁
 * @rules 未配置Redis时降级为无锁执行并记录警告，锁获取失败的实例跳过本轮任务
 * @dependencies github.com/robfig/cron/v3, service/distributed_lock, service/history
 * @refs service/history/history_service.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"

	"vms-quality-service/service/distributed_lock"
	"vms-quality-service/service/history"
)

// 调度默认值
const (
	defaultPopulateSpec  = "0 0 * * * *"  // 每小时整点回填
	defaultCleanupSpec   = "0 30 3 * * *" // 每天 03:30 清理
	defaultPopulateDays  = 1
	defaultRetentionDays = 365
	lockTTL              = 10 * time.Minute
)

// HistoryScheduler 历史记录调度器
type HistoryScheduler struct {
	historyService *history.HistoryService
	cron           *cron.Cron
	lock           distributed_lock.DistributedLock
	started        bool

	populateDays  int
	retentionDays int
}

// NewHistoryScheduler 创建历史记录调度器
func NewHistoryScheduler(historyService *history.HistoryService) *HistoryScheduler {
	return &HistoryScheduler{
		historyService: historyService,
		cron:           cron.New(cron.WithSeconds()),
		populateDays:   defaultPopulateDays,
		retentionDays:  defaultRetentionDays,
	}
}

// SetDistributedLock 设置分布式锁
func (s *HistoryScheduler) SetDistributedLock(lock distributed_lock.DistributedLock) {
	s.lock = lock
	if lock != nil {
		slog.Info("历史记录调度器已启用分布式锁")
	}
}

// Start 启动调度器
func (s *HistoryScheduler) Start() error {
	if s.started {
		return fmt.Errorf("调度器已经启动")
	}

	if days := os.Getenv("HISTORY_POPULATE_DAYS"); days != "" {
		s.populateDays = cast.ToInt(days)
	}
	if days := os.Getenv("HISTORY_RETENTION_DAYS"); days != "" {
		s.retentionDays = cast.ToInt(days)
	}

	populateSpec := getEnvWithDefault("HISTORY_POPULATE_CRON", defaultPopulateSpec)
	cleanupSpec := getEnvWithDefault("HISTORY_CLEANUP_CRON", defaultCleanupSpec)

	if _, err := s.cron.AddFunc(populateSpec, s.runPopulate); err != nil {
		return fmt.Errorf("注册回填任务失败: %w", err)
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.runCleanup); err != nil {
		return fmt.Errorf("注册清理任务失败: %w", err)
	}

	if s.lock == nil {
		slog.Warn("未配置分布式锁，调度任务将无锁执行，多实例部署下可能产生重复回填")
	}

	s.cron.Start()
	s.started = true
	slog.Info("历史记录调度器启动完成",
		"populate_cron", populateSpec,
		"cleanup_cron", cleanupSpec,
		"populate_days", s.populateDays,
		"retention_days", s.retentionDays)
	return nil
}

// Stop 停止调度器
func (s *HistoryScheduler) Stop() {
	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	slog.Info("历史记录调度器已停止")
}

// runPopulate 定时回填任务
func (s *HistoryScheduler) runPopulate() {
	s.withLock("populate_history", func() {
		created, err := s.historyService.PopulateHistoryFromRecentRuns(s.populateDays)
		if err != nil {
			slog.Error("定时回填历史记录失败", "error", err)
			return
		}
		slog.Info("定时回填历史记录完成", "created", created)
	})
}

// runCleanup 定时清理任务
func (s *HistoryScheduler) runCleanup() {
	s.withLock("cleanup_history", func() {
		deleted, err := s.historyService.CleanupOldRecords(s.retentionDays)
		if err != nil {
			slog.Error("定时清理历史记录失败", "error", err)
			return
		}
		slog.Info("定时清理历史记录完成", "deleted", deleted)
	})
}

// withLock 在分布式锁保护下执行任务，无锁配置时直接执行
func (s *HistoryScheduler) withLock(key string, task func()) {
	if s.lock == nil {
		task()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTTL)
	defer cancel()

	acquired, err := s.lock.TryLock(ctx, key, lockTTL)
	if err != nil {
		slog.Error("获取调度锁失败", "key", key, "error", err)
		return
	}
	if !acquired {
		slog.Debug("其他实例持有调度锁，跳过本轮任务", "key", key)
		return
	}
	defer func() {
		if err := s.lock.Unlock(ctx, key); err != nil {
			slog.Warn("释放调度锁失败", "key", key, "error", err)
		}
	}()

	task()
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
