/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、覆盖配置加载和全局服务实例装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务，Redis缺失时调度器降级为无锁执行
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs api/routes.go
 */

package service

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"vms-quality-service/service/aggregation"
	"vms-quality-service/service/config"
	"vms-quality-service/service/database"
	"vms-quality-service/service/distributed_lock"
	"vms-quality-service/service/history"
	"vms-quality-service/service/quality"
	"vms-quality-service/service/scheduler"
)

var (
	DB                       *gorm.DB
	GlobalScoringService     *quality.ScoringService
	GlobalHistoryService     *history.HistoryService
	GlobalAggregationService *aggregation.AggregationService
	GlobalConfigService      *config.ConfigService
	GlobalHistoryScheduler   *scheduler.HistoryScheduler
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// runMigrations 执行数据库迁移
func runMigrations() {
	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库迁移完成")
}

// initServices 初始化全局服务实例
func initServices() {
	scoringConfig := quality.DefaultScoringConfig()

	GlobalScoringService = quality.NewScoringService(DB, scoringConfig)
	GlobalHistoryService = history.NewHistoryService(DB, scoringConfig)
	GlobalAggregationService = aggregation.NewAggregationService(DB)
	GlobalConfigService = config.NewConfigService(DB)

	// 加载持久化的权重/阈值覆盖
	if err := GlobalConfigService.ApplyOverrides(GlobalScoringService.Weighting(), GlobalScoringService.Thresholds()); err != nil {
		log.Printf("加载覆盖配置失败: %v", err)
	}

	GlobalHistoryScheduler = scheduler.NewHistoryScheduler(GlobalHistoryService)

	// Redis可用时为调度器启用分布式锁，缺失时降级为无锁执行
	if lock, err := distributed_lock.NewRedisLock(); err != nil {
		log.Printf("Redis分布式锁初始化失败，调度器无锁运行: %v", err)
	} else {
		GlobalHistoryScheduler.SetDistributedLock(lock)
	}

	if os.Getenv("DISABLE_HISTORY_SCHEDULER") == "" {
		if err := GlobalHistoryScheduler.Start(); err != nil {
			log.Printf("历史记录调度器启动失败: %v", err)
		}
	}
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
