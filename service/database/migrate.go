/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责核心模型的表结构自动迁移
 * @architecture 分层架构 - 数据访问层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 应用启动 -> 自动迁移 -> 服务就绪
 * @rules 校验运行/结果/指标表由校验引擎写入，本服务负责表结构定义和读取
 * @dependencies gorm.io/gorm, service/models
 * @refs service/init.go
 */

package database

import (
	"fmt"

	"gorm.io/gorm"

	"vms-quality-service/service/models"
)

// AutoMigrate 自动迁移所有核心模型
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.ValidationRun{},
		&models.ValidationResult{},
		&models.ValidationMetric{},
		&models.ValidationHistory{},
		&models.SystemConfig{},
	)
	if err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}
