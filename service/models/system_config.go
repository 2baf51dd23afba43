/*
 * @module service/models/system_config
 * @description 系统配置模型，持久化运行时的权重/阈值覆盖配置
 * @architecture 数据模型层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 配置存储 -> 启动加载 -> 运行时更新写回
 * @rules 配置键在同一环境内唯一，覆盖层配置可删除，默认配置常驻代码
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/config
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemConfig 系统配置模型
type SystemConfig struct {
	ID          string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Key         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_config_key_env" json:"key"`
	Value       string    `gorm:"type:text;not null" json:"value"`
	Category    string    `gorm:"type:varchar(50);index" json:"category"` // weight_override, threshold_override, scheduler
	Environment string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_config_key_env" json:"environment"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SystemConfig) TableName() string {
	return "system_configs"
}

// BeforeCreate 创建前钩子
func (c *SystemConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Environment == "" {
		c.Environment = "default"
	}
	return nil
}
