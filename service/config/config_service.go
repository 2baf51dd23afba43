/*
 * @module service/config/config_service
 * @description 配置服务，负责权重/阈值运行时覆盖的持久化和启动加载
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 启动加载覆盖配置 -> 应用到评分引擎 -> 运行时修改写回数据库
 * @rules 持久化的是覆盖层而非默认值，删除配置行即恢复代码内默认
 * @dependencies gorm.io/gorm, github.com/spf13/cast, service/models, service/quality
 * @refs service/quality/weighting_engine.go, service/quality/threshold_manager.go
 */

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vms-quality-service/service/models"
	"vms-quality-service/service/quality"
)

// 配置键前缀
const (
	weightKeyPrefix             = "quality.weights."
	thresholdKeyPrefix          = "quality.threshold."
	dimensionThresholdKeyPrefix = "quality.dimension_threshold."
)

// 配置分类
const (
	CategoryWeightOverride    = "weight_override"
	CategoryThresholdOverride = "threshold_override"
)

// ConfigService 配置服务
type ConfigService struct {
	db *gorm.DB
}

// NewConfigService 创建配置服务实例
func NewConfigService(db *gorm.DB) *ConfigService {
	return &ConfigService{db: db}
}

// ApplyOverrides 将持久化的覆盖配置应用到权重引擎和阈值管理器
// 单条配置解析失败记录警告并跳过，不中断启动
func (s *ConfigService) ApplyOverrides(weighting *quality.WeightingEngine, thresholds *quality.ThresholdManager) error {
	var configs []models.SystemConfig
	err := s.db.Where("category IN ?", []string{CategoryWeightOverride, CategoryThresholdOverride}).
		Find(&configs).Error
	if err != nil {
		return fmt.Errorf("加载覆盖配置失败: %w", err)
	}

	applied := 0
	for _, config := range configs {
		switch {
		case strings.HasPrefix(config.Key, weightKeyPrefix):
			entityType := strings.TrimPrefix(config.Key, weightKeyPrefix)
			var weights map[string]float64
			if err := json.Unmarshal([]byte(config.Value), &weights); err != nil {
				slog.Warn("权重覆盖配置解析失败，跳过", "key", config.Key, "error", err)
				continue
			}
			weighting.SetEntityWeightOverride(entityType, weights)
			applied++

		case strings.HasPrefix(config.Key, thresholdKeyPrefix):
			entityType := strings.TrimPrefix(config.Key, thresholdKeyPrefix)
			value, err := cast.ToFloat64E(config.Value)
			if err != nil {
				slog.Warn("阈值覆盖配置解析失败，跳过", "key", config.Key, "error", err)
				continue
			}
			thresholds.SetEntityThresholdOverride(entityType, value)
			applied++

		case strings.HasPrefix(config.Key, dimensionThresholdKeyPrefix):
			validationType := strings.TrimPrefix(config.Key, dimensionThresholdKeyPrefix)
			value, err := cast.ToFloat64E(config.Value)
			if err != nil {
				slog.Warn("维度阈值覆盖配置解析失败，跳过", "key", config.Key, "error", err)
				continue
			}
			thresholds.SetValidationTypeThreshold(validationType, value)
			applied++
		}
	}

	if applied > 0 {
		slog.Info("覆盖配置加载完成", "applied", applied)
	}
	return nil
}

// SaveEntityWeights 持久化实体权重覆盖
func (s *ConfigService) SaveEntityWeights(entityType string, weights map[string]float64) error {
	payload, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("序列化权重配置失败: %w", err)
	}
	return s.upsert(weightKeyPrefix+entityType, string(payload), CategoryWeightOverride,
		fmt.Sprintf("%s 实体的维度权重覆盖", entityType))
}

// SaveEntityThreshold 持久化实体阈值覆盖
func (s *ConfigService) SaveEntityThreshold(entityType string, threshold float64) error {
	return s.upsert(thresholdKeyPrefix+entityType, cast.ToString(threshold), CategoryThresholdOverride,
		fmt.Sprintf("%s 实体的质量阈值覆盖", entityType))
}

// SaveValidationTypeThreshold 持久化维度阈值覆盖
func (s *ConfigService) SaveValidationTypeThreshold(validationType string, threshold float64) error {
	return s.upsert(dimensionThresholdKeyPrefix+validationType, cast.ToString(threshold), CategoryThresholdOverride,
		fmt.Sprintf("%s 维度的质量阈值覆盖", validationType))
}

// GetOverrides 获取所有持久化的覆盖配置
func (s *ConfigService) GetOverrides() ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	err := s.db.Where("category IN ?", []string{CategoryWeightOverride, CategoryThresholdOverride}).
		Order("key ASC").
		Find(&configs).Error
	return configs, err
}

// upsert 按 (key, environment) 插入或更新配置行
func (s *ConfigService) upsert(key, value, category, description string) error {
	config := models.SystemConfig{
		Key:         key,
		Value:       value,
		Category:    category,
		Environment: "default",
		Description: description,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "environment"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "category", "description", "updated_at"}),
	}).Create(&config).Error
}
