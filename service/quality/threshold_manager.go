/*
 * @module service/quality/threshold_manager
 * @description 质量阈值管理器，负责解析实体/维度的合格阈值、动态调整和质量等级分档
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 读取默认阈值 -> 叠加运行时覆盖 -> 动态调整 -> 区间钳制
 * @rules 实体阈值最终值限制在[50,95]，维度阈值限制在[50,100]，非法覆盖记录日志后忽略
 * @dependencies service/quality/scoring_config.go, log/slog
 * @refs service/quality/scoring_service.go
 */

package quality

import (
	"log/slog"
	"sync"
)

// 质量等级（绝对分档，与实体阈值无关）
const (
	StatusExcellent = "excellent"
	StatusGood      = "good"
	StatusFair      = "fair"
	StatusPoor      = "poor"
)

// ThresholdManager 质量阈值管理器
type ThresholdManager struct {
	config *ScoringConfig

	mu                      sync.RWMutex
	entityOverrides         map[string]float64
	validationTypeOverrides map[string]float64
	dynamicEnabled          bool
}

// NewThresholdManager 创建质量阈值管理器实例
func NewThresholdManager(config *ScoringConfig) *ThresholdManager {
	if config == nil {
		config = DefaultScoringConfig()
	}
	return &ThresholdManager{
		config:                  config,
		entityOverrides:         make(map[string]float64),
		validationTypeOverrides: make(map[string]float64),
		dynamicEnabled:          true,
	}
}

// SetDynamicAdjustment 开关动态阈值调整层
func (m *ThresholdManager) SetDynamicAdjustment(enabled bool) {
	m.mu.Lock()
	m.dynamicEnabled = enabled
	m.mu.Unlock()
}

// GetEntityThreshold 获取实体类型的合格阈值
// 优先级: 运行时覆盖 > 配置默认 > 75.0 全局兜底，再经过动态调整并钳制到[50,95]
func (m *ThresholdManager) GetEntityThreshold(entityType string) float64 {
	m.mu.RLock()
	override, hasOverride := m.entityOverrides[entityType]
	dynamicEnabled := m.dynamicEnabled
	m.mu.RUnlock()

	threshold := GlobalDefaultThreshold
	if hasOverride {
		threshold = override
	} else if configured, ok := m.config.EntityThresholds[entityType]; ok {
		threshold = configured
	}

	if dynamicEnabled {
		threshold += m.dynamicAdjustment(entityType)
	}
	return clamp(threshold, 50.0, 95.0)
}

// dynamicAdjustment 计算动态调整量
// 四个因子（历史表现/业务关键性/数据量/合规）按配置权重加和
func (m *ThresholdManager) dynamicAdjustment(entityType string) float64 {
	factors, ok := m.config.AdjustmentTable[entityType]
	if !ok {
		return 0.0
	}

	weights := m.config.AdjustmentWeights
	return factors.HistoricalPerformance*weights.HistoricalPerformance +
		factors.BusinessCriticality*weights.BusinessCriticality +
		factors.DataVolume*weights.DataVolume +
		factors.Compliance*weights.Compliance
}

// GetValidationTypeThreshold 获取单个校验维度的合格阈值
// 维度显式覆盖（全局，不分实体）优先，否则为实体阈值乘以维度重要性系数；
// 两条路径最终都钳制到[50,100]
func (m *ThresholdManager) GetValidationTypeThreshold(entityType, validationType string) float64 {
	m.mu.RLock()
	if override, ok := m.validationTypeOverrides[validationType]; ok {
		m.mu.RUnlock()
		return clamp(override, 50.0, 100.0)
	}
	m.mu.RUnlock()

	factor, ok := m.config.ImportanceFactors[validationType]
	if !ok {
		factor = 1.0
	}
	return clamp(m.GetEntityThreshold(entityType)*factor, 50.0, 100.0)
}

// GetQualityStatus 按固定分数区间分档质量等级（绝对等级）
// entityType 仅为接口对称性保留，不影响分档边界；
// 与实体阈值相对的达标状态见 ValidationHistory.QualityStatus
func (m *ThresholdManager) GetQualityStatus(score float64, entityType string) string {
	_ = entityType

	switch {
	case score >= 90.0:
		return StatusExcellent
	case score >= 80.0:
		return StatusGood
	case score >= 70.0:
		return StatusFair
	default:
		return StatusPoor
	}
}

// SetEntityThresholdOverride 设置实体阈值覆盖，超出[0,100]时记录日志并忽略
func (m *ThresholdManager) SetEntityThresholdOverride(entityType string, threshold float64) {
	if threshold < 0 || threshold > 100 {
		slog.Warn("实体阈值覆盖超出范围，忽略", "entity_type", entityType, "threshold", threshold)
		return
	}
	m.mu.Lock()
	m.entityOverrides[entityType] = threshold
	m.mu.Unlock()
}

// SetValidationTypeThreshold 设置维度阈值覆盖，超出[0,100]时记录日志并忽略
func (m *ThresholdManager) SetValidationTypeThreshold(validationType string, threshold float64) {
	if threshold < 0 || threshold > 100 {
		slog.Warn("维度阈值覆盖超出范围，忽略", "validation_type", validationType, "threshold", threshold)
		return
	}
	m.mu.Lock()
	m.validationTypeOverrides[validationType] = threshold
	m.mu.Unlock()
}

// ResetOverrides 清空所有运行时覆盖，默认配置不受影响
func (m *ThresholdManager) ResetOverrides() {
	m.mu.Lock()
	m.entityOverrides = make(map[string]float64)
	m.validationTypeOverrides = make(map[string]float64)
	m.mu.Unlock()
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
