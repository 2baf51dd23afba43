/*
 * @module service/quality/weighting_engine
 * @description 评分权重引擎，负责解析实体/维度的有效权重、归一化处理和加权综合评分
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 读取默认权重 -> 叠加运行时覆盖 -> 归一化 -> 加权计算
 * @rules 返回的实体权重之和恒为1.0，非法覆盖输入保留上一次有效覆盖，无历史覆盖时回退等权默认
 * @dependencies service/quality/scoring_config.go, log/slog
 * @refs service/quality/scoring_service.go
 */

package quality

import (
	"log/slog"
	"sync"
)

// WeightingEngine 评分权重引擎
type WeightingEngine struct {
	config *ScoringConfig

	mu                      sync.RWMutex
	entityOverrides         map[string]map[string]float64
	validationTypeOverrides map[string]float64
}

// NewWeightingEngine 创建评分权重引擎实例
func NewWeightingEngine(config *ScoringConfig) *WeightingEngine {
	if config == nil {
		config = DefaultScoringConfig()
	}
	return &WeightingEngine{
		config:                  config,
		entityOverrides:         make(map[string]map[string]float64),
		validationTypeOverrides: make(map[string]float64),
	}
}

// GetEntityWeights 获取实体类型的有效维度权重
// 优先级: 运行时覆盖 > 实体默认 > default 兜底，返回前始终归一化到和为1.0
func (e *WeightingEngine) GetEntityWeights(entityType string) map[string]float64 {
	e.mu.RLock()
	override, hasOverride := e.entityOverrides[entityType]
	e.mu.RUnlock()

	var source map[string]float64
	if hasOverride {
		source = override
	} else if weights, ok := e.config.EntityWeights[entityType]; ok {
		source = weights
	} else {
		source = e.config.EntityWeights[EntityDefault]
	}

	normalized := normalizeWeights(source)
	if normalized == nil {
		return equalWeights()
	}
	return normalized
}

// GetValidationTypeWeight 获取单个校验维度在指定实体下的权重
// 进程级维度覆盖优先于实体内权重，两者都缺失时返回1.0
func (e *WeightingEngine) GetValidationTypeWeight(entityType, validationType string) float64 {
	e.mu.RLock()
	if weight, ok := e.validationTypeOverrides[validationType]; ok {
		e.mu.RUnlock()
		return weight
	}
	e.mu.RUnlock()

	if weight, ok := e.GetEntityWeights(entityType)[validationType]; ok {
		return weight
	}
	return 1.0
}

// GetSeverityWeight 获取严重级别的影响系数，未知级别返回1.0
func (e *WeightingEngine) GetSeverityWeight(severity string) float64 {
	if weight, ok := e.config.SeverityWeights[severity]; ok {
		return weight
	}
	return 1.0
}

// SetEntityWeightOverride 设置实体权重覆盖
// 非法输入（负权重、权重和为0）不向调用方报错:
// 已有有效覆盖时保留旧值，否则回退到等权默认
func (e *WeightingEngine) SetEntityWeightOverride(entityType string, weights map[string]float64) {
	validated := make(map[string]float64, len(weights))
	valid := len(weights) > 0
	for key, value := range weights {
		if key == "" || value < 0 {
			valid = false
			break
		}
		validated[key] = value
	}

	var normalized map[string]float64
	if valid {
		normalized = normalizeWeights(validated)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if normalized == nil {
		if _, ok := e.entityOverrides[entityType]; ok {
			slog.Warn("实体权重覆盖输入非法，保留上一次有效覆盖", "entity_type", entityType)
			return
		}
		slog.Warn("实体权重覆盖输入非法，回退到等权默认", "entity_type", entityType)
		normalized = equalWeights()
	}

	e.entityOverrides[entityType] = normalized
}

// SetValidationTypeOverride 设置进程级的维度权重覆盖
func (e *WeightingEngine) SetValidationTypeOverride(validationType string, weight float64) {
	if weight < 0 {
		slog.Warn("维度权重覆盖为负数，忽略", "validation_type", validationType, "weight", weight)
		return
	}
	e.mu.Lock()
	e.validationTypeOverrides[validationType] = weight
	e.mu.Unlock()
}

// ResetOverrides 清空所有运行时覆盖，默认配置不受影响
func (e *WeightingEngine) ResetOverrides() {
	e.mu.Lock()
	e.entityOverrides = make(map[string]map[string]float64)
	e.validationTypeOverrides = make(map[string]float64)
	e.mu.Unlock()
}

// CalculateWeightedScore 按实体权重计算各维度分数的加权平均
// validationTypes 非空时仅计算该子集，总权重为0或分数为空时返回0.0
func (e *WeightingEngine) CalculateWeightedScore(scores map[string]float64, entityType string, validationTypes []string) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	weights := e.GetEntityWeights(entityType)

	included := scores
	if len(validationTypes) > 0 {
		included = make(map[string]float64, len(validationTypes))
		for _, validationType := range validationTypes {
			if score, ok := scores[validationType]; ok {
				included[validationType] = score
			}
		}
	}

	totalScore := 0.0
	totalWeight := 0.0
	for validationType, score := range included {
		weight, ok := weights[validationType]
		if !ok {
			weight = 1.0
		}
		totalScore += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0
	}
	return totalScore / totalWeight
}

// normalizeWeights 归一化权重使其和为1.0，空表或和为0时返回nil
func normalizeWeights(weights map[string]float64) map[string]float64 {
	if len(weights) == 0 {
		return nil
	}

	total := 0.0
	for _, weight := range weights {
		total += weight
	}
	if total <= 0 {
		return nil
	}

	normalized := make(map[string]float64, len(weights))
	for key, weight := range weights {
		normalized[key] = weight / total
	}
	return normalized
}

// equalWeights 四个标准维度的等权兜底
func equalWeights() map[string]float64 {
	weights := make(map[string]float64, 4)
	for _, dimension := range StandardDimensions() {
		weights[dimension] = 0.25
	}
	return weights
}
