/*
 * @module service/quality/score_calculator
 * @description 维度评分计算器，按校验维度选择评分算法，将一批校验结果计算为0-100的维度分数
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 维度选择算法 -> 遍历结果计算 -> 附加罚分 -> 区间钳制
 * @rules 所有算法输出限制在[0,100]，空结果集返回0.0
 * @dependencies service/models, service/quality/scoring_config.go
 * @refs service/quality/scoring_service.go, service/history
 */

package quality

import (
	"strings"

	"vms-quality-service/service/models"
)

// 违规子类型，由失败结果的消息文本推断
// TODO: 校验引擎补充结构化 violation_subtype 字段后移除文本匹配
const (
	SubtypeMissingRequiredField = "missing_required_field"
	SubtypeOrphanedRecord       = "orphaned_record"
)

// ScoreCalculator 维度评分计算器
type ScoreCalculator struct {
	config *ScoringConfig
}

// NewScoreCalculator 创建维度评分计算器实例
func NewScoreCalculator(config *ScoringConfig) *ScoreCalculator {
	if config == nil {
		config = DefaultScoringConfig()
	}
	return &ScoreCalculator{config: config}
}

// AlgorithmFor 返回校验维度对应的评分算法
func (c *ScoreCalculator) AlgorithmFor(validationType string) string {
	switch validationType {
	case models.DimensionFieldCompleteness, models.DimensionRelationships:
		return AlgorithmPercentage
	case models.DimensionDataTypes:
		return AlgorithmPenalty
	case models.DimensionBusinessRules:
		return AlgorithmSeverityWeighted
	default:
		return AlgorithmPercentage
	}
}

// CalculateDimensionScore 计算单个维度的质量分数 (0-100)
func (c *ScoreCalculator) CalculateDimensionScore(validationType string, results []models.ValidationResult, entityType string) float64 {
	if len(results) == 0 {
		return 0.0
	}

	switch c.AlgorithmFor(validationType) {
	case AlgorithmPenalty:
		return c.penaltyScore(results)
	case AlgorithmSeverityWeighted:
		return c.severityWeightedScore(results)
	default:
		// 已知维度附加消息文本罚分，未知维度仅按通过率
		withPenalties := validationType == models.DimensionFieldCompleteness ||
			validationType == models.DimensionRelationships
		return c.percentageScore(validationType, results, withPenalties)
	}
}

// percentageScore 通过率算法
// 通过率×100，再对触发特定子类型的失败结果附加固定罚分
// 同一条失败结果既拉低通过率又可能触发命名罚分，双重扣分是有意设计
func (c *ScoreCalculator) percentageScore(validationType string, results []models.ValidationResult, withPenalties bool) float64 {
	passed := 0
	for _, result := range results {
		if result.Passed() {
			passed++
		}
	}

	score := float64(passed) / float64(len(results)) * 100.0

	if withPenalties {
		for _, result := range results {
			if result.Passed() {
				continue
			}
			switch c.violationSubtype(validationType, result.Message) {
			case SubtypeMissingRequiredField:
				score -= c.config.MissingRequiredPenalty
			case SubtypeOrphanedRecord:
				score -= c.config.OrphanedRecordPenalty
			}
		}
	}

	return clamp(score, 0.0, 100.0)
}

// penaltyScore 罚分算法
// 从基础分起扣，每条 error/critical 结果按严重级别权重乘单条倍数扣分，总罚分封顶
func (c *ScoreCalculator) penaltyScore(results []models.ValidationResult) float64 {
	penalty := 0.0
	for _, result := range results {
		if result.Passed() {
			continue
		}
		weight, ok := c.config.SeverityWeights[result.Severity]
		if !ok {
			weight = 1.0
		}
		penalty += weight * c.config.TypePenaltyMultiplier
	}

	if penalty > c.config.MaxPenalty {
		penalty = c.config.MaxPenalty
	}
	return clamp(c.config.BaseScore-penalty, 0.0, 100.0)
}

// severityWeightedScore 严重级别加权算法
// 从基础分起扣，warning 及以上每条按基础罚分乘严重级别倍数扣分
func (c *ScoreCalculator) severityWeightedScore(results []models.ValidationResult) float64 {
	score := c.config.BaseScore
	for _, result := range results {
		if result.Severity == models.SeverityInfo {
			continue
		}
		multiplier, ok := c.config.SeverityMultipliers[result.Severity]
		if !ok {
			multiplier = 1.0
		}
		score -= c.config.BasePenalty * multiplier
	}
	return clamp(score, 0.0, 100.0)
}

// CalculateRecordScore 历史记录的固定线性罚分公式
// 100 - 10×critical - 5×error - 2×warning，下限0
// 与维度算法族刻意分离: 历史归档在批量回填时无需按维度分组即可计算
func (c *ScoreCalculator) CalculateRecordScore(critical, errors, warnings int64) float64 {
	score := 100.0 - 10.0*float64(critical) - 5.0*float64(errors) - 2.0*float64(warnings)
	if score < 0 {
		return 0.0
	}
	return score
}

// violationSubtype 从消息文本推断违规子类型
func (c *ScoreCalculator) violationSubtype(validationType, message string) string {
	lower := strings.ToLower(message)

	switch validationType {
	case models.DimensionFieldCompleteness:
		if strings.Contains(lower, "required") || strings.Contains(lower, "missing") {
			return SubtypeMissingRequiredField
		}
	case models.DimensionRelationships:
		if strings.Contains(lower, "orphaned") || strings.Contains(lower, "invalid") {
			return SubtypeOrphanedRecord
		}
	}
	return ""
}

// GetScoreBreakdown 评分过程的诊断视图，用于审计和调试，不参与评分契约
// penalties_applied 按当前维度的算法逐条列出扣分来源:
// 通过率算法为消息子类型罚分，罚分/严重级别加权算法为单条结果的扣分额
func (c *ScoreCalculator) GetScoreBreakdown(validationType string, results []models.ValidationResult, entityType string) map[string]interface{} {
	algorithm := c.AlgorithmFor(validationType)
	histogram := map[string]int{
		models.SeverityInfo:     0,
		models.SeverityWarning:  0,
		models.SeverityError:    0,
		models.SeverityCritical: 0,
	}
	penalties := make([]map[string]interface{}, 0)

	for _, result := range results {
		histogram[result.Severity]++

		switch algorithm {
		case AlgorithmPenalty:
			if result.Passed() {
				continue
			}
			weight, ok := c.config.SeverityWeights[result.Severity]
			if !ok {
				weight = 1.0
			}
			penalties = append(penalties, map[string]interface{}{
				"severity":   result.Severity,
				"penalty":    weight * c.config.TypePenaltyMultiplier,
				"field_name": result.FieldName,
			})
		case AlgorithmSeverityWeighted:
			if result.Severity == models.SeverityInfo {
				continue
			}
			multiplier, ok := c.config.SeverityMultipliers[result.Severity]
			if !ok {
				multiplier = 1.0
			}
			penalties = append(penalties, map[string]interface{}{
				"severity":   result.Severity,
				"penalty":    c.config.BasePenalty * multiplier,
				"field_name": result.FieldName,
			})
		default:
			if result.Passed() {
				continue
			}
			subtype := c.violationSubtype(validationType, result.Message)
			if subtype == "" {
				continue
			}
			amount := c.config.MissingRequiredPenalty
			if subtype == SubtypeOrphanedRecord {
				amount = c.config.OrphanedRecordPenalty
			}
			penalties = append(penalties, map[string]interface{}{
				"subtype":    subtype,
				"penalty":    amount,
				"field_name": result.FieldName,
			})
		}
	}

	return map[string]interface{}{
		"validation_type":    validationType,
		"entity_type":        entityType,
		"algorithm":          algorithm,
		"severity_histogram": histogram,
		"penalties_applied":  penalties,
		"total_results":      len(results),
		"score":              c.CalculateDimensionScore(validationType, results, entityType),
	}
}
