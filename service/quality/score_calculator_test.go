/*
 * @module service/quality/score_calculator_test
 * @description 维度评分计算器的单元测试
 * @architecture 单元测试 - 验证各评分算法的正确性和边界情况
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 测试数据准备 -> 算法计算 -> 结果验证
 * @rules 覆盖空结果集、罚分封顶、下限钳制等边界情况
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs score_calculator.go
 */

package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vms-quality-service/service/models"
)

func makeResults(severity, message string, count int) []models.ValidationResult {
	results := make([]models.ValidationResult, 0, count)
	for i := 0; i < count; i++ {
		results = append(results, models.ValidationResult{
			Severity: severity,
			Message:  message,
		})
	}
	return results
}

func TestScoreCalculator_AlgorithmFor(t *testing.T) {
	calculator := NewScoreCalculator(nil)

	tests := []struct {
		name           string
		validationType string
		expected       string
	}{
		{name: "字段完整性使用通过率算法", validationType: models.DimensionFieldCompleteness, expected: AlgorithmPercentage},
		{name: "关联完整性使用通过率算法", validationType: models.DimensionRelationships, expected: AlgorithmPercentage},
		{name: "数据类型使用罚分算法", validationType: models.DimensionDataTypes, expected: AlgorithmPenalty},
		{name: "业务规则使用严重级别加权算法", validationType: models.DimensionBusinessRules, expected: AlgorithmSeverityWeighted},
		{name: "未知维度回退到通过率算法", validationType: "custom_dimension", expected: AlgorithmPercentage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculator.AlgorithmFor(tt.validationType))
		})
	}
}

func TestScoreCalculator_EmptyResults(t *testing.T) {
	calculator := NewScoreCalculator(nil)

	// 所有维度的空结果集都返回0分
	for _, validationType := range StandardDimensions() {
		score := calculator.CalculateDimensionScore(validationType, nil, EntityVolunteer)
		assert.Equal(t, 0.0, score, "维度 %s 空结果集应返回0", validationType)
	}
}

func TestScoreCalculator_PercentageScore(t *testing.T) {
	calculator := NewScoreCalculator(nil)

	t.Run("纯通过率不含罚分", func(t *testing.T) {
		// 8条通过 + 2条失败，消息不触发命名罚分
		results := append(
			makeResults(models.SeverityInfo, "检查通过", 8),
			makeResults(models.SeverityError, "格式不符", 2)...,
		)
		score := calculator.CalculateDimensionScore(models.DimensionFieldCompleteness, results, EntityVolunteer)
		assert.InDelta(t, 80.0, score, 1e-9)
	})

	t.Run("必填字段缺失附加罚分", func(t *testing.T) {
		// 2条失败消息命中 required/missing，每条额外扣8分
		results := append(
			makeResults(models.SeverityInfo, "检查通过", 8),
			makeResults(models.SeverityError, "Required field email is missing", 2)...,
		)
		score := calculator.CalculateDimensionScore(models.DimensionFieldCompleteness, results, EntityVolunteer)
		assert.InDelta(t, 64.0, score, 1e-9)
	})

	t.Run("孤立记录附加罚分", func(t *testing.T) {
		results := append(
			makeResults(models.SeverityInfo, "关联有效", 8),
			makeResults(models.SeverityError, "orphaned record: organization not found", 2)...,
		)
		score := calculator.CalculateDimensionScore(models.DimensionRelationships, results, EntityVolunteer)
		assert.InDelta(t, 68.0, score, 1e-9)
	})

	t.Run("warning计为通过", func(t *testing.T) {
		results := append(
			makeResults(models.SeverityWarning, "字段值接近边界", 5),
			makeResults(models.SeverityInfo, "检查通过", 5)...,
		)
		score := calculator.CalculateDimensionScore(models.DimensionFieldCompleteness, results, EntityVolunteer)
		assert.InDelta(t, 100.0, score, 1e-9)
	})

	t.Run("罚分不会扣到负分", func(t *testing.T) {
		results := makeResults(models.SeverityCritical, "required field missing", 20)
		score := calculator.CalculateDimensionScore(models.DimensionFieldCompleteness, results, EntityVolunteer)
		assert.Equal(t, 0.0, score)
	})
}

func TestScoreCalculator_PenaltyScore(t *testing.T) {
	calculator := NewScoreCalculator(nil)

	t.Run("按严重级别权重扣分", func(t *testing.T) {
		// 3条error: 100 - 3×0.8×10 = 76
		results := append(
			makeResults(models.SeverityInfo, "类型正确", 5),
			makeResults(models.SeverityError, "类型不匹配", 3)...,
		)
		score := calculator.CalculateDimensionScore(models.DimensionDataTypes, results, EntityVolunteer)
		assert.InDelta(t, 76.0, score, 1e-9)
	})

	t.Run("罚分封顶", func(t *testing.T) {
		// 10条critical的总罚分100超过上限50，得分固定为50
		results := makeResults(models.SeverityCritical, "类型严重错误", 10)
		score := calculator.CalculateDimensionScore(models.DimensionDataTypes, results, EntityVolunteer)
		assert.InDelta(t, 50.0, score, 1e-9)
	})

	t.Run("全部通过得满分", func(t *testing.T) {
		results := makeResults(models.SeverityInfo, "类型正确", 10)
		score := calculator.CalculateDimensionScore(models.DimensionDataTypes, results, EntityVolunteer)
		assert.InDelta(t, 100.0, score, 1e-9)
	})
}

func TestScoreCalculator_SeverityWeightedScore(t *testing.T) {
	calculator := NewScoreCalculator(nil)

	t.Run("按严重级别倍数扣分", func(t *testing.T) {
		// 100 - 7×2.0 - 7×1.5 - 7×1.0 = 68.5，info不扣分
		results := []models.ValidationResult{
			{Severity: models.SeverityCritical, Message: "规则严重违反"},
			{Severity: models.SeverityError, Message: "规则违反"},
			{Severity: models.SeverityWarning, Message: "规则接近违反"},
			{Severity: models.SeverityInfo, Message: "规则通过"},
		}
		score := calculator.CalculateDimensionScore(models.DimensionBusinessRules, results, EntityVolunteer)
		assert.InDelta(t, 68.5, score, 1e-9)
	})

	t.Run("大量违规钳制到0", func(t *testing.T) {
		results := makeResults(models.SeverityCritical, "规则严重违反", 10)
		score := calculator.CalculateDimensionScore(models.DimensionBusinessRules, results, EntityVolunteer)
		assert.Equal(t, 0.0, score)
	})
}

func TestScoreCalculator_CalculateRecordScore(t *testing.T) {
	calculator := NewScoreCalculator(nil)

	tests := []struct {
		name     string
		critical int64
		errors   int64
		warnings int64
		expected float64
	}{
		{name: "无违规满分", critical: 0, errors: 0, warnings: 0, expected: 100.0},
		{name: "4条error扣20分", critical: 0, errors: 4, warnings: 0, expected: 80.0},
		{name: "混合违规线性累加", critical: 1, errors: 2, warnings: 3, expected: 74.0},
		{name: "下限为0", critical: 20, errors: 0, warnings: 0, expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := calculator.CalculateRecordScore(tt.critical, tt.errors, tt.warnings)
			assert.InDelta(t, tt.expected, score, 1e-9)
		})
	}
}

func TestScoreCalculator_GetScoreBreakdown(t *testing.T) {
	calculator := NewScoreCalculator(nil)

	t.Run("通过率算法列出消息子类型罚分", func(t *testing.T) {
		results := append(
			makeResults(models.SeverityInfo, "检查通过", 8),
			makeResults(models.SeverityError, "required field missing", 2)...,
		)
		breakdown := calculator.GetScoreBreakdown(models.DimensionFieldCompleteness, results, EntityVolunteer)

		assert.Equal(t, models.DimensionFieldCompleteness, breakdown["validation_type"])
		assert.Equal(t, AlgorithmPercentage, breakdown["algorithm"])
		assert.Equal(t, 10, breakdown["total_results"])

		histogram := breakdown["severity_histogram"].(map[string]int)
		assert.Equal(t, 8, histogram[models.SeverityInfo])
		assert.Equal(t, 2, histogram[models.SeverityError])

		penalties := breakdown["penalties_applied"].([]map[string]interface{})
		assert.Len(t, penalties, 2)
		assert.Equal(t, SubtypeMissingRequiredField, penalties[0]["subtype"])
		assert.InDelta(t, 8.0, penalties[0]["penalty"].(float64), 1e-9)

		// breakdown的分数与正式计算一致
		assert.InDelta(t, 64.0, breakdown["score"].(float64), 1e-9)
	})

	t.Run("罚分算法列出单条扣分额", func(t *testing.T) {
		results := append(
			makeResults(models.SeverityInfo, "类型正确", 5),
			makeResults(models.SeverityError, "类型不匹配", 3)...,
		)
		breakdown := calculator.GetScoreBreakdown(models.DimensionDataTypes, results, EntityVolunteer)

		assert.Equal(t, AlgorithmPenalty, breakdown["algorithm"])

		// 每条error扣 0.8×10 = 8 分，info不产生条目
		penalties := breakdown["penalties_applied"].([]map[string]interface{})
		assert.Len(t, penalties, 3)
		for _, entry := range penalties {
			assert.Equal(t, models.SeverityError, entry["severity"])
			assert.InDelta(t, 8.0, entry["penalty"].(float64), 1e-9)
		}
		assert.InDelta(t, 76.0, breakdown["score"].(float64), 1e-9)
	})

	t.Run("严重级别加权算法对warning也列出扣分", func(t *testing.T) {
		results := []models.ValidationResult{
			{Severity: models.SeverityCritical, Message: "规则严重违反"},
			{Severity: models.SeverityWarning, Message: "规则接近违反"},
			{Severity: models.SeverityInfo, Message: "规则通过"},
		}
		breakdown := calculator.GetScoreBreakdown(models.DimensionBusinessRules, results, EntityVolunteer)

		assert.Equal(t, AlgorithmSeverityWeighted, breakdown["algorithm"])

		// critical 7×2.0=14，warning 7×1.0=7，info无条目
		penalties := breakdown["penalties_applied"].([]map[string]interface{})
		assert.Len(t, penalties, 2)
		total := 0.0
		for _, entry := range penalties {
			total += entry["penalty"].(float64)
		}
		assert.InDelta(t, 21.0, total, 1e-9)
		assert.InDelta(t, 79.0, breakdown["score"].(float64), 1e-9)
	})
}
