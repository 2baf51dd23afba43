/*
 * @module service/quality/weighting_engine_test
 * @description 评分权重引擎的单元测试
 * @architecture 单元测试 - 验证权重解析、归一化和加权计算
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 测试数据准备 -> 权重操作 -> 归一化验证
 * @rules 任何路径返回的实体权重之和必须为1.0
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs weighting_engine.go
 */

package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vms-quality-service/service/models"
)

func weightSum(weights map[string]float64) float64 {
	total := 0.0
	for _, weight := range weights {
		total += weight
	}
	return total
}

func TestWeightingEngine_GetEntityWeights(t *testing.T) {
	engine := NewWeightingEngine(nil)

	t.Run("已配置实体返回默认权重", func(t *testing.T) {
		weights := engine.GetEntityWeights(EntityVolunteer)
		assert.InDelta(t, 0.30, weights[models.DimensionFieldCompleteness], 1e-9)
		assert.InDelta(t, 0.20, weights[models.DimensionRelationships], 1e-9)
		assert.InDelta(t, 1.0, weightSum(weights), 1e-9)
	})

	t.Run("未知实体回退到default权重", func(t *testing.T) {
		weights := engine.GetEntityWeights("unknown_entity")
		for _, dimension := range StandardDimensions() {
			assert.InDelta(t, 0.25, weights[dimension], 1e-9)
		}
		assert.InDelta(t, 1.0, weightSum(weights), 1e-9)
	})

	t.Run("所有已知实体权重之和为1", func(t *testing.T) {
		entities := []string{
			EntityVolunteer, EntityOrganization, EntityEvent,
			EntityStudent, EntityTeacher, EntitySchool, EntityDistrict,
		}
		for _, entityType := range entities {
			assert.InDelta(t, 1.0, weightSum(engine.GetEntityWeights(entityType)), 1e-9, entityType)
		}
	})
}

func TestWeightingEngine_SetEntityWeightOverride(t *testing.T) {
	t.Run("非归一化输入自动归一化", func(t *testing.T) {
		engine := NewWeightingEngine(nil)
		engine.SetEntityWeightOverride(EntityVolunteer, map[string]float64{
			models.DimensionFieldCompleteness: 2.0,
			models.DimensionDataTypes:         1.0,
			models.DimensionBusinessRules:     1.0,
		})

		weights := engine.GetEntityWeights(EntityVolunteer)
		assert.InDelta(t, 0.5, weights[models.DimensionFieldCompleteness], 1e-9)
		assert.InDelta(t, 0.25, weights[models.DimensionDataTypes], 1e-9)
		assert.InDelta(t, 1.0, weightSum(weights), 1e-9)
	})

	t.Run("无历史覆盖时负权重回退到等权默认", func(t *testing.T) {
		engine := NewWeightingEngine(nil)
		engine.SetEntityWeightOverride(EntityVolunteer, map[string]float64{
			models.DimensionFieldCompleteness: -1.0,
			models.DimensionDataTypes:         2.0,
		})

		weights := engine.GetEntityWeights(EntityVolunteer)
		for _, dimension := range StandardDimensions() {
			assert.InDelta(t, 0.25, weights[dimension], 1e-9)
		}
	})

	t.Run("权重和为0回退到等权默认", func(t *testing.T) {
		engine := NewWeightingEngine(nil)
		engine.SetEntityWeightOverride(EntityVolunteer, map[string]float64{
			models.DimensionFieldCompleteness: 0.0,
			models.DimensionDataTypes:         0.0,
		})

		weights := engine.GetEntityWeights(EntityVolunteer)
		assert.InDelta(t, 1.0, weightSum(weights), 1e-9)
		assert.InDelta(t, 0.25, weights[models.DimensionBusinessRules], 1e-9)
	})

	t.Run("非法输入保留上一次有效覆盖", func(t *testing.T) {
		engine := NewWeightingEngine(nil)
		engine.SetEntityWeightOverride(EntityVolunteer, map[string]float64{
			models.DimensionFieldCompleteness: 3.0,
			models.DimensionDataTypes:         1.0,
		})
		engine.SetEntityWeightOverride(EntityVolunteer, map[string]float64{
			models.DimensionFieldCompleteness: -1.0,
		})

		weights := engine.GetEntityWeights(EntityVolunteer)
		assert.InDelta(t, 0.75, weights[models.DimensionFieldCompleteness], 1e-9)
		assert.InDelta(t, 0.25, weights[models.DimensionDataTypes], 1e-9)
		assert.InDelta(t, 1.0, weightSum(weights), 1e-9)
	})

	t.Run("重置后恢复默认权重", func(t *testing.T) {
		engine := NewWeightingEngine(nil)
		engine.SetEntityWeightOverride(EntityVolunteer, map[string]float64{
			models.DimensionFieldCompleteness: 1.0,
		})
		engine.ResetOverrides()

		weights := engine.GetEntityWeights(EntityVolunteer)
		assert.InDelta(t, 0.30, weights[models.DimensionFieldCompleteness], 1e-9)
	})
}

func TestWeightingEngine_GetValidationTypeWeight(t *testing.T) {
	engine := NewWeightingEngine(nil)

	t.Run("默认取实体内权重", func(t *testing.T) {
		weight := engine.GetValidationTypeWeight(EntityVolunteer, models.DimensionFieldCompleteness)
		assert.InDelta(t, 0.30, weight, 1e-9)
	})

	t.Run("维度覆盖优先于实体权重", func(t *testing.T) {
		engine.SetValidationTypeOverride(models.DimensionFieldCompleteness, 0.6)
		weight := engine.GetValidationTypeWeight(EntityVolunteer, models.DimensionFieldCompleteness)
		assert.InDelta(t, 0.6, weight, 1e-9)
		engine.ResetOverrides()
	})

	t.Run("负覆盖被忽略", func(t *testing.T) {
		engine.SetValidationTypeOverride(models.DimensionDataTypes, -0.5)
		weight := engine.GetValidationTypeWeight(EntityVolunteer, models.DimensionDataTypes)
		assert.InDelta(t, 0.25, weight, 1e-9)
	})

	t.Run("未知维度返回1", func(t *testing.T) {
		weight := engine.GetValidationTypeWeight(EntityVolunteer, "custom_dimension")
		assert.Equal(t, 1.0, weight)
	})
}

func TestWeightingEngine_GetSeverityWeight(t *testing.T) {
	engine := NewWeightingEngine(nil)

	assert.Equal(t, 1.0, engine.GetSeverityWeight(models.SeverityCritical))
	assert.Equal(t, 0.8, engine.GetSeverityWeight(models.SeverityError))
	assert.Equal(t, 0.5, engine.GetSeverityWeight(models.SeverityWarning))
	assert.Equal(t, 0.2, engine.GetSeverityWeight(models.SeverityInfo))
	assert.Equal(t, 1.0, engine.GetSeverityWeight("unknown"))
}

func TestWeightingEngine_CalculateWeightedScore(t *testing.T) {
	engine := NewWeightingEngine(nil)

	t.Run("等分输入输出不变", func(t *testing.T) {
		scores := map[string]float64{
			models.DimensionFieldCompleteness: 90.0,
			models.DimensionDataTypes:         90.0,
			models.DimensionBusinessRules:     90.0,
			models.DimensionRelationships:     90.0,
		}
		assert.InDelta(t, 90.0, engine.CalculateWeightedScore(scores, EntityVolunteer, nil), 1e-9)
	})

	t.Run("按实体权重加权", func(t *testing.T) {
		scores := map[string]float64{
			models.DimensionFieldCompleteness: 100.0,
			models.DimensionDataTypes:         80.0,
			models.DimensionBusinessRules:     60.0,
			models.DimensionRelationships:     40.0,
		}
		// volunteer: 0.30×100 + 0.25×80 + 0.25×60 + 0.20×40 = 73
		assert.InDelta(t, 73.0, engine.CalculateWeightedScore(scores, EntityVolunteer, nil), 1e-9)
	})

	t.Run("限定维度子集", func(t *testing.T) {
		scores := map[string]float64{
			models.DimensionFieldCompleteness: 100.0,
			models.DimensionDataTypes:         0.0,
		}
		subset := []string{models.DimensionFieldCompleteness}
		assert.InDelta(t, 100.0, engine.CalculateWeightedScore(scores, EntityVolunteer, subset), 1e-9)
	})

	t.Run("空分数返回0", func(t *testing.T) {
		assert.Equal(t, 0.0, engine.CalculateWeightedScore(nil, EntityVolunteer, nil))
	})

	t.Run("子集不命中任何分数返回0", func(t *testing.T) {
		scores := map[string]float64{models.DimensionFieldCompleteness: 90.0}
		subset := []string{models.DimensionDataTypes}
		assert.Equal(t, 0.0, engine.CalculateWeightedScore(scores, EntityVolunteer, subset))
	})
}
