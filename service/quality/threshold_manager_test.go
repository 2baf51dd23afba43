/*
 * @module service/quality/threshold_manager_test
 * @description 质量阈值管理器的单元测试
 * @architecture 单元测试 - 验证阈值解析、动态调整和等级分档
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 测试数据准备 -> 阈值解析 -> 分档边界验证
 * @rules 实体阈值始终在[50,95]区间内，维度阈值在[50,100]区间内
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs threshold_manager.go
 */

package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vms-quality-service/service/models"
)

func TestThresholdManager_GetEntityThreshold(t *testing.T) {
	t.Run("关闭动态调整时返回配置默认值", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)

		assert.Equal(t, 75.0, manager.GetEntityThreshold(EntityVolunteer))
		assert.Equal(t, 80.0, manager.GetEntityThreshold(EntityOrganization))
		assert.Equal(t, 82.0, manager.GetEntityThreshold(EntityDistrict))
	})

	t.Run("未知实体回退到全局兜底", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)

		assert.Equal(t, 75.0, manager.GetEntityThreshold("unknown_entity"))
	})

	t.Run("动态调整按因子权重加和", func(t *testing.T) {
		manager := NewThresholdManager(nil)

		// volunteer: 75 + (1×0.5 + 1×1.0 + 1×0.5 + 1×1.0) = 78
		assert.InDelta(t, 78.0, manager.GetEntityThreshold(EntityVolunteer), 1e-9)
		// organization: 80 + (1×0.5 + 3×1.0 + 1×0.5 + 3×1.0) = 87
		assert.InDelta(t, 87.0, manager.GetEntityThreshold(EntityOrganization), 1e-9)
		// event: 70 + (0×0.5 - 1×1.0 + 2×0.5 + 0×1.0) = 70
		assert.InDelta(t, 70.0, manager.GetEntityThreshold(EntityEvent), 1e-9)
	})

	t.Run("覆盖优先于配置默认", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)
		manager.SetEntityThresholdOverride(EntityVolunteer, 85.0)

		assert.Equal(t, 85.0, manager.GetEntityThreshold(EntityVolunteer))
	})

	t.Run("最终值钳制到区间上限95", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetEntityThresholdOverride(EntityOrganization, 97.0)

		// 97 + 动态调整7 = 104，钳制到95
		assert.Equal(t, 95.0, manager.GetEntityThreshold(EntityOrganization))
	})

	t.Run("最终值钳制到区间下限50", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)
		manager.SetEntityThresholdOverride(EntityVolunteer, 10.0)

		assert.Equal(t, 50.0, manager.GetEntityThreshold(EntityVolunteer))
	})

	t.Run("非法覆盖被忽略", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)
		manager.SetEntityThresholdOverride(EntityVolunteer, 150.0)
		manager.SetEntityThresholdOverride(EntityVolunteer, -5.0)

		assert.Equal(t, 75.0, manager.GetEntityThreshold(EntityVolunteer))
	})

	t.Run("重置后恢复配置默认", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)
		manager.SetEntityThresholdOverride(EntityVolunteer, 90.0)
		manager.ResetOverrides()

		assert.Equal(t, 75.0, manager.GetEntityThreshold(EntityVolunteer))
	})
}

func TestThresholdManager_GetValidationTypeThreshold(t *testing.T) {
	t.Run("实体阈值乘以维度重要性系数", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)

		// volunteer 75 × business_rules 1.2 = 90
		assert.InDelta(t, 90.0, manager.GetValidationTypeThreshold(EntityVolunteer, models.DimensionBusinessRules), 1e-9)
		// volunteer 75 × relationships 0.9 = 67.5，低于下限50才钳制
		assert.InDelta(t, 67.5, manager.GetValidationTypeThreshold(EntityVolunteer, models.DimensionRelationships), 1e-9)
	})

	t.Run("维度覆盖优先于系数计算", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetValidationTypeThreshold(models.DimensionBusinessRules, 88.0)

		assert.Equal(t, 88.0, manager.GetValidationTypeThreshold(EntityVolunteer, models.DimensionBusinessRules))
	})

	t.Run("维度覆盖低于50时钳制到下限", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetValidationTypeThreshold(models.DimensionDataTypes, 30.0)

		assert.Equal(t, 50.0, manager.GetValidationTypeThreshold(EntityVolunteer, models.DimensionDataTypes))
	})

	t.Run("系数乘积超过100时钳制", func(t *testing.T) {
		manager := NewThresholdManager(nil)

		// district: (82+动态调整4.5)=86.5，86.5×1.2=103.8，钳制到100
		assert.Equal(t, 100.0, manager.GetValidationTypeThreshold(EntityDistrict, models.DimensionBusinessRules))
	})

	t.Run("未知维度系数为1", func(t *testing.T) {
		manager := NewThresholdManager(nil)
		manager.SetDynamicAdjustment(false)

		assert.Equal(t, 75.0, manager.GetValidationTypeThreshold(EntityVolunteer, "custom_dimension"))
	})
}

func TestThresholdManager_GetQualityStatus(t *testing.T) {
	manager := NewThresholdManager(nil)

	tests := []struct {
		name     string
		score    float64
		expected string
	}{
		{name: "90分为excellent", score: 90.0, expected: StatusExcellent},
		{name: "89.9分为good", score: 89.9, expected: StatusGood},
		{name: "80分为good", score: 80.0, expected: StatusGood},
		{name: "79.9分为fair", score: 79.9, expected: StatusFair},
		{name: "70分为fair", score: 70.0, expected: StatusFair},
		{name: "69.9分为poor", score: 69.9, expected: StatusPoor},
		{name: "0分为poor", score: 0.0, expected: StatusPoor},
		{name: "100分为excellent", score: 100.0, expected: StatusExcellent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, manager.GetQualityStatus(tt.score, EntityVolunteer))
		})
	}

	// 分档边界与实体类型无关
	assert.Equal(t, manager.GetQualityStatus(85.0, EntityVolunteer), manager.GetQualityStatus(85.0, EntityDistrict))
}
