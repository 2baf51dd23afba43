/*
 * @module service/quality/scoring_service_test
 * @description 质量评分服务的单元测试
 * @architecture 单元测试 - 基于内存数据库验证评分编排逻辑
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 测试数据准备 -> 评分计算 -> 报告结构验证
 * @rules 无数据返回哨兵结果，跨实体报告按实体隔离失败
 * @dependencies testing, github.com/stretchr/testify/assert, testutil
 * @refs scoring_service.go
 */

package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vms-quality-service/service/models"
	"vms-quality-service/testutil"
)

func TestScoringService_NoValidationResults(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := NewScoringService(tdb.DB, nil)
	result := service.CalculateEntityQualityScore(EntityVolunteer, "", 7, false)

	assert.Equal(t, EntityVolunteer, result["entity_type"])
	assert.Equal(t, 0.0, result["quality_score"])
	assert.Equal(t, "No validation results found", result["message"])
	assert.NotContains(t, result, "error")
}

func TestScoringService_ScoreSingleRun(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	run := factory.CreateValidationRun()
	factory.CreateValidationResults(run.ID, 8, func(r *models.ValidationResult) {
		r.Severity = models.SeverityInfo
		r.Message = "检查通过"
	})
	factory.CreateValidationResults(run.ID, 2, func(r *models.ValidationResult) {
		r.Severity = models.SeverityError
		r.Message = "格式不符"
	})

	service := NewScoringService(tdb.DB, nil)
	result := service.CalculateEntityQualityScore(EntityVolunteer, run.ID, 7, false)

	// 单维度下综合分等于维度分: 8/10通过率 = 80
	assert.InDelta(t, 80.0, result["quality_score"].(float64), 1e-9)
	assert.Equal(t, StatusGood, result["quality_status"])
	assert.Equal(t, run.ID, result["run_id"])
	assert.Equal(t, int64(10), result["total_checks"])
	assert.Equal(t, int64(8), result["passed_checks"])
	assert.Equal(t, int64(2), result["failed_checks"])

	dimensionScores := result["dimension_scores"].(map[string]float64)
	assert.InDelta(t, 80.0, dimensionScores[models.DimensionFieldCompleteness], 1e-9)

	// 指定运行的评分不包含趋势块
	assert.NotContains(t, result, "trend")
}

func TestScoringService_ScoreWindowIncludesTrend(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	run := factory.CreateValidationRun()
	factory.CreateValidationResults(run.ID, 5, func(r *models.ValidationResult) {
		r.Severity = models.SeverityInfo
	})

	service := NewScoringService(tdb.DB, nil)
	result := service.CalculateEntityQualityScore(EntityVolunteer, "", 7, false)

	// 历史记录不足2条时趋势为insufficient_data
	trend := result["trend"].(map[string]interface{})
	assert.Equal(t, "insufficient_data", trend["direction"])
}

func TestScoringService_TrendFromHistory(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	run := factory.CreateValidationRun()
	factory.CreateValidationResults(run.ID, 5, func(r *models.ValidationResult) {
		r.Severity = models.SeverityInfo
	})

	// 按时间正序递增的历史评分
	base := time.Now().Add(-3 * time.Hour)
	for i, score := range []float64{70.0, 80.0, 90.0} {
		createdAt := base.Add(time.Duration(i) * time.Hour)
		value := score
		factory.CreateValidationHistory(func(h *models.ValidationHistory) {
			h.QualityScore = value
			h.CreatedAt = createdAt
		})
	}

	service := NewScoringService(tdb.DB, nil)
	result := service.CalculateEntityQualityScore(EntityVolunteer, "", 7, false)

	trend := result["trend"].(map[string]interface{})
	assert.Equal(t, models.TrendImproving, trend["direction"])
	assert.Equal(t, 3, trend["data_points"])
	// slope = (90-70)/3
	assert.InDelta(t, 20.0/3.0, trend["slope"].(float64), 1e-9)
}

func TestScoringService_IncludeDetails(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	run := factory.CreateValidationRun()
	factory.CreateValidationResults(run.ID, 4, func(r *models.ValidationResult) {
		r.Severity = models.SeverityInfo
	})

	service := NewScoringService(tdb.DB, nil)
	result := service.CalculateEntityQualityScore(EntityVolunteer, run.ID, 7, true)

	breakdowns := result["dimension_breakdowns"].(map[string]interface{})
	assert.Contains(t, breakdowns, models.DimensionFieldCompleteness)
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		expected string
	}{
		{name: "死区内视为稳定", scores: []float64{70.0, 70.05}, expected: models.TrendStable},
		{name: "明显上升为改善", scores: []float64{70.0, 73.0}, expected: models.TrendImproving},
		{name: "明显下降为恶化", scores: []float64{73.0, 70.0}, expected: models.TrendDeclining},
		{name: "单点数据不足", scores: []float64{70.0}, expected: "insufficient_data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direction, _ := classifyTrend(tt.scores, 0.1)
			assert.Equal(t, tt.expected, direction)
		})
	}
}

func TestScoringService_ComprehensiveReport(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	run := factory.CreateValidationRun()
	// volunteer 全部通过，student 一半失败
	factory.CreateValidationResults(run.ID, 10, func(r *models.ValidationResult) {
		r.EntityType = EntityVolunteer
		r.Severity = models.SeverityInfo
	})
	factory.CreateValidationResults(run.ID, 5, func(r *models.ValidationResult) {
		r.EntityType = EntityStudent
		r.Severity = models.SeverityInfo
	})
	factory.CreateValidationResults(run.ID, 5, func(r *models.ValidationResult) {
		r.EntityType = EntityStudent
		r.Severity = models.SeverityError
		r.Message = "格式不符"
	})

	service := NewScoringService(tdb.DB, nil)
	report := service.CalculateComprehensiveQualityReport([]string{EntityVolunteer, EntityStudent}, 7, false)

	entityScores := report["entity_scores"].(map[string]interface{})
	assert.Len(t, entityScores, 2)

	volunteerScore := entityScores[EntityVolunteer].(map[string]interface{})
	studentScore := entityScores[EntityStudent].(map[string]interface{})
	assert.InDelta(t, 100.0, volunteerScore["quality_score"].(float64), 1e-9)
	assert.InDelta(t, 50.0, studentScore["quality_score"].(float64), 1e-9)

	summary := report["overall_summary"].(map[string]interface{})
	assert.Equal(t, 2, summary["entities_scored"])
	assert.InDelta(t, 75.0, summary["average_quality_score"].(float64), 1e-9)

	distribution := summary["quality_distribution"].(map[string]int)
	assert.Equal(t, 1, distribution[StatusExcellent])
	assert.Equal(t, 1, distribution[StatusPoor])

	// student低于80分进入改进机会列表，低于60为高优先级
	opportunities := summary["improvement_opportunities"].([]map[string]interface{})
	assert.Len(t, opportunities, 1)
	assert.Equal(t, EntityStudent, opportunities[0]["entity_type"])
	assert.Equal(t, "high", opportunities[0]["priority"])

	topPerformers := summary["top_performers"].([]map[string]interface{})
	assert.Equal(t, EntityVolunteer, topPerformers[0]["entity_type"])
}

func TestScoringService_SummaryExcludesFailedEntities(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := NewScoringService(tdb.DB, nil)

	// 评分失败的实体槽位只含error键，汇总统计必须只来自评分成功的实体
	entityScores := map[string]interface{}{
		EntityVolunteer: map[string]interface{}{
			"entity_type":    EntityVolunteer,
			"quality_score":  92.0,
			"quality_status": StatusExcellent,
		},
		EntityOrganization: map[string]interface{}{
			"entity_type": EntityOrganization,
			"error":       "查询校验结果失败: connection refused",
		},
	}

	summary := service.buildOverallSummary(entityScores)

	assert.Equal(t, 1, summary["entities_scored"])
	assert.InDelta(t, 92.0, summary["average_quality_score"].(float64), 1e-9)

	distribution := summary["quality_distribution"].(map[string]int)
	assert.Equal(t, 1, distribution[StatusExcellent])
	assert.Equal(t, 0, distribution[StatusPoor])

	// 失败实体不进入排行和改进机会
	topPerformers := summary["top_performers"].([]map[string]interface{})
	assert.Len(t, topPerformers, 1)
	assert.Equal(t, EntityVolunteer, topPerformers[0]["entity_type"])
	assert.Empty(t, summary["improvement_opportunities"])
}

func TestScoringService_ComprehensiveReportDefaultEntities(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	service := NewScoringService(tdb.DB, nil)
	report := service.CalculateComprehensiveQualityReport(nil, 7, false)

	// 缺省覆盖全部七个实体类型
	entityScores := report["entity_scores"].(map[string]interface{})
	assert.Len(t, entityScores, 7)
	assert.Contains(t, entityScores, EntityVolunteer)
	assert.Contains(t, entityScores, EntityDistrict)
}
