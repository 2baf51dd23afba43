/*
 * @module service/quality/scoring_service
 * @description 质量评分服务，编排维度评分、权重合成、阈值分档和趋势上下文，产出单实体和跨实体质量报告
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 拉取校验结果 -> 按维度分组评分 -> 加权合成 -> 阈值分档 -> 附加趋势
 * @rules 无数据返回带message的哨兵结果而非错误，异常在方法边界转为error键，跨实体报告按实体隔离失败
 * @dependencies gorm.io/gorm, github.com/prometheus/client_golang
 * @refs service/quality/score_calculator.go, service/quality/weighting_engine.go, service/quality/threshold_manager.go
 */

package quality

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"vms-quality-service/service/models"
)

var scoringRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quality_scoring_runs_total",
	Help: "按实体类型和结果统计的质量评分调用次数",
}, []string{"entity_type", "outcome"})

// 趋势上下文取用的历史记录条数上限
const trendHistoryLimit = 10

// ScoringService 质量评分服务
type ScoringService struct {
	db         *gorm.DB
	calculator *ScoreCalculator
	weighting  *WeightingEngine
	thresholds *ThresholdManager
}

// NewScoringService 创建质量评分服务实例
func NewScoringService(db *gorm.DB, config *ScoringConfig) *ScoringService {
	if config == nil {
		config = DefaultScoringConfig()
	}
	return &ScoringService{
		db:         db,
		calculator: NewScoreCalculator(config),
		weighting:  NewWeightingEngine(config),
		thresholds: NewThresholdManager(config),
	}
}

// Calculator 返回维度评分计算器
func (s *ScoringService) Calculator() *ScoreCalculator {
	return s.calculator
}

// Weighting 返回权重引擎
func (s *ScoringService) Weighting() *WeightingEngine {
	return s.weighting
}

// Thresholds 返回阈值管理器
func (s *ScoringService) Thresholds() *ThresholdManager {
	return s.thresholds
}

// CalculateEntityQualityScore 计算单个实体类型的综合质量评分
// runID 非空时只评该次运行，否则评时间窗口内所有已完成运行；
// 调用方通过结果中的 error 键判断失败，方法不抛出错误
func (s *ScoringService) CalculateEntityQualityScore(entityType, runID string, days int, includeDetails bool) map[string]interface{} {
	result, err := s.scoreEntity(entityType, runID, days, includeDetails)
	if err != nil {
		slog.Error("计算实体质量评分失败", "entity_type", entityType, "run_id", runID, "error", err)
		scoringRunsTotal.WithLabelValues(entityType, "error").Inc()
		return map[string]interface{}{
			"entity_type": entityType,
			"error":       err.Error(),
		}
	}
	scoringRunsTotal.WithLabelValues(entityType, "success").Inc()
	return result
}

func (s *ScoringService) scoreEntity(entityType, runID string, days int, includeDetails bool) (map[string]interface{}, error) {
	results, err := s.fetchResults(entityType, runID, days)
	if err != nil {
		return nil, fmt.Errorf("查询校验结果失败: %w", err)
	}

	if len(results) == 0 {
		return map[string]interface{}{
			"entity_type":   entityType,
			"quality_score": 0.0,
			"message":       "No validation results found",
		}, nil
	}

	// 按维度分组计算
	grouped := make(map[string][]models.ValidationResult)
	for _, result := range results {
		grouped[result.ValidationType] = append(grouped[result.ValidationType], result)
	}

	dimensionScores := make(map[string]float64, len(grouped))
	for validationType, dimensionResults := range grouped {
		dimensionScores[validationType] = s.calculator.CalculateDimensionScore(validationType, dimensionResults, entityType)
	}

	compositeScore := s.weighting.CalculateWeightedScore(dimensionScores, entityType, nil)

	passed := int64(0)
	for _, result := range results {
		if result.Passed() {
			passed++
		}
	}
	total := int64(len(results))

	report := map[string]interface{}{
		"entity_type":      entityType,
		"quality_score":    compositeScore,
		"quality_status":   s.thresholds.GetQualityStatus(compositeScore, entityType),
		"threshold":        s.thresholds.GetEntityThreshold(entityType),
		"dimension_scores": dimensionScores,
		"total_checks":     total,
		"passed_checks":    passed,
		"failed_checks":    total - passed,
		"calculated_at":    time.Now().Format(time.RFC3339),
	}
	if runID != "" {
		report["run_id"] = runID
	}

	if includeDetails {
		breakdowns := make(map[string]interface{}, len(grouped))
		for validationType, dimensionResults := range grouped {
			breakdowns[validationType] = s.calculator.GetScoreBreakdown(validationType, dimensionResults, entityType)
		}
		report["dimension_breakdowns"] = breakdowns
	}

	// 指定运行的评分不附加趋势，历史趋势只对时间窗口评分有意义
	if runID == "" {
		trend, err := s.entityTrend(entityType)
		if err != nil {
			return nil, fmt.Errorf("计算质量趋势失败: %w", err)
		}
		report["trend"] = trend
	}

	return report, nil
}

// fetchResults 拉取校验结果
// runID 非空时取该次运行，否则取时间窗口内所有已完成运行
func (s *ScoringService) fetchResults(entityType, runID string, days int) ([]models.ValidationResult, error) {
	var results []models.ValidationResult

	query := s.db.Where("entity_type = ?", entityType)
	if runID != "" {
		query = query.Where("run_id = ?", runID)
	} else {
		since := time.Now().AddDate(0, 0, -days)
		query = query.Where("run_id IN (?)",
			s.db.Model(&models.ValidationRun{}).
				Select("id").
				Where("status = ? AND completed_at >= ?", models.RunStatusCompleted, since))
	}

	err := query.Find(&results).Error
	return results, err
}

// entityTrend 基于历史记录计算质量趋势上下文
func (s *ScoringService) entityTrend(entityType string) (map[string]interface{}, error) {
	records, err := models.GetEntityHistory(s.db, entityType, "", trendHistoryLimit)
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return map[string]interface{}{
			"direction":   "insufficient_data",
			"data_points": len(records),
		}, nil
	}

	// 历史查询为倒序，按时间正序取分数序列
	scores := make([]float64, len(records))
	for i, record := range records {
		scores[len(records)-1-i] = record.QualityScore
	}

	direction, slope := classifyTrend(scores, 0.1)
	return map[string]interface{}{
		"direction":   direction,
		"slope":       slope,
		"data_points": len(scores),
	}, nil
}

// classifyTrend 首尾斜率加死区的趋势分类
// slope = (last-first)/count，|slope| 低于死区视为稳定
func classifyTrend(scores []float64, deadBand float64) (string, float64) {
	if len(scores) < 2 {
		return "insufficient_data", 0.0
	}

	slope := (scores[len(scores)-1] - scores[0]) / float64(len(scores))
	switch {
	case slope > deadBand:
		return models.TrendImproving, slope
	case slope < -deadBand:
		return models.TrendDeclining, slope
	default:
		return models.TrendStable, slope
	}
}

// CalculateComprehensiveQualityReport 生成跨实体综合质量报告
// 单个实体评分失败不影响其它实体，失败实体的槽位包含 error 键并被排除在汇总统计之外
func (s *ScoringService) CalculateComprehensiveQualityReport(entityTypes []string, days int, includeTrends bool) map[string]interface{} {
	if len(entityTypes) == 0 {
		entityTypes = []string{
			EntityVolunteer, EntityOrganization, EntityEvent,
			EntityStudent, EntityTeacher, EntitySchool, EntityDistrict,
		}
	}

	entityScores := make(map[string]interface{}, len(entityTypes))
	for _, entityType := range entityTypes {
		entityScores[entityType] = s.CalculateEntityQualityScore(entityType, "", days, false)
	}

	report := map[string]interface{}{
		"entity_scores":   entityScores,
		"overall_summary": s.buildOverallSummary(entityScores),
		"period_days":     days,
		"generated_at":    time.Now().Format(time.RFC3339),
	}

	if includeTrends {
		trends := make(map[string]interface{}, len(entityScores))
		for entityType, raw := range entityScores {
			if score, ok := raw.(map[string]interface{}); ok {
				if trend, ok := score["trend"]; ok {
					trends[entityType] = trend
				}
			}
		}
		report["trends"] = trends
	}

	return report
}

// buildOverallSummary 从各实体评分汇总整体统计，跳过含 error 键的条目
func (s *ScoringService) buildOverallSummary(entityScores map[string]interface{}) map[string]interface{} {
	type scored struct {
		entityType string
		score      float64
		status     string
	}

	valid := make([]scored, 0, len(entityScores))
	distribution := map[string]int{
		StatusExcellent: 0,
		StatusGood:      0,
		StatusFair:      0,
		StatusPoor:      0,
	}

	for entityType, raw := range entityScores {
		score, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if _, failed := score["error"]; failed {
			continue
		}

		value, ok := score["quality_score"].(float64)
		if !ok {
			continue
		}
		status, _ := score["quality_status"].(string)
		if status == "" {
			status = s.thresholds.GetQualityStatus(value, entityType)
		}

		valid = append(valid, scored{entityType: entityType, score: value, status: status})
		distribution[status]++
	}

	summary := map[string]interface{}{
		"quality_distribution":      distribution,
		"entities_scored":           len(valid),
		"average_quality_score":     0.0,
		"top_performers":            []map[string]interface{}{},
		"improvement_opportunities": []map[string]interface{}{},
	}
	if len(valid) == 0 {
		return summary
	}

	total := 0.0
	for _, entry := range valid {
		total += entry.score
	}
	summary["average_quality_score"] = total / float64(len(valid))

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].score > valid[j].score
	})

	topCount := 3
	if len(valid) < topCount {
		topCount = len(valid)
	}
	topPerformers := make([]map[string]interface{}, 0, topCount)
	for _, entry := range valid[:topCount] {
		topPerformers = append(topPerformers, map[string]interface{}{
			"entity_type":    entry.entityType,
			"quality_score":  entry.score,
			"quality_status": entry.status,
		})
	}
	summary["top_performers"] = topPerformers

	opportunities := make([]map[string]interface{}, 0)
	for _, entry := range valid {
		if entry.score >= 80.0 {
			continue
		}
		priority := "medium"
		if entry.score < 60.0 {
			priority = "high"
		}
		opportunities = append(opportunities, map[string]interface{}{
			"entity_type":   entry.entityType,
			"quality_score": entry.score,
			"priority":      priority,
		})
	}
	summary["improvement_opportunities"] = opportunities

	return summary
}
