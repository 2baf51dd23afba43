/*
 * @module service/history/history_service
 * @description 校验历史服务，将完成的校验运行转换为历史记录，支持幂等回填和保留期清理
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 加载运行结果 -> 按实体/维度分组 -> 计算违规统计和评分 -> 计算短期趋势 -> 单事务批量入库
 * @rules 同一运行的所有历史记录在一个事务内创建，任一失败整批回滚；回填按 run_id 幂等
 * @dependencies gorm.io/gorm, service/models, service/quality
 * @refs service/scheduler, api/controllers/history_controller.go
 */

package history

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"vms-quality-service/service/models"
	"vms-quality-service/service/quality"
)

// 短期趋势取用的既往记录条数
const trendLookback = 5

// 历史记录中提取的命名指标
var namedMetrics = map[string]string{
	"field_completeness":       "field_completeness_score",
	"data_type_accuracy":       "data_type_accuracy_score",
	"relationship_integrity":   "relationship_integrity_score",
	"business_rule_compliance": "business_rule_compliance_score",
}

// HistoryService 校验历史服务
type HistoryService struct {
	db         *gorm.DB
	calculator *quality.ScoreCalculator
	thresholds *quality.ThresholdManager
}

// NewHistoryService 创建校验历史服务实例
func NewHistoryService(db *gorm.DB, config *quality.ScoringConfig) *HistoryService {
	if config == nil {
		config = quality.DefaultScoringConfig()
	}
	return &HistoryService{
		db:         db,
		calculator: quality.NewScoreCalculator(config),
		thresholds: quality.NewThresholdManager(config),
	}
}

// CreateHistoryFromRun 由一次校验运行创建历史记录
// entityType 为空时自动发现运行结果中出现的全部实体类型，
// 每个 (entity_type, validation_type) 组合产生一条记录，整批单事务提交
func (s *HistoryService) CreateHistoryFromRun(runID, entityType string) (int, error) {
	var run models.ValidationRun
	if err := s.db.First(&run, "id = ?", runID).Error; err != nil {
		return 0, fmt.Errorf("加载校验运行失败: %w", err)
	}

	resultsQuery := s.db.Where("run_id = ?", runID)
	if entityType != "" {
		resultsQuery = resultsQuery.Where("entity_type = ?", entityType)
	}
	var results []models.ValidationResult
	if err := resultsQuery.Find(&results).Error; err != nil {
		return 0, fmt.Errorf("加载校验结果失败: %w", err)
	}
	if len(results) == 0 {
		slog.Info("运行无校验结果，跳过历史记录创建", "run_id", runID, "entity_type", entityType)
		return 0, nil
	}

	var metrics []models.ValidationMetric
	if err := s.db.Where("run_id = ?", runID).Find(&metrics).Error; err != nil {
		return 0, fmt.Errorf("加载校验指标失败: %w", err)
	}

	// 按 (entity_type, validation_type) 分组
	type groupKey struct {
		entityType     string
		validationType string
	}
	grouped := make(map[groupKey][]models.ValidationResult)
	for _, result := range results {
		key := groupKey{entityType: result.EntityType, validationType: result.ValidationType}
		grouped[key] = append(grouped[key], result)
	}

	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for key, groupResults := range grouped {
			record := s.buildHistoryRecord(tx, &run, key.entityType, key.validationType, groupResults, metrics)
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("创建历史记录失败 (%s/%s): %w", key.entityType, key.validationType, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("历史记录创建完成", "run_id", runID, "records", created)
	return created, nil
}

// buildHistoryRecord 构建单条历史记录
func (s *HistoryService) buildHistoryRecord(tx *gorm.DB, run *models.ValidationRun, entityType, validationType string, results []models.ValidationResult, metrics []models.ValidationMetric) *models.ValidationHistory {
	// info 级结果是通过项，不计入违规统计
	var critical, errors, warnings, passed int64
	for _, result := range results {
		switch result.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityError:
			errors++
		case models.SeverityWarning:
			warnings++
		}
		if result.Passed() {
			passed++
		}
	}

	total := int64(len(results))
	successRate := 0.0
	if total > 0 {
		successRate = float64(passed) / float64(total) * 100.0
	}

	record := &models.ValidationHistory{
		RunID:                run.ID,
		EntityType:           entityType,
		ValidationType:       validationType,
		QualityScore:         s.calculator.CalculateRecordScore(critical, errors, warnings),
		QualityThreshold:     s.thresholds.GetValidationTypeThreshold(entityType, validationType),
		CriticalViolations:   critical,
		ErrorViolations:      errors,
		WarningViolations:    warnings,
		InfoViolations:       0,
		TotalViolations:      critical + errors + warnings,
		TotalChecks:          total,
		PassedChecks:         passed,
		FailedChecks:         total - passed,
		SuccessRate:          successRate,
		ExecutionTimeSeconds: run.ExecutionTimeSeconds,
		MemoryUsageMB:        run.MemoryUsageMB,
		CPUUsagePercent:      run.CPUUsagePercent,
	}

	// 提取命名指标值，优先取当前实体的指标
	record.FieldCompletenessScore = s.extractMetric(metrics, "field_completeness", entityType)
	record.DataTypeAccuracyScore = s.extractMetric(metrics, "data_type_accuracy", entityType)
	record.RelationshipIntegrityScore = s.extractMetric(metrics, "relationship_integrity", entityType)
	record.BusinessRuleComplianceScore = s.extractMetric(metrics, "business_rule_compliance", entityType)

	s.attachTrend(tx, record)
	return record
}

// extractMetric 从运行的指标记录中提取命名指标值
func (s *HistoryService) extractMetric(metrics []models.ValidationMetric, metricName, entityType string) float64 {
	fallback := 0.0
	for _, metric := range metrics {
		if metric.MetricName != metricName {
			continue
		}
		if metric.EntityType == entityType {
			return metric.MetricValue
		}
		fallback = metric.MetricValue
	}
	return fallback
}

// attachTrend 基于最近既往记录计算创建时的短期趋势
// 少于2条既往记录时不设置趋势字段
func (s *HistoryService) attachTrend(tx *gorm.DB, record *models.ValidationHistory) {
	prior, err := models.GetEntityHistory(tx, record.EntityType, record.ValidationType, trendLookback)
	if err != nil {
		slog.Warn("查询既往历史记录失败，跳过趋势计算",
			"entity_type", record.EntityType, "validation_type", record.ValidationType, "error", err)
		return
	}
	if len(prior) < 2 {
		return
	}

	// 既往记录为倒序，转为正序后追加当前评分
	scores := make([]float64, 0, len(prior)+1)
	for i := len(prior) - 1; i >= 0; i-- {
		scores = append(scores, prior[i].QualityScore)
	}
	scores = append(scores, record.QualityScore)

	direction, _ := classifyShortTrend(scores)
	record.TrendDirection = direction
	record.TrendMagnitude = math.Min(math.Abs(scores[len(scores)-1]-scores[0]), 100.0)
	record.TrendConfidence = math.Min(1.0, float64(len(scores))/10.0)
}

// classifyShortTrend 首尾斜率加±0.1死区的短期趋势分类
func classifyShortTrend(scores []float64) (string, float64) {
	slope := (scores[len(scores)-1] - scores[0]) / float64(len(scores))
	switch {
	case slope > 0.1:
		return models.TrendImproving, slope
	case slope < -0.1:
		return models.TrendDeclining, slope
	default:
		return models.TrendStable, slope
	}
}

// PopulateHistoryFromRecentRuns 幂等回填时间窗口内已完成运行的历史记录
// 已存在任意历史记录的运行（按 run_id 判断）会被跳过，返回新建记录总数
func (s *HistoryService) PopulateHistoryFromRecentRuns(days int) (int, error) {
	since := time.Now().AddDate(0, 0, -days)

	var runs []models.ValidationRun
	err := s.db.Where("status = ? AND completed_at >= ?", models.RunStatusCompleted, since).
		Order("completed_at ASC").
		Find(&runs).Error
	if err != nil {
		return 0, fmt.Errorf("查询已完成运行失败: %w", err)
	}

	created := 0
	for _, run := range runs {
		var existing int64
		if err := s.db.Model(&models.ValidationHistory{}).Where("run_id = ?", run.ID).Count(&existing).Error; err != nil {
			return created, fmt.Errorf("检查历史记录存在性失败: %w", err)
		}
		if existing > 0 {
			continue
		}

		count, err := s.CreateHistoryFromRun(run.ID, "")
		if err != nil {
			// 单次运行失败不中断整体回填
			slog.Error("回填运行历史记录失败", "run_id", run.ID, "error", err)
			continue
		}
		created += count
	}

	return created, nil
}

// CleanupOldRecords 删除超过保留期的历史记录
func (s *HistoryService) CleanupOldRecords(retentionDays int) (int64, error) {
	deleted, err := models.CleanupOldRecords(s.db, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("清理历史记录失败: %w", err)
	}
	slog.Info("历史记录保留期清理完成", "retention_days", retentionDays, "deleted", deleted)
	return deleted, nil
}
