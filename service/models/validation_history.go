/*
 * @module service/models/validation_history
 * @description 校验历史记录模型，持久化每次校验运行在单个实体类型维度上的质量结果
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 历史服务创建 -> 评分服务/看板读取 -> 保留期清理删除
 * @rules 每条记录对应一个 (run_id, entity_type, validation_type) 组合，创建后不可变，仅允许批量保留期删除
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/history, service/quality
 */

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 趋势方向
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// ValidationHistory 校验历史记录模型
// quality_status 相对于记录自身的 quality_threshold 分类（达标状态），
// 与 ThresholdManager 的固定分档（绝对等级）是两个不同概念
type ValidationHistory struct {
	ID                          string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	RunID                       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_history_run_entity_type" json:"run_id"`
	EntityType                  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_history_run_entity_type;index" json:"entity_type"`
	ValidationType              string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_history_run_entity_type;index" json:"validation_type"`
	QualityScore                float64   `json:"quality_score"` // 质量评分 (0-100)
	QualityThreshold            float64   `json:"quality_threshold"`
	CriticalViolations          int64     `json:"critical_violations"`
	ErrorViolations             int64     `json:"error_violations"`
	WarningViolations           int64     `json:"warning_violations"`
	InfoViolations              int64     `json:"info_violations"`
	TotalViolations             int64     `json:"total_violations"`
	TotalChecks                 int64     `json:"total_checks"`
	PassedChecks                int64     `json:"passed_checks"`
	FailedChecks                int64     `json:"failed_checks"`
	SuccessRate                 float64   `json:"success_rate"` // 通过率 (0-100)
	ExecutionTimeSeconds        float64   `json:"execution_time_seconds"`
	MemoryUsageMB               float64   `json:"memory_usage_mb"`
	CPUUsagePercent             float64   `json:"cpu_usage_percent"`
	FieldCompletenessScore      float64   `json:"field_completeness_score"`
	DataTypeAccuracyScore       float64   `json:"data_type_accuracy_score"`
	RelationshipIntegrityScore  float64   `json:"relationship_integrity_score"`
	BusinessRuleComplianceScore float64   `json:"business_rule_compliance_score"`
	TrendDirection              string    `gorm:"type:varchar(20)" json:"trend_direction,omitempty"` // improving, declining, stable
	TrendMagnitude              float64   `json:"trend_magnitude"`
	TrendConfidence             float64   `json:"trend_confidence"`
	IsAnomaly                   int       `gorm:"default:0;index" json:"is_anomaly"` // 0/1, 由聚合链路或外部流程回填
	Details                     JSONB     `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt                   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ValidationHistory) TableName() string {
	return "validation_history"
}

// BeforeCreate 创建前钩子
func (h *ValidationHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// QualityStatus 相对于记录自身阈值的达标状态
func (h *ValidationHistory) QualityStatus() string {
	threshold := h.QualityThreshold
	if threshold <= 0 {
		threshold = 75.0
	}

	switch {
	case h.QualityScore >= threshold+10:
		return "excellent"
	case h.QualityScore >= threshold:
		return "good"
	case h.QualityScore >= threshold-10:
		return "fair"
	default:
		return "poor"
	}
}

// ViolationRate 违规率 (0-100)
func (h *ValidationHistory) ViolationRate() float64 {
	if h.TotalChecks == 0 {
		return 0
	}
	return float64(h.TotalViolations) / float64(h.TotalChecks) * 100
}

// TrendDescription 趋势的可读描述
func (h *ValidationHistory) TrendDescription() string {
	switch h.TrendDirection {
	case TrendImproving:
		return fmt.Sprintf("质量改善中 (幅度 %.2f, 置信度 %.2f)", h.TrendMagnitude, h.TrendConfidence)
	case TrendDeclining:
		return fmt.Sprintf("质量下降中 (幅度 %.2f, 置信度 %.2f)", h.TrendMagnitude, h.TrendConfidence)
	case TrendStable:
		return "质量保持稳定"
	default:
		return "趋势数据不足"
	}
}

// ToDict 转换为可JSON序列化的完整快照，包含派生属性
func (h *ValidationHistory) ToDict() map[string]interface{} {
	return map[string]interface{}{
		"id":                             h.ID,
		"run_id":                         h.RunID,
		"entity_type":                    h.EntityType,
		"validation_type":                h.ValidationType,
		"quality_score":                  h.QualityScore,
		"quality_threshold":              h.QualityThreshold,
		"quality_status":                 h.QualityStatus(),
		"critical_violations":            h.CriticalViolations,
		"error_violations":               h.ErrorViolations,
		"warning_violations":             h.WarningViolations,
		"info_violations":                h.InfoViolations,
		"total_violations":               h.TotalViolations,
		"violation_rate":                 h.ViolationRate(),
		"total_checks":                   h.TotalChecks,
		"passed_checks":                  h.PassedChecks,
		"failed_checks":                  h.FailedChecks,
		"success_rate":                   h.SuccessRate,
		"execution_time_seconds":         h.ExecutionTimeSeconds,
		"memory_usage_mb":                h.MemoryUsageMB,
		"cpu_usage_percent":              h.CPUUsagePercent,
		"field_completeness_score":       h.FieldCompletenessScore,
		"data_type_accuracy_score":       h.DataTypeAccuracyScore,
		"relationship_integrity_score":   h.RelationshipIntegrityScore,
		"business_rule_compliance_score": h.BusinessRuleComplianceScore,
		"trend_direction":                h.TrendDirection,
		"trend_magnitude":                h.TrendMagnitude,
		"trend_confidence":               h.TrendConfidence,
		"trend_description":              h.TrendDescription(),
		"is_anomaly":                     h.IsAnomaly,
		"created_at":                     h.CreatedAt.Format(time.RFC3339),
	}
}

// GetEntityHistory 查询某实体类型的历史记录，按创建时间倒序
func GetEntityHistory(db *gorm.DB, entityType, validationType string, limit int) ([]ValidationHistory, error) {
	query := db.Where("entity_type = ?", entityType)
	if validationType != "" {
		query = query.Where("validation_type = ?", validationType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []ValidationHistory
	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// GetQualityTrends 查询时间窗口内的质量评分序列，按创建时间正序
func GetQualityTrends(db *gorm.DB, entityType, validationType string, days int) ([]map[string]interface{}, error) {
	since := time.Now().AddDate(0, 0, -days)

	query := db.Model(&ValidationHistory{}).Where("created_at >= ?", since)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if validationType != "" {
		query = query.Where("validation_type = ?", validationType)
	}

	var records []ValidationHistory
	if err := query.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	trends := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		trends = append(trends, map[string]interface{}{
			"date":            record.CreatedAt.Format(time.RFC3339),
			"entity_type":     record.EntityType,
			"validation_type": record.ValidationType,
			"quality_score":   record.QualityScore,
			"success_rate":    record.SuccessRate,
			"trend_direction": record.TrendDirection,
			"is_anomaly":      record.IsAnomaly,
		})
	}
	return trends, nil
}

// GetAnomalies 查询时间窗口内被标记为异常的历史记录
func GetAnomalies(db *gorm.DB, entityType string, days int) ([]ValidationHistory, error) {
	since := time.Now().AddDate(0, 0, -days)

	query := db.Where("is_anomaly = ? AND created_at >= ?", 1, since)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var records []ValidationHistory
	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// HistorySummary 历史汇总统计
type HistorySummary struct {
	TotalRecords       int64   `json:"total_records"`
	AvgQualityScore    float64 `json:"avg_quality_score"`
	MinQualityScore    float64 `json:"min_quality_score"`
	MaxQualityScore    float64 `json:"max_quality_score"`
	AvgSuccessRate     float64 `json:"avg_success_rate"`
	TotalViolations    int64   `json:"total_violations"`
	CriticalViolations int64   `json:"critical_violations"`
	ErrorViolations    int64   `json:"error_violations"`
	AnomalyCount       int64   `json:"anomaly_count"`
}

// GetSummaryStatistics 查询时间窗口内的汇总统计
func GetSummaryStatistics(db *gorm.DB, entityType string, days int) (*HistorySummary, error) {
	since := time.Now().AddDate(0, 0, -days)

	query := db.Model(&ValidationHistory{}).Where("created_at >= ?", since)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var summary HistorySummary
	err := query.Select(
		"COUNT(*) as total_records, " +
			"COALESCE(AVG(quality_score), 0) as avg_quality_score, " +
			"COALESCE(MIN(quality_score), 0) as min_quality_score, " +
			"COALESCE(MAX(quality_score), 0) as max_quality_score, " +
			"COALESCE(AVG(success_rate), 0) as avg_success_rate, " +
			"COALESCE(SUM(total_violations), 0) as total_violations, " +
			"COALESCE(SUM(critical_violations), 0) as critical_violations, " +
			"COALESCE(SUM(error_violations), 0) as error_violations, " +
			"COALESCE(SUM(is_anomaly), 0) as anomaly_count").
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// CleanupOldRecords 批量删除超过保留期的历史记录，返回删除数量
func CleanupOldRecords(db *gorm.DB, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := db.Where("created_at < ?", cutoff).Delete(&ValidationHistory{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
