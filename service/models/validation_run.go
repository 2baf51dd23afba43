/*
 * @module service/models/validation_run
 * @description 校验运行相关模型定义，包含校验运行、校验结果、校验指标等核心数据结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 校验引擎执行 -> 结果/指标入库 -> 质量评分/历史归档/趋势分析消费
 * @rules 校验运行拥有其结果和指标记录，运行删除时级联删除
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/lib/pq
 * @refs service/quality, service/history, service/aggregation
 */

package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// 校验严重级别
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// 校验运行状态
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// 标准校验维度
const (
	DimensionFieldCompleteness = "field_completeness"
	DimensionDataTypes         = "data_types"
	DimensionBusinessRules     = "business_rules"
	DimensionRelationships     = "relationships"
)

// ValidationRun 校验运行记录模型，由外部校验引擎写入
type ValidationRun struct {
	ID                   string             `gorm:"type:varchar(50);primaryKey" json:"id"`
	Status               string             `gorm:"type:varchar(20);not null;index" json:"status"` // running, completed, failed
	EntityScope          pq.StringArray     `gorm:"type:text[]" json:"entity_scope"`               // 本次运行覆盖的实体类型
	StartedAt            time.Time          `json:"started_at"`
	CompletedAt          *time.Time         `gorm:"index" json:"completed_at,omitempty"`
	ExecutionTimeSeconds float64            `json:"execution_time_seconds"`
	MemoryUsageMB        float64            `json:"memory_usage_mb"`
	CPUUsagePercent      float64            `json:"cpu_usage_percent"`
	TotalChecks          int64              `json:"total_checks"`
	ErrorMessage         string             `gorm:"type:text" json:"error_message,omitempty"`
	Results              []ValidationResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"results,omitempty"`
	Metrics              []ValidationMetric `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"metrics,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// TableName 指定表名
func (ValidationRun) TableName() string {
	return "validation_runs"
}

// BeforeCreate 创建前钩子
func (r *ValidationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// ValidationResult 单条校验结果模型，每条记录对应一次字段级检查
type ValidationResult struct {
	ID             string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	RunID          string    `gorm:"type:varchar(50);not null;index" json:"run_id"`
	EntityType     string    `gorm:"type:varchar(50);not null;index" json:"entity_type"`     // volunteer, organization, event, student, teacher, school, district
	ValidationType string    `gorm:"type:varchar(50);not null;index" json:"validation_type"` // field_completeness, data_types, business_rules, relationships
	FieldName      string    `gorm:"type:varchar(100)" json:"field_name"`
	Severity       string    `gorm:"type:varchar(20);not null" json:"severity"` // info, warning, error, critical
	Message        string    `gorm:"type:text" json:"message"`
	ExpectedValue  string    `gorm:"type:text" json:"expected_value,omitempty"`
	ActualValue    string    `gorm:"type:text" json:"actual_value,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 指定表名
func (ValidationResult) TableName() string {
	return "validation_results"
}

// BeforeCreate 创建前钩子
func (r *ValidationResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// Passed 判断该条结果是否视为通过
// 约定: info/warning 计为通过, error/critical 计为失败
func (r *ValidationResult) Passed() bool {
	return r.Severity == SeverityInfo || r.Severity == SeverityWarning
}

// ValidationMetric 校验指标记录模型，一条记录对应一次命名数值测量
type ValidationMetric struct {
	ID             string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	RunID          string    `gorm:"type:varchar(50);not null;index" json:"run_id"`
	MetricName     string    `gorm:"type:varchar(100);not null;index" json:"metric_name"`
	MetricValue    float64   `json:"metric_value"`
	MetricCategory string    `gorm:"type:varchar(50);index" json:"metric_category"`
	MetricUnit     string    `gorm:"type:varchar(20)" json:"metric_unit,omitempty"`
	EntityType     string    `gorm:"type:varchar(50);index" json:"entity_type"`
	Timestamp      time.Time `gorm:"not null;index" json:"timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 指定表名
func (ValidationMetric) TableName() string {
	return "validation_metrics"
}

// BeforeCreate 创建前钩子
func (m *ValidationMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return nil
}

// CalculateTrendsForMetric 计算单个指标的简单趋势
// 基于时间窗口内首尾值的变化量分类方向和强度，与聚合服务的模式检测相互独立
func CalculateTrendsForMetric(db *gorm.DB, metricName, entityType string, days int) (map[string]interface{}, error) {
	since := time.Now().AddDate(0, 0, -days)

	query := db.Where("metric_name = ? AND timestamp >= ?", metricName, since)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var metrics []ValidationMetric
	if err := query.Order("timestamp ASC").Find(&metrics).Error; err != nil {
		return nil, err
	}

	trend := map[string]interface{}{
		"metric_name": metricName,
		"data_points": len(metrics),
	}

	if len(metrics) < 3 {
		trend["direction"] = "insufficient_data"
		trend["change"] = 0.0
		return trend, nil
	}

	first := metrics[0].MetricValue
	last := metrics[len(metrics)-1].MetricValue
	change := last - first

	direction := "stable"
	if change > 0.1 {
		direction = "increasing"
	} else if change < -0.1 {
		direction = "decreasing"
	}

	magnitude := math.Abs(change)
	strength := "weak"
	switch {
	case magnitude >= 1.0:
		strength = "strong"
	case magnitude >= 0.5:
		strength = "moderate"
	}

	trend["direction"] = direction
	trend["change"] = change
	trend["magnitude"] = magnitude
	trend["strength"] = strength
	trend["first_value"] = first
	trend["last_value"] = last
	return trend, nil
}
