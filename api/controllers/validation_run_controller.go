/*
 * @module api/controllers/validation_run_controller
 * @description 校验运行接入控制器，接收外部校验引擎上报的运行结果和指标
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 请求解析 -> 严重级别校验 -> 单事务写入运行/结果/指标
 * @rules 运行及其全部结果/指标在一个事务内写入，任一失败整批回滚
 * @dependencies gorm.io/gorm, github.com/go-chi/render
 * @refs service/models/validation_run.go
 */

package controllers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/render"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"vms-quality-service/service/models"
)

// ValidationRunController 校验运行接入控制器
type ValidationRunController struct {
	db *gorm.DB
}

// NewValidationRunController 创建校验运行接入控制器实例
func NewValidationRunController(db *gorm.DB) *ValidationRunController {
	return &ValidationRunController{db: db}
}

// IngestResultRequest 单条校验结果上报结构
type IngestResultRequest struct {
	EntityType     string `json:"entity_type"`
	ValidationType string `json:"validation_type"`
	FieldName      string `json:"field_name,omitempty"`
	Severity       string `json:"severity"`
	Message        string `json:"message,omitempty"`
	ExpectedValue  string `json:"expected_value,omitempty"`
	ActualValue    string `json:"actual_value,omitempty"`
}

// IngestMetricRequest 单条校验指标上报结构
type IngestMetricRequest struct {
	MetricName     string     `json:"metric_name"`
	MetricValue    float64    `json:"metric_value"`
	MetricCategory string     `json:"metric_category,omitempty"`
	MetricUnit     string     `json:"metric_unit,omitempty"`
	EntityType     string     `json:"entity_type,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

// IngestRunRequest 校验运行上报结构
type IngestRunRequest struct {
	RunID                string                `json:"run_id,omitempty"`
	Status               string                `json:"status"`
	StartedAt            time.Time             `json:"started_at"`
	CompletedAt          *time.Time            `json:"completed_at,omitempty"`
	ExecutionTimeSeconds float64               `json:"execution_time_seconds"`
	MemoryUsageMB        float64               `json:"memory_usage_mb"`
	CPUUsagePercent      float64               `json:"cpu_usage_percent"`
	Results              []IngestResultRequest `json:"results"`
	Metrics              []IngestMetricRequest `json:"metrics,omitempty"`
}

var validSeverities = map[string]bool{
	models.SeverityInfo:     true,
	models.SeverityWarning:  true,
	models.SeverityError:    true,
	models.SeverityCritical: true,
}

// IngestValidationRun 接收一次完整的校验运行
// @Summary 上报校验运行
// @Description 外部校验引擎上报已完成运行的结果和指标，单事务写入
// @Tags 校验接入
// @Accept json
// @Produce json
// @Param run body IngestRunRequest true "校验运行数据"
// @Success 201 {object} APIResponse "上报成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /validation-runs [post]
func (c *ValidationRunController) IngestValidationRun(w http.ResponseWriter, r *http.Request) {
	var req IngestRunRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	for i, result := range req.Results {
		if !validSeverities[result.Severity] {
			render.JSON(w, r, BadRequestResponse(
				fmt.Sprintf("第%d条结果的严重级别非法: %s", i+1, result.Severity), nil))
			return
		}
		if result.EntityType == "" || result.ValidationType == "" {
			render.JSON(w, r, BadRequestResponse(
				fmt.Sprintf("第%d条结果缺少实体类型或校验维度", i+1), nil))
			return
		}
	}

	status := req.Status
	if status == "" {
		status = models.RunStatusCompleted
	}

	run := models.ValidationRun{
		ID:                   req.RunID,
		Status:               status,
		EntityScope:          entityScopeOf(req.Results),
		StartedAt:            req.StartedAt,
		CompletedAt:          req.CompletedAt,
		ExecutionTimeSeconds: req.ExecutionTimeSeconds,
		MemoryUsageMB:        req.MemoryUsageMB,
		CPUUsagePercent:      req.CPUUsagePercent,
		TotalChecks:          int64(len(req.Results)),
	}
	if run.CompletedAt == nil && status == models.RunStatusCompleted {
		now := time.Now()
		run.CompletedAt = &now
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("创建校验运行失败: %w", err)
		}

		for _, result := range req.Results {
			record := models.ValidationResult{
				RunID:          run.ID,
				EntityType:     result.EntityType,
				ValidationType: result.ValidationType,
				FieldName:      result.FieldName,
				Severity:       result.Severity,
				Message:        result.Message,
				ExpectedValue:  result.ExpectedValue,
				ActualValue:    result.ActualValue,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("创建校验结果失败: %w", err)
			}
		}

		for _, metric := range req.Metrics {
			record := models.ValidationMetric{
				RunID:          run.ID,
				MetricName:     metric.MetricName,
				MetricValue:    metric.MetricValue,
				MetricCategory: metric.MetricCategory,
				MetricUnit:     metric.MetricUnit,
				EntityType:     metric.EntityType,
			}
			if metric.Timestamp != nil {
				record.Timestamp = *metric.Timestamp
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("创建校验指标失败: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("写入校验运行失败", err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SuccessResponse("上报校验运行成功", map[string]interface{}{
		"run_id":       run.ID,
		"total_checks": run.TotalChecks,
		"metric_count": len(req.Metrics),
		"entity_scope": run.EntityScope,
	}))
}

// entityScopeOf 从结果中去重提取实体类型列表
func entityScopeOf(results []IngestResultRequest) pq.StringArray {
	seen := make(map[string]bool)
	for _, result := range results {
		seen[result.EntityType] = true
	}

	scope := make([]string, 0, len(seen))
	for entityType := range seen {
		scope = append(scope, entityType)
	}
	sort.Strings(scope)
	return pq.StringArray(scope)
}
