/*
 * @module api/controllers/aggregation_controller
 * @description 数据聚合控制器，提供滚动平均、多窗口对比、模式检测、数据摘要和聚合性能建议接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 聚合结果中的message和error键是一等返回状态，HTTP层统一返回200
 * @dependencies vms-quality-service/service/aggregation, github.com/go-chi/chi/v5
 * @refs service/aggregation/aggregation_service.go
 */

package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"vms-quality-service/service/aggregation"
)

// AggregationController 数据聚合控制器
type AggregationController struct {
	aggregationService *aggregation.AggregationService
}

// NewAggregationController 创建数据聚合控制器实例
func NewAggregationController(aggregationService *aggregation.AggregationService) *AggregationController {
	return &AggregationController{aggregationService: aggregationService}
}

// GetRollingAverages 获取滚动平均
// @Summary 获取滚动平均
// @Description 计算指标时间序列的固定窗口滚动平均
// @Tags 数据聚合
// @Produce json
// @Param metric_name query string true "指标名称"
// @Param entity_type query string false "实体类型"
// @Param window_size query int false "窗口大小" default(5)
// @Param days query int false "时间窗口天数" default(30)
// @Success 200 {object} APIResponse "计算成功"
// @Router /aggregation/rolling-averages [get]
func (c *AggregationController) GetRollingAverages(w http.ResponseWriter, r *http.Request) {
	metricName := r.URL.Query().Get("metric_name")
	if metricName == "" {
		render.JSON(w, r, BadRequestResponse("指标名称不能为空", nil))
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	windowSize := queryInt(r, "window_size", 5)
	days := queryInt(r, "days", 30)

	result := c.aggregationService.CalculateRollingAverages(metricName, entityType, windowSize, days)
	render.JSON(w, r, SuccessResponse("计算滚动平均成功", result))
}

// GetMovingWindows 获取多窗口对比
// @Summary 获取多窗口对比
// @Description 对多个窗口尺寸计算滚动平均并派生稳定性/响应性评分
// @Tags 数据聚合
// @Produce json
// @Param metric_name query string true "指标名称"
// @Param entity_type query string false "实体类型"
// @Param window_sizes query string false "逗号分隔的窗口尺寸列表" default(5,10,20)
// @Param days query int false "时间窗口天数" default(30)
// @Success 200 {object} APIResponse "计算成功"
// @Router /aggregation/moving-windows [get]
func (c *AggregationController) GetMovingWindows(w http.ResponseWriter, r *http.Request) {
	metricName := r.URL.Query().Get("metric_name")
	if metricName == "" {
		render.JSON(w, r, BadRequestResponse("指标名称不能为空", nil))
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	days := queryInt(r, "days", 30)

	var windowSizes []int
	if raw := r.URL.Query().Get("window_sizes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if size, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && size > 1 {
				windowSizes = append(windowSizes, size)
			}
		}
	}

	result := c.aggregationService.CalculateMovingWindows(metricName, entityType, windowSizes, days)
	render.JSON(w, r, SuccessResponse("计算多窗口对比成功", result))
}

// GetTrendPatterns 获取模式检测结果
// @Summary 检测趋势模式
// @Description 对指标时间序列运行线性趋势/周期/季节性/异常四类检测器
// @Tags 数据聚合
// @Produce json
// @Param metric_name query string true "指标名称"
// @Param entity_type query string false "实体类型"
// @Param days query int false "时间窗口天数" default(30)
// @Param min_pattern_length query int false "最小数据点数" default(5)
// @Success 200 {object} APIResponse "检测成功"
// @Router /aggregation/patterns [get]
func (c *AggregationController) GetTrendPatterns(w http.ResponseWriter, r *http.Request) {
	metricName := r.URL.Query().Get("metric_name")
	if metricName == "" {
		render.JSON(w, r, BadRequestResponse("指标名称不能为空", nil))
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	days := queryInt(r, "days", 30)
	minPatternLength := queryInt(r, "min_pattern_length", 5)

	result := c.aggregationService.DetectTrendPatterns(metricName, entityType, days, minPatternLength)
	render.JSON(w, r, SuccessResponse("检测趋势模式成功", result))
}

// GetDataSummary 获取数据摘要
// @Summary 获取数据摘要
// @Description 按指标名分组的统计摘要，可选附带趋势和模式检测
// @Tags 数据聚合
// @Produce json
// @Param entity_type query string false "实体类型"
// @Param validation_type query string false "校验维度（按指标分类过滤）"
// @Param days query int false "时间窗口天数" default(30)
// @Param include_patterns query bool false "是否附带模式检测" default(false)
// @Success 200 {object} APIResponse "获取成功"
// @Router /aggregation/summary [get]
func (c *AggregationController) GetDataSummary(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	validationType := r.URL.Query().Get("validation_type")
	days := queryInt(r, "days", 30)
	includePatterns := r.URL.Query().Get("include_patterns") == "true"

	result := c.aggregationService.GenerateDataSummary(entityType, validationType, days, includePatterns)
	render.JSON(w, r, SuccessResponse("获取数据摘要成功", result))
}

// GetPerformanceAdvice 获取聚合性能建议
// @Summary 获取聚合性能建议
// @Description 按数据集规模给出聚合策略和窗口建议，仅供参考
// @Tags 数据聚合
// @Produce json
// @Param metric_name query string true "指标名称"
// @Param entity_type query string false "实体类型"
// @Param target_response_time query number false "目标响应时间(毫秒)" default(1000)
// @Success 200 {object} APIResponse "获取成功"
// @Router /aggregation/performance-advice [get]
func (c *AggregationController) GetPerformanceAdvice(w http.ResponseWriter, r *http.Request) {
	metricName := r.URL.Query().Get("metric_name")
	if metricName == "" {
		render.JSON(w, r, BadRequestResponse("指标名称不能为空", nil))
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	target := 1000.0
	if raw := r.URL.Query().Get("target_response_time"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			target = parsed
		}
	}

	result := c.aggregationService.OptimizeAggregationPerformance(metricName, entityType, target)
	render.JSON(w, r, SuccessResponse("获取聚合性能建议成功", result))
}
