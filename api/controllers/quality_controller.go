/*
 * @module api/controllers/quality_controller
 * @description 质量评分控制器，提供实体质量评分、综合质量报告和权重/阈值覆盖配置接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 评分结果中的error键和无数据message由前端按一等状态处理，不走HTTP错误通道
 * @dependencies vms-quality-service/service/quality, github.com/go-chi/chi/v5
 * @refs service/quality/scoring_service.go, service/config/config_service.go
 */

package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"vms-quality-service/service/config"
	"vms-quality-service/service/quality"
)

// QualityController 质量评分控制器
type QualityController struct {
	scoringService *quality.ScoringService
	configService  *config.ConfigService
}

// NewQualityController 创建质量评分控制器实例
func NewQualityController(scoringService *quality.ScoringService, configService *config.ConfigService) *QualityController {
	return &QualityController{
		scoringService: scoringService,
		configService:  configService,
	}
}

// GetEntityQualityScore 获取单个实体类型的质量评分
// @Summary 获取实体质量评分
// @Description 计算指定实体类型的综合质量评分，可限定单次运行或时间窗口
// @Tags 质量评分
// @Produce json
// @Param entity_type path string true "实体类型" Enums(volunteer,organization,event,student,teacher,school,district)
// @Param run_id query string false "校验运行ID，指定后只评该次运行"
// @Param days query int false "时间窗口天数" default(30)
// @Param include_details query bool false "是否包含各维度评分明细" default(false)
// @Success 200 {object} APIResponse "获取成功"
// @Router /quality/scores/{entity_type} [get]
func (c *QualityController) GetEntityQualityScore(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")
	if entityType == "" {
		render.JSON(w, r, BadRequestResponse("实体类型不能为空", nil))
		return
	}

	runID := r.URL.Query().Get("run_id")
	days := queryInt(r, "days", 30)
	includeDetails := r.URL.Query().Get("include_details") == "true"

	result := c.scoringService.CalculateEntityQualityScore(entityType, runID, days, includeDetails)
	render.JSON(w, r, SuccessResponse("获取实体质量评分成功", result))
}

// GetComprehensiveReport 获取跨实体综合质量报告
// @Summary 获取综合质量报告
// @Description 生成多实体类型的综合质量报告，包含整体汇总、最佳表现和改进机会
// @Tags 质量评分
// @Produce json
// @Param entity_types query string false "逗号分隔的实体类型列表，缺省为全部"
// @Param days query int false "时间窗口天数" default(30)
// @Param include_trends query bool false "是否附加各实体趋势" default(false)
// @Success 200 {object} APIResponse "获取成功"
// @Router /quality/report [get]
func (c *QualityController) GetComprehensiveReport(w http.ResponseWriter, r *http.Request) {
	var entityTypes []string
	if raw := r.URL.Query().Get("entity_types"); raw != "" {
		for _, entityType := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(entityType); trimmed != "" {
				entityTypes = append(entityTypes, trimmed)
			}
		}
	}

	days := queryInt(r, "days", 30)
	includeTrends := r.URL.Query().Get("include_trends") == "true"

	report := c.scoringService.CalculateComprehensiveQualityReport(entityTypes, days, includeTrends)
	render.JSON(w, r, SuccessResponse("获取综合质量报告成功", report))
}

// GetEntityWeights 获取实体类型的有效维度权重
// @Summary 获取实体权重
// @Description 返回归一化后的有效维度权重（覆盖叠加默认后的结果）
// @Tags 质量配置
// @Produce json
// @Param entity_type path string true "实体类型"
// @Success 200 {object} APIResponse "获取成功"
// @Router /quality/weights/{entity_type} [get]
func (c *QualityController) GetEntityWeights(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")
	weights := c.scoringService.Weighting().GetEntityWeights(entityType)
	render.JSON(w, r, SuccessResponse("获取实体权重成功", map[string]interface{}{
		"entity_type": entityType,
		"weights":     weights,
	}))
}

// SetEntityWeights 设置实体权重覆盖
// @Summary 设置实体权重覆盖
// @Description 设置实体类型的维度权重覆盖并持久化，非法输入保留上一次有效覆盖或回退到等权默认
// @Tags 质量配置
// @Accept json
// @Produce json
// @Param entity_type path string true "实体类型"
// @Param weights body map[string]float64 true "维度权重表"
// @Success 200 {object} APIResponse "设置成功"
// @Router /quality/weights/{entity_type} [put]
func (c *QualityController) SetEntityWeights(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")

	var weights map[string]float64
	if err := render.DecodeJSON(r.Body, &weights); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	c.scoringService.Weighting().SetEntityWeightOverride(entityType, weights)
	if err := c.configService.SaveEntityWeights(entityType, weights); err != nil {
		render.JSON(w, r, InternalErrorResponse("持久化权重覆盖失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("设置实体权重成功", map[string]interface{}{
		"entity_type":       entityType,
		"effective_weights": c.scoringService.Weighting().GetEntityWeights(entityType),
	}))
}

// SetEntityThreshold 设置实体阈值覆盖
// @Summary 设置实体阈值覆盖
// @Description 设置实体类型的质量阈值覆盖并持久化，超出[0,100]的值被忽略
// @Tags 质量配置
// @Accept json
// @Produce json
// @Param entity_type path string true "实体类型"
// @Param body body object true "阈值 {\"threshold\": 80}"
// @Success 200 {object} APIResponse "设置成功"
// @Router /quality/thresholds/{entity_type} [put]
func (c *QualityController) SetEntityThreshold(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")

	var req struct {
		Threshold float64 `json:"threshold"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if req.Threshold < 0 || req.Threshold > 100 {
		render.JSON(w, r, BadRequestResponse("阈值必须在[0,100]范围内", nil))
		return
	}

	c.scoringService.Thresholds().SetEntityThresholdOverride(entityType, req.Threshold)
	if err := c.configService.SaveEntityThreshold(entityType, req.Threshold); err != nil {
		render.JSON(w, r, InternalErrorResponse("持久化阈值覆盖失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("设置实体阈值成功", map[string]interface{}{
		"entity_type":         entityType,
		"effective_threshold": c.scoringService.Thresholds().GetEntityThreshold(entityType),
	}))
}

// GetConfigOverrides 获取所有持久化的覆盖配置
// @Summary 获取覆盖配置
// @Description 返回当前持久化的全部权重/阈值覆盖配置
// @Tags 质量配置
// @Produce json
// @Success 200 {object} APIResponse "获取成功"
// @Router /quality/config/overrides [get]
func (c *QualityController) GetConfigOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := c.configService.GetOverrides()
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询覆盖配置失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取覆盖配置成功", overrides))
}

// queryInt 解析整型查询参数，缺失或非法时返回默认值
func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
