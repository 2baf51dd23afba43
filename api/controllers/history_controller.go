/*
 * @module api/controllers/history_controller
 * @description 校验历史控制器，提供历史记录查询、趋势、异常、汇总统计和回填/清理维护接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 历史记录只读，维护操作限于幂等回填和保留期清理
 * @dependencies vms-quality-service/service/history, github.com/go-chi/chi/v5
 * @refs service/history/history_service.go, service/models/validation_history.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/render"
	"gorm.io/gorm"

	"vms-quality-service/service/history"
	"vms-quality-service/service/models"
)

// HistoryController 校验历史控制器
type HistoryController struct {
	db             *gorm.DB
	historyService *history.HistoryService
}

// NewHistoryController 创建校验历史控制器实例
func NewHistoryController(db *gorm.DB, historyService *history.HistoryService) *HistoryController {
	return &HistoryController{
		db:             db,
		historyService: historyService,
	}
}

// GetHistory 分页查询历史记录
// @Summary 查询历史记录
// @Description 分页查询校验历史记录，支持按实体类型和校验维度过滤
// @Tags 校验历史
// @Produce json
// @Param entity_type query string false "实体类型"
// @Param validation_type query string false "校验维度"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Success 200 {object} PaginatedResponse "查询成功"
// @Router /quality/history [get]
func (c *HistoryController) GetHistory(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	validationType := r.URL.Query().Get("validation_type")
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 10)

	query := c.db.Model(&models.ValidationHistory{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if validationType != "" {
		query = query.Where("validation_type = ?", validationType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("统计历史记录失败", err))
		return
	}

	var records []models.ValidationHistory
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&records).Error
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询历史记录失败", err))
		return
	}

	items := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		items = append(items, records[i].ToDict())
	}

	render.JSON(w, r, SuccessPaginatedResponse("查询历史记录成功", items, total, page, size))
}

// GetQualityTrends 查询质量趋势序列
// @Summary 查询质量趋势
// @Description 返回时间窗口内的质量评分时间序列
// @Tags 校验历史
// @Produce json
// @Param entity_type query string false "实体类型"
// @Param validation_type query string false "校验维度"
// @Param days query int false "时间窗口天数" default(30)
// @Success 200 {object} APIResponse "查询成功"
// @Router /quality/history/trends [get]
func (c *HistoryController) GetQualityTrends(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	validationType := r.URL.Query().Get("validation_type")
	days := queryInt(r, "days", 30)

	trends, err := models.GetQualityTrends(c.db, entityType, validationType, days)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询质量趋势失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询质量趋势成功", trends))
}

// GetAnomalies 查询异常历史记录
// @Summary 查询异常记录
// @Description 返回时间窗口内被标记为异常的历史记录
// @Tags 校验历史
// @Produce json
// @Param entity_type query string false "实体类型"
// @Param days query int false "时间窗口天数" default(30)
// @Success 200 {object} APIResponse "查询成功"
// @Router /quality/history/anomalies [get]
func (c *HistoryController) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	days := queryInt(r, "days", 30)

	records, err := models.GetAnomalies(c.db, entityType, days)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询异常记录失败", err))
		return
	}

	items := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		items = append(items, records[i].ToDict())
	}
	render.JSON(w, r, SuccessResponse("查询异常记录成功", items))
}

// GetSummaryStatistics 查询汇总统计
// @Summary 查询汇总统计
// @Description 返回时间窗口内历史记录的汇总统计信息
// @Tags 校验历史
// @Produce json
// @Param entity_type query string false "实体类型"
// @Param days query int false "时间窗口天数" default(30)
// @Success 200 {object} APIResponse "查询成功"
// @Router /quality/history/statistics [get]
func (c *HistoryController) GetSummaryStatistics(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	days := queryInt(r, "days", 30)

	summary, err := models.GetSummaryStatistics(c.db, entityType, days)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询汇总统计失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询汇总统计成功", summary))
}

// PopulateHistory 手动触发历史记录回填
// @Summary 回填历史记录
// @Description 幂等回填时间窗口内已完成运行的历史记录
// @Tags 校验历史
// @Produce json
// @Param days query int false "回填窗口天数" default(7)
// @Success 200 {object} APIResponse "回填成功"
// @Router /quality/history/populate [post]
func (c *HistoryController) PopulateHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)

	created, err := c.historyService.PopulateHistoryFromRecentRuns(days)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("回填历史记录失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("回填历史记录成功", map[string]interface{}{
		"created": created,
		"days":    days,
	}))
}

// CleanupHistory 手动触发保留期清理
// @Summary 清理历史记录
// @Description 删除超过保留期的历史记录
// @Tags 校验历史
// @Produce json
// @Param retention_days query int false "保留天数" default(365)
// @Success 200 {object} APIResponse "清理成功"
// @Router /quality/history/cleanup [delete]
func (c *HistoryController) CleanupHistory(w http.ResponseWriter, r *http.Request) {
	retentionDays := queryInt(r, "retention_days", 365)

	deleted, err := c.historyService.CleanupOldRecords(retentionDays)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("清理历史记录失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("清理历史记录成功", map[string]interface{}{
		"deleted":        deleted,
		"retention_days": retentionDays,
	}))
}
