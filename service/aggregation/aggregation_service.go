/*
 * @module service/aggregation/aggregation_service
 * @description 数据聚合服务，基于校验指标时间序列提供滚动平均、多窗口对比、模式检测和聚合性能建议
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 拉取指标序列 -> 内存计算 -> 返回可JSON序列化的嵌套结构
 * @rules 数据不足返回空列表加诊断message而非错误，数据库错误在方法边界转为error键
 * @dependencies gorm.io/gorm, service/models
 * @refs service/aggregation/pattern_detector.go, api/controllers/aggregation_controller.go
 */

package aggregation

import (
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"vms-quality-service/service/models"
)

// 模式检测的默认最小数据点数
const defaultMinPatternLength = 5

// AggregationService 数据聚合服务
type AggregationService struct {
	db *gorm.DB
}

// NewAggregationService 创建数据聚合服务实例
func NewAggregationService(db *gorm.DB) *AggregationService {
	return &AggregationService{db: db}
}

// fetchMetrics 拉取时间窗口内的指标序列，按时间正序
func (s *AggregationService) fetchMetrics(metricName, entityType string, days int) ([]models.ValidationMetric, error) {
	since := time.Now().AddDate(0, 0, -days)

	query := s.db.Where("metric_name = ? AND timestamp >= ?", metricName, since)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var metrics []models.ValidationMetric
	err := query.Order("timestamp ASC").Find(&metrics).Error
	return metrics, err
}

// CalculateRollingAverages 固定窗口滚动平均
// 窗口按数据点滑动（每个窗口位置产出一个点），每个点附带窗口内标准差和极值
func (s *AggregationService) CalculateRollingAverages(metricName, entityType string, windowSize, days int) map[string]interface{} {
	if windowSize < 2 {
		windowSize = 5
	}

	metrics, err := s.fetchMetrics(metricName, entityType, days)
	if err != nil {
		slog.Error("拉取指标序列失败", "metric_name", metricName, "error", err)
		return map[string]interface{}{"metric_name": metricName, "error": err.Error()}
	}

	result := map[string]interface{}{
		"metric_name":      metricName,
		"entity_type":      entityType,
		"window_size":      windowSize,
		"period_days":      days,
		"data_points":      len(metrics),
		"rolling_averages": []map[string]interface{}{},
	}

	if len(metrics) < windowSize {
		result["message"] = "Insufficient data points for the requested window size"
		return result
	}

	values := make([]float64, len(metrics))
	for i, metric := range metrics {
		values[i] = metric.MetricValue
	}

	points := make([]map[string]interface{}, 0, len(metrics)-windowSize+1)
	for i := 0; i+windowSize <= len(values); i++ {
		window := values[i : i+windowSize]
		min, max := minMax(window)
		points = append(points, map[string]interface{}{
			"window_end": metrics[i+windowSize-1].Timestamp.Format(time.RFC3339),
			"average":    mean(window),
			"std_dev":    stdDev(window),
			"min":        min,
			"max":        max,
		})
	}
	result["rolling_averages"] = points
	return result
}

// CalculateMovingWindows 多窗口对比
// 对每个窗口尺寸计算滚动平均，并派生稳定性（窗口内标准差均值，越低越平滑）
// 和响应性（相邻平均点绝对差的均值，越高反应越快）供调用方权衡平滑与滞后
func (s *AggregationService) CalculateMovingWindows(metricName, entityType string, windowSizes []int, days int) map[string]interface{} {
	if len(windowSizes) == 0 {
		windowSizes = []int{5, 10, 20}
	}

	windows := make(map[string]interface{}, len(windowSizes))
	for _, size := range windowSizes {
		rolling := s.CalculateRollingAverages(metricName, entityType, size, days)
		if errMsg, failed := rolling["error"]; failed {
			return map[string]interface{}{"metric_name": metricName, "error": errMsg}
		}

		points, _ := rolling["rolling_averages"].([]map[string]interface{})

		stdDevs := make([]float64, 0, len(points))
		averages := make([]float64, 0, len(points))
		for _, point := range points {
			stdDevs = append(stdDevs, point["std_dev"].(float64))
			averages = append(averages, point["average"].(float64))
		}

		responsiveness := 0.0
		if len(averages) > 1 {
			totalDelta := 0.0
			for i := 1; i < len(averages); i++ {
				delta := averages[i] - averages[i-1]
				if delta < 0 {
					delta = -delta
				}
				totalDelta += delta
			}
			responsiveness = totalDelta / float64(len(averages)-1)
		}

		windows[windowKey(size)] = map[string]interface{}{
			"window_size":    size,
			"point_count":    len(points),
			"stability":      mean(stdDevs),
			"responsiveness": responsiveness,
			"rolling":        rolling,
		}
	}

	return map[string]interface{}{
		"metric_name": metricName,
		"entity_type": entityType,
		"period_days": days,
		"windows":     windows,
	}
}

func windowKey(size int) string {
	return "window_" + strconv.Itoa(size)
}

// DetectTrendPatterns 运行全部模式检测器并合并结果
// 线性趋势、周期、周级季节性、z-score异常四个检测器相互独立
func (s *AggregationService) DetectTrendPatterns(metricName, entityType string, days, minPatternLength int) map[string]interface{} {
	if minPatternLength <= 0 {
		minPatternLength = defaultMinPatternLength
	}

	metrics, err := s.fetchMetrics(metricName, entityType, days)
	if err != nil {
		slog.Error("拉取指标序列失败", "metric_name", metricName, "error", err)
		return map[string]interface{}{"metric_name": metricName, "error": err.Error()}
	}

	result := map[string]interface{}{
		"metric_name": metricName,
		"entity_type": entityType,
		"period_days": days,
		"data_points": len(metrics),
		"patterns":    []map[string]interface{}{},
	}

	if len(metrics) < minPatternLength {
		result["message"] = "Insufficient data points for pattern detection"
		return result
	}

	values := make([]float64, len(metrics))
	timestamps := make([]time.Time, len(metrics))
	for i, metric := range metrics {
		values[i] = metric.MetricValue
		timestamps[i] = metric.Timestamp
	}

	patterns := make([]map[string]interface{}, 0)
	if linear := detectLinearTrend(values); linear != nil {
		patterns = append(patterns, linear)
	}
	patterns = append(patterns, detectCyclicalPatterns(values)...)
	if seasonal := detectWeeklySeasonality(values, timestamps); seasonal != nil {
		patterns = append(patterns, seasonal)
	}
	if anomalies := detectAnomalies(values); anomalies != nil {
		patterns = append(patterns, anomalies)
	}

	result["patterns"] = patterns
	return result
}

// GenerateDataSummary 生成指标数据摘要
// 按指标名分组统计，逐指标附带简单趋势，数据点足够时可选附带模式检测
func (s *AggregationService) GenerateDataSummary(entityType, validationType string, days int, includePatterns bool) map[string]interface{} {
	since := time.Now().AddDate(0, 0, -days)

	query := s.db.Where("timestamp >= ?", since)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if validationType != "" {
		query = query.Where("metric_category = ?", validationType)
	}

	var metrics []models.ValidationMetric
	if err := query.Order("timestamp ASC").Find(&metrics).Error; err != nil {
		slog.Error("拉取指标数据失败", "entity_type", entityType, "error", err)
		return map[string]interface{}{"entity_type": entityType, "error": err.Error()}
	}

	grouped := make(map[string][]models.ValidationMetric)
	for _, metric := range metrics {
		grouped[metric.MetricName] = append(grouped[metric.MetricName], metric)
	}

	summaries := make(map[string]interface{}, len(grouped))
	for metricName, series := range grouped {
		values := make([]float64, len(series))
		for i, metric := range series {
			values[i] = metric.MetricValue
		}
		min, max := minMax(values)

		summary := map[string]interface{}{
			"count":        len(values),
			"mean":         mean(values),
			"std_dev":      stdDev(values),
			"min":          min,
			"max":          max,
			"latest_value": values[len(values)-1],
			"latest_at":    series[len(series)-1].Timestamp.Format(time.RFC3339),
		}

		trend, err := models.CalculateTrendsForMetric(s.db, metricName, entityType, days)
		if err != nil {
			slog.Warn("计算指标趋势失败", "metric_name", metricName, "error", err)
		} else {
			summary["trend"] = trend
		}

		if includePatterns && len(values) >= defaultMinPatternLength {
			summary["patterns"] = s.DetectTrendPatterns(metricName, entityType, days, defaultMinPatternLength)["patterns"]
		}

		summaries[metricName] = summary
	}

	return map[string]interface{}{
		"entity_type":     entityType,
		"validation_type": validationType,
		"period_days":     days,
		"metric_count":    len(grouped),
		"total_points":    len(metrics),
		"metrics":         summaries,
		"generated_at":    time.Now().Format(time.RFC3339),
	}
}

// OptimizeAggregationPerformance 聚合性能建议
// 按数据集规模给出策略和推荐窗口，响应时间为线性估算，仅供参考不改变执行方式
func (s *AggregationService) OptimizeAggregationPerformance(metricName, entityType string, targetResponseTime float64) map[string]interface{} {
	query := s.db.Model(&models.ValidationMetric{}).Where("metric_name = ?", metricName)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		slog.Error("统计指标数据量失败", "metric_name", metricName, "error", err)
		return map[string]interface{}{"metric_name": metricName, "error": err.Error()}
	}

	strategy := "full_scan"
	recommendedWindow := 10
	msPerRecord := 0.5
	switch {
	case count >= 10000:
		strategy = "incremental_aggregation"
		recommendedWindow = 100
		msPerRecord = 0.02
	case count >= 1000:
		strategy = "sampled_aggregation"
		recommendedWindow = 50
		msPerRecord = 0.1
	}

	estimated := float64(count) * msPerRecord
	return map[string]interface{}{
		"metric_name":             metricName,
		"entity_type":             entityType,
		"dataset_size":            count,
		"strategy":                strategy,
		"recommended_window_size": recommendedWindow,
		"estimated_response_ms":   estimated,
		"target_response_ms":      targetResponseTime,
		"meets_target":            targetResponseTime <= 0 || estimated <= targetResponseTime,
		"advisory_only":           true,
	}
}
