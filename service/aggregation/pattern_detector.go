/*
 * @module service/aggregation/pattern_detector
 * @description 指标时间序列的统计模式检测，包含线性趋势、周期、周级季节性和z-score异常四类检测器
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 序列输入 -> 各检测器独立运行 -> 模式条目合并输出
 * @rules 检测器互不依赖，单个检测器无结果时不产生条目；自相关检测对超长序列直接跳过
 * @dependencies math, time
 * @refs service/aggregation/aggregation_service.go
 */

package aggregation

import (
	"fmt"
	"math"
	"time"
)

// 异常判定的z-score阈值
const anomalyZThreshold = 2.0

// 自相关周期检测的序列长度上限，超过后为避免O(n²)扫描直接跳过
const maxCycleSeries = 5000

// 自相关周期检测的候选判定阈值
const cycleCorrelationThreshold = 0.7

// detectLinearTrend 最小二乘线性趋势检测
// 按|slope|分档强度，置信度为 min(1, R²×n/10)
func detectLinearTrend(values []float64) map[string]interface{} {
	n := len(values)
	if n < 2 {
		return nil
	}

	// x 为序列下标
	sumX, sumY, sumXY, sumXX := 0.0, 0.0, 0.0, 0.0
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denominator := fn*sumXX - sumX*sumX
	if denominator == 0 {
		return nil
	}
	slope := (fn*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / fn

	// R² = 1 - SS_res/SS_tot
	meanY := sumY / fn
	ssTot, ssRes := 0.0, 0.0
	for i, y := range values {
		predicted := intercept + slope*float64(i)
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - predicted) * (y - predicted)
	}
	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1.0 - ssRes/ssTot
	}

	absSlope := math.Abs(slope)
	strength := "stable"
	switch {
	case absSlope >= 0.5:
		strength = "strong"
	case absSlope >= 0.1:
		strength = "moderate"
	case absSlope >= 0.01:
		strength = "weak"
	}

	direction := "stable"
	if strength != "stable" {
		if slope > 0 {
			direction = "increasing"
		} else {
			direction = "decreasing"
		}
	}

	return map[string]interface{}{
		"pattern_type": "linear_trend",
		"slope":        slope,
		"intercept":    intercept,
		"r_squared":    rSquared,
		"direction":    direction,
		"strength":     strength,
		"confidence":   math.Min(1.0, rSquared*fn/10.0),
	}
}

// detectCyclicalPatterns 暴力自相关周期检测
// 扫描滞后 2..min(n/2, 30)，自相关超过阈值的滞后均作为候选周期上报
func detectCyclicalPatterns(values []float64) []map[string]interface{} {
	n := len(values)
	if n < 4 {
		return nil
	}
	if n > maxCycleSeries {
		return []map[string]interface{}{{
			"pattern_type": "cyclical",
			"skipped":      true,
			"reason":       fmt.Sprintf("series length %d exceeds cycle detection cap %d", n, maxCycleSeries),
		}}
	}

	maxLag := n / 2
	if maxLag > 30 {
		maxLag = 30
	}

	patterns := make([]map[string]interface{}, 0)
	for lag := 2; lag <= maxLag; lag++ {
		correlation := autocorrelation(values, lag)
		if correlation > cycleCorrelationThreshold {
			patterns = append(patterns, map[string]interface{}{
				"pattern_type":    "cyclical",
				"cycle_length":    lag,
				"autocorrelation": correlation,
			})
		}
	}
	return patterns
}

// autocorrelation 固定滞后的样本自相关系数
func autocorrelation(values []float64, lag int) float64 {
	n := len(values)
	if lag >= n {
		return 0.0
	}

	m := mean(values)
	numerator, denominator := 0.0, 0.0
	for i := 0; i < n; i++ {
		deviation := values[i] - m
		denominator += deviation * deviation
		if i+lag < n {
			numerator += deviation * (values[i+lag] - m)
		}
	}
	if denominator == 0 {
		return 0.0
	}
	return numerator / denominator
}

// detectWeeklySeasonality 周级季节性检测
// 按ISO周编号分组，至少4个周组且每组至少2个点，周均值的变异系数超过0.2时判定为周模式
func detectWeeklySeasonality(values []float64, timestamps []time.Time) map[string]interface{} {
	if len(values) != len(timestamps) || len(values) == 0 {
		return nil
	}

	weekly := make(map[int][]float64)
	for i, ts := range timestamps {
		_, week := ts.ISOWeek()
		weekly[week] = append(weekly[week], values[i])
	}

	weeklyMeans := make([]float64, 0, len(weekly))
	for _, points := range weekly {
		if len(points) < 2 {
			continue
		}
		weeklyMeans = append(weeklyMeans, mean(points))
	}
	if len(weeklyMeans) < 4 {
		return nil
	}

	overallMean := mean(weeklyMeans)
	if overallMean == 0 {
		return nil
	}
	cv := stdDev(weeklyMeans) / math.Abs(overallMean)
	if cv <= 0.2 {
		return nil
	}

	return map[string]interface{}{
		"pattern_type":             "seasonal",
		"seasonality":              "weekly",
		"weeks_observed":           len(weeklyMeans),
		"coefficient_of_variation": cv,
	}
}

// detectAnomalies z-score异常检测
// 相对全序列均值/标准差计算z值，|z|超阈值的下标合并为一个汇总条目
func detectAnomalies(values []float64) map[string]interface{} {
	if len(values) < 3 {
		return nil
	}

	m := mean(values)
	sd := stdDev(values)
	if sd == 0 {
		return nil
	}

	indices := make([]int, 0)
	zScores := make([]float64, 0)
	for i, value := range values {
		z := (value - m) / sd
		if math.Abs(z) > anomalyZThreshold {
			indices = append(indices, i)
			zScores = append(zScores, z)
		}
	}
	if len(indices) == 0 {
		return nil
	}

	return map[string]interface{}{
		"pattern_type":    "anomalies",
		"anomaly_indices": indices,
		"z_scores":        zScores,
		"anomaly_count":   len(indices),
		"threshold":       anomalyZThreshold,
		"series_mean":     m,
		"series_std_dev":  sd,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	total := 0.0
	for _, value := range values {
		total += value
	}
	return total / float64(len(values))
}

// stdDev 总体标准差
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	m := mean(values)
	sumSquares := 0.0
	for _, value := range values {
		sumSquares += (value - m) * (value - m)
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0.0, 0.0
	}
	min, max := values[0], values[0]
	for _, value := range values[1:] {
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}
	return min, max
}
