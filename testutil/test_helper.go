/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"vms-quality-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.ValidationRun{},
		&models.ValidationResult{},
		&models.ValidationMetric{},
		&models.ValidationHistory{},
		&models.SystemConfig{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"validation_results",
		"validation_metrics",
		"validation_history",
		"validation_runs",
		"system_configs",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// ValidationRunOption 校验运行选项函数类型
type ValidationRunOption func(*models.ValidationRun)

// CreateValidationRun 创建测试校验运行
func (f *TestDataFactory) CreateValidationRun(opts ...ValidationRunOption) *models.ValidationRun {
	now := time.Now()
	completedAt := now.Add(-time.Minute)
	run := &models.ValidationRun{
		ID:                   generateID("run"),
		Status:               models.RunStatusCompleted,
		EntityScope:          []string{"volunteer"},
		StartedAt:            now.Add(-2 * time.Minute),
		CompletedAt:          &completedAt,
		ExecutionTimeSeconds: 12.5,
		MemoryUsageMB:        256.0,
		CPUUsagePercent:      42.0,
	}

	// 应用选项
	for _, opt := range opts {
		opt(run)
	}

	err := f.DB.Create(run).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test validation run: %v", err))
	}

	return run
}

// ValidationResultOption 校验结果选项函数类型
type ValidationResultOption func(*models.ValidationResult)

// CreateValidationResult 创建测试校验结果
func (f *TestDataFactory) CreateValidationResult(runID string, opts ...ValidationResultOption) *models.ValidationResult {
	result := &models.ValidationResult{
		ID:             generateID("vr"),
		RunID:          runID,
		EntityType:     "volunteer",
		ValidationType: models.DimensionFieldCompleteness,
		FieldName:      "email",
		Severity:       models.SeverityInfo,
		Message:        "字段检查通过",
	}

	// 应用选项
	for _, opt := range opts {
		opt(result)
	}

	err := f.DB.Create(result).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test validation result: %v", err))
	}

	return result
}

// CreateValidationResults 批量创建同一严重级别的校验结果
func (f *TestDataFactory) CreateValidationResults(runID string, count int, opts ...ValidationResultOption) []*models.ValidationResult {
	results := make([]*models.ValidationResult, 0, count)
	for i := 0; i < count; i++ {
		results = append(results, f.CreateValidationResult(runID, opts...))
	}
	return results
}

// ValidationMetricOption 校验指标选项函数类型
type ValidationMetricOption func(*models.ValidationMetric)

// CreateValidationMetric 创建测试校验指标
func (f *TestDataFactory) CreateValidationMetric(runID string, opts ...ValidationMetricOption) *models.ValidationMetric {
	metric := &models.ValidationMetric{
		ID:             generateID("vm"),
		RunID:          runID,
		MetricName:     "field_completeness",
		MetricValue:    95.0,
		MetricCategory: models.DimensionFieldCompleteness,
		MetricUnit:     "percent",
		EntityType:     "volunteer",
		Timestamp:      time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(metric)
	}

	err := f.DB.Create(metric).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test validation metric: %v", err))
	}

	return metric
}

// CreateMetricSeries 按固定间隔创建一条指标时间序列
func (f *TestDataFactory) CreateMetricSeries(metricName, entityType string, values []float64, interval time.Duration) []*models.ValidationMetric {
	run := f.CreateValidationRun()

	start := time.Now().Add(-time.Duration(len(values)) * interval)
	metrics := make([]*models.ValidationMetric, 0, len(values))
	for i, value := range values {
		ts := start.Add(time.Duration(i) * interval)
		metric := f.CreateValidationMetric(run.ID, func(m *models.ValidationMetric) {
			m.MetricName = metricName
			m.MetricValue = value
			m.EntityType = entityType
			m.Timestamp = ts
		})
		metrics = append(metrics, metric)
	}
	return metrics
}

// ValidationHistoryOption 校验历史选项函数类型
type ValidationHistoryOption func(*models.ValidationHistory)

// CreateValidationHistory 创建测试校验历史记录
func (f *TestDataFactory) CreateValidationHistory(opts ...ValidationHistoryOption) *models.ValidationHistory {
	record := &models.ValidationHistory{
		ID:               generateID("vh"),
		RunID:            generateID("run"),
		EntityType:       "volunteer",
		ValidationType:   models.DimensionFieldCompleteness,
		QualityScore:     85.0,
		QualityThreshold: 75.0,
		TotalChecks:      20,
		PassedChecks:     18,
		FailedChecks:     2,
		ErrorViolations:  2,
		TotalViolations:  2,
		SuccessRate:      90.0,
	}

	// 应用选项
	for _, opt := range opts {
		opt(record)
	}

	err := f.DB.Create(record).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test validation history: %v", err))
	}

	return record
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
