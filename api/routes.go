/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs service/init.go
 */

package api

import (
	"vms-quality-service/api/controllers"
	"vms-quality-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 校验运行接入
	validationRunController := controllers.NewValidationRunController(service.DB)
	r.Post("/validation-runs", validationRunController.IngestValidationRun)

	// 质量评分管理
	r.Route("/quality", func(r chi.Router) {
		qualityController := controllers.NewQualityController(service.GlobalScoringService, service.GlobalConfigService)

		// 实体质量评分与综合报告
		r.Get("/scores/{entity_type}", qualityController.GetEntityQualityScore)
		r.Get("/report", qualityController.GetComprehensiveReport)

		// 权重与阈值配置
		r.Get("/weights/{entity_type}", qualityController.GetEntityWeights)
		r.Put("/weights/{entity_type}", qualityController.SetEntityWeights)
		r.Put("/thresholds/{entity_type}", qualityController.SetEntityThreshold)
		r.Get("/config-overrides", qualityController.GetConfigOverrides)

		// 校验历史管理
		historyController := controllers.NewHistoryController(service.DB, service.GlobalHistoryService)
		r.Route("/history", func(r chi.Router) {
			r.Get("/", historyController.GetHistory)
			r.Get("/trends", historyController.GetQualityTrends)
			r.Get("/anomalies", historyController.GetAnomalies)
			r.Get("/statistics", historyController.GetSummaryStatistics)
			r.Post("/populate", historyController.PopulateHistory)
			r.Delete("/cleanup", historyController.CleanupHistory)
		})
	})

	// 指标聚合分析
	r.Route("/aggregation", func(r chi.Router) {
		aggregationController := controllers.NewAggregationController(service.GlobalAggregationService)

		r.Get("/rolling-averages", aggregationController.GetRollingAverages)
		r.Get("/moving-windows", aggregationController.GetMovingWindows)
		r.Get("/patterns", aggregationController.GetTrendPatterns)
		r.Get("/summary", aggregationController.GetDataSummary)
		r.Get("/performance-advice", aggregationController.GetPerformanceAdvice)
	})
}
