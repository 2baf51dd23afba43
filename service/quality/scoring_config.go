/*
 * @module service/quality/scoring_config
 * @description 质量评分配置，定义实体权重、严重级别权重、质量阈值和评分算法参数的默认表
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_scoring_req.md
 * @stateFlow 进程启动加载默认配置 -> 运行时覆盖层叠加 -> 读取时合并
 * @rules 默认配置不可变，运行时修改只作用于覆盖层，重置只清空覆盖层
 * @dependencies service/models
 * @refs service/quality/weighting_engine.go, service/quality/threshold_manager.go
 */

package quality

import "vms-quality-service/service/models"

// 支持的实体类型
const (
	EntityVolunteer    = "volunteer"
	EntityOrganization = "organization"
	EntityEvent        = "event"
	EntityStudent      = "student"
	EntityTeacher      = "teacher"
	EntitySchool       = "school"
	EntityDistrict     = "district"
	EntityDefault      = "default"
)

// 评分算法类型
const (
	AlgorithmPercentage       = "percentage_based"
	AlgorithmPenalty          = "penalty_based"
	AlgorithmSeverityWeighted = "severity_weighted"
)

// 全局兜底质量阈值
const GlobalDefaultThreshold = 75.0

// AdjustmentFactors 动态阈值调整因子，按实体类型配置的常量表
type AdjustmentFactors struct {
	HistoricalPerformance float64 `json:"historical_performance"`
	BusinessCriticality   float64 `json:"business_criticality"`
	DataVolume            float64 `json:"data_volume"`
	Compliance            float64 `json:"compliance"`
}

// ScoringConfig 评分配置值对象
// 每个服务实例构造一份，默认层不可变，覆盖层由各引擎自行维护
type ScoringConfig struct {
	// EntityWeights 实体类型 -> 校验维度 -> 权重
	EntityWeights map[string]map[string]float64
	// SeverityWeights 严重级别 -> 影响系数
	SeverityWeights map[string]float64
	// EntityThresholds 实体类型 -> 质量阈值 (0-100)
	EntityThresholds map[string]float64
	// ImportanceFactors 校验维度 -> 阈值重要性系数
	ImportanceFactors map[string]float64
	// AdjustmentTable 实体类型 -> 动态调整因子
	AdjustmentTable map[string]AdjustmentFactors
	// AdjustmentWeights 四个调整因子各自的权重
	AdjustmentWeights AdjustmentFactors
	// SeverityMultipliers 严重级别 -> 罚分倍数 (severity_weighted 算法)
	SeverityMultipliers map[string]float64

	BaseScore              float64 // 罚分类算法的起始分
	BasePenalty            float64 // severity_weighted 算法的基础罚分
	MaxPenalty             float64 // penalty_based 算法的罚分上限
	TypePenaltyMultiplier  float64 // penalty_based 算法的单条罚分倍数
	MissingRequiredPenalty float64 // 必填字段缺失的附加罚分
	OrphanedRecordPenalty  float64 // 孤立/无效关联的附加罚分

	TrendMinDataPoints  int     // 趋势分析最少数据点
	TrendConfidence     float64 // 趋势置信度阈值
	TrendDeadBand       float64 // 趋势死区，变化幅度低于该值视为稳定
	TrendWeakCutoff     float64
	TrendModerateCutoff float64
	TrendStrongCutoff   float64
}

// DefaultScoringConfig 构建默认评分配置
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		EntityWeights: map[string]map[string]float64{
			EntityVolunteer: {
				models.DimensionFieldCompleteness: 0.30,
				models.DimensionDataTypes:         0.25,
				models.DimensionBusinessRules:     0.25,
				models.DimensionRelationships:     0.20,
			},
			EntityOrganization: {
				models.DimensionFieldCompleteness: 0.25,
				models.DimensionDataTypes:         0.20,
				models.DimensionBusinessRules:     0.35,
				models.DimensionRelationships:     0.20,
			},
			EntityEvent: {
				models.DimensionFieldCompleteness: 0.35,
				models.DimensionDataTypes:         0.25,
				models.DimensionBusinessRules:     0.20,
				models.DimensionRelationships:     0.20,
			},
			EntityStudent: {
				models.DimensionFieldCompleteness: 0.30,
				models.DimensionDataTypes:         0.30,
				models.DimensionBusinessRules:     0.20,
				models.DimensionRelationships:     0.20,
			},
			EntityTeacher: {
				models.DimensionFieldCompleteness: 0.30,
				models.DimensionDataTypes:         0.25,
				models.DimensionBusinessRules:     0.25,
				models.DimensionRelationships:     0.20,
			},
			EntitySchool: {
				models.DimensionFieldCompleteness: 0.25,
				models.DimensionDataTypes:         0.25,
				models.DimensionBusinessRules:     0.25,
				models.DimensionRelationships:     0.25,
			},
			EntityDistrict: {
				models.DimensionFieldCompleteness: 0.20,
				models.DimensionDataTypes:         0.25,
				models.DimensionBusinessRules:     0.30,
				models.DimensionRelationships:     0.25,
			},
			EntityDefault: {
				models.DimensionFieldCompleteness: 0.25,
				models.DimensionDataTypes:         0.25,
				models.DimensionBusinessRules:     0.25,
				models.DimensionRelationships:     0.25,
			},
		},
		SeverityWeights: map[string]float64{
			models.SeverityCritical: 1.0,
			models.SeverityError:    0.8,
			models.SeverityWarning:  0.5,
			models.SeverityInfo:     0.2,
		},
		EntityThresholds: map[string]float64{
			EntityVolunteer:    75.0,
			EntityOrganization: 80.0,
			EntityEvent:        70.0,
			EntityStudent:      78.0,
			EntityTeacher:      78.0,
			EntitySchool:       80.0,
			EntityDistrict:     82.0,
			EntityDefault:      75.0,
		},
		ImportanceFactors: map[string]float64{
			models.DimensionBusinessRules:     1.2,
			models.DimensionDataTypes:         1.1,
			models.DimensionFieldCompleteness: 1.0,
			models.DimensionRelationships:     0.9,
		},
		// 组织类数据的业务关键性和合规要求高于活动类数据
		AdjustmentTable: map[string]AdjustmentFactors{
			EntityVolunteer:    {HistoricalPerformance: 1.0, BusinessCriticality: 1.0, DataVolume: 1.0, Compliance: 1.0},
			EntityOrganization: {HistoricalPerformance: 1.0, BusinessCriticality: 3.0, DataVolume: 1.0, Compliance: 3.0},
			EntityEvent:        {HistoricalPerformance: 0.0, BusinessCriticality: -1.0, DataVolume: 2.0, Compliance: 0.0},
			EntityStudent:      {HistoricalPerformance: 1.0, BusinessCriticality: 2.0, DataVolume: 1.0, Compliance: 3.0},
			EntityTeacher:      {HistoricalPerformance: 1.0, BusinessCriticality: 2.0, DataVolume: 0.0, Compliance: 2.0},
			EntitySchool:       {HistoricalPerformance: 1.0, BusinessCriticality: 2.0, DataVolume: 0.0, Compliance: 1.0},
			EntityDistrict:     {HistoricalPerformance: 1.0, BusinessCriticality: 2.0, DataVolume: 0.0, Compliance: 2.0},
		},
		AdjustmentWeights: AdjustmentFactors{
			HistoricalPerformance: 0.5,
			BusinessCriticality:   1.0,
			DataVolume:            0.5,
			Compliance:            1.0,
		},
		SeverityMultipliers: map[string]float64{
			models.SeverityCritical: 2.0,
			models.SeverityError:    1.5,
			models.SeverityWarning:  1.0,
			models.SeverityInfo:     0.5,
		},
		BaseScore:              100.0,
		BasePenalty:            7.0,
		MaxPenalty:             50.0,
		TypePenaltyMultiplier:  10.0,
		MissingRequiredPenalty: 8.0,
		OrphanedRecordPenalty:  6.0,
		TrendMinDataPoints:     3,
		TrendConfidence:        0.7,
		TrendDeadBand:          0.1,
		TrendWeakCutoff:        0.1,
		TrendModerateCutoff:    0.5,
		TrendStrongCutoff:      1.0,
	}
}

// StandardDimensions 四个标准校验维度
func StandardDimensions() []string {
	return []string{
		models.DimensionFieldCompleteness,
		models.DimensionDataTypes,
		models.DimensionBusinessRules,
		models.DimensionRelationships,
	}
}
