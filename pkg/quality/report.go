// Package quality 评估一次选择结果的整体质量。
//
// 五项指标各在 [0, 1]，加权求和后换算为 0-100 的总分并划分 A-F 等级；
// 低于硬下限的指标记为失败，低于软目标的指标记为警告。
package quality

import (
	"fmt"
	"math"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
)

// MetricName 质量指标名称。
type MetricName string

const (
	MetricContentRelevance    MetricName = "content-relevance"
	MetricAudienceAlignment   MetricName = "audience-alignment"
	MetricTopicBreadth        MetricName = "topic-breadth"
	MetricThematicCoherence   MetricName = "thematic-coherence"
	MetricContentCompleteness MetricName = "content-completeness"
)

// metricOrder 报告中指标的固定顺序。
var metricOrder = []MetricName{
	MetricContentRelevance,
	MetricAudienceAlignment,
	MetricTopicBreadth,
	MetricThematicCoherence,
	MetricContentCompleteness,
}

// 验证阈值默认值。
const (
	// DefaultHardMinimum 低于该值的指标判定为失败
	DefaultHardMinimum = 0.3
	// DefaultSoftTarget 低于该值的指标给出警告
	DefaultSoftTarget = 0.6
)

// Weights 指标权重，和必须为 1.0。
type Weights map[MetricName]float64

// DefaultWeights 返回默认指标权重。
func DefaultWeights() Weights {
	return Weights{
		MetricContentRelevance:    0.30,
		MetricAudienceAlignment:   0.20,
		MetricTopicBreadth:        0.20,
		MetricThematicCoherence:   0.15,
		MetricContentCompleteness: 0.15,
	}
}

// Validate 校验权重覆盖全部指标、非负且和为 1.0。
func (w Weights) Validate() error {
	sum := 0.0
	for _, name := range metricOrder {
		v, ok := w[name]
		if !ok {
			return fmt.Errorf("missing weight for %s: %w", name, coreerrors.ErrInvalidWeights)
		}
		if v < 0 {
			return fmt.Errorf("negative weight for %s: %w", name, coreerrors.ErrInvalidWeights)
		}
		sum += v
	}
	if len(w) != len(metricOrder) {
		return fmt.Errorf("unknown metric in weights: %w", coreerrors.ErrInvalidWeights)
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("quality weights sum to %.4f, want 1.0: %w", sum, coreerrors.ErrInvalidWeights)
	}
	return nil
}

// Grade 质量等级。
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFor 将 0-100 的总分划分为等级。
func GradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// Metric 单项指标。
type Metric struct {
	Name   MetricName `json:"name"`
	Value  float64    `json:"value"`
	Weight float64    `json:"weight"`
	// Detail 指标计算说明
	Detail string `json:"detail"`
}

// Validation 验证结果。
type Validation struct {
	// Passed 没有失败指标且总分达到约束阈值
	Passed bool `json:"passed"`
	// Failed 低于硬下限的指标
	Failed []MetricName `json:"failed,omitempty"`
	// Warnings 低于软目标（但未失败）的指标
	Warnings []MetricName `json:"warnings,omitempty"`
	// Issues 面向用户的问题描述
	Issues []string `json:"issues,omitempty"`
}

// Report 质量报告。
type Report struct {
	// OverallScore 加权总分 [0, 100]
	OverallScore float64 `json:"overall_score"`
	Grade        Grade   `json:"grade"`
	// Confidence 置信度 [0, 1]，文档缺少可选元数据时降低
	Confidence float64    `json:"confidence"`
	Metrics    []Metric   `json:"metrics"`
	Validation Validation `json:"validation"`
}

// Metric 按名称查找指标。
func (r *Report) Metric(name MetricName) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}
