package quality

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/easyops/llmsdigest-go/pkg/conflict"
	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/otel"
	"github.com/easyops/llmsdigest-go/pkg/selection"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// Evaluator 质量评估器。
type Evaluator struct {
	registry   *strategy.Registry
	scorer     *selection.Scorer
	rules      *conflict.RuleSet
	weights    Weights
	hardMin    float64
	softTarget float64

	tracer  otel.Tracer
	metrics otel.Metrics
	logger  otel.Logger
}

// Option 配置 Evaluator。
type Option func(*Evaluator)

// WithWeights 设置指标权重。
func WithWeights(w Weights) Option {
	return func(e *Evaluator) {
		e.weights = w
	}
}

// WithThresholds 设置硬下限与软目标。
func WithThresholds(hardMin, softTarget float64) Option {
	return func(e *Evaluator) {
		e.hardMin = hardMin
		e.softTarget = softTarget
	}
}

// WithRules 设置一致性指标使用的冲突规则集。
func WithRules(rules *conflict.RuleSet) Option {
	return func(e *Evaluator) {
		e.rules = rules
	}
}

// WithTracer 设置追踪器。
func WithTracer(t otel.Tracer) Option {
	return func(e *Evaluator) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMetrics 设置指标收集器。
func WithMetrics(m otel.Metrics) Option {
	return func(e *Evaluator) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(l otel.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEvaluator 创建质量评估器，权重或阈值无效时返回配置错误。
func NewEvaluator(reg *strategy.Registry, opts ...Option) (*Evaluator, error) {
	if reg == nil {
		return nil, fmt.Errorf("nil registry: %w", coreerrors.ErrInvalidConfig)
	}
	e := &Evaluator{
		registry:   reg,
		scorer:     selection.NewScorer(reg),
		weights:    DefaultWeights(),
		hardMin:    DefaultHardMinimum,
		softTarget: DefaultSoftTarget,
		tracer:     otel.NewNoopTracer(),
		metrics:    otel.NewNoopMetrics(),
		logger:     otel.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.weights.Validate(); err != nil {
		return nil, err
	}
	if e.hardMin < 0 || e.softTarget > 1 || e.hardMin > e.softTarget {
		return nil, fmt.Errorf("thresholds %.2f/%.2f: %w", e.hardMin, e.softTarget, coreerrors.ErrInvalidConfig)
	}
	return e, nil
}

// Evaluate 评估已选文档的质量。
//
// docs 为空且提供了 res 时使用 res 中的入选文档；res 中已有的冲突分析会被复用。
// 只有约束中的质量阈值超出 [0, 1] 时返回错误。
func (e *Evaluator) Evaluate(ctx context.Context, docs []*document.DocumentMetadata, c selection.Constraints, res *selection.SelectionResult) (*Report, error) {
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return nil, fmt.Errorf("quality threshold %.2f: %w", c.QualityThreshold, coreerrors.ErrInvalidConstraints)
	}
	if len(docs) == 0 && res != nil {
		docs = res.Documents()
	}
	selected := make([]*document.DocumentMetadata, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			selected = append(selected, d)
		}
	}

	ctx, span := e.tracer.Start(ctx, "quality.evaluate", otel.DocumentCount(len(selected)))
	defer span.End()

	report := &Report{}
	values := make(map[MetricName]float64, len(metricOrder))
	details := make(map[MetricName]string, len(metricOrder))
	if len(selected) > 0 {
		values[MetricContentRelevance], details[MetricContentRelevance] = e.relevance(selected, c)
		values[MetricAudienceAlignment], details[MetricAudienceAlignment] = audienceAlignment(selected, c)
		values[MetricTopicBreadth], details[MetricTopicBreadth] = e.breadth(selected)
		values[MetricThematicCoherence], details[MetricThematicCoherence] = e.coherence(selected, res)
		values[MetricContentCompleteness], details[MetricContentCompleteness] = completeness(selected)

		total := 0.0
		for _, d := range selected {
			total += selection.Confidence(d)
		}
		report.Confidence = total / float64(len(selected))
	}

	overall := 0.0
	for _, name := range metricOrder {
		v := values[name]
		w := e.weights[name]
		overall += w * v
		report.Metrics = append(report.Metrics, Metric{Name: name, Value: v, Weight: w, Detail: details[name]})
	}
	report.OverallScore = overall * 100
	report.Grade = GradeFor(report.OverallScore)
	report.Validation = e.validate(report, c, len(selected))

	span.SetAttributes(
		attribute.Float64("quality.overall", report.OverallScore),
		attribute.String(otel.AttrQualityGrade, string(report.Grade)),
		attribute.Bool("quality.passed", report.Validation.Passed),
	)
	e.metrics.Histogram(otel.MetricQualityScore).Record(ctx, report.OverallScore,
		otel.NewAttr(otel.AttrQualityGrade, string(report.Grade)))
	e.logger.WithContext(ctx).Debug("quality evaluated",
		"overall", report.OverallScore,
		"grade", string(report.Grade),
		"failed", len(report.Validation.Failed),
		"warnings", len(report.Validation.Warnings),
	)
	return report, nil
}

func (e *Evaluator) validate(r *Report, c selection.Constraints, n int) Validation {
	v := Validation{}
	if n == 0 {
		v.Issues = append(v.Issues, "no documents selected")
	}
	for _, m := range r.Metrics {
		switch {
		case m.Value < e.hardMin:
			v.Failed = append(v.Failed, m.Name)
			v.Issues = append(v.Issues, fmt.Sprintf("%s %.2f below minimum %.2f", m.Name, m.Value, e.hardMin))
		case m.Value < e.softTarget:
			v.Warnings = append(v.Warnings, m.Name)
			v.Issues = append(v.Issues, fmt.Sprintf("%s %.2f below target %.2f", m.Name, m.Value, e.softTarget))
		}
	}
	required := c.QualityThreshold * 100
	if r.OverallScore < required {
		v.Issues = append(v.Issues, fmt.Sprintf("overall %.1f below required %.1f", r.OverallScore, required))
	}
	v.Passed = len(v.Failed) == 0 && r.OverallScore >= required
	return v
}

// relevance 目标标签对齐度均值；未指定目标标签时使用归一化优先级均值。
func (e *Evaluator) relevance(docs []*document.DocumentMetadata, c selection.Constraints) (float64, string) {
	sum := 0.0
	if len(c.TargetTags) == 0 {
		for _, d := range docs {
			sum += float64(d.Priority.Score) / 100
		}
		return sum / float64(len(docs)), "mean normalized priority (no target tags)"
	}
	for _, d := range docs {
		sum += e.scorer.TagAlignment(d, c.TargetTags)
	}
	return sum / float64(len(docs)), fmt.Sprintf("mean tag alignment over %d target tags", len(c.TargetTags))
}

// audienceAlignment 与目标受众有交集的文档占比。
func audienceAlignment(docs []*document.DocumentMetadata, c selection.Constraints) (float64, string) {
	if len(c.TargetAudience) == 0 {
		return 1, "no target audience"
	}
	aligned := 0
	for _, d := range docs {
		for _, a := range c.TargetAudience {
			if d.HasAudience(a) {
				aligned++
				break
			}
		}
	}
	return float64(aligned) / float64(len(docs)), fmt.Sprintf("%d of %d documents share the target audience", aligned, len(docs))
}

// breadth 分类覆盖率与标签多样性各占一半。
func (e *Evaluator) breadth(docs []*document.DocumentMetadata) (float64, string) {
	cats := make(map[document.Category]struct{})
	tags := make(map[string]struct{})
	occurrences := 0
	for _, d := range docs {
		cats[d.Category] = struct{}{}
		for _, t := range d.AllTags() {
			tags[t] = struct{}{}
			occurrences++
		}
	}

	possible := len(document.Categories())
	if mix := e.registry.IdealMix(); len(mix) > 0 {
		possible = len(mix)
	}
	if len(docs) < possible {
		possible = len(docs)
	}
	categoryCoverage := float64(len(cats)) / float64(possible)
	if categoryCoverage > 1 {
		categoryCoverage = 1
	}

	diversity := 0.0
	if occurrences > 0 {
		diversity = float64(len(tags)) / float64(occurrences)
	}
	return 0.5*categoryCoverage + 0.5*diversity,
		fmt.Sprintf("%d categories, %d distinct tags", len(cats), len(tags))
}

// coherence 1 减去按严重程度加权的冲突密度。
func (e *Evaluator) coherence(docs []*document.DocumentMetadata, res *selection.SelectionResult) (float64, string) {
	n := len(docs)
	if n < 2 {
		return 1, "single document"
	}

	var conflicts []conflict.Conflict
	if res != nil && res.Analysis.Conflicts != nil {
		present := make(map[string]struct{}, n)
		for _, d := range docs {
			present[d.ID] = struct{}{}
		}
		for _, cf := range res.Analysis.Conflicts.Conflicts {
			_, first := present[cf.First]
			_, second := present[cf.Second]
			if first && second {
				conflicts = append(conflicts, cf)
			}
		}
	} else {
		conflicts = conflict.NewDetector(e.registry, e.rules).Detect(docs, conflict.DetectOptions{}).Conflicts
	}

	weight := 0.0
	for _, cf := range conflicts {
		weight += cf.Severity.Factor()
	}
	pairs := float64(n*(n-1)) / 2
	v := 1 - weight/pairs
	if v < 0 {
		v = 0
	}
	return v, fmt.Sprintf("%d conflicts across %d pairs", len(conflicts), int(pairs))
}

// completeness 元数据完整度均值与前置依赖满足率各占一半。
func completeness(docs []*document.DocumentMetadata) (float64, string) {
	present := make(map[string]struct{}, len(docs))
	meta := 0.0
	for _, d := range docs {
		present[d.ID] = struct{}{}
		meta += d.Completeness()
	}
	meta /= float64(len(docs))

	total, satisfied := 0, 0
	for _, d := range docs {
		for _, rel := range d.Dependencies.Prerequisites {
			total++
			if _, ok := present[rel.ID]; ok {
				satisfied++
			}
		}
	}
	prereq := 1.0
	if total > 0 {
		prereq = float64(satisfied) / float64(total)
	}
	return 0.5*meta + 0.5*prereq, fmt.Sprintf("%d of %d prerequisites included", satisfied, total)
}
