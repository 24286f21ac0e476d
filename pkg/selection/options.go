package selection

import (
	"fmt"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/conflict"
	"github.com/easyops/llmsdigest-go/pkg/otel"
)

// Options 选择器配置。
type Options struct {
	// Strategy 选择策略
	Strategy Strategy
	// CompositionStrategy 评分使用的组合策略；为空时使用各分类默认策略
	CompositionStrategy string
	// DependencyDepth 依赖展开的最大深度
	DependencyDepth int `validate:"gte=0,lte=10"`
	// IncludeOptional 是否沿可选关系展开
	IncludeOptional bool
	// ConflictResolution 依赖冲突处理方式
	ConflictResolution ConflictMode `validate:"oneof=higher-score-wins exclude-conflicts manual-review"`
	// AutoResolveConflicts 是否自动应用冲突解决方案
	AutoResolveConflicts bool
	// DiverseCategoryCap diverse 策略首轮每个分类的上限
	DiverseCategoryCap int `validate:"gte=1"`

	// SizeEstimator 选择阶段的尺寸估算
	SizeEstimator SizeEstimator `validate:"-"`
	// Rules 冲突规则集；为 nil 时使用内置规则
	Rules *conflict.RuleSet `validate:"-"`

	Tracer  otel.Tracer  `validate:"-"`
	Metrics otel.Metrics `validate:"-"`
	Logger  otel.Logger  `validate:"-"`
}

// DefaultOptions 返回默认选项。
func DefaultOptions() Options {
	return Options{
		Strategy:             StrategyBalanced,
		DependencyDepth:      2,
		ConflictResolution:   ConflictHigherScoreWins,
		AutoResolveConflicts: true,
		DiverseCategoryCap:   2,
		SizeEstimator:        EstimateSize,
		Tracer:               otel.NewNoopTracer(),
		Metrics:              otel.NewNoopMetrics(),
		Logger:               otel.NewNoopLogger(),
	}
}

// Validate 校验选项。
func (o *Options) Validate() error {
	if !o.Strategy.Valid() {
		return fmt.Errorf("strategy %q: %w", o.Strategy, coreerrors.ErrUnknownSelectionStrategy)
	}
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("selection options: %v: %w", err, coreerrors.ErrInvalidConfig)
	}
	return nil
}

// Option 配置 Options。
type Option func(*Options)

// WithStrategy 设置选择策略。
func WithStrategy(s Strategy) Option {
	return func(o *Options) {
		o.Strategy = s
	}
}

// WithCompositionStrategy 设置评分使用的组合策略。
func WithCompositionStrategy(name string) Option {
	return func(o *Options) {
		o.CompositionStrategy = name
	}
}

// WithDependencyDepth 设置依赖展开深度。
func WithDependencyDepth(depth int) Option {
	return func(o *Options) {
		o.DependencyDepth = depth
	}
}

// WithOptionalDependencies 启用或禁用可选关系展开。
func WithOptionalDependencies(enabled bool) Option {
	return func(o *Options) {
		o.IncludeOptional = enabled
	}
}

// WithConflictResolution 设置依赖冲突处理方式。
func WithConflictResolution(mode ConflictMode) Option {
	return func(o *Options) {
		o.ConflictResolution = mode
	}
}

// WithAutoResolveConflicts 启用或禁用冲突自动解决。
func WithAutoResolveConflicts(enabled bool) Option {
	return func(o *Options) {
		o.AutoResolveConflicts = enabled
	}
}

// WithDiverseCategoryCap 设置 diverse 策略首轮每个分类的上限。
func WithDiverseCategoryCap(n int) Option {
	return func(o *Options) {
		o.DiverseCategoryCap = n
	}
}

// WithSizeEstimator 设置尺寸估算函数。
func WithSizeEstimator(fn SizeEstimator) Option {
	return func(o *Options) {
		if fn != nil {
			o.SizeEstimator = fn
		}
	}
}

// WithRules 设置冲突规则集。
func WithRules(rules *conflict.RuleSet) Option {
	return func(o *Options) {
		o.Rules = rules
	}
}

// WithTracer 设置追踪器。
func WithTracer(t otel.Tracer) Option {
	return func(o *Options) {
		if t != nil {
			o.Tracer = t
		}
	}
}

// WithMetrics 设置指标收集器。
func WithMetrics(m otel.Metrics) Option {
	return func(o *Options) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(l otel.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithProvider 从可观测性提供者设置追踪器、指标与日志。
func WithProvider(p *otel.Provider) Option {
	return func(o *Options) {
		if p == nil {
			return
		}
		o.Tracer = p.Tracer()
		o.Metrics = p.Metrics()
		o.Logger = p.Logger()
	}
}
