package config

import (
	"github.com/easyops/llmsdigest-go/pkg/compose"
	"github.com/easyops/llmsdigest-go/pkg/conflict"
	"github.com/easyops/llmsdigest-go/pkg/selection"
)

// Rules 返回禁用 conflicts.disabled_rules 后的冲突规则集
func (c *Config) Rules() (*conflict.RuleSet, error) {
	rules, err := conflict.DefaultRuleSet().Without(c.Conflicts.DisabledRules...)
	if err != nil {
		return nil, wrapConfigError(err, "conflicts.disabled_rules")
	}
	return rules, nil
}

// SelectorOptions 将 selection 段转换为选择器选项
//
// 组合策略已作为注册表默认策略生效，这里不再强制覆盖各分类的策略。
func (c *Config) SelectorOptions() ([]selection.Option, error) {
	rules, err := c.Rules()
	if err != nil {
		return nil, err
	}
	s := c.Selection
	return []selection.Option{
		selection.WithStrategy(selection.Strategy(s.Strategy)),
		selection.WithDependencyDepth(s.DependencyDepth),
		selection.WithOptionalDependencies(s.IncludeOptional),
		selection.WithConflictResolution(selection.ConflictMode(s.ConflictResolution)),
		selection.WithAutoResolveConflicts(s.AutoResolveConflicts),
		selection.WithDiverseCategoryCap(s.DiverseCategoryCap),
		selection.WithRules(rules),
	}, nil
}

// Constraints 返回只包含预算与质量阈值的基础约束，标签与受众由调用方补充
func (c *Config) Constraints() selection.Constraints {
	return selection.Constraints{
		MaxCharacters:    c.Selection.MaxCharacters,
		QualityThreshold: c.Selection.QualityThreshold,
	}
}

// ComposeOptions 返回组合选项，CharacterLimit 取 character_limits 中的最大值
//
// 多个上限通过 Composer.ComposeMany 配合 Composition.CharacterLimits 使用。
func (c *Config) ComposeOptions() compose.Options {
	cc := c.Composition
	limit := 0
	for _, l := range cc.CharacterLimits {
		limit = max(limit, l)
	}
	return compose.Options{
		Language:               cc.Language,
		CharacterLimit:         limit,
		IncludeTableOfContents: cc.IncludeTableOfContents,
		TOCCharacterLimit:      cc.TOCCharacterLimit,
		PriorityThreshold:      cc.PriorityThreshold,
		BodyReserve:            cc.BodyReserve,
	}
}
