package config

import (
	"fmt"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// Registry 将分类、标签与策略配置转换为校验过的注册表
//
// 转换与校验失败均为致命配置错误。
func (c *Config) Registry() (*strategy.Registry, error) {
	reg := &strategy.Registry{
		Categories:      make(map[document.Category]strategy.CategoryDefaults, len(c.Categories)),
		Tags:            make(map[string]strategy.TagInfo, len(c.Tags)),
		Strategies:      make(map[string]strategy.Weights, len(c.Strategies)),
		DefaultStrategy: c.Selection.CompositionStrategy,
	}

	for name, cc := range c.Categories {
		cat, ok := document.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("categories.%s: %w", name, coreerrors.ErrUnknownCategory)
		}
		reg.Categories[cat] = strategy.CategoryDefaults{
			Strategy:                cc.Strategy,
			IdealRatio:              cc.IdealRatio,
			RequiredCharacteristics: cc.RequiredCharacteristics,
			MaxDocuments:            cc.MaxDocuments,
		}
	}
	for name, tc := range c.Tags {
		reg.Tags[name] = strategy.TagInfo{
			Incompatible: tc.Incompatible,
			Synergies:    tc.Synergies,
			Avoid:        tc.Avoid,
		}
	}
	for name, w := range c.Strategies {
		reg.Strategies[name] = w
	}

	for i, pair := range c.Conflicts.ExclusiveCategories {
		if len(pair) != 2 {
			return nil, fmt.Errorf("conflicts.exclusive_categories[%d] must have 2 entries: %w", i, coreerrors.ErrInvalidConfig)
		}
		a, okA := document.ParseCategory(pair[0])
		b, okB := document.ParseCategory(pair[1])
		if !okA || !okB {
			return nil, fmt.Errorf("conflicts.exclusive_categories[%d] %v: %w", i, pair, coreerrors.ErrUnknownCategory)
		}
		reg.ExclusiveCategories = append(reg.ExclusiveCategories, [2]document.Category{a, b})
	}
	for i, pair := range c.Conflicts.ConflictingAudiences {
		if len(pair) != 2 {
			return nil, fmt.Errorf("conflicts.conflicting_audiences[%d] must have 2 entries: %w", i, coreerrors.ErrInvalidConfig)
		}
		reg.ConflictingAudiences = append(reg.ConflictingAudiences, [2]string{pair[0], pair[1]})
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}
