// Package strategy 提供分类默认策略、标签注册表与组合策略权重。
//
// Registry 是显式传入各组件构造函数的只读配置对象，不存在进程级的全局状态。
package strategy

import (
	"fmt"
	"math"
	"sort"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
)

// weightTolerance 权重和与 1.0 的允许误差
const weightTolerance = 1e-6

// Weights 组合策略的权重集合，四项之和必须为 1.0
type Weights struct {
	Category   float64 `koanf:"category"`
	Tag        float64 `koanf:"tag"`
	Dependency float64 `koanf:"dependency"`
	Priority   float64 `koanf:"priority"`
}

// Sum 返回权重之和
func (w Weights) Sum() float64 {
	return w.Category + w.Tag + w.Dependency + w.Priority
}

// Validate 校验权重非负且和为 1.0
func (w Weights) Validate() error {
	if w.Category < 0 || w.Tag < 0 || w.Dependency < 0 || w.Priority < 0 {
		return fmt.Errorf("negative weight in %+v: %w", w, coreerrors.ErrInvalidWeights)
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("weights sum to %.4f, want 1.0: %w", w.Sum(), coreerrors.ErrInvalidWeights)
	}
	return nil
}

// CategoryDefaults 分类的默认策略参数
type CategoryDefaults struct {
	// Strategy 该分类默认使用的组合策略名称
	Strategy string
	// IdealRatio 理想情况下该分类占总预算的比例 [0, 1]
	IdealRatio float64
	// RequiredCharacteristics 该分类文档应具备的特征标签
	RequiredCharacteristics []string
	// MaxDocuments 单次选择中该分类的文档上限（0 表示不限）
	MaxDocuments int
}

// TagInfo 标签注册信息
type TagInfo struct {
	// Incompatible 与之互斥的标签（严格兼容模式下硬排除）
	Incompatible []string
	// Synergies 与之共现时加分的标签
	Synergies []string
	// Avoid 与之共现时减分的标签
	Avoid []string
}

// Registry 分类、标签与组合策略的注册表
type Registry struct {
	Categories map[document.Category]CategoryDefaults
	Tags       map[string]TagInfo
	Strategies map[string]Weights
	// DefaultStrategy 分类未指定策略时使用的组合策略
	DefaultStrategy string
	// ExclusiveCategories 互斥的分类对
	ExclusiveCategories [][2]document.Category
	// ConflictingAudiences 冲突的受众对
	ConflictingAudiences [][2]string
}

// 内置组合策略名称
const (
	StrategyBalanced         = "balanced"
	StrategyPriorityFirst    = "priority-first"
	StrategyTagFocused       = "tag-focused"
	StrategyDependencyDriven = "dependency-driven"
)

// DefaultRegistry 返回内置的默认注册表
func DefaultRegistry() *Registry {
	return &Registry{
		Categories: map[document.Category]CategoryDefaults{
			document.CategoryGuide: {
				Strategy:                StrategyBalanced,
				IdealRatio:              0.30,
				RequiredCharacteristics: []string{"step-by-step", "practical"},
			},
			document.CategoryAPI: {
				Strategy:                StrategyPriorityFirst,
				IdealRatio:              0.25,
				RequiredCharacteristics: []string{"reference", "technical"},
			},
			document.CategoryConcept: {
				Strategy:                StrategyDependencyDriven,
				IdealRatio:              0.20,
				RequiredCharacteristics: []string{"theory", "architecture"},
			},
			document.CategoryExample: {
				Strategy:                StrategyTagFocused,
				IdealRatio:              0.15,
				RequiredCharacteristics: []string{"practical", "code"},
			},
			document.CategoryReference: {
				Strategy:     StrategyPriorityFirst,
				IdealRatio:   0.05,
				MaxDocuments: 5,
			},
			document.CategoryLLMs: {
				Strategy:     StrategyBalanced,
				IdealRatio:   0.05,
				MaxDocuments: 2,
			},
		},
		Tags: map[string]TagInfo{
			"beginner":     {Incompatible: []string{"expert"}, Synergies: []string{"step-by-step", "practical"}},
			"intermediate": {},
			"advanced":     {Avoid: []string{"beginner"}},
			"expert":       {Incompatible: []string{"beginner"}},
			"step-by-step": {Synergies: []string{"beginner"}},
			"practical":    {Synergies: []string{"code"}},
			"code":         {Synergies: []string{"practical"}},
			"reference":    {},
			"technical":    {},
			"theory":       {Avoid: []string{"step-by-step"}},
			"architecture": {},
		},
		Strategies: map[string]Weights{
			StrategyBalanced:         {Category: 0.25, Tag: 0.25, Dependency: 0.20, Priority: 0.30},
			StrategyPriorityFirst:    {Category: 0.10, Tag: 0.20, Dependency: 0.10, Priority: 0.60},
			StrategyTagFocused:       {Category: 0.15, Tag: 0.50, Dependency: 0.15, Priority: 0.20},
			StrategyDependencyDriven: {Category: 0.10, Tag: 0.20, Dependency: 0.50, Priority: 0.20},
		},
		DefaultStrategy: StrategyBalanced,
		ExclusiveCategories: [][2]document.Category{
			{document.CategoryLLMs, document.CategoryReference},
		},
		ConflictingAudiences: [][2]string{
			{"new-user", "maintainer"},
		},
	}
}

// Validate 校验注册表，返回的错误均为致命配置错误
func (r *Registry) Validate() error {
	if len(r.Strategies) == 0 {
		return fmt.Errorf("no composition strategies: %w", coreerrors.ErrInvalidConfig)
	}
	for _, name := range sortedKeys(r.Strategies) {
		if err := r.Strategies[name].Validate(); err != nil {
			return coreerrors.WrapError(err, "strategy "+name)
		}
	}
	if _, ok := r.Strategies[r.DefaultStrategy]; !ok {
		return fmt.Errorf("default strategy %q: %w", r.DefaultStrategy, coreerrors.ErrUnknownStrategy)
	}

	ratioSum := 0.0
	for _, cat := range document.Categories() {
		def, ok := r.Categories[cat]
		if !ok {
			continue
		}
		if def.Strategy != "" {
			if _, ok := r.Strategies[def.Strategy]; !ok {
				return fmt.Errorf("category %s strategy %q: %w", cat, def.Strategy, coreerrors.ErrUnknownStrategy)
			}
		}
		if def.IdealRatio < 0 || def.IdealRatio > 1 {
			return fmt.Errorf("category %s ideal ratio %.2f out of range: %w", cat, def.IdealRatio, coreerrors.ErrInvalidConfig)
		}
		ratioSum += def.IdealRatio
		for _, tag := range def.RequiredCharacteristics {
			if _, ok := r.Tags[tag]; !ok {
				return fmt.Errorf("category %s characteristic %q: %w", cat, tag, coreerrors.ErrUnknownTag)
			}
		}
	}
	for cat := range r.Categories {
		if !cat.Valid() {
			return fmt.Errorf("category %q: %w", cat, coreerrors.ErrUnknownCategory)
		}
	}
	if ratioSum > 1+weightTolerance {
		return fmt.Errorf("category ideal ratios sum to %.2f: %w", ratioSum, coreerrors.ErrInvalidConfig)
	}

	for _, name := range sortedKeys(r.Tags) {
		info := r.Tags[name]
		for _, list := range [][]string{info.Incompatible, info.Synergies, info.Avoid} {
			for _, other := range list {
				if _, ok := r.Tags[other]; !ok {
					return fmt.Errorf("tag %s references %q: %w", name, other, coreerrors.ErrUnknownTag)
				}
			}
		}
	}

	for _, pair := range r.ExclusiveCategories {
		for _, cat := range pair {
			if !cat.Valid() {
				return fmt.Errorf("exclusive category %q: %w", cat, coreerrors.ErrUnknownCategory)
			}
		}
	}
	return nil
}

// Defaults 返回分类的默认参数（分类策略提供者）
//
// 未配置的分类返回使用默认策略、比例为 0 的参数。
func (r *Registry) Defaults(cat document.Category) CategoryDefaults {
	def, ok := r.Categories[cat]
	if !ok {
		return CategoryDefaults{Strategy: r.DefaultStrategy}
	}
	if def.Strategy == "" {
		def.Strategy = r.DefaultStrategy
	}
	return def
}

// Weights 按名称查找组合策略权重
func (r *Registry) Weights(name string) (Weights, error) {
	if name == "" {
		name = r.DefaultStrategy
	}
	w, ok := r.Strategies[name]
	if !ok {
		return Weights{}, fmt.Errorf("strategy %q: %w", name, coreerrors.ErrUnknownStrategy)
	}
	return w, nil
}

// IdealMix 返回各分类的理想预算比例
func (r *Registry) IdealMix() map[document.Category]float64 {
	mix := make(map[document.Category]float64, len(r.Categories))
	for cat, def := range r.Categories {
		if def.IdealRatio > 0 {
			mix[cat] = def.IdealRatio
		}
	}
	return mix
}

// Incompatible 判断两个标签是否互斥（对称）
func (r *Registry) Incompatible(a, b string) bool {
	return r.related(a, b, func(t TagInfo) []string { return t.Incompatible })
}

// Synergistic 判断两个标签是否协同（对称）
func (r *Registry) Synergistic(a, b string) bool {
	return r.related(a, b, func(t TagInfo) []string { return t.Synergies })
}

// Avoided 判断两个标签是否应避免共现（对称）
func (r *Registry) Avoided(a, b string) bool {
	return r.related(a, b, func(t TagInfo) []string { return t.Avoid })
}

// CategoriesExclusive 判断两个分类是否在互斥列表中（对称）
func (r *Registry) CategoriesExclusive(a, b document.Category) bool {
	for _, pair := range r.ExclusiveCategories {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true
		}
	}
	return false
}

// AudiencesConflict 判断两个受众是否在冲突列表中（对称）
func (r *Registry) AudiencesConflict(a, b string) bool {
	for _, pair := range r.ConflictingAudiences {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true
		}
	}
	return false
}

// IncompatiblePairs 返回标签集合中所有互斥的标签对（按出现顺序）
func (r *Registry) IncompatiblePairs(tags []string) [][2]string {
	var pairs [][2]string
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			if r.Incompatible(tags[i], tags[j]) {
				pairs = append(pairs, [2]string{tags[i], tags[j]})
			}
		}
	}
	return pairs
}

func (r *Registry) related(a, b string, list func(TagInfo) []string) bool {
	if a == b {
		return false
	}
	if info, ok := r.Tags[a]; ok && contains(list(info), b) {
		return true
	}
	if info, ok := r.Tags[b]; ok && contains(list(info), a) {
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
