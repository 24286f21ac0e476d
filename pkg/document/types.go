package document

import "strings"

// Category 文档分类（封闭集合）
type Category string

const (
	// CategoryGuide 指南
	CategoryGuide Category = "guide"
	// CategoryAPI API 参考
	CategoryAPI Category = "api"
	// CategoryConcept 概念说明
	CategoryConcept Category = "concept"
	// CategoryExample 示例
	CategoryExample Category = "example"
	// CategoryReference 参考资料
	CategoryReference Category = "reference"
	// CategoryLLMs 面向 LLM 的摘要文档
	CategoryLLMs Category = "llms"
)

// Categories 返回全部分类（固定顺序）
func Categories() []Category {
	return []Category{
		CategoryGuide,
		CategoryAPI,
		CategoryConcept,
		CategoryExample,
		CategoryReference,
		CategoryLLMs,
	}
}

// Valid 判断分类是否属于封闭集合
func (c Category) Valid() bool {
	switch c {
	case CategoryGuide, CategoryAPI, CategoryConcept, CategoryExample, CategoryReference, CategoryLLMs:
		return true
	default:
		return false
	}
}

// ParseCategory 解析分类名称（忽略大小写与首尾空白）
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Tier 由优先级分数派生的离散等级
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
	TierMinimal  Tier = "minimal"
)

// TierForScore 根据 0-100 的分数计算等级
func TierForScore(score int) Tier {
	switch {
	case score >= 90:
		return TierCritical
	case score >= 75:
		return TierHigh
	case score >= 50:
		return TierMedium
	case score >= 25:
		return TierLow
	default:
		return TierMinimal
	}
}

// Complexity 内容复杂度（四级）
type Complexity string

const (
	ComplexityBeginner     Complexity = "beginner"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
	ComplexityExpert       Complexity = "expert"
)

// Level 返回复杂度等级（1-4），未知或缺失时返回 0
func (c Complexity) Level() int {
	switch c {
	case ComplexityBeginner:
		return 1
	case ComplexityIntermediate:
		return 2
	case ComplexityAdvanced:
		return 3
	case ComplexityExpert:
		return 4
	default:
		return 0
	}
}

// Importance 依赖关系的重要程度
type Importance string

const (
	ImportanceRequired    Importance = "required"
	ImportanceRecommended Importance = "recommended"
	ImportanceOptional    Importance = "optional"
)

// RelationKind 依赖关系类型
type RelationKind string

const (
	RelationPrerequisite RelationKind = "prerequisite"
	RelationReference    RelationKind = "reference"
	RelationFollowup     RelationKind = "followup"
	RelationComplement   RelationKind = "complement"
	RelationConflict     RelationKind = "conflict"
)
