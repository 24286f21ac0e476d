package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// sectionValidator 配置段校验器
var sectionValidator = validator.New()

// CategoryConfig 分类配置
type CategoryConfig struct {
	// Strategy 分类默认组合策略
	Strategy string `koanf:"strategy"`
	// IdealRatio 理想预算比例 [0, 1]
	IdealRatio float64 `koanf:"ideal_ratio"`
	// RequiredCharacteristics 要求的特征标签
	RequiredCharacteristics []string `koanf:"required_characteristics"`
	// MaxDocuments 单次选择的文档上限（0 表示不限）
	MaxDocuments int `koanf:"max_documents"`
}

// TagConfig 标签配置
type TagConfig struct {
	Incompatible []string `koanf:"incompatible"`
	Synergies    []string `koanf:"synergies"`
	Avoid        []string `koanf:"avoid"`
}

// ConflictConfig 冲突规则配置
type ConflictConfig struct {
	// ExclusiveCategories 互斥分类对
	ExclusiveCategories [][]string `koanf:"exclusive_categories"`
	// ConflictingAudiences 冲突受众对
	ConflictingAudiences [][]string `koanf:"conflicting_audiences"`
	// DisabledRules 禁用的冲突规则名称
	DisabledRules []string `koanf:"disabled_rules"`
}

// SelectionConfig 文档选择配置
type SelectionConfig struct {
	// Strategy 选择策略 (greedy, balanced, quality-focused, diverse)
	Strategy string `koanf:"strategy" validate:"oneof=greedy balanced quality-focused diverse"`
	// CompositionStrategy 评分使用的组合策略（权重集名称）
	CompositionStrategy string `koanf:"composition_strategy"`
	// MaxCharacters 字符预算
	MaxCharacters int `koanf:"max_characters" validate:"gt=0"`
	// QualityThreshold 最低评分阈值 [0, 1]
	QualityThreshold float64 `koanf:"quality_threshold" validate:"gte=0,lte=1"`
	// DependencyDepth 依赖展开的最大深度
	DependencyDepth int `koanf:"dependency_depth" validate:"gte=0,lte=10"`
	// IncludeOptional 是否沿参考/后续/补充关系展开
	IncludeOptional bool `koanf:"include_optional"`
	// ConflictResolution 依赖冲突处理方式
	ConflictResolution string `koanf:"conflict_resolution" validate:"oneof=higher-score-wins exclude-conflicts manual-review"`
	// AutoResolveConflicts 是否自动应用冲突解决方案
	AutoResolveConflicts bool `koanf:"auto_resolve_conflicts"`
	// DiverseCategoryCap diverse 策略每个分类的首轮上限
	DiverseCategoryCap int `koanf:"diverse_category_cap" validate:"gte=1"`
}

// Validate 校验选择配置
func (c *SelectionConfig) Validate() error {
	return validateSection("selection", c)
}

// CompositionConfig 文本组合配置
type CompositionConfig struct {
	// CharacterLimits 需要生成的字符限制列表
	CharacterLimits []int `koanf:"character_limits" validate:"min=1,dive,gt=0"`
	// IncludeTableOfContents 是否生成目录
	IncludeTableOfContents bool `koanf:"include_table_of_contents"`
	// TOCCharacterLimit 目录字符上限
	TOCCharacterLimit int `koanf:"toc_character_limit" validate:"gte=0"`
	// PriorityThreshold 参与组合的最低优先级分数
	PriorityThreshold int `koanf:"priority_threshold" validate:"gte=0,lte=100"`
	// BodyReserve 正文剩余预算不高于该值时停止
	BodyReserve int `koanf:"body_reserve" validate:"gte=0"`
	// Language 输出语言
	Language string `koanf:"language"`
}

// Validate 校验组合配置
func (c *CompositionConfig) Validate() error {
	return validateSection("composition", c)
}

func validateSection(name string, s interface{}) error {
	err := sectionValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return wrapConfigError(err, name)
	}
	// 只报告第一个字段，与 koanf 键保持一致
	fe := verrs[0]
	return wrapConfigError(fmt.Errorf("field %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()), name)
}
