// Package selection 实现文档选择引擎：评分、标签过滤、依赖解析、
// 冲突处理以及在字符预算内的选择策略。
//
// 处理流程与上下文构建管线一致：
//   - Filter: 按标签、受众与兼容性硬排除
//   - Resolve: 沿依赖关系有界展开
//   - Conflicts: 检测并（可选）自动解决冲突
//   - Score: 多因子评分
//   - Strategy: 在预算内选择
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
)

var validate = validator.New()

// Constraints 调用方提供的选择约束。
type Constraints struct {
	// MaxCharacters 字符预算（按尺寸估算器计）
	MaxCharacters int `validate:"gt=0"`
	// TargetTags 目标标签及其权重
	TargetTags map[string]float64 `validate:"dive,keys,required,endkeys,gte=0"`
	// RequiredTags 必须全部携带的标签
	RequiredTags []string `validate:"dive,required"`
	// ExcludedTags 不得携带的标签
	ExcludedTags []string `validate:"dive,required"`
	// TargetAudience 目标受众
	TargetAudience []string
	// FilterByAudience 是否按受众过滤
	FilterByAudience bool
	// StrictCompatibility 是否排除携带互斥标签对的文档
	StrictCompatibility bool
	// QualityThreshold 最低总分 [0, 1]
	QualityThreshold float64 `validate:"gte=0,lte=1"`
	// SelectedDocuments 已选中的文档 ID（用于增量依赖评分）
	SelectedDocuments []string
}

// Validate 校验约束，失败返回 ErrInvalidConstraints。
func (c *Constraints) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s fails %q: %w", fe.Namespace(), fe.Tag(), coreerrors.ErrInvalidConstraints)
	}
	return fmt.Errorf("%v: %w", err, coreerrors.ErrInvalidConstraints)
}

// Criteria 返回标签过滤条件。
func (c *Constraints) Criteria() FilterCriteria {
	return FilterCriteria{
		RequiredTags:        c.RequiredTags,
		ExcludedTags:        c.ExcludedTags,
		TargetAudience:      c.TargetAudience,
		FilterByAudience:    c.FilterByAudience,
		StrictCompatibility: c.StrictCompatibility,
	}
}

// Context 单次调用的选择上下文，每次调用新建，不跨调用保存。
type Context struct {
	// TargetTags 目标标签权重
	TargetTags map[string]float64
	// MaxCharacters 字符预算
	MaxCharacters int
	// QualityThreshold 最低总分
	QualityThreshold float64
	// Selected 已选中的文档 ID
	Selected map[string]struct{}
	// Strategy 评分使用的组合策略；为空时使用分类默认策略
	Strategy string
}

// NewContext 根据约束创建选择上下文。
func NewContext(c Constraints, compositionStrategy string) *Context {
	selected := make(map[string]struct{}, len(c.SelectedDocuments))
	for _, id := range c.SelectedDocuments {
		selected[id] = struct{}{}
	}
	return &Context{
		TargetTags:       c.TargetTags,
		MaxCharacters:    c.MaxCharacters,
		QualityThreshold: c.QualityThreshold,
		Selected:         selected,
		Strategy:         compositionStrategy,
	}
}

// IsSelected 判断文档是否已被选中。
func (c *Context) IsSelected(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Selected[id]
	return ok
}

// sortedTagKeys 返回排序后的目标标签（保证浮点求和顺序确定）。
func sortedTagKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
