// Package document 定义摘要引擎消费的文档元数据模型。
//
// DocumentMetadata 由外部的发现组件提供，引擎内部将其视为不可变：
// 任何"修改"都通过 Patch 生成新的记录，而不是原地修改。
package document

// Priority 文档优先级
type Priority struct {
	// Score 优先级分数 (0-100)
	Score int `json:"score" yaml:"score" validate:"gte=0,lte=100"`
	// Tier 派生等级
	Tier Tier `json:"tier" yaml:"tier"`
	// Rationale 评分理由（可选）
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Tags 文档标签
type Tags struct {
	// Primary 主标签
	Primary []string `json:"primary" yaml:"primary"`
	// Secondary 次标签
	Secondary []string `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	// Audience 目标受众
	Audience []string `json:"audience,omitempty" yaml:"audience,omitempty"`
	// Complexity 复杂度
	Complexity Complexity `json:"complexity,omitempty" yaml:"complexity,omitempty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
}

// Relation 指向另一文档的依赖关系
type Relation struct {
	// ID 目标文档 ID
	ID string `json:"id" yaml:"id" validate:"required"`
	// Importance 重要程度
	Importance Importance `json:"importance,omitempty" yaml:"importance,omitempty" validate:"omitempty,oneof=required recommended optional"`
	// Reason 关系说明
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Dependencies 文档依赖记录
type Dependencies struct {
	Prerequisites []Relation `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty" validate:"dive"`
	References    []Relation `json:"references,omitempty" yaml:"references,omitempty" validate:"dive"`
	Followups     []Relation `json:"followups,omitempty" yaml:"followups,omitempty" validate:"dive"`
	Complements   []Relation `json:"complements,omitempty" yaml:"complements,omitempty" validate:"dive"`
	Conflicts     []Relation `json:"conflicts,omitempty" yaml:"conflicts,omitempty" validate:"dive"`
}

// Of 返回指定类型的关系列表
func (d Dependencies) Of(kind RelationKind) []Relation {
	switch kind {
	case RelationPrerequisite:
		return d.Prerequisites
	case RelationReference:
		return d.References
	case RelationFollowup:
		return d.Followups
	case RelationComplement:
		return d.Complements
	case RelationConflict:
		return d.Conflicts
	default:
		return nil
	}
}

// Composition 组合亲和性提示（可选）
type Composition struct {
	// Affinities 与本文档搭配效果好的文档 ID
	Affinities []string `json:"affinities,omitempty" yaml:"affinities,omitempty"`
	// SectionOrder 建议的章节顺序
	SectionOrder int `json:"section_order,omitempty" yaml:"section_order,omitempty"`
}

// Quality 文档质量指标，每项 0-100
type Quality struct {
	Readability  float64 `json:"readability" yaml:"readability" validate:"gte=0,lte=100"`
	Completeness float64 `json:"completeness" yaml:"completeness" validate:"gte=0,lte=100"`
	Accuracy     float64 `json:"accuracy" yaml:"accuracy" validate:"gte=0,lte=100"`
	Freshness    float64 `json:"freshness" yaml:"freshness" validate:"gte=0,lte=100"`
}

// Average 返回四项指标的均值（0-100）
func (q Quality) Average() float64 {
	return (q.Readability + q.Completeness + q.Accuracy + q.Freshness) / 4
}

// DocumentMetadata 文档元数据
type DocumentMetadata struct {
	// ID 文档唯一标识
	ID string `json:"id" yaml:"id" validate:"required"`
	// Title 标题
	Title string `json:"title" yaml:"title" validate:"required"`
	// Source 来源位置（文件路径、URL 等）
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// Language 文档语言（如 en、ko）
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	// Category 分类
	Category Category `json:"category" yaml:"category" validate:"required,oneof=guide api concept example reference llms"`
	// Priority 优先级
	Priority Priority `json:"priority" yaml:"priority"`
	// Tags 标签
	Tags Tags `json:"tags" yaml:"tags"`
	// Keywords 关键词
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	// Dependencies 依赖关系
	Dependencies Dependencies `json:"dependencies" yaml:"dependencies"`
	// Composition 组合提示（可选）
	Composition *Composition `json:"composition,omitempty" yaml:"composition,omitempty"`
	// Quality 质量指标（可选）
	Quality *Quality `json:"quality,omitempty" yaml:"quality,omitempty"`
	// WordCount 原文词数
	WordCount int `json:"word_count,omitempty" yaml:"word_count,omitempty" validate:"gte=0"`
	// CharacterCount 原文字符数
	CharacterCount int `json:"character_count,omitempty" yaml:"character_count,omitempty" validate:"gte=0"`
}

// AllTags 返回主标签与次标签（去重，保持顺序）
func (d *DocumentMetadata) AllTags() []string {
	seen := make(map[string]struct{}, len(d.Tags.Primary)+len(d.Tags.Secondary))
	tags := make([]string, 0, len(d.Tags.Primary)+len(d.Tags.Secondary))
	for _, list := range [][]string{d.Tags.Primary, d.Tags.Secondary} {
		for _, tag := range list {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}

// HasTag 判断文档是否带有指定标签（主标签或次标签）
func (d *DocumentMetadata) HasTag(tag string) bool {
	for _, t := range d.Tags.Primary {
		if t == tag {
			return true
		}
	}
	for _, t := range d.Tags.Secondary {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAudience 判断文档是否面向指定受众
func (d *DocumentMetadata) HasAudience(audience string) bool {
	for _, a := range d.Tags.Audience {
		if a == audience {
			return true
		}
	}
	return false
}

// DependsOn 判断文档是否在指定关系中引用了目标文档
func (d *DocumentMetadata) DependsOn(kind RelationKind, id string) bool {
	for _, rel := range d.Dependencies.Of(kind) {
		if rel.ID == id {
			return true
		}
	}
	return false
}

// Completeness 返回可选元数据的完整度 [0, 1]
//
// 统计受众、次标签/关键词、质量指标、优先级理由、复杂度五组可选信息。
func (d *DocumentMetadata) Completeness() float64 {
	present := 0
	if len(d.Tags.Audience) > 0 {
		present++
	}
	if len(d.Tags.Secondary) > 0 || len(d.Keywords) > 0 {
		present++
	}
	if d.Quality != nil {
		present++
	}
	if d.Priority.Rationale != "" {
		present++
	}
	if d.Tags.Complexity != "" {
		present++
	}
	return float64(present) / 5
}

// Clone 创建文档元数据的深拷贝
func (d *DocumentMetadata) Clone() *DocumentMetadata {
	clone := *d
	clone.Tags = Tags{
		Primary:    cloneStrings(d.Tags.Primary),
		Secondary:  cloneStrings(d.Tags.Secondary),
		Audience:   cloneStrings(d.Tags.Audience),
		Complexity: d.Tags.Complexity,
	}
	clone.Keywords = cloneStrings(d.Keywords)
	clone.Dependencies = Dependencies{
		Prerequisites: cloneRelations(d.Dependencies.Prerequisites),
		References:    cloneRelations(d.Dependencies.References),
		Followups:     cloneRelations(d.Dependencies.Followups),
		Complements:   cloneRelations(d.Dependencies.Complements),
		Conflicts:     cloneRelations(d.Dependencies.Conflicts),
	}
	if d.Composition != nil {
		comp := *d.Composition
		comp.Affinities = cloneStrings(d.Composition.Affinities)
		clone.Composition = &comp
	}
	if d.Quality != nil {
		q := *d.Quality
		clone.Quality = &q
	}
	return &clone
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRelations(in []Relation) []Relation {
	if in == nil {
		return nil
	}
	out := make([]Relation, len(in))
	copy(out, in)
	return out
}
