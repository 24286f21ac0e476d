package selection

import (
	"fmt"
	"strings"

	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// ExclusionReason 排除原因。
type ExclusionReason string

const (
	ReasonMissingRequiredTag ExclusionReason = "missing-required-tag"
	ReasonExcludedTag        ExclusionReason = "excluded-tag"
	ReasonAudienceMismatch   ExclusionReason = "audience-mismatch"
	ReasonIncompatibleTags   ExclusionReason = "incompatible-tags"
	ReasonBelowThreshold     ExclusionReason = "below-quality-threshold"
	ReasonConflict           ExclusionReason = "conflict"
)

// Exclusion 单个文档的排除记录。
type Exclusion struct {
	DocumentID string          `json:"document_id"`
	Reason     ExclusionReason `json:"reason"`
	// Tags 触发排除的标签或受众
	Tags   []string `json:"tags,omitempty"`
	Detail string   `json:"detail"`
	// Readded 文档作为前置依赖被重新加入，记录仍保留用于审计
	Readded bool `json:"readded,omitempty"`
}

// FilterCriteria 标签过滤条件。
type FilterCriteria struct {
	RequiredTags        []string
	ExcludedTags        []string
	TargetAudience      []string
	FilterByAudience    bool
	StrictCompatibility bool
}

// FilterResult 过滤结果。
type FilterResult struct {
	// Filtered 通过过滤的文档（保持输入顺序，不做修改）
	Filtered []*document.DocumentMetadata
	Excluded []Exclusion
}

// TagFilter 标签兼容性过滤器。
type TagFilter struct {
	registry *strategy.Registry
}

// NewTagFilter 创建标签过滤器。
func NewTagFilter(reg *strategy.Registry) *TagFilter {
	return &TagFilter{registry: reg}
}

// Filter 按条件硬排除文档，每个排除都记录原因。
//
// 检查顺序：必需标签、排除标签、受众、互斥标签；命中第一条即排除。
func (f *TagFilter) Filter(docs []*document.DocumentMetadata, criteria FilterCriteria) FilterResult {
	result := FilterResult{Filtered: make([]*document.DocumentMetadata, 0, len(docs))}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if ex, ok := f.check(doc, criteria); ok {
			result.Excluded = append(result.Excluded, ex)
			continue
		}
		result.Filtered = append(result.Filtered, doc)
	}
	return result
}

func (f *TagFilter) check(doc *document.DocumentMetadata, c FilterCriteria) (Exclusion, bool) {
	var missing []string
	for _, tag := range c.RequiredTags {
		if !doc.HasTag(tag) {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return Exclusion{
			DocumentID: doc.ID,
			Reason:     ReasonMissingRequiredTag,
			Tags:       missing,
			Detail:     "missing required tag " + quoteAll(missing),
		}, true
	}

	var carried []string
	for _, tag := range c.ExcludedTags {
		if doc.HasTag(tag) {
			carried = append(carried, tag)
		}
	}
	if len(carried) > 0 {
		return Exclusion{
			DocumentID: doc.ID,
			Reason:     ReasonExcludedTag,
			Tags:       carried,
			Detail:     "carries excluded tag " + quoteAll(carried),
		}, true
	}

	if c.FilterByAudience && len(c.TargetAudience) > 0 {
		shared := false
		for _, a := range c.TargetAudience {
			if doc.HasAudience(a) {
				shared = true
				break
			}
		}
		if !shared {
			return Exclusion{
				DocumentID: doc.ID,
				Reason:     ReasonAudienceMismatch,
				Tags:       doc.Tags.Audience,
				Detail:     fmt.Sprintf("audience %v shares nothing with %v", doc.Tags.Audience, c.TargetAudience),
			}, true
		}
	}

	if c.StrictCompatibility {
		if pairs := f.registry.IncompatiblePairs(doc.AllTags()); len(pairs) > 0 {
			tags := make([]string, 0, len(pairs)*2)
			desc := make([]string, 0, len(pairs))
			for _, p := range pairs {
				tags = append(tags, p[0], p[1])
				desc = append(desc, p[0]+"/"+p[1])
			}
			return Exclusion{
				DocumentID: doc.ID,
				Reason:     ReasonIncompatibleTags,
				Tags:       tags,
				Detail:     "incompatible tags " + strings.Join(desc, ", "),
			}, true
		}
	}

	return Exclusion{}, false
}

// hardExclusion 判断排除原因是否禁止文档作为依赖重新加入。
//
// 只有缺少必需标签的文档可以作为前置依赖重新加入；排除标签、受众不匹配
// 与互斥标签都是硬排除。
func hardExclusion(r ExclusionReason) bool {
	return r != ReasonMissingRequiredTag
}

func quoteAll(tags []string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return strings.Join(quoted, ", ")
}
