package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// RuleKind 冲突规则类型（封闭集合）。
type RuleKind string

const (
	KindTagIncompatible   RuleKind = "tag-incompatible"
	KindContentDuplicate  RuleKind = "content-duplicate"
	KindAudienceMismatch  RuleKind = "audience-mismatch"
	KindComplexityGap     RuleKind = "complexity-gap"
	KindCategoryExclusive RuleKind = "category-exclusive"
	KindDeclaredConflict  RuleKind = "declared-conflict"
)

// Valid 判断规则类型是否已知。
func (k RuleKind) Valid() bool {
	switch k {
	case KindTagIncompatible, KindContentDuplicate, KindAudienceMismatch,
		KindComplexityGap, KindCategoryExclusive, KindDeclaredConflict:
		return true
	default:
		return false
	}
}

// idSimilarityThreshold ID 相似度超过该值视为重复内容。
const idSimilarityThreshold = 0.8

// complexityGapThreshold 复杂度等级相差达到该值视为冲突。
const complexityGapThreshold = 2

// DetectFunc 检测谓词，返回冲突描述与是否命中。
//
// 谓词必须对称：Detect(a, b) 与 Detect(b, a) 结果一致。
type DetectFunc func(a, b *document.DocumentMetadata, reg *strategy.Registry) (string, bool)

// ResolveFunc 为命中的文档对建议解决方案，a 总是 ID 较小的文档。
type ResolveFunc func(a, b *document.DocumentMetadata, reg *strategy.Registry) *Resolution

// Rule 冲突规则：规则类型、严重程度、检测谓词与可选的解决函数。
type Rule struct {
	Kind     RuleKind
	Severity Severity
	// Impact 严重程度系数为 1 时的基础影响
	Impact  Impact
	Detect  DetectFunc
	Resolve ResolveFunc
}

// RuleSet 校验过的规则集合，按注册顺序评估。
type RuleSet struct {
	rules []Rule
}

// NewRuleSet 创建规则集，每种规则类型只能出现一次。
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	seen := make(map[RuleKind]struct{}, len(rules))
	for _, r := range rules {
		if !r.Kind.Valid() {
			return nil, fmt.Errorf("rule %q: %w", r.Kind, coreerrors.ErrUnknownRule)
		}
		if _, ok := seen[r.Kind]; ok {
			return nil, fmt.Errorf("rule %q: %w", r.Kind, coreerrors.ErrDuplicateRule)
		}
		if r.Detect == nil {
			return nil, fmt.Errorf("rule %q has no detector: %w", r.Kind, coreerrors.ErrInvalidConfig)
		}
		if r.Severity.Rank() == 0 {
			return nil, fmt.Errorf("rule %q severity %q: %w", r.Kind, r.Severity, coreerrors.ErrInvalidConfig)
		}
		seen[r.Kind] = struct{}{}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &RuleSet{rules: out}, nil
}

// DefaultRuleSet 返回包含全部内置规则的规则集。
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(DefaultRules()...)
	if err != nil {
		panic(err) // 内置规则固定，出错说明代码有误
	}
	return rs
}

// Rules 返回规则副本。
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Kinds 返回规则类型列表（注册顺序）。
func (rs *RuleSet) Kinds() []RuleKind {
	kinds := make([]RuleKind, 0, len(rs.rules))
	for _, r := range rs.rules {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

// Without 返回禁用指定规则后的规则集，名称未知时返回配置错误。
func (rs *RuleSet) Without(names ...string) (*RuleSet, error) {
	disabled := make(map[RuleKind]struct{}, len(names))
	for _, name := range names {
		kind := RuleKind(strings.TrimSpace(name))
		if !kind.Valid() {
			return nil, fmt.Errorf("disable rule %q: %w", name, coreerrors.ErrUnknownRule)
		}
		disabled[kind] = struct{}{}
	}
	kept := make([]Rule, 0, len(rs.rules))
	for _, r := range rs.rules {
		if _, ok := disabled[r.Kind]; !ok {
			kept = append(kept, r)
		}
	}
	return &RuleSet{rules: kept}, nil
}

var declaredConflictImpact = Impact{UserExperience: 0.7, ContentQuality: 0.8, SystemComplexity: 0.5}

// DefaultRules 返回内置规则（评估顺序固定）。
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:     KindTagIncompatible,
			Severity: SeverityModerate,
			Impact:   Impact{UserExperience: 0.8, ContentQuality: 0.6, SystemComplexity: 0.4},
			Detect:   detectTagIncompatible,
			Resolve:  excludeLower(0.7, "incompatible tags; keep the higher-priority document"),
		},
		{
			Kind:     KindContentDuplicate,
			Severity: SeverityMajor,
			Impact:   Impact{UserExperience: 0.6, ContentQuality: 0.9, SystemComplexity: 0.3},
			Detect:   detectContentDuplicate,
			Resolve:  resolveContentDuplicate,
		},
		{
			Kind:     KindAudienceMismatch,
			Severity: SeverityMinor,
			Impact:   Impact{UserExperience: 0.9, ContentQuality: 0.3, SystemComplexity: 0.2},
			Detect:   detectAudienceMismatch,
			Resolve:  resolveAudienceMismatch,
		},
		{
			Kind:     KindComplexityGap,
			Severity: SeverityMinor,
			Impact:   Impact{UserExperience: 0.7, ContentQuality: 0.4, SystemComplexity: 0.2},
			Detect:   detectComplexityGap,
			Resolve:  resolveComplexityGap,
		},
		{
			Kind:     KindCategoryExclusive,
			Severity: SeverityModerate,
			Impact:   Impact{UserExperience: 0.4, ContentQuality: 0.5, SystemComplexity: 0.7},
			Detect:   detectCategoryExclusive,
			Resolve:  excludeLower(0.8, "mutually exclusive categories; keep the higher-priority document"),
		},
		{
			Kind:     KindDeclaredConflict,
			Severity: SeverityMajor,
			Impact:   declaredConflictImpact,
			Detect:   detectDeclaredConflict,
			Resolve:  excludeLower(0.85, "documents declare a conflict; keep the higher-priority document"),
		},
	}
}

// lowerPriorityAction 返回排除低优先级文档的动作，分数相同时排除 ID 较大者（b）。
func lowerPriorityAction(a, b *document.DocumentMetadata) Action {
	if a.Priority.Score < b.Priority.Score {
		return ActionExcludeFirst
	}
	return ActionExcludeSecond
}

func excludeLower(confidence float64, reason string) ResolveFunc {
	return func(a, b *document.DocumentMetadata, _ *strategy.Registry) *Resolution {
		return &Resolution{Action: lowerPriorityAction(a, b), Confidence: confidence, Reason: reason}
	}
}

func detectTagIncompatible(a, b *document.DocumentMetadata, reg *strategy.Registry) (string, bool) {
	var pairs []string
	for _, ta := range a.AllTags() {
		for _, tb := range b.AllTags() {
			if reg.Incompatible(ta, tb) {
				pairs = append(pairs, orderedPair(ta, tb))
			}
		}
	}
	if len(pairs) == 0 {
		return "", false
	}
	sort.Strings(pairs)
	return "incompatible tags " + strings.Join(dedupe(pairs), ", "), true
}

func detectContentDuplicate(a, b *document.DocumentMetadata, _ *strategy.Registry) (string, bool) {
	if strings.EqualFold(strings.TrimSpace(a.Title), strings.TrimSpace(b.Title)) {
		return fmt.Sprintf("identical title %q", strings.TrimSpace(a.Title)), true
	}
	if sim := idSimilarity(a.ID, b.ID); sim > idSimilarityThreshold {
		return fmt.Sprintf("similar ids (similarity %.2f)", sim), true
	}
	return "", false
}

// idSimilarity 返回 ID 的归一化编辑距离相似度，参数顺序不影响结果。
func idSimilarity(x, y string) float64 {
	if x > y {
		x, y = y, x
	}
	return levenshtein.Similarity(x, y, nil)
}

func resolveContentDuplicate(a, b *document.DocumentMetadata, _ *strategy.Registry) *Resolution {
	if strings.EqualFold(strings.TrimSpace(a.Title), strings.TrimSpace(b.Title)) {
		return &Resolution{
			Action:     lowerPriorityAction(a, b),
			Confidence: 0.9,
			Reason:     "duplicate content; keep the higher-priority document",
		}
	}
	// ID 相似但标题不同：合并标签后保留高优先级文档
	keep, drop := a, b
	if lowerPriorityAction(a, b) == ActionExcludeFirst {
		keep, drop = b, a
	}
	var add []string
	for _, tag := range drop.AllTags() {
		if !keep.HasTag(tag) {
			add = append(add, tag)
		}
	}
	return &Resolution{
		Action:     ActionMerge,
		Confidence: 0.7,
		Reason:     fmt.Sprintf("near-duplicate of %s; merge tags into %s", drop.ID, keep.ID),
		Patch:      &document.Patch{AddTags: add},
	}
}

func detectAudienceMismatch(a, b *document.DocumentMetadata, reg *strategy.Registry) (string, bool) {
	var pairs []string
	for _, x := range a.Tags.Audience {
		for _, y := range b.Tags.Audience {
			if reg.AudiencesConflict(x, y) {
				pairs = append(pairs, orderedPair(x, y))
			}
		}
	}
	if len(pairs) == 0 {
		return "", false
	}
	sort.Strings(pairs)
	return "conflicting audiences " + strings.Join(dedupe(pairs), ", "), true
}

// resolveAudienceMismatch 收窄低优先级文档的受众；收窄后为空则保留两者。
func resolveAudienceMismatch(a, b *document.DocumentMetadata, reg *strategy.Registry) *Resolution {
	target, other, action := a, b, ActionModifyFirst
	if lowerPriorityAction(a, b) == ActionExcludeSecond {
		target, other, action = b, a, ActionModifySecond
	}

	var narrowed []string
	for _, x := range target.Tags.Audience {
		conflicting := false
		for _, y := range other.Tags.Audience {
			if reg.AudiencesConflict(x, y) {
				conflicting = true
				break
			}
		}
		if !conflicting {
			narrowed = append(narrowed, x)
		}
	}
	if len(narrowed) == 0 {
		return &Resolution{
			Action:     ActionKeepBoth,
			Confidence: 0.5,
			Reason:     "audiences conflict entirely; label sections by audience",
		}
	}
	return &Resolution{
		Action:     action,
		Confidence: 0.6,
		Reason:     fmt.Sprintf("narrow audience of %s to %s", target.ID, strings.Join(narrowed, ", ")),
		Patch:      &document.Patch{Audience: narrowed},
	}
}

func detectComplexityGap(a, b *document.DocumentMetadata, _ *strategy.Registry) (string, bool) {
	la, lb := a.Tags.Complexity.Level(), b.Tags.Complexity.Level()
	if la == 0 || lb == 0 {
		return "", false
	}
	gap := la - lb
	if gap < 0 {
		gap = -gap
	}
	if gap < complexityGapThreshold {
		return "", false
	}
	return fmt.Sprintf("complexity levels %d apart", gap), true
}

func resolveComplexityGap(a, b *document.DocumentMetadata, _ *strategy.Registry) *Resolution {
	gap := a.Tags.Complexity.Level() - b.Tags.Complexity.Level()
	if gap < 0 {
		gap = -gap
	}
	if gap >= 3 {
		return &Resolution{
			Action:     ActionManualReview,
			Confidence: 0.4,
			Reason:     "beginner and expert material together; review the reading path",
		}
	}
	return &Resolution{
		Action:     ActionKeepBoth,
		Confidence: 0.6,
		Reason:     "order sections from simpler to harder",
	}
}

func detectCategoryExclusive(a, b *document.DocumentMetadata, reg *strategy.Registry) (string, bool) {
	if a.Category == b.Category || !reg.CategoriesExclusive(a.Category, b.Category) {
		return "", false
	}
	return "mutually exclusive categories " + orderedPair(string(a.Category), string(b.Category)), true
}

func detectDeclaredConflict(a, b *document.DocumentMetadata, _ *strategy.Registry) (string, bool) {
	if a.DependsOn(document.RelationConflict, b.ID) || b.DependsOn(document.RelationConflict, a.ID) {
		return "declared conflict between " + orderedPair(a.ID, b.ID), true
	}
	return "", false
}

func orderedPair(x, y string) string {
	if x > y {
		x, y = y, x
	}
	return x + "/" + y
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
