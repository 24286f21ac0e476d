package conflict

import (
	"fmt"
	"sort"

	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// Detector 冲突检测器。
type Detector struct {
	registry *strategy.Registry
	rules    *RuleSet
}

// NewDetector 创建冲突检测器，rules 为 nil 时使用内置规则集。
func NewDetector(reg *strategy.Registry, rules *RuleSet) *Detector {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Detector{registry: reg, rules: rules}
}

// DetectOptions 检测选项。
type DetectOptions struct {
	// FlaggedPairs 需要人工复核的文档对（来自依赖解析的 manual-review 模式）
	FlaggedPairs [][2]string
	// MinSeverity 低于该严重程度的冲突不报告（空表示全部报告）
	MinSeverity Severity
}

// Summary 冲突统计。
type Summary struct {
	Total        int              `json:"total"`
	BySeverity   map[Severity]int `json:"by_severity"`
	ByRule       map[RuleKind]int `json:"by_rule"`
	Resolvable   int              `json:"resolvable"`
	ManualReview int              `json:"manual_review"`
}

// AnalysisResult 冲突分析结果。
type AnalysisResult struct {
	// Conflicts 按 (First, Second, 规则注册顺序) 排序的全部冲突
	Conflicts []Conflict `json:"conflicts"`
	Summary   Summary    `json:"summary"`
	// Unresolved 没有解决方案或需要人工复核的冲突
	Unresolved []Conflict `json:"unresolved"`
	// Plan 按动作分组的解决方案计划
	Plan Plan `json:"plan"`
}

// Detect 对所有无序文档对逐条评估规则。
//
// 输入中的 nil 文档与重复 ID 会被忽略；输入不会被修改。
func (d *Detector) Detect(docs []*document.DocumentMetadata, opts DetectOptions) *AnalysisResult {
	ordered := canonicalOrder(docs)

	flagged := make(map[[2]string]struct{}, len(opts.FlaggedPairs))
	for _, p := range opts.FlaggedPairs {
		flagged[canonicalPair(p[0], p[1])] = struct{}{}
	}
	minRank := opts.MinSeverity.Rank()

	result := &AnalysisResult{
		Summary: Summary{
			BySeverity: make(map[Severity]int),
			ByRule:     make(map[RuleKind]int),
		},
	}

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			_, isFlagged := flagged[[2]string{a.ID, b.ID}]
			surfaced := false
			for _, rule := range d.rules.rules {
				if rule.Severity.Rank() < minRank {
					continue
				}
				desc, ok := rule.Detect(a, b, d.registry)
				if !ok {
					continue
				}
				c := Conflict{
					ID:          conflictID(rule.Kind, a.ID, b.ID),
					Rule:        rule.Kind,
					Severity:    rule.Severity,
					First:       a.ID,
					Second:      b.ID,
					Description: desc,
					Impact:      rule.Impact.scale(rule.Severity.Factor()),
				}
				if rule.Resolve != nil {
					c.Resolution = rule.Resolve(a, b, d.registry)
				}
				if isFlagged && rule.Kind == KindDeclaredConflict {
					c.Resolution = manualReview()
					surfaced = true
				}
				result.add(c)
			}
			// 复核对不依赖规则集：声明冲突规则被禁用或被严重程度过滤时仍需上报
			if isFlagged && !surfaced {
				result.add(flaggedConflict(a, b))
			}
		}
	}

	result.Plan = buildPlan(result.Conflicts)
	return result
}

func manualReview() *Resolution {
	return &Resolution{
		Action:     ActionManualReview,
		Confidence: 1,
		Reason:     "flagged for manual review during dependency resolution",
	}
}

// flaggedConflict 为依赖解析标记的文档对构造需要人工复核的声明冲突。
func flaggedConflict(a, b *document.DocumentMetadata) Conflict {
	return Conflict{
		ID:          conflictID(KindDeclaredConflict, a.ID, b.ID),
		Rule:        KindDeclaredConflict,
		Severity:    SeverityMajor,
		First:       a.ID,
		Second:      b.ID,
		Description: "declared conflict between " + orderedPair(a.ID, b.ID),
		Impact:      declaredConflictImpact.scale(SeverityMajor.Factor()),
		Resolution:  manualReview(),
	}
}

func (r *AnalysisResult) add(c Conflict) {
	r.Conflicts = append(r.Conflicts, c)
	r.Summary.Total++
	r.Summary.BySeverity[c.Severity]++
	r.Summary.ByRule[c.Rule]++
	if c.NeedsReview() {
		r.Summary.ManualReview++
		r.Unresolved = append(r.Unresolved, c)
	} else {
		r.Summary.Resolvable++
	}
}

// Between 返回两个文档之间的冲突（顺序无关）。
func (r *AnalysisResult) Between(x, y string) []Conflict {
	key := canonicalPair(x, y)
	var out []Conflict
	for _, c := range r.Conflicts {
		if c.First == key[0] && c.Second == key[1] {
			out = append(out, c)
		}
	}
	return out
}

// PlanStep 计划中的一步：同一动作的全部冲突。
type PlanStep struct {
	Action      Action   `json:"action"`
	ConflictIDs []string `json:"conflict_ids"`
	// Documents 该步骤影响的文档 ID（去重、排序）
	Documents   []string `json:"documents"`
	Description string   `json:"description"`
}

// Plan 可审计的解决方案计划。
type Plan struct {
	Steps []PlanStep `json:"steps"`
}

// buildPlan 按固定的动作顺序分组已有解决方案的冲突；组内按严重程度从高到低。
func buildPlan(conflicts []Conflict) Plan {
	groups := make(map[Action][]Conflict)
	for _, c := range conflicts {
		if c.Resolution == nil {
			continue
		}
		groups[c.Resolution.Action] = append(groups[c.Resolution.Action], c)
	}

	var plan Plan
	for _, action := range planOrder {
		group := groups[action]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Severity.Rank() > group[j].Severity.Rank()
		})

		step := PlanStep{Action: action}
		docs := make(map[string]struct{})
		for _, c := range group {
			step.ConflictIDs = append(step.ConflictIDs, c.ID)
			for _, id := range affected(c) {
				docs[id] = struct{}{}
			}
		}
		for id := range docs {
			step.Documents = append(step.Documents, id)
		}
		sort.Strings(step.Documents)
		step.Description = fmt.Sprintf("%s: %d conflict(s) affecting %d document(s)", action, len(group), len(step.Documents))
		plan.Steps = append(plan.Steps, step)
	}
	return plan
}

// affected 返回解决动作涉及的文档。
func affected(c Conflict) []string {
	switch c.Resolution.Action {
	case ActionExcludeFirst, ActionModifyFirst:
		return []string{c.First}
	case ActionExcludeSecond, ActionModifySecond:
		return []string{c.Second}
	default:
		return []string{c.First, c.Second}
	}
}

// canonicalOrder 按 ID 排序并去除 nil 与重复 ID。
func canonicalOrder(docs []*document.DocumentMetadata) []*document.DocumentMetadata {
	seen := make(map[string]struct{}, len(docs))
	out := make([]*document.DocumentMetadata, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		seen[doc.ID] = struct{}{}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func canonicalPair(x, y string) [2]string {
	if x > y {
		x, y = y, x
	}
	return [2]string{x, y}
}
