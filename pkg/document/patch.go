package document

// Patch 对文档元数据的显式修改（命名字段 -> 新值）
//
// 为 nil 或空的字段表示不修改。Apply 总是作用在副本上，原记录保持不变。
type Patch struct {
	Title         *string
	PriorityScore *int
	Complexity    *Complexity
	Audience      []string
	AddTags       []string
	RemoveTags    []string
}

// IsEmpty 判断补丁是否不包含任何修改
func (p *Patch) IsEmpty() bool {
	return p == nil || (p.Title == nil && p.PriorityScore == nil && p.Complexity == nil &&
		p.Audience == nil && len(p.AddTags) == 0 && len(p.RemoveTags) == 0)
}

// Fields 返回补丁涉及的字段名（用于审计）
func (p *Patch) Fields() []string {
	if p == nil {
		return nil
	}
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.PriorityScore != nil {
		fields = append(fields, "priority.score")
	}
	if p.Complexity != nil {
		fields = append(fields, "tags.complexity")
	}
	if p.Audience != nil {
		fields = append(fields, "tags.audience")
	}
	if len(p.AddTags) > 0 || len(p.RemoveTags) > 0 {
		fields = append(fields, "tags.secondary")
	}
	return fields
}

// Apply 将补丁应用到文档副本并返回新记录
//
// 删除标签同时作用于主标签与次标签；新增标签追加到次标签。
// 修改分数时会重新派生等级。
func (p *Patch) Apply(doc *DocumentMetadata) *DocumentMetadata {
	out := doc.Clone()
	if p == nil {
		return out
	}

	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.PriorityScore != nil {
		out.Priority.Score = *p.PriorityScore
		out.Priority.Tier = TierForScore(out.Priority.Score)
	}
	if p.Complexity != nil {
		out.Tags.Complexity = *p.Complexity
	}
	if p.Audience != nil {
		out.Tags.Audience = cloneStrings(p.Audience)
	}

	if len(p.RemoveTags) > 0 {
		remove := make(map[string]struct{}, len(p.RemoveTags))
		for _, t := range p.RemoveTags {
			remove[t] = struct{}{}
		}
		out.Tags.Primary = filterStrings(out.Tags.Primary, remove)
		out.Tags.Secondary = filterStrings(out.Tags.Secondary, remove)
	}
	for _, t := range p.AddTags {
		if !out.HasTag(t) {
			out.Tags.Secondary = append(out.Tags.Secondary, t)
		}
	}

	return out
}

func filterStrings(in []string, remove map[string]struct{}) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := remove[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
