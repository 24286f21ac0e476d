package conflict

import (
	"sort"

	"github.com/easyops/llmsdigest-go/pkg/document"
)

// SkippedResolution 未执行的解决方案。
type SkippedResolution struct {
	ConflictID string `json:"conflict_id"`
	Reason     string `json:"reason"`
}

// ApplyResult 应用解决方案后的结果。
type ApplyResult struct {
	// Documents 保留的文档（保持输入顺序，修改过的为新记录）
	Documents []*document.DocumentMetadata `json:"-"`
	// Excluded 按排除顺序记录的文档 ID
	Excluded []string `json:"excluded"`
	// Modified 被补丁修改的文档 ID
	Modified []string `json:"modified"`
	// Applied 已执行的冲突 ID
	Applied []string            `json:"applied"`
	Skipped []SkippedResolution `json:"skipped"`
}

// IsExcluded 判断文档是否被排除。
func (r *ApplyResult) IsExcluded(id string) bool {
	for _, ex := range r.Excluded {
		if ex == id {
			return true
		}
	}
	return false
}

// Apply 按严重程度从高到低执行冲突解决方案。
//
// 同一严重程度内保持冲突顺序；文档一旦被排除，后续涉及它的解决方案全部跳过。
// 输入文档不会被修改，修改动作通过 Patch 生成新记录。
func Apply(docs []*document.DocumentMetadata, conflicts []Conflict) *ApplyResult {
	current := make(map[string]*document.DocumentMetadata, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if _, ok := current[doc.ID]; ok {
			continue
		}
		current[doc.ID] = doc
		order = append(order, doc.ID)
	}

	pending := make([]Conflict, len(conflicts))
	copy(pending, conflicts)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Severity.Rank() > pending[j].Severity.Rank()
	})

	result := &ApplyResult{}
	excluded := make(map[string]struct{})
	modified := make(map[string]struct{})

	exclude := func(id string) {
		if _, ok := excluded[id]; ok {
			return
		}
		excluded[id] = struct{}{}
		result.Excluded = append(result.Excluded, id)
	}
	modify := func(id string, patch *document.Patch) {
		if patch.IsEmpty() {
			return
		}
		current[id] = patch.Apply(current[id])
		if _, ok := modified[id]; !ok {
			modified[id] = struct{}{}
			result.Modified = append(result.Modified, id)
		}
	}
	skip := func(c Conflict, reason string) {
		result.Skipped = append(result.Skipped, SkippedResolution{ConflictID: c.ID, Reason: reason})
	}

	for _, c := range pending {
		if c.Resolution == nil {
			skip(c, "no resolution proposed")
			continue
		}
		if _, ok := excluded[c.First]; ok {
			skip(c, c.First+" already excluded")
			continue
		}
		if _, ok := excluded[c.Second]; ok {
			skip(c, c.Second+" already excluded")
			continue
		}
		if current[c.First] == nil || current[c.Second] == nil {
			skip(c, "document not in set")
			continue
		}

		switch c.Resolution.Action {
		case ActionExcludeFirst:
			exclude(c.First)
		case ActionExcludeSecond:
			exclude(c.Second)
		case ActionExcludeBoth:
			exclude(c.First)
			exclude(c.Second)
		case ActionModifyFirst:
			modify(c.First, c.Resolution.Patch)
		case ActionModifySecond:
			modify(c.Second, c.Resolution.Patch)
		case ActionMerge:
			keep, drop := c.First, c.Second
			if current[c.First].Priority.Score < current[c.Second].Priority.Score {
				keep, drop = c.Second, c.First
			}
			modify(keep, c.Resolution.Patch)
			exclude(drop)
		case ActionKeepBoth, ActionManualReview:
			skip(c, "no automatic action for "+string(c.Resolution.Action))
			continue
		default:
			skip(c, "unknown action "+string(c.Resolution.Action))
			continue
		}
		result.Applied = append(result.Applied, c.ID)
	}

	for _, id := range order {
		if _, ok := excluded[id]; ok {
			continue
		}
		result.Documents = append(result.Documents, current[id])
	}
	return result
}
