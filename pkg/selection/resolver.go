package selection

import (
	"sort"
	"strings"

	"github.com/easyops/llmsdigest-go/pkg/document"
)

// ConflictMode 依赖解析中冲突关系的处理方式。
type ConflictMode string

const (
	// ConflictHigherScoreWins 保留优先级更高的文档（相同则保留 ID 较小者）
	ConflictHigherScoreWins ConflictMode = "higher-score-wins"
	// ConflictExcludeBoth 两者都排除
	ConflictExcludeBoth ConflictMode = "exclude-conflicts"
	// ConflictManualReview 保留两者并标记给冲突检测器
	ConflictManualReview ConflictMode = "manual-review"
)

// ResolveOptions 依赖解析选项。
type ResolveOptions struct {
	// MaxDepth 从种子出发的最大跳数
	MaxDepth int
	// IncludeOptional 是否沿参考、后续与补充关系展开
	IncludeOptional bool
	// ConflictResolution 冲突关系处理方式
	ConflictResolution ConflictMode
}

// MissingDependency 指向集合外文档的依赖。
type MissingDependency struct {
	From string                `json:"from"`
	To   string                `json:"to"`
	Kind document.RelationKind `json:"kind"`
	// Filtered 目标存在但已被标签过滤器硬排除
	Filtered bool `json:"filtered,omitempty"`
}

// DependencyExclusion 因冲突关系被排除的文档。
type DependencyExclusion struct {
	DocumentID    string `json:"document_id"`
	ConflictsWith string `json:"conflicts_with"`
	Mode          string `json:"mode"`
}

// ResolveResult 依赖解析结果。
type ResolveResult struct {
	// Resolved 种子与新增文档（发现顺序），已去除冲突排除的文档
	Resolved []*document.DocumentMetadata
	// Added 因依赖新增的文档 ID
	Added []string
	// Depths 每个解析文档距最近种子的跳数
	Depths map[string]int
	// Cycles 检测到的依赖环（规范化旋转，去重）
	Cycles [][]string
	// Missing 目标不存在的依赖
	Missing []MissingDependency
	// Excluded 因冲突关系被排除的文档
	Excluded []DependencyExclusion
	// FlaggedPairs manual-review 模式下留给冲突检测器的文档对
	FlaggedPairs [][2]string
}

// DependencyResolver 有界广度优先的依赖解析器。
type DependencyResolver struct{}

// NewDependencyResolver 创建依赖解析器。
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

type walkNode struct {
	doc   *document.DocumentMetadata
	depth int
}

// Resolve 从每个种子出发沿依赖关系展开，最多 MaxDepth 跳。
//
// universe 是可加入的文档全集（为 nil 时只在种子之间解析）。每次遍历维护
// 独立的已访问集合，已访问文档不会再次展开；指向祖先的边记为依赖环。
func (r *DependencyResolver) Resolve(seeds, universe []*document.DocumentMetadata, opts ResolveOptions) *ResolveResult {
	index := make(map[string]*document.DocumentMetadata, len(universe)+len(seeds))
	for _, doc := range universe {
		if doc != nil {
			index[doc.ID] = doc
		}
	}
	for _, doc := range seeds {
		if doc != nil {
			index[doc.ID] = doc
		}
	}

	kinds := []document.RelationKind{document.RelationPrerequisite}
	if opts.IncludeOptional {
		kinds = append(kinds, document.RelationReference, document.RelationFollowup, document.RelationComplement)
	}

	result := &ResolveResult{Depths: make(map[string]int)}
	var order []*document.DocumentMetadata
	seedSet := make(map[string]struct{}, len(seeds))
	for _, doc := range seeds {
		if doc == nil {
			continue
		}
		if _, ok := result.Depths[doc.ID]; ok {
			continue
		}
		seedSet[doc.ID] = struct{}{}
		result.Depths[doc.ID] = 0
		order = append(order, doc)
	}

	cycleKeys := make(map[string]struct{})
	missingKeys := make(map[MissingDependency]struct{})

	for _, seed := range seeds {
		if seed == nil {
			continue
		}
		visited := map[string]struct{}{seed.ID: {}}
		parent := make(map[string]string)
		queue := []walkNode{{doc: seed, depth: 0}}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.depth >= opts.MaxDepth {
				continue
			}

			for _, kind := range kinds {
				for _, rel := range cur.doc.Dependencies.Of(kind) {
					target, ok := index[rel.ID]
					if !ok {
						m := MissingDependency{From: cur.doc.ID, To: rel.ID, Kind: kind}
						if _, seen := missingKeys[m]; !seen {
							missingKeys[m] = struct{}{}
							result.Missing = append(result.Missing, m)
						}
						continue
					}

					if path, isCycle := ancestorPath(parent, cur.doc.ID, rel.ID); isCycle {
						cycle := canonicalCycle(path)
						key := strings.Join(cycle, "\x00")
						if _, seen := cycleKeys[key]; !seen {
							cycleKeys[key] = struct{}{}
							result.Cycles = append(result.Cycles, cycle)
						}
					}
					if _, seen := visited[rel.ID]; seen {
						continue
					}
					visited[rel.ID] = struct{}{}
					parent[rel.ID] = cur.doc.ID

					depth := cur.depth + 1
					if prev, ok := result.Depths[rel.ID]; !ok {
						result.Depths[rel.ID] = depth
						order = append(order, target)
						result.Added = append(result.Added, rel.ID)
					} else if depth < prev {
						result.Depths[rel.ID] = depth
					}
					queue = append(queue, walkNode{doc: target, depth: depth})
				}
			}
		}
	}

	dropped := r.resolveConflicts(order, opts.ConflictResolution, result)
	for _, doc := range order {
		if _, ok := dropped[doc.ID]; ok {
			continue
		}
		result.Resolved = append(result.Resolved, doc)
	}
	// Added 只保留最终留在解析集合中的文档
	added := result.Added[:0]
	for _, id := range result.Added {
		if _, ok := dropped[id]; !ok {
			added = append(added, id)
		}
	}
	result.Added = added
	return result
}

// resolveConflicts 处理解析集合内部的冲突关系，返回被排除的文档 ID。
func (r *DependencyResolver) resolveConflicts(docs []*document.DocumentMetadata, mode ConflictMode, result *ResolveResult) map[string]struct{} {
	byID := make(map[string]*document.DocumentMetadata, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	pairSet := make(map[[2]string]struct{})
	var pairs [][2]string
	for _, doc := range docs {
		for _, rel := range doc.Dependencies.Conflicts {
			if _, ok := byID[rel.ID]; !ok || rel.ID == doc.ID {
				continue
			}
			p := [2]string{doc.ID, rel.ID}
			if p[0] > p[1] {
				p[0], p[1] = p[1], p[0]
			}
			if _, ok := pairSet[p]; ok {
				continue
			}
			pairSet[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	dropped := make(map[string]struct{})
	drop := func(id, other string) {
		dropped[id] = struct{}{}
		result.Excluded = append(result.Excluded, DependencyExclusion{DocumentID: id, ConflictsWith: other, Mode: string(mode)})
	}

	for _, p := range pairs {
		_, gone0 := dropped[p[0]]
		_, gone1 := dropped[p[1]]
		if gone0 || gone1 {
			continue
		}
		switch mode {
		case ConflictExcludeBoth:
			drop(p[0], p[1])
			drop(p[1], p[0])
		case ConflictManualReview:
			result.FlaggedPairs = append(result.FlaggedPairs, p)
		default:
			// higher-score-wins：相同分数保留 ID 较小者
			if byID[p[0]].Priority.Score < byID[p[1]].Priority.Score {
				drop(p[0], p[1])
			} else {
				drop(p[1], p[0])
			}
		}
	}
	return dropped
}

// ancestorPath 判断 target 是否为 from 在遍历树上的祖先（或自身），
// 是则返回从 target 到 from 的路径。
func ancestorPath(parent map[string]string, from, target string) ([]string, bool) {
	path := []string{from}
	cur := from
	for cur != target {
		p, ok := parent[cur]
		if !ok {
			return nil, false
		}
		cur = p
		path = append(path, cur)
	}
	// 反转为 target -> ... -> from
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// canonicalCycle 将环旋转为以最小 ID 开头。
func canonicalCycle(path []string) []string {
	minIdx := 0
	for i, id := range path {
		if id < path[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(path))
	out = append(out, path[minIdx:]...)
	return append(out, path[:minIdx]...)
}
