package selection

import (
	"fmt"
	"math"
	"sort"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// Strategy 预算内的选择策略。
type Strategy string

const (
	// StrategyGreedy 按分数降序加入直到预算耗尽
	StrategyGreedy Strategy = "greedy"
	// StrategyBalanced 先按分类理想比例分配预算，再按分数补齐
	StrategyBalanced Strategy = "balanced"
	// StrategyQualityFocused 以优先级为主键、标签对齐为次键
	StrategyQualityFocused Strategy = "quality-focused"
	// StrategyDiverse 首轮限制每个分类的数量，次轮按分数补齐
	StrategyDiverse Strategy = "diverse"
)

// Valid 判断选择策略是否已知。
func (s Strategy) Valid() bool {
	switch s {
	case StrategyGreedy, StrategyBalanced, StrategyQualityFocused, StrategyDiverse:
		return true
	default:
		return false
	}
}

// ParseStrategy 解析选择策略名称。
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !s.Valid() {
		return "", fmt.Errorf("strategy %q: %w", name, coreerrors.ErrUnknownSelectionStrategy)
	}
	return s, nil
}

// DefaultEstimatedSize 缺少词数与字符数时的估算尺寸。
const DefaultEstimatedSize = 400

// charsPerWord 由字符数换算词数的比例。
const charsPerWord = 6

// SizeEstimator 估算文档在选择阶段占用的预算。
type SizeEstimator func(doc *document.DocumentMetadata) int

// EstimateSize 默认尺寸估算：词数优先，其次字符数/6，最后使用默认值。
func EstimateSize(doc *document.DocumentMetadata) int {
	if doc.WordCount > 0 {
		return doc.WordCount
	}
	if doc.CharacterCount > 0 {
		return int(math.Ceil(float64(doc.CharacterCount) / charsPerWord))
	}
	return DefaultEstimatedSize
}

// ScoredDocument 评分后的候选文档。
type ScoredDocument struct {
	Document *document.DocumentMetadata `json:"-"`
	ID       string                     `json:"id"`
	Score    Score                      `json:"score"`
	// Size 选择阶段的尺寸估算
	Size int `json:"size"`
}

// byRank 排序规则：总分降序，优先级降序，ID 升序。
func byRank(a, b ScoredDocument) bool {
	if a.Score.Total != b.Score.Total {
		return a.Score.Total > b.Score.Total
	}
	if a.Document.Priority.Score != b.Document.Priority.Score {
		return a.Document.Priority.Score > b.Document.Priority.Score
	}
	return a.ID < b.ID
}

// byQuality 排序规则：优先级降序，标签对齐降序，元数据完整度降序，ID 升序。
func byQuality(a, b ScoredDocument) bool {
	if a.Document.Priority.Score != b.Document.Priority.Score {
		return a.Document.Priority.Score > b.Document.Priority.Score
	}
	if a.Score.Breakdown.TagAlignment != b.Score.Breakdown.TagAlignment {
		return a.Score.Breakdown.TagAlignment > b.Score.Breakdown.TagAlignment
	}
	ca, cb := a.Document.Completeness(), b.Document.Completeness()
	if ca != cb {
		return ca > cb
	}
	return a.ID < b.ID
}

func sortCandidates(cands []ScoredDocument, less func(a, b ScoredDocument) bool) []ScoredDocument {
	out := make([]ScoredDocument, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// budget 预算跟踪器，同时执行分类文档数上限。
type budget struct {
	limit    int
	used     int
	registry *strategy.Registry
	perCat   map[document.Category]int
	chosen   map[string]struct{}
	selected []ScoredDocument
}

func newBudget(limit int, reg *strategy.Registry) *budget {
	return &budget{
		limit:    limit,
		registry: reg,
		perCat:   make(map[document.Category]int),
		chosen:   make(map[string]struct{}),
	}
}

func (b *budget) remaining() int { return b.limit - b.used }

func (b *budget) has(id string) bool {
	_, ok := b.chosen[id]
	return ok
}

// capped 判断分类是否已达到注册表中的文档上限。
func (b *budget) capped(cat document.Category) bool {
	maxDocs := b.registry.Defaults(cat).MaxDocuments
	return maxDocs > 0 && b.perCat[cat] >= maxDocs
}

func (b *budget) add(c ScoredDocument) {
	b.used += c.Size
	b.perCat[c.Document.Category]++
	b.chosen[c.ID] = struct{}{}
	b.selected = append(b.selected, c)
}

// fill 按给定顺序加入候选，遇到第一个超出剩余预算的候选即停止。
func (b *budget) fill(ordered []ScoredDocument) {
	for _, c := range ordered {
		if b.has(c.ID) || b.capped(c.Document.Category) {
			continue
		}
		if c.Size > b.remaining() {
			return
		}
		b.add(c)
	}
}

// selectWithin 在预算内执行选择策略，返回按排序规则排列的入选文档。
func selectWithin(s Strategy, cands []ScoredDocument, limit int, reg *strategy.Registry, diverseCap int) []ScoredDocument {
	b := newBudget(limit, reg)
	ranked := sortCandidates(cands, byRank)

	switch s {
	case StrategyGreedy:
		b.fill(ranked)

	case StrategyQualityFocused:
		b.fill(sortCandidates(cands, byQuality))
		return b.selected

	case StrategyBalanced:
		mix := reg.IdealMix()
		for _, cat := range document.Categories() {
			ratio, ok := mix[cat]
			if !ok {
				continue
			}
			catBudget := int(math.Floor(ratio * float64(limit)))
			catUsed := 0
			for _, c := range ranked {
				if c.Document.Category != cat || b.has(c.ID) || b.capped(cat) {
					continue
				}
				if catUsed+c.Size > catBudget || c.Size > b.remaining() {
					break
				}
				catUsed += c.Size
				b.add(c)
			}
		}
		b.fill(ranked)

	case StrategyDiverse:
		if diverseCap < 1 {
			diverseCap = 1
		}
		for _, c := range ranked {
			if b.has(c.ID) || b.capped(c.Document.Category) || b.perCat[c.Document.Category] >= diverseCap {
				continue
			}
			if c.Size > b.remaining() {
				break
			}
			b.add(c)
		}
		b.fill(ranked)
	}

	return sortCandidates(b.selected, byRank)
}
