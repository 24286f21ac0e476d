package selection

import (
	"fmt"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// 评分常量。
const (
	// neutralAlignment 未指定目标标签时的标签对齐分
	neutralAlignment = 0.5
	// synergyBonus 每个协同标签对的加分
	synergyBonus = 0.1
	// maxSynergyBonus 协同加分上限
	maxSynergyBonus = 0.3
	// avoidPenalty 每个应避免标签对的扣分
	avoidPenalty = 0.2

	// dependencyBase 依赖相关性基础分
	dependencyBase = 0.3
	// prerequisiteWeight 已选前置文档比例的权重
	prerequisiteWeight = 0.4
	// complementBonus 每个已选补充/亲和文档的加分
	complementBonus = 0.1
	// maxComplementBonus 补充加分上限
	maxComplementBonus = 0.3
	// conflictPenalty 每个已选冲突文档的扣分
	conflictPenalty = 0.2

	// neutralCategoryBonus 分类未要求特征时的分类加分
	neutralCategoryBonus = 0.5

	// confidencePenalty 每缺失一组可选元数据降低的置信度
	confidencePenalty = 0.15
	// minConfidence 置信度下限
	minConfidence = 0.2
)

// Breakdown 各评分因子，均在 [0, 1]。
type Breakdown struct {
	Priority            float64 `json:"priority"`
	TagAlignment        float64 `json:"tag_alignment"`
	DependencyRelevance float64 `json:"dependency_relevance"`
	CategoryBonus       float64 `json:"category_bonus"`
}

// Score 单个文档的评分结果。
type Score struct {
	// Total 加权总分 [0, 1]
	Total     float64   `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
	// Confidence 置信度 [0, 1]，可选元数据缺失时降低
	Confidence float64 `json:"confidence"`
	// Strategy 实际使用的组合策略
	Strategy string `json:"strategy"`
}

// Scorer 多因子文档评分器。
type Scorer struct {
	registry *strategy.Registry
}

// NewScorer 创建评分器。
func NewScorer(reg *strategy.Registry) *Scorer {
	return &Scorer{registry: reg}
}

// Score 计算文档相对选择上下文的评分。
//
// 返回的错误属于单文档错误，调用方应记录后继续处理其余文档。
func (s *Scorer) Score(doc *document.DocumentMetadata, ctx *Context) (Score, error) {
	if doc == nil {
		return Score{}, fmt.Errorf("score nil document: %w", coreerrors.ErrInvalidDocument)
	}
	if doc.Priority.Score < 0 || doc.Priority.Score > 100 {
		return Score{}, fmt.Errorf("document %s priority %d out of range: %w", doc.ID, doc.Priority.Score, coreerrors.ErrInvalidDocument)
	}
	if !doc.Category.Valid() {
		return Score{}, fmt.Errorf("document %s category %q: %w", doc.ID, doc.Category, coreerrors.ErrInvalidDocument)
	}
	if ctx == nil {
		ctx = &Context{}
	}

	name := ctx.Strategy
	if name == "" {
		name = s.registry.Defaults(doc.Category).Strategy
	}
	weights, err := s.registry.Weights(name)
	if err != nil {
		return Score{}, coreerrors.WrapError(err, "score "+doc.ID)
	}

	b := Breakdown{
		Priority:            float64(doc.Priority.Score) / 100,
		TagAlignment:        s.TagAlignment(doc, ctx.TargetTags),
		DependencyRelevance: s.DependencyRelevance(doc, ctx),
		CategoryBonus:       s.CategoryBonus(doc),
	}
	total := weights.Priority*b.Priority +
		weights.Tag*b.TagAlignment +
		weights.Dependency*b.DependencyRelevance +
		weights.Category*b.CategoryBonus

	return Score{
		Total:      clamp01(total),
		Breakdown:  b,
		Confidence: Confidence(doc),
		Strategy:   name,
	}, nil
}

// TagAlignment 计算目标标签对齐度。
//
// 基础分为已携带目标标签的权重占比；协同标签对加分，应避免的标签对扣分。
func (s *Scorer) TagAlignment(doc *document.DocumentMetadata, targets map[string]float64) float64 {
	base := neutralAlignment
	if len(targets) > 0 {
		var total, present float64
		for _, tag := range sortedTagKeys(targets) {
			w := targets[tag]
			total += w
			if doc.HasTag(tag) {
				present += w
			}
		}
		if total > 0 {
			base = present / total
		}
	}

	tags := doc.AllTags()
	synergies, avoided := 0, 0
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			if s.registry.Synergistic(tags[i], tags[j]) {
				synergies++
			}
			if s.registry.Avoided(tags[i], tags[j]) {
				avoided++
			}
		}
	}

	bonus := float64(synergies) * synergyBonus
	if bonus > maxSynergyBonus {
		bonus = maxSynergyBonus
	}
	return clamp01(base + bonus - float64(avoided)*avoidPenalty)
}

// DependencyRelevance 计算与已选文档的依赖相关性。
func (s *Scorer) DependencyRelevance(doc *document.DocumentMetadata, ctx *Context) float64 {
	prereqs := doc.Dependencies.Prerequisites
	fraction := 1.0
	if len(prereqs) > 0 {
		present := 0
		for _, rel := range prereqs {
			if ctx.IsSelected(rel.ID) {
				present++
			}
		}
		fraction = float64(present) / float64(len(prereqs))
	}

	complements := 0
	for _, rel := range doc.Dependencies.Complements {
		if ctx.IsSelected(rel.ID) {
			complements++
		}
	}
	if doc.Composition != nil {
		for _, id := range doc.Composition.Affinities {
			if ctx.IsSelected(id) {
				complements++
			}
		}
	}
	bonus := float64(complements) * complementBonus
	if bonus > maxComplementBonus {
		bonus = maxComplementBonus
	}

	conflicts := 0
	for _, rel := range doc.Dependencies.Conflicts {
		if ctx.IsSelected(rel.ID) {
			conflicts++
		}
	}

	return clamp01(dependencyBase + prerequisiteWeight*fraction + bonus - float64(conflicts)*conflictPenalty)
}

// CategoryBonus 计算分类特征匹配度。
func (s *Scorer) CategoryBonus(doc *document.DocumentMetadata) float64 {
	required := s.registry.Defaults(doc.Category).RequiredCharacteristics
	if len(required) == 0 {
		return neutralCategoryBonus
	}
	present := 0
	for _, tag := range required {
		if doc.HasTag(tag) {
			present++
		}
	}
	return float64(present) / float64(len(required))
}

// Confidence 根据可选元数据的缺失情况计算置信度。
//
// 统计受众、次标签/关键词、质量指标、优先级理由四组信息。
func Confidence(doc *document.DocumentMetadata) float64 {
	missing := 0
	if len(doc.Tags.Audience) == 0 {
		missing++
	}
	if len(doc.Tags.Secondary) == 0 && len(doc.Keywords) == 0 {
		missing++
	}
	if doc.Quality == nil {
		missing++
	}
	if doc.Priority.Rationale == "" {
		missing++
	}
	c := 1 - float64(missing)*confidencePenalty
	if c < minConfidence {
		return minConfidence
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
