package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// newDoc 构造测试文档，tags 作为主标签。
func newDoc(id string, cat document.Category, score int, tags ...string) *document.DocumentMetadata {
	return &document.DocumentMetadata{
		ID:       id,
		Title:    id,
		Category: cat,
		Priority: document.Priority{Score: score},
		Tags:     document.Tags{Primary: tags},
	}
}

func prereqs(ids ...string) []document.Relation {
	rels := make([]document.Relation, len(ids))
	for i, id := range ids {
		rels[i] = document.Relation{ID: id, Importance: document.ImportanceRequired}
	}
	return rels
}

func TestScorer_TagAlignment(t *testing.T) {
	s := NewScorer(strategy.DefaultRegistry())

	tests := []struct {
		name    string
		tags    []string
		targets map[string]float64
		want    float64
	}{
		{"no targets is neutral", []string{"setup"}, nil, 0.5},
		{"half of weighted targets", []string{"beginner"}, map[string]float64{"beginner": 1, "setup": 1}, 0.5},
		{"synergy bonus", []string{"beginner", "step-by-step"}, map[string]float64{"beginner": 3, "advanced": 1}, 0.85},
		{"avoided pair penalty", []string{"advanced", "beginner"}, map[string]float64{"advanced": 1}, 0.8},
		{"zero weights stay neutral", []string{"code"}, map[string]float64{"code": 0}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc("d", document.CategoryGuide, 50, tt.tags...)
			assert.InDelta(t, tt.want, s.TagAlignment(doc, tt.targets), 1e-9)
		})
	}
}

func TestScorer_DependencyRelevance(t *testing.T) {
	s := NewScorer(strategy.DefaultRegistry())

	doc := newDoc("d", document.CategoryGuide, 50)
	doc.Dependencies.Prerequisites = prereqs("a", "b")

	ctx := NewContext(Constraints{SelectedDocuments: []string{"a"}}, "")
	assert.InDelta(t, 0.5, s.DependencyRelevance(doc, ctx), 1e-9)

	doc.Dependencies.Complements = prereqs("c")
	ctx = NewContext(Constraints{SelectedDocuments: []string{"a", "c"}}, "")
	assert.InDelta(t, 0.6, s.DependencyRelevance(doc, ctx), 1e-9)

	doc.Dependencies.Conflicts = prereqs("x")
	ctx = NewContext(Constraints{SelectedDocuments: []string{"a", "c", "x"}}, "")
	assert.InDelta(t, 0.4, s.DependencyRelevance(doc, ctx), 1e-9)

	// 没有前置依赖时视为已满足
	bare := newDoc("bare", document.CategoryGuide, 50)
	bare.Composition = &document.Composition{Affinities: []string{"a", "c", "x", "y"}}
	ctx = NewContext(Constraints{SelectedDocuments: []string{"a", "c", "x", "y"}}, "")
	assert.InDelta(t, 1.0, s.DependencyRelevance(bare, ctx), 1e-9)
}

func TestScorer_CategoryBonusAndConfidence(t *testing.T) {
	s := NewScorer(strategy.DefaultRegistry())

	guide := newDoc("g", document.CategoryGuide, 50, "practical")
	assert.InDelta(t, 0.5, s.CategoryBonus(guide), 1e-9)
	guide.Tags.Secondary = []string{"step-by-step"}
	assert.InDelta(t, 1.0, s.CategoryBonus(guide), 1e-9)

	ref := newDoc("r", document.CategoryReference, 50)
	assert.InDelta(t, 0.5, s.CategoryBonus(ref), 1e-9)

	assert.InDelta(t, 0.4, Confidence(ref), 1e-9)
	ref.Tags.Audience = []string{"maintainer"}
	ref.Keywords = []string{"cli"}
	ref.Quality = &document.Quality{Readability: 80}
	ref.Priority.Rationale = "complete reference"
	assert.InDelta(t, 1.0, Confidence(ref), 1e-9)
}

func TestScorer_Score(t *testing.T) {
	s := NewScorer(strategy.DefaultRegistry())

	doc := newDoc("api-client", document.CategoryAPI, 80, "reference")
	sc, err := s.Score(doc, NewContext(Constraints{MaxCharacters: 1000}, ""))
	require.NoError(t, err)

	// priority-first: 0.10*0.5 + 0.20*0.5 + 0.10*0.7 + 0.60*0.8
	assert.Equal(t, strategy.StrategyPriorityFirst, sc.Strategy)
	assert.InDelta(t, 0.70, sc.Total, 1e-9)
	assert.Equal(t, Breakdown{Priority: 0.8, TagAlignment: 0.5, DependencyRelevance: 0.7, CategoryBonus: 0.5}, roundBreakdown(sc.Breakdown))

	tagged, err := s.Score(doc, NewContext(Constraints{MaxCharacters: 1000}, strategy.StrategyTagFocused))
	require.NoError(t, err)
	assert.Equal(t, strategy.StrategyTagFocused, tagged.Strategy)
	assert.NotEqual(t, sc.Total, tagged.Total)
}

func TestScorer_ScoreErrors(t *testing.T) {
	s := NewScorer(strategy.DefaultRegistry())

	_, err := s.Score(nil, nil)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidDocument)

	bad := newDoc("bad", "tutorial", 50)
	_, err = s.Score(bad, nil)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidDocument)

	outOfRange := newDoc("big", document.CategoryGuide, 140)
	_, err = s.Score(outOfRange, nil)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidDocument)

	_, err = s.Score(newDoc("ok", document.CategoryGuide, 50), &Context{Strategy: "nope"})
	assert.ErrorIs(t, err, coreerrors.ErrUnknownStrategy)
}

func roundBreakdown(b Breakdown) Breakdown {
	r := func(v float64) float64 { return float64(int(v*1000+0.5)) / 1000 }
	return Breakdown{
		Priority:            r(b.Priority),
		TagAlignment:        r(b.TagAlignment),
		DependencyRelevance: r(b.DependencyRelevance),
		CategoryBonus:       r(b.CategoryBonus),
	}
}
