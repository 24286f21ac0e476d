package selection

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

func scored(id string, cat document.Category, priority int, total float64, size int) ScoredDocument {
	return ScoredDocument{
		Document: newDoc(id, cat, priority),
		ID:       id,
		Score:    Score{Total: total},
		Size:     size,
	}
}

func scoredIDs(s []ScoredDocument) []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.ID
	}
	return out
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("diverse")
	require.NoError(t, err)
	assert.Equal(t, StrategyDiverse, s)

	_, err = ParseStrategy("random")
	assert.ErrorIs(t, err, coreerrors.ErrUnknownSelectionStrategy)
}

func TestEstimateSize(t *testing.T) {
	d := newDoc("d", document.CategoryGuide, 50)
	assert.Equal(t, DefaultEstimatedSize, EstimateSize(d))
	d.CharacterCount = 601
	assert.Equal(t, 101, EstimateSize(d))
	d.WordCount = 120
	assert.Equal(t, 120, EstimateSize(d))
}

func TestGreedy_TakesTopTwoWhenBudgetFitsExactlyTwo(t *testing.T) {
	cands := []ScoredDocument{
		scored("low", document.CategoryGuide, 50, 0.5, 100),
		scored("high", document.CategoryGuide, 90, 0.9, 100),
		scored("mid", document.CategoryGuide, 70, 0.7, 100),
	}
	got := selectWithin(StrategyGreedy, cands, 200, strategy.DefaultRegistry(), 2)
	assert.Equal(t, []string{"high", "mid"}, scoredIDs(got))
}

func TestGreedy_StopsAtFirstOverflow(t *testing.T) {
	cands := []ScoredDocument{
		scored("a", document.CategoryGuide, 90, 0.9, 100),
		scored("b", document.CategoryGuide, 80, 0.8, 300),
		scored("c", document.CategoryGuide, 70, 0.7, 50),
	}
	got := selectWithin(StrategyGreedy, cands, 350, strategy.DefaultRegistry(), 2)
	assert.Equal(t, []string{"a"}, scoredIDs(got))
}

func TestBalanced_UsesIdealMix(t *testing.T) {
	cands := []ScoredDocument{
		scored("e1", document.CategoryExample, 95, 0.95, 600),
		scored("g1", document.CategoryGuide, 90, 0.9, 200),
		scored("g2", document.CategoryGuide, 85, 0.85, 200),
		scored("a1", document.CategoryAPI, 50, 0.5, 250),
	}
	reg := strategy.DefaultRegistry()

	assert.Equal(t, []string{"e1", "g1", "g2"}, scoredIDs(selectWithin(StrategyGreedy, cands, 1000, reg, 2)))
	// guide 预算 300 只容纳 g1，api 预算 250 容纳 a1，e1 超出剩余预算
	assert.Equal(t, []string{"g1", "a1"}, scoredIDs(selectWithin(StrategyBalanced, cands, 1000, reg, 2)))
}

func TestDiverse_CapsPerCategoryBeforeFilling(t *testing.T) {
	cands := []ScoredDocument{
		scored("g1", document.CategoryGuide, 90, 0.9, 100),
		scored("g2", document.CategoryGuide, 80, 0.8, 100),
		scored("a1", document.CategoryAPI, 50, 0.5, 100),
		scored("c1", document.CategoryConcept, 40, 0.4, 100),
	}
	reg := strategy.DefaultRegistry()

	assert.Equal(t, []string{"g1", "g2", "a1"}, scoredIDs(selectWithin(StrategyGreedy, cands, 300, reg, 1)))
	assert.Equal(t, []string{"g1", "a1", "c1"}, scoredIDs(selectWithin(StrategyDiverse, cands, 300, reg, 1)))
	// 预算充足时次轮补齐
	assert.Equal(t, []string{"g1", "g2", "a1", "c1"}, scoredIDs(selectWithin(StrategyDiverse, cands, 400, reg, 1)))
}

func TestQualityFocused_PriorityThenTagAlignment(t *testing.T) {
	q1 := scored("q1", document.CategoryGuide, 90, 0.3, 100)
	q1.Score.Breakdown.TagAlignment = 0.2
	q2 := scored("q2", document.CategoryGuide, 90, 0.2, 100)
	q2.Score.Breakdown.TagAlignment = 0.8
	q3 := scored("q3", document.CategoryGuide, 50, 0.9, 100)

	got := selectWithin(StrategyQualityFocused, []ScoredDocument{q1, q2, q3}, 1000, strategy.DefaultRegistry(), 2)
	assert.Equal(t, []string{"q2", "q1", "q3"}, scoredIDs(got))

	got = selectWithin(StrategyQualityFocused, []ScoredDocument{q1, q2, q3}, 200, strategy.DefaultRegistry(), 2)
	assert.Equal(t, []string{"q2", "q1"}, scoredIDs(got))
}

func TestStrategies_HonourCategoryMaxDocuments(t *testing.T) {
	var cands []ScoredDocument
	for i := 0; i < 4; i++ {
		cands = append(cands, scored(fmt.Sprintf("llms-%d", i), document.CategoryLLMs, 90-i, 0.9-float64(i)/100, 10))
	}
	got := selectWithin(StrategyGreedy, cands, 1000, strategy.DefaultRegistry(), 2)
	assert.Equal(t, []string{"llms-0", "llms-1"}, scoredIDs(got))
}

func TestStrategies_NeverExceedBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cats := document.Categories()
	reg := strategy.DefaultRegistry()

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(30)
		cands := make([]ScoredDocument, n)
		for i := range cands {
			cands[i] = scored(
				fmt.Sprintf("doc-%02d", i),
				cats[rng.Intn(len(cats))],
				rng.Intn(101),
				rng.Float64(),
				1+rng.Intn(500),
			)
		}
		limit := 1 + rng.Intn(2000)

		for _, s := range []Strategy{StrategyGreedy, StrategyBalanced, StrategyQualityFocused, StrategyDiverse} {
			got := selectWithin(s, cands, limit, reg, 2)
			total := 0
			seen := make(map[string]bool)
			for _, d := range got {
				total += d.Size
				assert.False(t, seen[d.ID], "duplicate %s", d.ID)
				seen[d.ID] = true
			}
			assert.LessOrEqual(t, total, limit, "round %d strategy %s", round, s)
		}
	}
}
