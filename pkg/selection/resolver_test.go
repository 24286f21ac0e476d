package selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyops/llmsdigest-go/pkg/document"
)

func ids(docs []*document.DocumentMetadata) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// chain 构造 a -> b -> c -> d 的前置依赖链。
func chain() []*document.DocumentMetadata {
	a := newDoc("a", document.CategoryGuide, 90)
	b := newDoc("b", document.CategoryConcept, 70)
	c := newDoc("c", document.CategoryConcept, 60)
	d := newDoc("d", document.CategoryConcept, 50)
	a.Dependencies.Prerequisites = prereqs("b")
	b.Dependencies.Prerequisites = prereqs("c")
	c.Dependencies.Prerequisites = prereqs("d")
	return []*document.DocumentMetadata{a, b, c, d}
}

func TestResolve_RespectsMaxDepth(t *testing.T) {
	docs := chain()
	r := NewDependencyResolver()

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"a"}},
		{1, []string{"a", "b"}},
		{2, []string{"a", "b", "c"}},
		{10, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		res := r.Resolve(docs[:1], docs, ResolveOptions{MaxDepth: tt.depth})
		assert.Equal(t, tt.want, ids(res.Resolved), "depth %d", tt.depth)
		for id, depth := range res.Depths {
			assert.LessOrEqual(t, depth, tt.depth, "document %s", id)
		}
	}

	res := r.Resolve(docs[:1], docs, ResolveOptions{MaxDepth: 2})
	assert.Equal(t, []string{"b", "c"}, res.Added)
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, res.Depths)
}

func TestResolve_CyclesTerminateAndAreReported(t *testing.T) {
	a := newDoc("a", document.CategoryGuide, 90)
	b := newDoc("b", document.CategoryGuide, 80)
	c := newDoc("c", document.CategoryGuide, 70)
	a.Dependencies.Prerequisites = prereqs("b")
	b.Dependencies.Prerequisites = prereqs("c")
	c.Dependencies.Prerequisites = prereqs("a")
	all := []*document.DocumentMetadata{a, b, c}

	res := NewDependencyResolver().Resolve([]*document.DocumentMetadata{b, a}, all, ResolveOptions{MaxDepth: 10})

	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(res.Resolved))
	// 从不同种子出发发现的同一个环只报告一次
	if diff := cmp.Diff([][]string{{"a", "b", "c"}}, res.Cycles); diff != "" {
		t.Errorf("cycles mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"c"}, res.Added)
}

func TestResolve_SelfLoopAndMissing(t *testing.T) {
	a := newDoc("a", document.CategoryGuide, 90)
	a.Dependencies.Prerequisites = prereqs("a", "ghost")

	res := NewDependencyResolver().Resolve([]*document.DocumentMetadata{a}, nil, ResolveOptions{MaxDepth: 3})
	assert.Equal(t, [][]string{{"a"}}, res.Cycles)
	assert.Equal(t, []MissingDependency{{From: "a", To: "ghost", Kind: document.RelationPrerequisite}}, res.Missing)
	assert.Equal(t, []string{"a"}, ids(res.Resolved))
}

func TestResolve_OptionalRelations(t *testing.T) {
	a := newDoc("a", document.CategoryGuide, 90)
	ref := newDoc("ref", document.CategoryReference, 40)
	next := newDoc("next", document.CategoryGuide, 40)
	a.Dependencies.References = prereqs("ref")
	a.Dependencies.Followups = prereqs("next")
	all := []*document.DocumentMetadata{a, ref, next}
	r := NewDependencyResolver()

	res := r.Resolve(all[:1], all, ResolveOptions{MaxDepth: 2})
	assert.Equal(t, []string{"a"}, ids(res.Resolved))

	res = r.Resolve(all[:1], all, ResolveOptions{MaxDepth: 2, IncludeOptional: true})
	assert.Equal(t, []string{"a", "ref", "next"}, ids(res.Resolved))
}

func TestResolve_ConflictModes(t *testing.T) {
	build := func(xScore, yScore int) []*document.DocumentMetadata {
		x := newDoc("x", document.CategoryGuide, xScore)
		y := newDoc("y", document.CategoryGuide, yScore)
		x.Dependencies.Conflicts = prereqs("y")
		return []*document.DocumentMetadata{x, y}
	}
	r := NewDependencyResolver()

	t.Run("higher score wins", func(t *testing.T) {
		docs := build(60, 80)
		res := r.Resolve(docs, docs, ResolveOptions{ConflictResolution: ConflictHigherScoreWins})
		assert.Equal(t, []string{"y"}, ids(res.Resolved))
		assert.Equal(t, []DependencyExclusion{{DocumentID: "x", ConflictsWith: "y", Mode: "higher-score-wins"}}, res.Excluded)
	})

	t.Run("tie keeps the smaller id", func(t *testing.T) {
		docs := build(50, 50)
		res := r.Resolve(docs, docs, ResolveOptions{ConflictResolution: ConflictHigherScoreWins})
		assert.Equal(t, []string{"x"}, ids(res.Resolved))
	})

	t.Run("exclude both", func(t *testing.T) {
		docs := build(60, 80)
		res := r.Resolve(docs, docs, ResolveOptions{ConflictResolution: ConflictExcludeBoth})
		assert.Empty(t, res.Resolved)
		assert.Len(t, res.Excluded, 2)
	})

	t.Run("manual review flags the pair", func(t *testing.T) {
		docs := build(60, 80)
		res := r.Resolve(docs, docs, ResolveOptions{ConflictResolution: ConflictManualReview})
		assert.Equal(t, []string{"x", "y"}, ids(res.Resolved))
		require.Len(t, res.FlaggedPairs, 1)
		assert.Equal(t, [2]string{"x", "y"}, res.FlaggedPairs[0])
		assert.Empty(t, res.Excluded)
	})
}

func TestResolve_AddedExcludesConflictDrops(t *testing.T) {
	seed := newDoc("seed", document.CategoryGuide, 90)
	extra := newDoc("extra", document.CategoryConcept, 30)
	seed.Dependencies.Prerequisites = prereqs("extra")
	seed.Dependencies.Conflicts = prereqs("extra")
	all := []*document.DocumentMetadata{seed, extra}
	r := NewDependencyResolver()

	for _, mode := range []ConflictMode{ConflictHigherScoreWins, ConflictExcludeBoth} {
		res := r.Resolve(all[:1], all, ResolveOptions{MaxDepth: 2, ConflictResolution: mode})
		assert.Empty(t, res.Added, "mode %s", mode)
		assert.NotContains(t, ids(res.Resolved), "extra", "mode %s", mode)
	}

	res := r.Resolve(all[:1], all, ResolveOptions{MaxDepth: 2, ConflictResolution: ConflictManualReview})
	assert.Equal(t, []string{"extra"}, res.Added)
}
