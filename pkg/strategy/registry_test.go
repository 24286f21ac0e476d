package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/document"
)

func TestDefaultRegistry_Valid(t *testing.T) {
	require.NoError(t, DefaultRegistry().Validate())
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, Weights{Category: 0.25, Tag: 0.25, Dependency: 0.25, Priority: 0.25}.Validate())
	assert.ErrorIs(t, Weights{Category: 0.5, Tag: 0.5, Dependency: 0.5}.Validate(), coreerrors.ErrInvalidWeights)
	assert.ErrorIs(t, Weights{Category: -0.5, Tag: 0.5, Dependency: 0.5, Priority: 0.5}.Validate(), coreerrors.ErrInvalidWeights)
}

func TestRegistry_ValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Registry)
		want   error
	}{
		{
			name: "weights do not sum to one",
			mutate: func(r *Registry) {
				r.Strategies["broken"] = Weights{Category: 0.9, Tag: 0.9}
			},
			want: coreerrors.ErrInvalidWeights,
		},
		{
			name:   "unknown default strategy",
			mutate: func(r *Registry) { r.DefaultStrategy = "nope" },
			want:   coreerrors.ErrUnknownStrategy,
		},
		{
			name: "unknown category strategy",
			mutate: func(r *Registry) {
				def := r.Categories[document.CategoryAPI]
				def.Strategy = "nope"
				r.Categories[document.CategoryAPI] = def
			},
			want: coreerrors.ErrUnknownStrategy,
		},
		{
			name:   "unknown category",
			mutate: func(r *Registry) { r.Categories["tutorial"] = CategoryDefaults{} },
			want:   coreerrors.ErrUnknownCategory,
		},
		{
			name: "unknown tag reference",
			mutate: func(r *Registry) {
				r.Tags["beginner"] = TagInfo{Incompatible: []string{"ghost"}}
			},
			want: coreerrors.ErrUnknownTag,
		},
		{
			name: "unknown characteristic",
			mutate: func(r *Registry) {
				def := r.Categories[document.CategoryGuide]
				def.RequiredCharacteristics = []string{"ghost"}
				r.Categories[document.CategoryGuide] = def
			},
			want: coreerrors.ErrUnknownTag,
		},
		{
			name: "ratios exceed budget",
			mutate: func(r *Registry) {
				def := r.Categories[document.CategoryGuide]
				def.IdealRatio = 0.9
				r.Categories[document.CategoryGuide] = def
			},
			want: coreerrors.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRegistry()
			tt.mutate(r)
			err := r.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, coreerrors.IsFatal(err))
		})
	}
}

func TestRegistry_TagRelationsAreSymmetric(t *testing.T) {
	r := DefaultRegistry()

	assert.True(t, r.Incompatible("beginner", "expert"))
	assert.True(t, r.Incompatible("expert", "beginner"))
	assert.False(t, r.Incompatible("beginner", "beginner"))
	assert.True(t, r.Synergistic("code", "practical"))
	assert.True(t, r.Avoided("beginner", "advanced"))
	assert.False(t, r.Avoided("unknown", "beginner"))

	assert.Equal(t, [][2]string{{"beginner", "expert"}}, r.IncompatiblePairs([]string{"beginner", "code", "expert"}))
}

func TestRegistry_Defaults(t *testing.T) {
	r := DefaultRegistry()

	api := r.Defaults(document.CategoryAPI)
	assert.Equal(t, StrategyPriorityFirst, api.Strategy)

	delete(r.Categories, document.CategoryExample)
	ex := r.Defaults(document.CategoryExample)
	assert.Equal(t, StrategyBalanced, ex.Strategy)
	assert.Zero(t, ex.IdealRatio)

	w, err := r.Weights("")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)

	_, err = r.Weights("missing")
	assert.ErrorIs(t, err, coreerrors.ErrUnknownStrategy)
}

func TestRegistry_PairLists(t *testing.T) {
	r := DefaultRegistry()
	assert.True(t, r.CategoriesExclusive(document.CategoryReference, document.CategoryLLMs))
	assert.False(t, r.CategoriesExclusive(document.CategoryGuide, document.CategoryAPI))
	assert.True(t, r.AudiencesConflict("maintainer", "new-user"))

	mix := r.IdealMix()
	assert.InDelta(t, 0.30, mix[document.CategoryGuide], 1e-9)
}
