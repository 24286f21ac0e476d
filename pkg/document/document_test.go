package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
)

func validDoc() *DocumentMetadata {
	return &DocumentMetadata{
		ID:       "guide-getting-started",
		Title:    "Getting Started",
		Category: CategoryGuide,
		Priority: Priority{Score: 92, Rationale: "entry point"},
		Tags: Tags{
			Primary:    []string{"beginner", "setup"},
			Secondary:  []string{"install"},
			Audience:   []string{"new-user"},
			Complexity: ComplexityBeginner,
		},
		Dependencies: Dependencies{
			Prerequisites: []Relation{{ID: "concept-overview", Importance: ImportanceRequired}},
		},
		Quality:   &Quality{Readability: 80, Completeness: 70, Accuracy: 90, Freshness: 60},
		WordCount: 120,
	}
}

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{100, TierCritical},
		{90, TierCritical},
		{89, TierHigh},
		{75, TierHigh},
		{74, TierMedium},
		{50, TierMedium},
		{25, TierLow},
		{24, TierMinimal},
		{0, TierMinimal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForScore(tt.score), "score %d", tt.score)
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("  API ")
	assert.True(t, ok)
	assert.Equal(t, CategoryAPI, c)

	_, ok = ParseCategory("tutorial")
	assert.False(t, ok)
	assert.Len(t, Categories(), 6)
}

func TestComplexityLevel(t *testing.T) {
	assert.Equal(t, 1, ComplexityBeginner.Level())
	assert.Equal(t, 4, ComplexityExpert.Level())
	assert.Equal(t, 0, Complexity("").Level())
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validDoc().Validate())
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *DocumentMetadata)
		field     string
		isMissing bool
	}{
		{"missing id", func(d *DocumentMetadata) { d.ID = "" }, "ID", true},
		{"missing title", func(d *DocumentMetadata) { d.Title = "" }, "Title", true},
		{"unknown category", func(d *DocumentMetadata) { d.Category = "tutorial" }, "Category", false},
		{"score above range", func(d *DocumentMetadata) { d.Priority.Score = 140 }, "Priority.Score", false},
		{"negative quality", func(d *DocumentMetadata) { d.Quality.Freshness = -1 }, "Quality.Freshness", false},
		{"relation without id", func(d *DocumentMetadata) { d.Dependencies.Prerequisites[0].ID = "" }, "Dependencies.Prerequisites[0].ID", true},
		{"bad complexity", func(d *DocumentMetadata) { d.Tags.Complexity = "guru" }, "Tags.Complexity", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDoc()
			tt.mutate(d)

			err := d.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, coreerrors.ErrInvalidDocument)
			assert.Equal(t, tt.isMissing, assertIsMissing(err))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			var fields []string
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func assertIsMissing(err error) bool {
	return coreerrors.IsDocumentError(err) && errors.Is(err, coreerrors.ErrMissingField)
}

func TestValidate_Nil(t *testing.T) {
	var d *DocumentMetadata
	assert.ErrorIs(t, d.Validate(), coreerrors.ErrInvalidDocument)
}

func TestClone_IsDeep(t *testing.T) {
	orig := validDoc()
	orig.Composition = &Composition{Affinities: []string{"api-client"}}
	clone := orig.Clone()

	clone.Tags.Primary[0] = "changed"
	clone.Dependencies.Prerequisites[0].ID = "changed"
	clone.Quality.Accuracy = 1
	clone.Composition.Affinities[0] = "changed"

	assert.Equal(t, "beginner", orig.Tags.Primary[0])
	assert.Equal(t, "concept-overview", orig.Dependencies.Prerequisites[0].ID)
	assert.Equal(t, 90.0, orig.Quality.Accuracy)
	assert.Equal(t, "api-client", orig.Composition.Affinities[0])
}

func TestAllTagsAndCompleteness(t *testing.T) {
	d := validDoc()
	d.Tags.Secondary = append(d.Tags.Secondary, "beginner")
	assert.Equal(t, []string{"beginner", "setup", "install"}, d.AllTags())
	assert.True(t, d.HasTag("install"))
	assert.False(t, d.HasTag("advanced"))
	assert.True(t, d.DependsOn(RelationPrerequisite, "concept-overview"))
	assert.InDelta(t, 1.0, d.Completeness(), 1e-9)

	bare := &DocumentMetadata{ID: "x", Title: "x", Category: CategoryAPI}
	assert.InDelta(t, 0.0, bare.Completeness(), 1e-9)
}

func TestNormalize_DerivesTier(t *testing.T) {
	d := validDoc()
	n := d.Normalize()
	assert.Equal(t, TierCritical, n.Priority.Tier)
	assert.Equal(t, Tier(""), d.Priority.Tier)
}
