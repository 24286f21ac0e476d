package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

func TestTagFilter_MissingRequiredTagNamesTheTag(t *testing.T) {
	f := NewTagFilter(strategy.DefaultRegistry())

	advanced := newDoc("deep-dive", document.CategoryConcept, 70, "advanced")
	intro := newDoc("intro", document.CategoryGuide, 90, "beginner")

	res := f.Filter([]*document.DocumentMetadata{advanced, intro}, FilterCriteria{RequiredTags: []string{"beginner"}})

	require.Len(t, res.Excluded, 1)
	ex := res.Excluded[0]
	assert.Equal(t, "deep-dive", ex.DocumentID)
	assert.Equal(t, ReasonMissingRequiredTag, ex.Reason)
	assert.Equal(t, []string{"beginner"}, ex.Tags)
	assert.Contains(t, ex.Detail, `"beginner"`)

	require.Len(t, res.Filtered, 1)
	assert.Same(t, intro, res.Filtered[0])
}

func TestTagFilter_Reasons(t *testing.T) {
	f := NewTagFilter(strategy.DefaultRegistry())

	tests := []struct {
		name     string
		doc      *document.DocumentMetadata
		criteria FilterCriteria
		reason   ExclusionReason
		tags     []string
	}{
		{
			name:     "excluded tag",
			doc:      newDoc("a", document.CategoryGuide, 50, "beginner", "theory"),
			criteria: FilterCriteria{ExcludedTags: []string{"theory"}},
			reason:   ReasonExcludedTag,
			tags:     []string{"theory"},
		},
		{
			name: "audience shares nothing",
			doc: func() *document.DocumentMetadata {
				d := newDoc("b", document.CategoryGuide, 50)
				d.Tags.Audience = []string{"maintainer"}
				return d
			}(),
			criteria: FilterCriteria{FilterByAudience: true, TargetAudience: []string{"new-user"}},
			reason:   ReasonAudienceMismatch,
			tags:     []string{"maintainer"},
		},
		{
			name:     "empty audience under audience filtering",
			doc:      newDoc("c", document.CategoryGuide, 50),
			criteria: FilterCriteria{FilterByAudience: true, TargetAudience: []string{"new-user"}},
			reason:   ReasonAudienceMismatch,
		},
		{
			name:     "incompatible pair under strict compatibility",
			doc:      newDoc("d", document.CategoryGuide, 50, "beginner", "expert"),
			criteria: FilterCriteria{StrictCompatibility: true},
			reason:   ReasonIncompatibleTags,
			tags:     []string{"beginner", "expert"},
		},
		{
			name:     "required tags are all-of",
			doc:      newDoc("e", document.CategoryGuide, 50, "beginner"),
			criteria: FilterCriteria{RequiredTags: []string{"beginner", "setup"}},
			reason:   ReasonMissingRequiredTag,
			tags:     []string{"setup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Filter([]*document.DocumentMetadata{tt.doc}, tt.criteria)
			assert.Empty(t, res.Filtered)
			require.Len(t, res.Excluded, 1)
			assert.Equal(t, tt.reason, res.Excluded[0].Reason)
			assert.Equal(t, tt.tags, res.Excluded[0].Tags)
			assert.NotEmpty(t, res.Excluded[0].Detail)
		})
	}
}

func TestTagFilter_AcceptsWithoutMutation(t *testing.T) {
	f := NewTagFilter(strategy.DefaultRegistry())

	d := newDoc("a", document.CategoryGuide, 50, "beginner", "expert")
	d.Tags.Audience = []string{"new-user"}
	before := d.Clone()

	res := f.Filter([]*document.DocumentMetadata{nil, d}, FilterCriteria{
		FilterByAudience: true,
		TargetAudience:   []string{"new-user"},
	})
	require.Len(t, res.Filtered, 1)
	assert.Empty(t, res.Excluded)
	assert.Equal(t, before, d)

	// 未启用受众过滤时，目标受众不影响结果
	res = f.Filter([]*document.DocumentMetadata{newDoc("b", document.CategoryAPI, 10)}, FilterCriteria{TargetAudience: []string{"maintainer"}})
	assert.Len(t, res.Filtered, 1)
}
