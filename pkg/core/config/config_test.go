package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/easyops/llmsdigest-go/pkg/core/errors"
	"github.com/easyops/llmsdigest-go/pkg/conflict"
	"github.com/easyops/llmsdigest-go/pkg/document"
	"github.com/easyops/llmsdigest-go/pkg/selection"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "balanced", cfg.Selection.Strategy)
	assert.Equal(t, 10000, cfg.Selection.MaxCharacters)
	assert.Equal(t, 2, cfg.Selection.DependencyDepth)
	assert.True(t, cfg.Selection.AutoResolveConflicts)
	assert.Equal(t, strategy.StrategyBalanced, cfg.Selection.CompositionStrategy)
	assert.Equal(t, []int{100, 300, 1000, 2000, 5000}, cfg.Composition.CharacterLimits)
	assert.True(t, cfg.Composition.IncludeTableOfContents)
	assert.Equal(t, 50, cfg.Composition.BodyReserve)
	assert.Equal(t, "llmsdigest", cfg.Observability.ServiceName)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Len(t, reg.Categories, len(document.Categories()))
	assert.True(t, reg.CategoriesExclusive(document.CategoryLLMs, document.CategoryReference))
	assert.True(t, reg.Incompatible("beginner", "expert"))
}

func TestLoader_LoadBytesOverrides(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadBytes([]byte(`
selection:
  strategy: diverse
  max_characters: 3000
  quality_threshold: 0.4
composition:
  character_limits: [200, 800]
strategies:
  balanced:
    category: 0.25
    tag: 0.25
    dependency: 0.25
    priority: 0.25
  priority-first:
    category: 0.1
    tag: 0.1
    dependency: 0.1
    priority: 0.7
  tag-focused:
    category: 0.1
    tag: 0.7
    dependency: 0.1
    priority: 0.1
  dependency-driven:
    category: 0.1
    tag: 0.1
    dependency: 0.7
    priority: 0.1
`)))

	cfg, err := l.Config()
	require.NoError(t, err)
	assert.Equal(t, "diverse", cfg.Selection.Strategy)
	assert.Equal(t, 3000, cfg.Selection.MaxCharacters)
	assert.InDelta(t, 0.4, cfg.Selection.QualityThreshold, 1e-9)
	assert.Equal(t, []int{200, 800}, cfg.Composition.CharacterLimits)
	assert.InDelta(t, 0.7, cfg.Strategies["priority-first"].Priority, 1e-9)

	// 未覆盖的键保留默认值
	assert.Equal(t, 2, cfg.Selection.DependencyDepth)
	assert.Equal(t, "diverse", l.GetString("selection.strategy"))
	assert.Equal(t, 3000, l.GetInt("selection.max_characters"))
	assert.True(t, l.GetBool("composition.include_table_of_contents"))
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("LLMSDIGEST_SELECTION__MAX_CHARACTERS", "2500")
	t.Setenv("LLMSDIGEST_SELECTION__STRATEGY", "greedy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2500, cfg.Selection.MaxCharacters)
	assert.Equal(t, "greedy", cfg.Selection.Strategy)
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "digest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("selection:\n  dependency_depth: 4\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Selection.DependencyDepth)

	// 文件不存在时使用默认值
	cfg, err = Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Selection.DependencyDepth)

	tomlPath := filepath.Join(dir, "digest.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[selection]\nstrategy = \"greedy\"\nmax_characters = 1500\n"), 0o600))
	cfg, err = Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, "greedy", cfg.Selection.Strategy)
	assert.Equal(t, 1500, cfg.Selection.MaxCharacters)

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[selection\n"), 0o600))
	_, err = Load(broken)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidConfig)

	other := filepath.Join(dir, "digest.ini")
	require.NoError(t, os.WriteFile(other, []byte("x = 1"), 0o600))
	_, err = Load(other)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidConfig)
}

func TestLoader_SourcesLayerInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.yml")
	require.NoError(t, os.WriteFile(path, []byte("selection:\n  strategy: greedy\n  max_characters: 1800\n"), 0o600))

	l := NewLoader()
	require.NoError(t, l.LoadFile(path))
	require.NoError(t, l.LoadBytes([]byte("selection:\n  max_characters: 900\n")))

	cfg, err := l.Config()
	require.NoError(t, err)
	assert.Equal(t, "greedy", cfg.Selection.Strategy)
	assert.Equal(t, 900, cfg.Selection.MaxCharacters)
	assert.Equal(t, 2, cfg.Selection.DependencyDepth)
	assert.Equal(t, 500, cfg.Composition.TOCCharacterLimit)

	// 路径存在但不可读取为文件
	unreadable := filepath.Join(dir, "nested.yaml")
	require.NoError(t, os.Mkdir(unreadable, 0o700))
	err = NewLoader().LoadFile(unreadable)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidConfig)
}

func TestLoader_InvalidConfigIsFatal(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "unknown selection strategy",
			yaml: "selection:\n  strategy: random\n",
			want: coreerrors.ErrInvalidConfig,
		},
		{
			name: "non-positive budget",
			yaml: "selection:\n  max_characters: 0\n",
			want: coreerrors.ErrInvalidConfig,
		},
		{
			name: "weights do not sum to one",
			yaml: "strategies:\n  balanced:\n    category: 0.5\n    tag: 0.5\n    dependency: 0.5\n    priority: 0.5\n",
			want: coreerrors.ErrInvalidWeights,
		},
		{
			name: "unknown category",
			yaml: "categories:\n  tutorial:\n    ideal_ratio: 0.1\n",
			want: coreerrors.ErrUnknownCategory,
		},
		{
			name: "unknown tag reference",
			yaml: "tags:\n  beginner:\n    incompatible: [wizard]\n",
			want: coreerrors.ErrUnknownTag,
		},
		{
			name: "malformed exclusive pair",
			yaml: "conflicts:\n  exclusive_categories:\n    - [guide]\n",
			want: coreerrors.ErrInvalidConfig,
		},
		{
			name: "unknown disabled rule",
			yaml: "conflicts:\n  disabled_rules: [typo-rule]\n",
			want: coreerrors.ErrUnknownRule,
		},
		{
			name: "empty character limits",
			yaml: "composition:\n  character_limits: []\n",
			want: coreerrors.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader()
			require.NoError(t, l.LoadBytes([]byte(tt.yaml)))

			_, err := l.Config()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, coreerrors.IsFatal(err))
		})
	}
}

func TestConfig_ComponentOptions(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadBytes([]byte(`
selection:
  strategy: greedy
  dependency_depth: 3
  auto_resolve_conflicts: false
conflicts:
  disabled_rules: [complexity-gap]
composition:
  character_limits: [300, 1200, 600]
  priority_threshold: 40
  language: en
`)))
	cfg, err := l.Config()
	require.NoError(t, err)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.NotContains(t, rules.Kinds(), conflict.KindComplexityGap)
	assert.Len(t, rules.Kinds(), len(conflict.DefaultRuleSet().Kinds())-1)

	opts, err := cfg.SelectorOptions()
	require.NoError(t, err)
	o := selection.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, selection.StrategyGreedy, o.Strategy)
	assert.Equal(t, 3, o.DependencyDepth)
	assert.False(t, o.AutoResolveConflicts)
	require.NotNil(t, o.Rules)
	assert.Equal(t, rules.Kinds(), o.Rules.Kinds())
	require.NoError(t, o.Validate())

	c := cfg.Constraints()
	assert.Equal(t, 10000, c.MaxCharacters)
	require.NoError(t, c.Validate())

	co := cfg.ComposeOptions()
	assert.Equal(t, 1200, co.CharacterLimit)
	assert.Equal(t, 40, co.PriorityThreshold)
	assert.Equal(t, "en", co.Language)
	assert.Equal(t, 500, co.TOCCharacterLimit)
	require.NoError(t, co.Validate())
}
