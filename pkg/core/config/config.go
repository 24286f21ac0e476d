// Package config 提供配置加载和管理功能
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/easyops/llmsdigest-go/pkg/otel"
	"github.com/easyops/llmsdigest-go/pkg/strategy"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "LLMSDIGEST_"

// Config 全局配置结构
type Config struct {
	// Categories 分类默认参数
	Categories map[string]CategoryConfig `koanf:"categories"`
	// Tags 标签注册表
	Tags map[string]TagConfig `koanf:"tags"`
	// Strategies 组合策略权重
	Strategies map[string]strategy.Weights `koanf:"strategies"`
	// Conflicts 冲突规则配置
	Conflicts ConflictConfig `koanf:"conflicts"`
	// Selection 选择配置
	Selection SelectionConfig `koanf:"selection"`
	// Composition 组合配置
	Composition CompositionConfig `koanf:"composition"`
	// Observability 可观测性配置
	Observability otel.Config `koanf:"observability"`
}

// Loader 配置加载器
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建配置加载器（已载入默认值）
func NewLoader() *Loader {
	l := &Loader{k: koanf.New(".")}
	// 默认值 map 结构固定，加载不会失败
	_ = l.k.Load(confmap.Provider(defaultValues(), "."), nil)
	return l
}

// LoadFile 从 YAML 或 TOML 文件加载配置
func (l *Loader) LoadFile(path string) error {
	// 检查文件是否存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // 文件不存在不报错，使用默认值
	}

	switch {
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		if err := l.k.Load(file.Provider(path), YAMLParser()); err != nil {
			return wrapConfigError(err, "load "+path)
		}
		return nil
	case strings.HasSuffix(path, ".toml"):
		if err := l.k.Load(file.Provider(path), TOMLParser()); err != nil {
			return wrapConfigError(err, "load "+path)
		}
		return nil
	default:
		return wrapConfigError(ErrUnsupportedFormat, path)
	}
}

// LoadBytes 从内存中的 YAML 数据加载配置
func (l *Loader) LoadBytes(data []byte) error {
	if err := l.k.Load(rawbytes.Provider(data), YAMLParser()); err != nil {
		return wrapConfigError(err, "load yaml")
	}
	return nil
}

// LoadEnv 从环境变量加载配置
//
// 双下划线表示层级：LLMSDIGEST_SELECTION__MAX_CHARACTERS -> selection.max_characters
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "__", ".")
		return s
	}), nil)
}

// Unmarshal 解析配置到结构体
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Get 获取配置值
func (l *Loader) Get(key string) interface{} {
	return l.k.Get(key)
}

// GetString 获取字符串配置值
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt 获取整数配置值
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool 获取布尔配置值
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// Load 加载完整配置（默认值 + 文件 + 环境变量）并校验
func Load(configPath string) (*Config, error) {
	loader := NewLoader()

	// 加载配置文件
	if configPath != "" {
		if err := loader.LoadFile(configPath); err != nil {
			return nil, err
		}
	}

	// 加载环境变量（优先级更高）
	if err := loader.LoadEnv(EnvPrefix); err != nil {
		return nil, err
	}

	return loader.Config()
}

// Config 将当前已加载的数据解析为校验过的 Config
func (l *Loader) Config() (*Config, error) {
	cfg := &Config{}
	if err := l.Unmarshal(cfg); err != nil {
		return nil, wrapConfigError(err, "unmarshal")
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验全部配置段
func (c *Config) Validate() error {
	if err := c.Selection.Validate(); err != nil {
		return err
	}
	if err := c.Composition.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return wrapConfigError(err, "observability")
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	_, err := c.Registry()
	return err
}

// applyDefaults 应用默认配置值
//
// 未配置分类、标签或策略时，对应部分整体取自内置注册表。
func applyDefaults(cfg *Config) {
	defaults := strategy.DefaultRegistry()

	if len(cfg.Strategies) == 0 {
		cfg.Strategies = defaults.Strategies
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = make(map[string]CategoryConfig, len(defaults.Categories))
		for cat, def := range defaults.Categories {
			cfg.Categories[string(cat)] = CategoryConfig{
				Strategy:                def.Strategy,
				IdealRatio:              def.IdealRatio,
				RequiredCharacteristics: def.RequiredCharacteristics,
				MaxDocuments:            def.MaxDocuments,
			}
		}
	}
	if len(cfg.Tags) == 0 {
		cfg.Tags = make(map[string]TagConfig, len(defaults.Tags))
		for name, info := range defaults.Tags {
			cfg.Tags[name] = TagConfig{
				Incompatible: info.Incompatible,
				Synergies:    info.Synergies,
				Avoid:        info.Avoid,
			}
		}
	}
	if cfg.Conflicts.ExclusiveCategories == nil {
		for _, pair := range defaults.ExclusiveCategories {
			cfg.Conflicts.ExclusiveCategories = append(cfg.Conflicts.ExclusiveCategories,
				[]string{string(pair[0]), string(pair[1])})
		}
	}
	if cfg.Conflicts.ConflictingAudiences == nil {
		for _, pair := range defaults.ConflictingAudiences {
			cfg.Conflicts.ConflictingAudiences = append(cfg.Conflicts.ConflictingAudiences,
				[]string{pair[0], pair[1]})
		}
	}
	if cfg.Selection.CompositionStrategy == "" {
		cfg.Selection.CompositionStrategy = defaults.DefaultStrategy
	}

	cfg.Observability = cfg.Observability.WithDefaults()
}

// defaultValues 返回标量配置的默认值
func defaultValues() map[string]interface{} {
	return map[string]interface{}{
		"selection": map[string]interface{}{
			"strategy":               "balanced",
			"max_characters":         10000,
			"quality_threshold":      0.0,
			"dependency_depth":       2,
			"include_optional":       false,
			"conflict_resolution":    "higher-score-wins",
			"auto_resolve_conflicts": true,
			"diverse_category_cap":   2,
		},
		"composition": map[string]interface{}{
			"character_limits":          []interface{}{100, 300, 1000, 2000, 5000},
			"include_table_of_contents": true,
			"toc_character_limit":       500,
			"priority_threshold":        0,
			"body_reserve":              50,
		},
	}
}
