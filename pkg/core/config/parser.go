package config

import (
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// yamlParser 基于 yaml.v3 的 koanf 解析器
type yamlParser struct{}

// YAMLParser 返回 YAML 格式的 koanf 解析器
func YAMLParser() koanf.Parser {
	return yamlParser{}
}

// Unmarshal 将 YAML 数据解析为嵌套 map
func (yamlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal 将嵌套 map 序列化为 YAML
func (yamlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return yaml.Marshal(m)
}

// tomlParser 基于 go-toml 的 koanf 解析器
type tomlParser struct{}

// TOMLParser 返回 TOML 格式的 koanf 解析器
func TOMLParser() koanf.Parser {
	return tomlParser{}
}

// Unmarshal 将 TOML 数据解析为嵌套 map
func (tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal 将嵌套 map 序列化为 TOML
func (tomlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return toml.Marshal(m)
}

// 编译时接口检查
var (
	_ koanf.Parser = yamlParser{}
	_ koanf.Parser = tomlParser{}
)
