package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// Config 是 Pipeline 的配置结构（支持 YAML/JSON）。
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"pipeline" json:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string                 `yaml:"type" json:"type"`     // recall.catalog / rank.hybrid_cf / rerank.topn 等
	Config map[string]interface{} `yaml:"config" json:"config"` // Node 特定配置
}

// Default 返回内置的默认 Pipeline 配置：
// recall.catalog → filter(rated) → rank.hybrid_cf → rerank.topn → rerank.reason
func Default() *Config {
	cfg, err := Parse(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("pipeline: embedded default config is invalid: %v", err))
	}
	return cfg
}

// Parse 解析 YAML 配置内容。
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// Load 按扩展名从文件加载配置（.json 走 JSON，其余走 YAML）。
func Load(path string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadFromJSON(path)
	}
	return LoadFromYAML(path)
}

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(data)
}

// LoadFromJSON 从 JSON 文件加载 Pipeline 配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return &cfg, nil
}

// BuildPipeline 根据配置构建 Pipeline（需要 NodeFactory 注册 Node 构建器）。
// 注意：factory 在独立的 config 包中，避免循环依赖。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))

	for _, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node %s: %w", nc.Type, err)
		}
		nodes = append(nodes, node)
	}

	return &Pipeline{Name: c.Pipeline.Name, Nodes: nodes}, nil
}

// NodeBuilder 根据 config 构建 Node。
type NodeBuilder func(map[string]interface{}) (Node, error)

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{
		builders: make(map[string]NodeBuilder),
	}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, config map[string]interface{}) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	return builder(config)
}
