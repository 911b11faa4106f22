package pipeline

import (
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config 是 Pipeline 配置文件的结构（支持 YAML/JSON），一个文件可以定义多条 Pipeline。
//
//	pipelines:
//	  - name: similar
//	    nodes:
//	      - type: recall.knn
//	      - type: rerank.topn
//	        config: {n: 5}
type Config struct {
	Pipelines []PipelineConfig `yaml:"pipelines" json:"pipelines"`
}

// PipelineConfig 是单条 Pipeline 的配置。
type PipelineConfig struct {
	Name  string       `yaml:"name" json:"name"`
	Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type"`     // recall.knn / filter / rerank.topn 等
	Config map[string]any `yaml:"config" json:"config"` // Node 特定配置
}

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML 解析 YAML 内容
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载 Pipeline 配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseJSON(data)
}

// ParseJSON 解析 JSON 内容
func ParseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// Build 根据配置构建单条 Pipeline。
// 注意：factory 在独立的 config 包中填充，避免循环依赖。
func (c PipelineConfig) Build(factory *NodeFactory) (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Nodes))
	for _, nc := range c.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: build node %s: %w", c.Name, nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Name: c.Name, Nodes: nodes}, nil
}

// BuildAll 构建文件中的全部 Pipeline，按名字索引；名字重复或为空时报错。
func (c *Config) BuildAll(factory *NodeFactory) (map[string]*Pipeline, error) {
	out := make(map[string]*Pipeline, len(c.Pipelines))
	for _, pc := range c.Pipelines {
		if pc.Name == "" {
			return nil, fmt.Errorf("pipeline name is required")
		}
		if _, dup := out[pc.Name]; dup {
			return nil, fmt.Errorf("duplicate pipeline: %s", pc.Name)
		}
		p, err := pc.Build(factory)
		if err != nil {
			return nil, err
		}
		out[pc.Name] = p
	}
	return out, nil
}

// NodeBuilder 根据配置构建 Node
type NodeBuilder func(config map[string]any) (Node, error)

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
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	if config == nil {
		config = map[string]any{}
	}
	return builder(config)
}

// Types 返回已注册的 Node 类型（已排序）
func (f *NodeFactory) Types() []string {
	out := make([]string, 0, len(f.builders))
	for k := range f.builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
