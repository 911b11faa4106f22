package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pipeline"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/carkit/config/builders"
// 以触发内置 Node（recall.knn、recall.usercf、recall.popularity、filter 等）的 init 注册。

// Deps 是构建 Node 时注入的依赖。
type Deps struct {
	Catalog core.CatalogStore
	Ratings core.RatingStore

	// Workers 协同过滤相关系数并行计算的 worker 数
	Workers int
}

// NodeBuilder 根据依赖与 config 构建 Node。
// 各组件在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type NodeBuilder func(deps Deps, config map[string]any) (pipeline.Node, error)

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
// 建议在各组件的 init 中调用，例如：func init() { config.Register("recall.knn", BuildKNNNode) }
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回基于当前注册表构建的 NodeFactory，deps 注入到每个 builder。
func DefaultFactory(deps Deps) *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		b := builder
		f.Register(typeName, func(cfg map[string]any) (pipeline.Node, error) {
			return b(deps, cfg)
		})
	}
	return f
}

// ValidatePipelineConfig 校验所有 pipeline 的 node 类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	for _, pc := range cfg.Pipelines {
		for _, nc := range pc.Nodes {
			if _, ok := defaultBuilders[nc.Type]; !ok {
				types := make([]string, 0, len(defaultBuilders))
				for t := range defaultBuilders {
					types = append(types, t)
				}
				sort.Strings(types)
				return fmt.Errorf("pipeline %s: unsupported node type %q (supported: %v)", pc.Name, nc.Type, types)
			}
		}
	}
	return nil
}
