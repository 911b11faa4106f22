package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rushteam/carkit/pipeline"
)

// 服务依赖的 Pipeline 名称
const (
	PipelineSimilar       = "similar"
	PipelineCollaborative = "collaborative"
	PipelinePopular       = "popular"
)

// RequiredPipelines 是 service 必须的 Pipeline
var RequiredPipelines = []string{PipelineSimilar, PipelineCollaborative, PipelinePopular}

// LoadPipelines 从 YAML/JSON 文件（按扩展名）加载、校验并构建全部 Pipeline。
func LoadPipelines(path string, deps Deps) (map[string]*pipeline.Pipeline, error) {
	var (
		cfg *pipeline.Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		cfg, err = pipeline.LoadFromJSON(path)
	default:
		cfg, err = pipeline.LoadFromYAML(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load pipelines %s: %w", path, err)
	}
	return BuildPipelines(cfg, deps)
}

// BuildPipelines 校验并构建配置中的全部 Pipeline，缺少 RequiredPipelines 时报错。
func BuildPipelines(cfg *pipeline.Config, deps Deps) (map[string]*pipeline.Pipeline, error) {
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	pipelines, err := cfg.BuildAll(DefaultFactory(deps))
	if err != nil {
		return nil, err
	}
	for _, name := range RequiredPipelines {
		if _, ok := pipelines[name]; !ok {
			return nil, fmt.Errorf("pipeline %q is required", name)
		}
	}
	for _, p := range pipelines {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return pipelines, nil
}
