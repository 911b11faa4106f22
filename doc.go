// Package carkit 是一个车型推荐工具包。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → ReRank → PostProcess），由 configs/pipelines.yaml 描述
// - 特征按名字对齐: 偏好向量与候选车辆逐特征匹配，缺失特征的车辆不参与比较
// - Labels-first: 召回来源、兜底原因等通过 labels 透传到响应
package carkit

import (
	"github.com/rushteam/carkit/pipeline"
	"github.com/rushteam/carkit/service"
)

// 轻量 facade：便于直接 import "carkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

type Recommender = service.Recommender

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
