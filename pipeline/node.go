package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/carkit/core"
)

// Kind 标记 Node 所处阶段，用于日志打点与 Pipeline 结构校验。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回：knn / usercf / popularity，生成并打分候选
	KindFilter      Kind = "filter"      // 过滤：已评分、黑名单、CEL 表达式
	KindReRank      Kind = "rerank"      // 重排：截断 TopN
	KindPostProcess Kind = "postprocess" // 后处理：补全车辆信息
)

// Node 是 Pipeline 的最小可扩展单元，统一为“输入 items -> 输出 items”。
//
// 召回节点忽略输入、根据 rctx 生成候选；其余节点只对输入做过滤、补全或重排，不新增候选。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// Validate 检查 Pipeline 结构：至少一个节点，且有且仅有第一个节点是召回。
func (p *Pipeline) Validate() error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("pipeline %q: no nodes", p.Name)
	}
	for i, n := range p.Nodes {
		switch {
		case i == 0 && n.Kind() != KindRecall:
			return fmt.Errorf("pipeline %q: first node %s must be a recall node, got %s", p.Name, n.Name(), n.Kind())
		case i > 0 && n.Kind() == KindRecall:
			return fmt.Errorf("pipeline %q: recall node %s must come first", p.Name, n.Name())
		}
	}
	return nil
}
