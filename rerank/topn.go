package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在召回/过滤后截取前 N 个车辆。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.UserBasedCF{...},      // 召回并按预测分排序
//	        &filter.FilterNode{...},       // 过滤已评分
//	        &rerank.TopNNode{N: 5},        // 截取 Top 5
//	    },
//	}
type TopNNode struct {
	// N 要保留的数量。rctx.Limit > 0 时优先使用 rctx.Limit；两者都 <= 0 时不截断
	N int

	// SortByScore 截断前按 Score 降序稳定排序；召回源已排好序时不需要
	SortByScore bool
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.SortByScore {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Score > items[j].Score
		})
	}

	limit := n.N
	if rctx != nil && rctx.Limit > 0 {
		limit = rctx.Limit
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
