package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pipeline"
	"github.com/rushteam/carkit/pkg/logging"
)

// LabelFiltered 被过滤的车辆打上该 label，Source 为命中的过滤器
const LabelFiltered = "filtered"

// FilterNode 组合多个过滤器，任一过滤器命中即移除该车辆。
//
// 过滤器出错时整个节点返回错误，不保留未判定的车辆。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	filters, err := n.prepare(ctx, rctx)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(items))
	hits := make(map[string]int, len(filters))
	for _, item := range items {
		if item == nil {
			continue
		}
		by, err := match(ctx, rctx, filters, item)
		if err != nil {
			return nil, err
		}
		if by != "" {
			hits[by]++
			item.PutLabel(LabelFiltered, core.Label{Value: "true", Source: by})
			continue
		}
		out = append(out, item)
	}

	if len(hits) > 0 {
		logging.Ctx(ctx).Debug().Interface("hits", hits).Int("kept", len(out)).Msg("cars filtered")
	}
	return out, nil
}

// prepare 返回本次请求使用的过滤器
func (n *FilterNode) prepare(ctx context.Context, rctx *core.RecommendContext) ([]Filter, error) {
	filters := make([]Filter, len(n.Filters))
	for i, f := range n.Filters {
		p, ok := f.(Preparer)
		if !ok {
			filters[i] = f
			continue
		}
		prepared, err := p.Prepare(ctx, rctx)
		if err != nil {
			return nil, fmt.Errorf("%s: prepare: %w", f.Name(), err)
		}
		filters[i] = prepared
	}
	return filters, nil
}

// match 返回第一个命中的过滤器名，未命中返回空串
func match(ctx context.Context, rctx *core.RecommendContext, filters []Filter, item *core.Item) (string, error) {
	for _, f := range filters {
		hit, err := f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			return "", fmt.Errorf("%s: car %d: %w", f.Name(), item.ID, err)
		}
		if hit {
			return f.Name(), nil
		}
	}
	return "", nil
}
