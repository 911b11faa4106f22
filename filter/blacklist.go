package filter

import (
	"context"
	"slices"

	"github.com/rushteam/carkit/core"
)

// BlacklistFilter 移除黑名单车辆：配置中的固定 ID（如已下架车型），
// 以及请求约束 Query.ExcludeIDs（如相似推荐的参考车辆本身）。
type BlacklistFilter struct {
	ids map[int64]struct{}
}

func NewBlacklistFilter(carIDs []int64) *BlacklistFilter {
	ids := make(map[int64]struct{}, len(carIDs))
	for _, id := range carIDs {
		ids[id] = struct{}{}
	}
	return &BlacklistFilter{ids: ids}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if _, ok := f.ids[item.ID]; ok {
		return true, nil
	}
	if rctx != nil && rctx.Query != nil {
		return slices.Contains(rctx.Query.ExcludeIDs, item.ID), nil
	}
	return false, nil
}
