// Package filter 提供 Pipeline 的过滤节点：已评分、黑名单与 CEL 表达式过滤。
package filter

import (
	"context"

	"github.com/rushteam/carkit/core"
)

// Filter 判断一辆候选车是否应该被移除，返回 true 表示移除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Preparer 由需要按请求初始化的过滤器实现，FilterNode 在处理 items 前调用一次，
// 返回的 Filter 只在本次请求中使用。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error)
}

// FilterFunc 把函数包装为 Filter，用于一次性的过滤规则
type FilterFunc struct {
	Label string
	Fn    func(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

func (f FilterFunc) Name() string { return f.Label }

func (f FilterFunc) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return f.Fn(ctx, rctx, item)
}
