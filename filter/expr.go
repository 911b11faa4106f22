package filter

import (
	"context"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pkg/dsl"
)

// ExprFilter 用 CEL 表达式筛选车辆，不满足表达式的车辆被过滤。
//
// 表达式来源：
//   - Expr：配置中的固定表达式
//   - rctx.Query：请求级的结构化约束（Match）与表达式（Expr）
//
// 需要放在 feature.enrich 之后，Item.Car 为空时不做判断。
type ExprFilter struct {
	Expr string

	prg *dsl.Program
	// req 是 Prepare 编译的请求表达式
	req *dsl.Program
}

// NewExprFilter 编译表达式；表达式为空时只应用请求级约束。
func NewExprFilter(expr string) (*ExprFilter, error) {
	f := &ExprFilter{Expr: expr}
	if expr != "" {
		prg, err := dsl.Compile(expr)
		if err != nil {
			return nil, err
		}
		f.prg = prg
	}
	return f, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Prepare 每个请求编译一次 rctx.Query.Expr，返回只用于该请求的副本。
func (f *ExprFilter) Prepare(_ context.Context, rctx *core.RecommendContext) (Filter, error) {
	if rctx == nil || rctx.Query == nil || rctx.Query.Expr == "" {
		return f, nil
	}
	prg, err := dsl.Compile(rctx.Query.Expr)
	if err != nil {
		return nil, err
	}
	cp := *f
	cp.req = prg
	return &cp, nil
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Car == nil {
		return false, nil
	}
	if f.prg != nil && !f.prg.MatchItem(item, rctx) {
		return true, nil
	}
	if rctx == nil || rctx.Query == nil {
		return false, nil
	}
	if !rctx.Query.Match(item.Car) {
		return true, nil
	}
	if rctx.Query.Expr == "" {
		return false, nil
	}
	prg := f.req
	if prg == nil || prg.String() != rctx.Query.Expr {
		var err error
		if prg, err = dsl.Compile(rctx.Query.Expr); err != nil {
			return false, err
		}
	}
	return !prg.MatchItem(item, rctx), nil
}
