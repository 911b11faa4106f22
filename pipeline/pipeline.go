package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pkg/logging"
	"github.com/rushteam/carkit/pkg/metrics"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：召回 -> 过滤 -> 注入 -> 重排。
type Pipeline struct {
	Name  string
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		elapsed := time.Since(start)
		metrics.RecordNode(p.Name, node.Name(), elapsed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		logging.Ctx(ctx).Debug().
			Str("pipeline", p.Name).
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("elapsed", elapsed).
			Msg("node processed")
		cur = next
	}
	return cur, nil
}
