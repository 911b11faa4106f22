package feature

import (
	"context"
	"fmt"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pipeline"
	"github.com/rushteam/carkit/pkg/logging"
)

// EnrichNode 是车辆信息注入节点：按 Item.ID 批量读取目录，把车辆写入 Item.Car。
//
// 推荐结果里的车辆 ID 可能已经不在目录中（被下架/删除），
// 这类 Item 会被直接丢弃，不视为错误。
// 已经携带 Car 的 Item（例如 knn 召回）不会重复读取。
type EnrichNode struct {
	Catalog core.CatalogStore
}

func (n *EnrichNode) Name() string {
	return "feature.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *EnrichNode) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || n.Catalog == nil {
		return items, nil
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if it != nil && it.Car == nil {
			ids = append(ids, it.ID)
		}
	}

	var cars map[int64]*core.Car
	if len(ids) > 0 {
		var err error
		cars, err = n.Catalog.BatchGetCars(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("enrich: batch get cars: %w", err)
		}
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Car == nil {
			car, ok := cars[it.ID]
			if !ok {
				logging.Ctx(ctx).Debug().Int64("car_id", it.ID).Msg("drop recommendation for missing car")
				continue
			}
			it.Car = car
		}
		out = append(out, it)
	}
	return out, nil
}
