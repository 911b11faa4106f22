package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/carkit/core"
)

// RatedFilter 过滤掉用户已经评过分的车辆。
//
// 评分画像优先使用 rctx.Ratings；为空且配置了 Ratings 时从存储读取一次并写回 rctx。
// 匿名请求（UserID 为 0）不过滤。
type RatedFilter struct {
	Ratings core.RatingStore
}

func NewRatedFilter(ratings core.RatingStore) *RatedFilter {
	return &RatedFilter{Ratings: ratings}
}

func (f *RatedFilter) Name() string {
	return "filter.rated"
}

func (f *RatedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == 0 {
		return false, nil
	}

	if rctx.Ratings == nil {
		if f.Ratings == nil {
			return false, nil
		}
		profile, err := f.Ratings.GetUserRatings(ctx, rctx.UserID)
		if err != nil {
			return false, fmt.Errorf("rated filter: %w", err)
		}
		rctx.Ratings = profile
	}
	return rctx.Ratings.Has(item.ID), nil
}
