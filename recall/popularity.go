package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pipeline"
)

// AverageRatings 计算每辆车在所有用户中的平均评分。
func AverageRatings(allRatings map[int64]core.RatingProfile) map[int64]float64 {
	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, profile := range allRatings {
		for carID, rating := range profile {
			sums[carID] += rating
			counts[carID]++
		}
	}
	out := make(map[int64]float64, len(sums))
	for carID, sum := range sums {
		out[carID] = sum / float64(counts[carID])
	}
	return out
}

// PopularityFallback 按平均评分降序返回 exclude 中未出现的车辆，取前 topN。
// 平均分相同按车辆 ID 升序；分数不做舍入。
func PopularityFallback(averages map[int64]float64, exclude core.RatingProfile, topN int) []core.Recommendation {
	out := make([]core.Recommendation, 0, len(averages))
	for carID, avg := range averages {
		if exclude.Has(carID) {
			continue
		}
		out = append(out, core.Recommendation{CarID: carID, Score: avg})
	}
	sortRecommendations(out)
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func sortRecommendations(recs []core.Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].CarID < recs[j].CarID
	})
}

// Popularity 是热门召回源：按所有用户的平均评分排序。
// 它同时是协同过滤的兜底来源；已评分车辆由下游 filter 剔除。
// Popularity 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popularity struct {
	Ratings core.RatingStore

	// Candidates 召回的候选数上限，<= 0 表示不限（由 rerank.topn 截断）
	Candidates int
}

func (r *Popularity) Name() string        { return "recall.popularity" }
func (r *Popularity) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popularity) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Popularity) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Ratings == nil {
		return nil, nil
	}
	averages, err := r.Ratings.GetAverageRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("popularity: average ratings: %w", err)
	}
	return recommendationItems(PopularityFallback(averages, nil, r.Candidates), SourcePopularity), nil
}

func recommendationItems(recs []core.Recommendation, source string) []*core.Item {
	out := make([]*core.Item, 0, len(recs))
	for _, rec := range recs {
		it := core.NewItem(rec.CarID)
		it.Score = rec.Score
		it.PutLabel(LabelRecallSource, core.Label{Value: source, Source: "recall"})
		out = append(out, it)
	}
	return out
}
