package recall

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pipeline"
	"github.com/rushteam/carkit/pkg/logging"
	"github.com/rushteam/carkit/pkg/metrics"
)

// 兜底原因
const (
	FallbackNoOtherUsers = "no_other_users" // 没有其他评过分的用户
	FallbackNoNeighbors  = "no_neighbors"   // 没有正相关的用户
	FallbackNoCandidates = "no_candidates"  // 邻居评过的车目标用户都评过了
)

// RecommendCollaborative 是基于用户的协同过滤（纯函数版本）。
//
// 算法流程：
//  1. 目标用户没有评分 -> ErrNoRatingsYet
//  2. 没有其他评过分的用户 -> 热门兜底
//  3. 与每个其他用户计算皮尔逊相关系数，只保留 > 0 的用户
//  4. 按相关系数降序取前 core.NeighborCap 个邻居
//  5. 邻居评过、目标用户没评过的车，投票 = 邻居评分 * 相关系数
//  6. 预测分 = 该车所有投票的算术平均（不按相关系数之和归一化）
//  7. 没有候选时同样走热门兜底
//  8. 按预测分降序取 topN，分数保留两位小数
//
// topN <= 0 时使用默认值。
func RecommendCollaborative(userID int64, allRatings map[int64]core.RatingProfile, topN int) ([]core.Recommendation, error) {
	if topN <= 0 {
		topN = (&core.DefaultRecommendConfig{}).DefaultTopN()
	}
	recs, _, err := recommendCollaborative(context.Background(), userID, allRatings, topN, 1, func(exclude core.RatingProfile) ([]core.Recommendation, error) {
		return PopularityFallback(AverageRatings(allRatings), exclude, topN), nil
	})
	return recs, err
}

// fallbackFunc 按平均评分返回未评分的车辆
type fallbackFunc func(exclude core.RatingProfile) ([]core.Recommendation, error)

// recommendCollaborative 按预测分降序返回候选，topN <= 0 时不截断。
func recommendCollaborative(
	ctx context.Context,
	userID int64,
	allRatings map[int64]core.RatingProfile,
	topN, workers int,
	fallback fallbackFunc,
) ([]core.Recommendation, string, error) {
	target := allRatings[userID]
	if len(target) == 0 {
		return nil, "", core.ErrNoRatingsYet
	}

	others := otherUsers(userID, allRatings)
	if len(others) == 0 {
		recs, err := fallback(target)
		return recs, FallbackNoOtherUsers, err
	}

	neighbors, err := selectNeighbors(ctx, target, others, allRatings, workers)
	if err != nil {
		return nil, "", err
	}
	if len(neighbors) == 0 {
		recs, err := fallback(target)
		return recs, FallbackNoNeighbors, err
	}

	scores := predictScores(target, neighbors, allRatings)
	if len(scores) == 0 {
		recs, err := fallback(target)
		return recs, FallbackNoCandidates, err
	}

	recs := make([]core.Recommendation, 0, len(scores))
	for carID, score := range scores {
		recs = append(recs, core.Recommendation{CarID: carID, Score: score})
	}
	sortRecommendations(recs)
	if topN > 0 && len(recs) > topN {
		recs = recs[:topN]
	}
	for i := range recs {
		recs[i].Score = round2(recs[i].Score)
	}
	return recs, "", nil
}

// otherUsers 返回除目标用户外有评分的用户，按 ID 升序
func otherUsers(userID int64, allRatings map[int64]core.RatingProfile) []int64 {
	out := make([]int64, 0, len(allRatings))
	for uid, profile := range allRatings {
		if uid == userID || len(profile) == 0 {
			continue
		}
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type neighbor struct {
	userID      int64
	correlation float64
}

// selectNeighbors 并行计算相关系数，保留正相关用户，按相关系数降序（相同按用户 ID 升序）取前 NeighborCap 个。
// 每个比较相互独立，写入各自的下标，合并后的排序与并发度无关。
func selectNeighbors(
	ctx context.Context,
	target core.RatingProfile,
	others []int64,
	allRatings map[int64]core.RatingProfile,
	workers int,
) ([]neighbor, error) {
	correlations := make([]float64, len(others))

	eg, egCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, uid := range others {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			correlations[i] = PearsonCorrelation(target, allRatings[uid])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]neighbor, 0, len(others))
	for i, uid := range others {
		if correlations[i] > 0 {
			out = append(out, neighbor{userID: uid, correlation: correlations[i]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].correlation > out[j].correlation
	})
	if len(out) > core.NeighborCap {
		out = out[:core.NeighborCap]
	}
	return out, nil
}

// predictScores 对每辆候选车取投票的算术平均
func predictScores(target core.RatingProfile, neighbors []neighbor, allRatings map[int64]core.RatingProfile) map[int64]float64 {
	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, nb := range neighbors {
		for carID, rating := range allRatings[nb.userID] {
			if target.Has(carID) {
				continue
			}
			sums[carID] += rating * nb.correlation
			counts[carID]++
		}
	}
	scores := make(map[int64]float64, len(sums))
	for carID, sum := range sums {
		scores[carID] = sum / float64(counts[carID])
	}
	return scores
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// UserBasedCF 是基于用户的协同过滤召回源（User-based Collaborative Filtering, User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的车"
//
// 与 RecommendCollaborative 的算法一致，数据从 RatingStore 读取：
//   - 目标用户画像优先使用 rctx.Ratings（Service 预加载），否则读取存储
//   - 兜底使用存储提供的平均评分
//
// 兜底结果带有 fallback label，便于解释与观测。
// UserBasedCF 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type UserBasedCF struct {
	Ratings core.RatingStore

	// Candidates 召回的候选数上限，<= 0 表示不限。
	// 请求约束与目录补全都在召回之后，截断交给 rerank.topn，否则约束只能作用在无约束的前 N 个上。
	Candidates int

	// Workers 相关系数并行计算的 worker 数，<= 0 表示不限
	Workers int
}

func (r *UserBasedCF) Name() string        { return "recall.usercf" }
func (r *UserBasedCF) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *UserBasedCF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *UserBasedCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Ratings == nil || rctx == nil || rctx.UserID == 0 {
		return nil, core.ErrNoRatingsYet
	}

	allRatings, err := r.Ratings.GetAllRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("usercf: all ratings: %w", err)
	}
	target := rctx.Ratings
	if target == nil {
		target = allRatings[rctx.UserID]
	}
	if len(target) > 0 {
		// 以预加载的画像为准
		allRatings[rctx.UserID] = target
	}

	topN := r.Candidates
	recs, reason, err := recommendCollaborative(ctx, rctx.UserID, allRatings, topN, r.Workers,
		func(exclude core.RatingProfile) ([]core.Recommendation, error) {
			averages, err := r.Ratings.GetAverageRatings(ctx)
			if err != nil {
				return nil, fmt.Errorf("usercf: average ratings: %w", err)
			}
			return PopularityFallback(averages, exclude, topN), nil
		})
	if err != nil {
		return nil, err
	}

	if reason == "" {
		return recommendationItems(recs, SourceUserCF), nil
	}

	metrics.RecordFallback(reason)
	logging.Ctx(ctx).Info().
		Int64("user_id", rctx.UserID).
		Str("reason", reason).
		Msg("collaborative filtering fell back to popularity")
	rctx.PutLabel(LabelFallback, core.Label{Value: reason, Source: "recall"})
	items := recommendationItems(recs, SourcePopularity)
	for _, it := range items {
		it.PutLabel(LabelFallback, core.Label{Value: reason, Source: "recall"})
	}
	return items, nil
}
