package recall

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/feature"
	"github.com/rushteam/carkit/pipeline"
	"github.com/rushteam/carkit/pkg/dsl"
)

// NearestNeighbors 返回与 query 欧氏距离最近的 k 个候选。
//
// rows 与 ids 一一对应，且已经过同一个 scaler 标准化。
// 结果按距离升序，距离相同时保持候选原有顺序（稳定排序）。
// k 大于候选数时返回全部候选；候选为空时返回 ErrEmptyDataset。
func NearestNeighbors(rows [][]float64, ids []int64, query []float64, k int) ([]core.Neighbor, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyDataset
	}
	if len(rows) != len(ids) {
		return nil, core.NewInvalidInput(core.ModuleRecall,
			fmt.Sprintf("knn: %d rows but %d ids", len(rows), len(ids)))
	}
	if k <= 0 {
		return nil, core.NewInvalidInput(core.ModuleRecall, fmt.Sprintf("knn: k must be positive, got %d", k))
	}

	out := make([]core.Neighbor, len(rows))
	for i, row := range rows {
		if len(row) != len(query) {
			return nil, core.NewInvalidInput(core.ModuleRecall,
				fmt.Sprintf("knn: row %d has %d columns, query has %d", i, len(row), len(query)))
		}
		out[i] = core.Neighbor{CarID: ids[i], Distance: euclideanDistance(row, query)}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// KNNRecall 是基于内容的最近邻召回源：
//
//  1. 从偏好向量确定启用的特征（没有则 ErrInsufficientFeatures）
//  2. 从目录读取满足约束（rctx.Query）的候选，剔除特征不完整的车辆
//  3. 在候选集上拟合 StandardScaler，标准化候选与偏好向量
//  4. 按欧氏距离取最近的 K 个
//
// scaler 每次请求都重新拟合，不缓存。
// KNNRecall 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type KNNRecall struct {
	Catalog core.CatalogStore

	// K 默认返回数，rctx.Limit > 0 时优先使用 rctx.Limit
	K int
}

func (r *KNNRecall) Name() string        { return "recall.knn" }
func (r *KNNRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *KNNRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *KNNRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Catalog == nil || rctx == nil {
		return nil, core.ErrEmptyDataset
	}

	features, err := feature.ActiveFeatures(rctx.Preference, rctx.Features)
	if err != nil {
		return nil, err
	}

	cars, err := r.candidates(ctx, rctx.Query)
	if err != nil {
		return nil, err
	}

	matrix := feature.BuildMatrix(cars, features)
	if matrix.Len() == 0 {
		return nil, core.ErrEmptyDataset
	}

	scaled, scaler, err := feature.FitTransform(matrix.Rows)
	if err != nil {
		return nil, err
	}
	queryRow, err := feature.PreferenceRow(rctx.Preference, features)
	if err != nil {
		return nil, err
	}
	scaledQuery, err := scaler.Transform(queryRow)
	if err != nil {
		return nil, err
	}

	k := r.K
	if k <= 0 {
		k = (&core.DefaultRecommendConfig{}).DefaultK()
	}
	k = limitOr(rctx, k)

	neighbors, err := NearestNeighbors(scaled, matrix.IDs, scaledQuery, k)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*core.Car, len(cars))
	for _, c := range cars {
		byID[c.ID] = c
	}
	out := make([]*core.Item, 0, len(neighbors))
	for _, nb := range neighbors {
		it := core.NewItem(nb.CarID)
		it.Score = 1.0 / (1.0 + nb.Distance)
		it.Car = byID[nb.CarID]
		it.PutMeta("distance", nb.Distance)
		it.PutLabel(LabelRecallSource, core.Label{Value: SourceKNN, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// candidates 读取约束后的候选集；分页参数不作用于候选集，CEL 表达式在存储之上求值。
func (r *KNNRecall) candidates(ctx context.Context, q *core.CatalogQuery) ([]*core.Car, error) {
	var query *core.CatalogQuery
	if q != nil {
		cp := *q
		cp.Limit, cp.Offset, cp.Expr = 0, 0, ""
		query = &cp
	}
	cars, err := r.Catalog.ListCars(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knn: list candidates: %w", err)
	}
	if q == nil || q.Expr == "" {
		return cars, nil
	}

	prg, err := dsl.Compile(q.Expr)
	if err != nil {
		return nil, err
	}
	out := cars[:0:0]
	for _, c := range cars {
		if prg.MatchCar(c) {
			out = append(out, c)
		}
	}
	return out, nil
}
