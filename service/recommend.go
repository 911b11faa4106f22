// Package service 组合存储与 Pipeline，对外提供车型检索、相似推荐、协同过滤推荐与评分问卷。
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/carkit/config"
	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/feature"
	"github.com/rushteam/carkit/pipeline"
	"github.com/rushteam/carkit/pkg/logging"
	"github.com/rushteam/carkit/pkg/metrics"
	"github.com/rushteam/carkit/recall"
)

// 推荐类型，用于指标与响应
const (
	KindSimilar       = "similar"
	KindPreference    = "preference"
	KindCollaborative = "collaborative"
	KindPopular       = "popular"
)

// Recommender 是推荐服务的入口。
type Recommender struct {
	catalog   core.CatalogStore
	ratings   core.RatingStore
	pipelines map[string]*pipeline.Pipeline
	quiz      *recall.QuizSampler
	cfg       core.RecommendConfig
}

// Option 配置 Recommender
type Option func(*Recommender)

// WithConfig 设置推荐默认参数
func WithConfig(cfg core.RecommendConfig) Option {
	return func(r *Recommender) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithQuizSampler 替换问卷抽样器（测试中用固定种子）
func WithQuizSampler(q *recall.QuizSampler) Option {
	return func(r *Recommender) {
		if q != nil {
			r.quiz = q
		}
	}
}

// NewRecommender 创建推荐服务，pipelines 必须包含 config.RequiredPipelines。
func NewRecommender(
	catalog core.CatalogStore,
	ratings core.RatingStore,
	pipelines map[string]*pipeline.Pipeline,
	opts ...Option,
) (*Recommender, error) {
	if catalog == nil || ratings == nil {
		return nil, fmt.Errorf("service: catalog and rating stores are required")
	}
	for _, name := range config.RequiredPipelines {
		if _, ok := pipelines[name]; !ok {
			return nil, fmt.Errorf("service: pipeline %q is required", name)
		}
	}
	r := &Recommender{
		catalog:   catalog,
		ratings:   ratings,
		pipelines: pipelines,
		cfg:       &core.DefaultRecommendConfig{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.quiz == nil {
		r.quiz = recall.NewQuizSampler(catalog, nil)
	}
	return r, nil
}

// Constraints 是候选集约束（公司限制），在拟合 scaler 之前作用于候选集。
type Constraints struct {
	CompanyNames []string `json:"company_names,omitempty"`
	CarNames     []string `json:"car_names,omitempty"`
	Engines      []string `json:"engines,omitempty"`
	FuelType     string   `json:"fuel_type,omitempty"`
	Seats        *int     `json:"seats,omitempty"`

	Price      core.Range `json:"price"`
	Horsepower core.Range `json:"horsepower"`
	TotalSpeed core.Range `json:"total_speed"`
	SeatsRange core.Range `json:"seats_range"`

	// Expr 可选的 CEL 表达式，例如 `car.price != null && car.price < 50000.0`
	Expr string `json:"expr,omitempty"`
}

// Query 转换为目录查询
func (c Constraints) Query() *core.CatalogQuery {
	q := &core.CatalogQuery{
		CompanyNames: c.CompanyNames,
		CarNames:     c.CarNames,
		Engines:      c.Engines,
		FuelType:     c.FuelType,
		Seats:        c.Seats,
		Expr:         c.Expr,
	}
	q.WithRange(core.FeaturePrice, c.Price.Min, c.Price.Max)
	q.WithRange(core.FeatureHorsepower, c.Horsepower.Min, c.Horsepower.Max)
	q.WithRange(core.FeatureTotalSpeed, c.TotalSpeed.Min, c.TotalSpeed.Max)
	q.WithRange(core.FeatureSeats, c.SeatsRange.Min, c.SeatsRange.Max)
	return q
}

// SimilarRequest 以参考车型为目标的相似推荐请求
type SimilarRequest struct {
	CompanyName string
	CarName     string
	// Features 参与距离计算的特征，为空表示参考车型的全部非空特征
	Features    []core.Feature
	Constraints Constraints
	Limit       int
}

// PreferenceRequest 以区间偏好为目标的推荐请求，区间中点作为目标值。
type PreferenceRequest struct {
	Ranges      map[core.Feature]core.Range
	Features    []core.Feature
	Constraints Constraints
	Limit       int
}

// ScoredCar 是一条推荐结果
type ScoredCar struct {
	Car   *core.Car `json:"car"`
	Score float64   `json:"score"`
	// Distance 标准化空间中的欧氏距离，只有 knn 结果有
	Distance *float64 `json:"distance,omitempty"`
	Source   string   `json:"source"`
}

// Result 是一次推荐的结果
type Result struct {
	Kind string      `json:"kind"`
	Cars []ScoredCar `json:"cars"`
	// Reference 相似推荐的参考车型
	Reference *core.Car `json:"reference,omitempty"`
	// Features 实际参与距离计算的特征
	Features []core.Feature `json:"features,omitempty"`
	// Fallback 协同过滤退化为热门兜底的原因
	Fallback string `json:"fallback,omitempty"`
}

// SimilarToCar 找出与参考车型最相似的车辆，参考车型本身不在候选集中。
func (r *Recommender) SimilarToCar(ctx context.Context, req SimilarRequest) (res *Result, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, KindSimilar, start, err) }()

	if req.CompanyName == "" || req.CarName == "" {
		return nil, core.NewInvalidInput(core.ModuleService, "similar: company_name and car_name are required")
	}
	base, err := r.catalog.FindCar(ctx, req.CompanyName, req.CarName)
	if err != nil {
		return nil, err
	}

	q := req.Constraints.Query()
	q.Exclude(base.ID)
	rctx := &core.RecommendContext{
		Preference: feature.PreferenceFromCar(base),
		Query:      q,
		Limit:      r.limit(req.Limit, r.cfg.DefaultK()),
		Params:     map[string]any{"reference_car_id": base.ID},
	}
	if len(req.Features) > 0 {
		rctx.Features = core.NewFeatureSet(req.Features...)
	}

	res, err = r.run(ctx, config.PipelineSimilar, KindSimilar, rctx)
	if err != nil {
		return nil, err
	}
	res.Reference = base
	return res, nil
}

// MatchPreference 找出最接近区间偏好的车辆。
func (r *Recommender) MatchPreference(ctx context.Context, req PreferenceRequest) (res *Result, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, KindPreference, start, err) }()

	rctx := &core.RecommendContext{
		Preference: feature.PreferenceFromRanges(req.Ranges),
		Query:      req.Constraints.Query(),
		Limit:      r.limit(req.Limit, r.cfg.DefaultK()),
	}
	if len(req.Features) > 0 {
		rctx.Features = core.NewFeatureSet(req.Features...)
	}
	return r.run(ctx, config.PipelineSimilar, KindPreference, rctx)
}

// Collaborative 基于用户评分的协同过滤推荐；用户还没有评分时返回 ErrNoRatingsYet。
func (r *Recommender) Collaborative(ctx context.Context, userID int64, topN int, constraints *Constraints) (res *Result, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, KindCollaborative, start, err) }()

	if userID <= 0 {
		return nil, core.NewInvalidInput(core.ModuleService, "collaborative: user id is required")
	}
	profile, err := r.ratings.GetUserRatings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("collaborative: user ratings: %w", err)
	}
	if len(profile) == 0 {
		return nil, core.ErrNoRatingsYet
	}

	rctx := &core.RecommendContext{
		UserID:  userID,
		Ratings: profile,
		Limit:   r.limit(topN, r.cfg.DefaultTopN()),
	}
	if constraints != nil {
		rctx.Query = constraints.Query()
	}
	return r.run(ctx, config.PipelineCollaborative, KindCollaborative, rctx)
}

// Popular 按平均评分推荐；userID > 0 时剔除该用户评过的车。
func (r *Recommender) Popular(ctx context.Context, userID int64, topN int) (res *Result, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, KindPopular, start, err) }()

	rctx := &core.RecommendContext{
		UserID: userID,
		Limit:  r.limit(topN, r.cfg.DefaultTopN()),
	}
	return r.run(ctx, config.PipelinePopular, KindPopular, rctx)
}

// QuizCars 抽取评分问卷的车辆，覆盖低/中/高价格档位。
func (r *Recommender) QuizCars(ctx context.Context, n int) ([]*core.Car, error) {
	return r.quiz.Sample(ctx, r.limit(n, r.cfg.DefaultQuizSize()))
}

func (r *Recommender) run(ctx context.Context, name, kind string, rctx *core.RecommendContext) (*Result, error) {
	p := r.pipelines[name]
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Kind:     kind,
		Cars:     make([]ScoredCar, 0, len(items)),
		Features: rctx.ActiveFeatures(),
	}
	if kind == KindCollaborative || kind == KindPopular {
		res.Features = nil
	}
	if lbl, ok := rctx.GetLabel(recall.LabelFallback); ok {
		res.Fallback = lbl.Value
	}

	for _, it := range items {
		sc := ScoredCar{Car: it.Car, Score: it.Score}
		if d, ok := it.Distance(); ok {
			sc.Distance = &d
		}
		if lbl, ok := it.Labels[recall.LabelRecallSource]; ok {
			sc.Source = lbl.Value
		}
		if sc.Car == nil {
			// 未经 enrich 的结果直接读目录，已下架的车辆跳过
			car, err := r.catalog.GetCar(ctx, it.ID)
			if err != nil {
				if core.IsStoreNotFound(err) {
					continue
				}
				return nil, err
			}
			sc.Car = car
		}
		res.Cars = append(res.Cars, sc)
	}
	return res, nil
}

func (r *Recommender) observe(ctx context.Context, kind string, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.RecordRecommend(kind, elapsed, err)

	l := logging.Ctx(ctx)
	if err == nil {
		l.Debug().Str("kind", kind).Dur("elapsed", elapsed).Msg("recommendation served")
		return
	}
	// 领域错误是调用方可以纠正的输入问题
	if core.IsDomainError(err) {
		l.Info().Str("kind", kind).Err(err).Msg("recommendation rejected")
		return
	}
	l.Error().Str("kind", kind).Err(err).Msg("recommendation failed")
}

func (r *Recommender) limit(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}
