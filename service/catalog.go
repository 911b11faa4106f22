package service

import (
	"context"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pkg/dsl"
)

// MaxSearchResults 单次检索返回的最大车辆数
const MaxSearchResults = 1000

// SearchCars 按条件检索目录，按公司名排序；Expr 在存储结果之上求值。
func (r *Recommender) SearchCars(ctx context.Context, q *core.CatalogQuery) ([]*core.Car, error) {
	if q == nil {
		q = &core.CatalogQuery{}
	}
	cp := *q
	q = &cp
	if q.Limit <= 0 || q.Limit > MaxSearchResults {
		q.Limit = MaxSearchResults
	}
	if q.Offset < 0 {
		return nil, core.NewInvalidInput(core.ModuleService, "search: offset must be >= 0")
	}
	if q.Expr == "" {
		return r.catalog.ListCars(ctx, q)
	}

	prg, err := dsl.Compile(q.Expr)
	if err != nil {
		return nil, err
	}
	// 表达式过滤后再分页
	all := *q
	all.Limit, all.Offset, all.Expr = 0, 0, ""
	cars, err := r.catalog.ListCars(ctx, &all)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Car, 0)
	skipped := 0
	for _, c := range cars {
		if !prg.MatchCar(c) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, c)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// GetCar 按 ID 读取车辆
func (r *Recommender) GetCar(ctx context.Context, id int64) (*core.Car, error) {
	return r.catalog.GetCar(ctx, id)
}

// Companies 返回所有公司名（表单选项）
func (r *Recommender) Companies(ctx context.Context) ([]string, error) {
	return r.catalog.Distinct(ctx, core.FieldCompanyName, nil)
}

// Models 返回某公司的车型名；companyName 为空时返回全部
func (r *Recommender) Models(ctx context.Context, companyName string) ([]string, error) {
	return r.catalog.Distinct(ctx, core.FieldCarName, companyQuery(companyName, ""))
}

// Engines 返回发动机取值，可按公司与车型收窄
func (r *Recommender) Engines(ctx context.Context, companyName, carName string) ([]string, error) {
	return r.catalog.Distinct(ctx, core.FieldEngine, companyQuery(companyName, carName))
}

func companyQuery(companyName, carName string) *core.CatalogQuery {
	q := &core.CatalogQuery{}
	if companyName != "" {
		q.CompanyNames = []string{companyName}
	}
	if carName != "" {
		q.CarNames = []string{carName}
	}
	return q
}
