package core

import "strings"

// Range 是数值特征的闭区间约束，Min/Max 为空表示不限。
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Contains 判断 v 是否落在区间内
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// IsZero 没有任何边界
func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// CatalogQuery 是目录读取时的过滤条件。
//
// 等值条件之间为 AND，同一字段的多个取值为 OR。
// 区间条件作用于数值特征；字段为空的车辆不满足任何区间条件。
// Expr 是可选的 CEL 表达式，由存储之上的 pkg/dsl 求值，存储实现本身不解释它。
type CatalogQuery struct {
	CompanyNames []string `json:"company_names,omitempty"`
	CarNames     []string `json:"car_names,omitempty"`
	Engines      []string `json:"engines,omitempty"`
	FuelType     string   `json:"fuel_type,omitempty"`
	Seats        *int     `json:"seats,omitempty"`

	Ranges map[Feature]Range `json:"ranges,omitempty"`

	ExcludeIDs []int64 `json:"exclude_ids,omitempty"`
	Expr       string  `json:"expr,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// WithRange 设置特征区间
func (q *CatalogQuery) WithRange(f Feature, min, max *float64) *CatalogQuery {
	if min == nil && max == nil {
		return q
	}
	if q.Ranges == nil {
		q.Ranges = make(map[Feature]Range)
	}
	q.Ranges[f] = Range{Min: min, Max: max}
	return q
}

// Exclude 追加排除的车辆 ID
func (q *CatalogQuery) Exclude(ids ...int64) *CatalogQuery {
	q.ExcludeIDs = append(q.ExcludeIDs, ids...)
	return q
}

// Match 在内存中判断车辆是否满足结构化条件（不含 Expr、Limit、Offset）。
func (q *CatalogQuery) Match(c *Car) bool {
	if c == nil {
		return false
	}
	if q == nil {
		return true
	}
	if len(q.CompanyNames) > 0 && !containsFold(q.CompanyNames, c.CompanyName) {
		return false
	}
	if len(q.CarNames) > 0 && !containsFold(q.CarNames, c.CarName) {
		return false
	}
	if len(q.Engines) > 0 && !contains(q.Engines, c.Engine) {
		return false
	}
	if q.FuelType != "" && q.FuelType != c.FuelType {
		return false
	}
	if q.Seats != nil && (c.Seats == nil || *c.Seats != *q.Seats) {
		return false
	}
	for f, r := range q.Ranges {
		if r.IsZero() {
			continue
		}
		v, ok := c.Value(f)
		if !ok || !r.Contains(v) {
			return false
		}
	}
	for _, id := range q.ExcludeIDs {
		if id == c.ID {
			return false
		}
	}
	return true
}

// FoldName 把名字中的 ASCII 大写字母转为小写，其余字符原样保留。
//
// 公司名、车型名按 FoldName 后比较。SQL 存储的 LOWER() 在 SQLite 上只转换 ASCII，
// 内存存储也只折叠 ASCII，两个后端对 "Škoda" 这类名字的匹配结果一致。
func FoldName(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func containsFold(list []string, v string) bool {
	v = FoldName(v)
	for _, s := range list {
		if FoldName(s) == v {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
