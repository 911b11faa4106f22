package feature

import (
	"fmt"

	"github.com/rushteam/carkit/core"
)

// ActiveFeatures 返回偏好向量中启用的特征（规范顺序）。
// enabled 非空时只保留其中启用的特征；结果为空时返回 ErrInsufficientFeatures。
func ActiveFeatures(pref *core.PreferenceVector, enabled core.FeatureSet) ([]core.Feature, error) {
	if len(enabled) > 0 {
		pref = pref.Restrict(enabled)
	}
	active := pref.Active()
	if len(active) == 0 {
		return nil, core.ErrInsufficientFeatures
	}
	return active, nil
}

// Vectorize 按 features 的顺序逐名读取车辆的数值特征。
// 任一特征为空时返回 ErrInsufficientFeatures，调用方应把该车从候选集中剔除，而不是补零。
func Vectorize(car *core.Car, features []core.Feature) ([]float64, error) {
	if len(features) == 0 {
		return nil, core.ErrInsufficientFeatures
	}
	row := make([]float64, len(features))
	for i, f := range features {
		v, ok := car.Value(f)
		if !ok {
			return nil, fmt.Errorf("car %d missing %s: %w", car.ID, f, core.ErrInsufficientFeatures)
		}
		row[i] = v
	}
	return row, nil
}

// PreferenceRow 按 features 的顺序读取偏好向量的目标值。
func PreferenceRow(pref *core.PreferenceVector, features []core.Feature) ([]float64, error) {
	if len(features) == 0 {
		return nil, core.ErrInsufficientFeatures
	}
	row := make([]float64, len(features))
	for i, f := range features {
		v, ok := pref.Get(f)
		if !ok {
			return nil, fmt.Errorf("preference missing %s: %w", f, core.ErrInsufficientFeatures)
		}
		row[i] = v
	}
	return row, nil
}

// Matrix 是候选车辆的特征矩阵：行与 IDs 一一对应，列与 Features 一一对应。
type Matrix struct {
	Features []core.Feature
	IDs      []int64
	Rows     [][]float64
	// Dropped 是因特征缺失被剔除的车辆 ID
	Dropped []int64
}

// Len 候选行数
func (m *Matrix) Len() int {
	return len(m.Rows)
}

// BuildMatrix 把车辆向量化为矩阵，保持输入顺序；特征不完整的车辆被剔除。
func BuildMatrix(cars []*core.Car, features []core.Feature) *Matrix {
	m := &Matrix{
		Features: features,
		IDs:      make([]int64, 0, len(cars)),
		Rows:     make([][]float64, 0, len(cars)),
	}
	for _, c := range cars {
		if c == nil {
			continue
		}
		row, err := Vectorize(c, features)
		if err != nil {
			m.Dropped = append(m.Dropped, c.ID)
			continue
		}
		m.IDs = append(m.IDs, c.ID)
		m.Rows = append(m.Rows, row)
	}
	return m
}
