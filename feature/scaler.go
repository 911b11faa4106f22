package feature

import (
	"fmt"
	"math"

	"github.com/rushteam/carkit/core"
)

// Statistics 是单列特征的统计信息
type Statistics struct {
	Mean float64
	Std  float64 // 总体标准差（ddof = 0）
	Min  float64
	Max  float64
}

// ComputeStatistics 计算单列统计信息，标准差为总体标准差。
func ComputeStatistics(values []float64) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}
	stats := Statistics{Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - stats.Mean) * (v - stats.Mean)
	}
	stats.Std = math.Sqrt(variance / float64(len(values)))
	return stats
}

// StandardScaler Z-score 标准化
// 公式: z = (x - μ) / σ
// σ 为 0 的列（常量特征）标准化结果恒为 0，不产生 NaN/Inf。
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// Fit 按列计算均值与总体标准差；rows 为空时返回 ErrEmptyDataset。
func Fit(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyDataset
	}
	dim := len(rows[0])
	s := &StandardScaler{
		Mean: make([]float64, dim),
		Std:  make([]float64, dim),
	}
	col := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, row := range rows {
			if len(row) != dim {
				return nil, core.NewInvalidInput(core.ModuleFeature,
					fmt.Sprintf("scaler: row %d has %d columns, want %d", i, len(row), dim))
			}
			col[i] = row[j]
		}
		stats := ComputeStatistics(col)
		s.Mean[j] = stats.Mean
		s.Std[j] = stats.Std
	}
	return s, nil
}

// Dim 列数
func (s *StandardScaler) Dim() int {
	return len(s.Mean)
}

// Transform 用拟合得到的统计量标准化一行。
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != s.Dim() {
		return nil, core.NewInvalidInput(core.ModuleFeature,
			fmt.Sprintf("scaler: row has %d columns, want %d", len(row), s.Dim()))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		if s.Std[j] == 0 {
			out[j] = 0
			continue
		}
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll 标准化多行
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform 在 rows 上拟合并返回标准化后的 rows。
func FitTransform(rows [][]float64) ([][]float64, *StandardScaler, error) {
	s, err := Fit(rows)
	if err != nil {
		return nil, nil, err
	}
	scaled, err := s.TransformAll(rows)
	if err != nil {
		return nil, nil, err
	}
	return scaled, s, nil
}
