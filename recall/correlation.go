package recall

import (
	"math"
	"sort"

	"github.com/rushteam/carkit/core"
)

// PearsonCorrelation 计算两个用户评分画像的皮尔逊相关系数。
//
// 只在两者共同评分的车辆上计算，均值也只在交集上求。
// 交集少于 core.MinCommonItems 个，或任一方在交集上的评分全部相同（范数为 0）时返回 0，
// 表示没有可用的信号，而不是错误。
func PearsonCorrelation(a, b core.RatingProfile) float64 {
	common := make([]int64, 0, min(len(a), len(b)))
	for id := range a {
		if _, ok := b[id]; ok {
			common = append(common, id)
		}
	}
	if len(common) < core.MinCommonItems {
		return 0
	}
	// 固定求和顺序，保证结果可复现
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	var meanA, meanB float64
	for _, id := range common {
		meanA += a[id]
		meanB += b[id]
	}
	n := float64(len(common))
	meanA /= n
	meanB /= n

	var dot, normA, normB float64
	for _, id := range common {
		da := a[id] - meanA
		db := b[id] - meanB
		dot += da * db
		normA += da * da
		normB += db * db
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	r := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// 浮点误差可能略微越界
	return math.Max(-1, math.Min(1, r))
}
