package core

// RecommendConfig 是推荐相关的配置接口，用于提供默认值。
type RecommendConfig interface {
	// DefaultTopN 返回协同过滤默认返回的推荐数
	DefaultTopN() int

	// DefaultK 返回最近邻默认返回的候选数
	DefaultK() int

	// DefaultQuizSize 返回评分问卷默认的车辆数
	DefaultQuizSize() int

	// DefaultWorkers 返回相关系数并行计算的 worker 数
	DefaultWorkers() int
}

// 协同过滤中固定的常量，不可配置。
const (
	// NeighborCap 参与投票的最相似邻居上限
	NeighborCap = 10

	// MinCommonItems 计算皮尔逊相关系数所需的最少共同评分数
	MinCommonItems = 2
)

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultTopN() int {
	return 5
}

func (c *DefaultRecommendConfig) DefaultK() int {
	return 5
}

func (c *DefaultRecommendConfig) DefaultQuizSize() int {
	return 10
}

func (c *DefaultRecommendConfig) DefaultWorkers() int {
	return 4
}
