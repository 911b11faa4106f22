package core

import (
	"fmt"
	"time"
)

// 评分范围（闭区间）
const (
	MinRating = 1
	MaxRating = 5
)

// RatingEntry 是一条用户评分。每个 (UserID, CarID) 最多一条，由外部存储保证。
type RatingEntry struct {
	UserID    int64     `json:"user_id"`
	CarID     int64     `json:"car_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate 校验评分是否在范围内
func (r RatingEntry) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return NewInvalidInput(ModuleStore, fmt.Sprintf("rating: %d out of range [%d, %d]", r.Rating, MinRating, MaxRating))
	}
	if r.UserID <= 0 || r.CarID <= 0 {
		return NewInvalidInput(ModuleStore, "rating: user id and car id are required")
	}
	return nil
}

// RatingProfile 是单个用户的评分画像：carID -> rating。按需从 RatingEntry 构建，不存储。
type RatingProfile map[int64]float64

// ProfileFromEntries 从评分记录构建画像
func ProfileFromEntries(entries []RatingEntry) RatingProfile {
	p := make(RatingProfile, len(entries))
	for _, e := range entries {
		p[e.CarID] = float64(e.Rating)
	}
	return p
}

// Has 判断用户是否评价过 carID
func (p RatingProfile) Has(carID int64) bool {
	_, ok := p[carID]
	return ok
}

// Recommendation 是推荐结果：车辆 ID + 分数，每次请求即时生成。
type Recommendation struct {
	CarID int64   `json:"car_id"`
	Score float64 `json:"score"`
}

// Neighbor 是最近邻查询结果：车辆 ID + 欧氏距离（>= 0）。
type Neighbor struct {
	CarID    int64   `json:"car_id"`
	Distance float64 `json:"distance"`
}
