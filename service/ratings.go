package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pkg/logging"
	"github.com/rushteam/carkit/pkg/metrics"
)

// RatingInput 是提交的一条评分
type RatingInput struct {
	CarID  int64 `json:"car_id"`
	Rating int   `json:"rating"`
}

// SubmitRatings 写入用户评分，(user, car) 重复提交时覆盖。
//
// 先整体校验再写入：评分越界或车辆不存在时一条都不写。
// 写入逐条进行，不是事务：存储在中途出错时，之前的评分已经写入，
// 返回值是已写入的条数。
func (r *Recommender) SubmitRatings(ctx context.Context, userID int64, inputs []RatingInput) (int, error) {
	if userID <= 0 {
		return 0, core.NewInvalidInput(core.ModuleService, "ratings: user id is required")
	}
	if len(inputs) == 0 {
		return 0, core.NewInvalidInput(core.ModuleService, "ratings: at least one rating is required")
	}

	now := time.Now()
	entries := make([]core.RatingEntry, 0, len(inputs))
	ids := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		e := core.RatingEntry{UserID: userID, CarID: in.CarID, Rating: in.Rating, CreatedAt: now}
		if err := e.Validate(); err != nil {
			return 0, err
		}
		entries = append(entries, e)
		ids = append(ids, in.CarID)
	}

	found, err := r.catalog.BatchGetCars(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("ratings: lookup cars: %w", err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return 0, core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound, fmt.Sprintf("ratings: car %d not found", id))
		}
	}

	for i, e := range entries {
		if err := r.ratings.SaveRating(ctx, e); err != nil {
			return i, fmt.Errorf("ratings: save car %d: %w", e.CarID, err)
		}
		metrics.RatingsSaved.Inc()
	}
	logging.Ctx(ctx).Info().
		Int64("user_id", userID).
		Int("count", len(entries)).
		Msg("ratings saved")
	return len(entries), nil
}

// RatedCar 是用户评过的一辆车
type RatedCar struct {
	Car    *core.Car `json:"car"`
	Rating int       `json:"rating"`
}

// UserRatings 返回用户的评分，按评分降序、车辆 ID 升序；limit <= 0 表示全部。
func (r *Recommender) UserRatings(ctx context.Context, userID int64, limit int) ([]RatedCar, error) {
	profile, err := r.ratings.GetUserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(profile))
	for id := range profile {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if profile[ids[i]] != profile[ids[j]] {
			return profile[ids[i]] > profile[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	cars, err := r.catalog.BatchGetCars(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]RatedCar, 0, len(ids))
	for _, id := range ids {
		c, ok := cars[id]
		if !ok {
			continue
		}
		out = append(out, RatedCar{Car: c, Rating: int(profile[id])})
	}
	return out, nil
}
