package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/carkit/core"
)

// RedisRatingStore 是 Redis 实现的 RatingStore。
//
// Key 结构：
//
//	{prefix}:ratings:user:{userID}  Hash  carID -> rating
//	{prefix}:ratings:users          Set   有评分的用户 ID
//
// Hash 的 field 天然唯一，HSET 即覆盖写，满足每人每车一条评分。
type RedisRatingStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRatingStore 连接 Redis 并 Ping。
func NewRedisRatingStore(addr, password string, db int, prefix string) (*RedisRatingStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisRatingStoreFromClient(client, prefix), nil
}

// NewRedisRatingStoreFromClient 使用已有的 client
func NewRedisRatingStoreFromClient(client *redis.Client, prefix string) *RedisRatingStore {
	if prefix == "" {
		prefix = "carkit"
	}
	return &RedisRatingStore{client: client, prefix: prefix}
}

func (r *RedisRatingStore) Name() string { return "redis" }

func (r *RedisRatingStore) userKey(userID int64) string {
	return fmt.Sprintf("%s:ratings:user:%d", r.prefix, userID)
}

func (r *RedisRatingStore) usersKey() string {
	return r.prefix + ":ratings:users"
}

func (r *RedisRatingStore) SaveRating(ctx context.Context, entry core.RatingEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.userKey(entry.UserID), strconv.FormatInt(entry.CarID, 10), entry.Rating)
		pipe.SAdd(ctx, r.usersKey(), entry.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	return nil
}

func (r *RedisRatingStore) GetUserRatings(ctx context.Context, userID int64) (core.RatingProfile, error) {
	vals, err := r.client.HGetAll(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return parseProfile(vals)
}

func (r *RedisRatingStore) GetAllRatings(ctx context.Context) (map[int64]core.RatingProfile, error) {
	members, err := r.client.SMembers(ctx, r.usersKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return make(map[int64]core.RatingProfile), nil
	}

	userIDs := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q in %s: %w", m, r.usersKey(), err)
		}
		userIDs = append(userIDs, id)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.HGetAll(ctx, r.userKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make(map[int64]core.RatingProfile, len(userIDs))
	for i, cmd := range cmds {
		p, err := parseProfile(cmd.Val())
		if err != nil {
			return nil, err
		}
		if len(p) > 0 {
			out[userIDs[i]] = p
		}
	}
	return out, nil
}

// GetAverageRatings 基于全量评分计算平均分
func (r *RedisRatingStore) GetAverageRatings(ctx context.Context) (map[int64]float64, error) {
	all, err := r.GetAllRatings(ctx)
	if err != nil {
		return nil, err
	}
	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, p := range all {
		for carID, v := range p {
			sums[carID] += v
			counts[carID]++
		}
	}
	out := make(map[int64]float64, len(sums))
	for carID, sum := range sums {
		out[carID] = sum / float64(counts[carID])
	}
	return out, nil
}

func (r *RedisRatingStore) Close() error {
	return r.client.Close()
}

func parseProfile(vals map[string]string) (core.RatingProfile, error) {
	p := make(core.RatingProfile, len(vals))
	for field, raw := range vals {
		carID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid car id %q: %w", field, err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rating %q for car %d: %w", raw, carID, err)
		}
		p[carID] = v
	}
	return p, nil
}

var _ core.RatingStore = (*RedisRatingStore)(nil)
