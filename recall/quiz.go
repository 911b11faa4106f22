package recall

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/rushteam/carkit/core"
)

// 问卷价格档位
const (
	quizLowPrice  = 100000
	quizHighPrice = 200000
)

// QuizSampler 为评分问卷抽取车辆，覆盖低/中/高三个价格档位。
//
// n = 10 时抽取 3 辆价格 < 100000、4 辆 100000 <= 价格 < 200000、3 辆价格 >= 200000，
// 其他 n 按 3:4:3 的比例分配；某个档位不足时，从剩余车辆中随机补齐到 n。
// 目录不足 n 辆时返回全部。
type QuizSampler struct {
	Catalog core.CatalogStore

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewQuizSampler 创建问卷抽样器；rnd 为空时使用随机种子。
func NewQuizSampler(catalog core.CatalogStore, rnd *rand.Rand) *QuizSampler {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &QuizSampler{Catalog: catalog, rnd: rnd}
}

// Sample 抽取 n 辆车
func (q *QuizSampler) Sample(ctx context.Context, n int) ([]*core.Car, error) {
	if n <= 0 {
		n = (&core.DefaultRecommendConfig{}).DefaultQuizSize()
	}
	cars, err := q.Catalog.ListCars(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("quiz: list cars: %w", err)
	}
	if len(cars) == 0 {
		return nil, core.ErrEmptyDataset
	}

	var low, mid, high []*core.Car
	for _, c := range cars {
		if c.Price == nil {
			continue
		}
		switch p := *c.Price; {
		case p < quizLowPrice:
			low = append(low, c)
		case p < quizHighPrice:
			mid = append(mid, c)
		default:
			high = append(high, c)
		}
	}

	nLow, nMid, nHigh := n*3/10, n*4/10, n*3/10

	q.mu.Lock()
	defer q.mu.Unlock()

	picked := make(map[int64]bool, n)
	out := make([]*core.Car, 0, n)
	take := func(pool []*core.Car, k int) {
		for _, c := range q.sample(pool, k) {
			picked[c.ID] = true
			out = append(out, c)
		}
	}
	take(low, nLow)
	take(mid, nMid)
	take(high, nHigh)

	if len(out) < n {
		rest := make([]*core.Car, 0, len(cars)-len(out))
		for _, c := range cars {
			if !picked[c.ID] {
				rest = append(rest, c)
			}
		}
		take(rest, n-len(out))
	}
	return out, nil
}

// sample 无放回随机抽取 k 个（调用方持有锁）
func (q *QuizSampler) sample(pool []*core.Car, k int) []*core.Car {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}
	idx := q.rnd.Perm(len(pool))[:k]
	out := make([]*core.Car, k)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}
