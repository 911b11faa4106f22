package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/carkit/core"
)

// MemoryCatalog 是内存实现的 CatalogStore，用于测试/开发/原型。
// 进程重启后数据丢失。
type MemoryCatalog struct {
	mu   sync.RWMutex
	cars map[int64]*core.Car
}

func NewMemoryCatalog(cars ...*core.Car) *MemoryCatalog {
	m := &MemoryCatalog{cars: make(map[int64]*core.Car, len(cars))}
	for _, c := range cars {
		m.cars[c.ID] = c
	}
	return m
}

func (m *MemoryCatalog) Name() string { return "memory" }

// Put 写入或覆盖车辆
func (m *MemoryCatalog) Put(cars ...*core.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cars {
		m.cars[c.ID] = c
	}
}

// PutCars 实现 CarWriter
func (m *MemoryCatalog) PutCars(_ context.Context, cars ...*core.Car) error {
	m.Put(cars...)
	return nil
}

// Remove 删除车辆
func (m *MemoryCatalog) Remove(ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.cars, id)
	}
}

func (m *MemoryCatalog) ListCars(_ context.Context, q *core.CatalogQuery) ([]*core.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*core.Car, 0, len(m.cars))
	for _, c := range m.cars {
		if q.Match(c) {
			out = append(out, c)
		}
	}
	sortCars(out)
	if q != nil {
		out = paginate(out, q.Limit, q.Offset)
	}
	return out, nil
}

func (m *MemoryCatalog) GetCar(_ context.Context, id int64) (*core.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cars[id]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return c, nil
}

func (m *MemoryCatalog) BatchGetCars(_ context.Context, ids []int64) (map[int64]*core.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]*core.Car, len(ids))
	for _, id := range ids {
		if c, ok := m.cars[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *MemoryCatalog) FindCar(ctx context.Context, companyName, carName string) (*core.Car, error) {
	cars, err := m.ListCars(ctx, &core.CatalogQuery{
		CompanyNames: []string{companyName},
		CarNames:     []string{carName},
	})
	if err != nil {
		return nil, err
	}
	if len(cars) == 0 {
		return nil, core.ErrStoreNotFound
	}
	first := cars[0]
	for _, c := range cars[1:] {
		if c.ID < first.ID {
			first = c
		}
	}
	return first, nil
}

func (m *MemoryCatalog) Distinct(ctx context.Context, field string, q *core.CatalogQuery) ([]string, error) {
	get, err := fieldGetter(field)
	if err != nil {
		return nil, err
	}
	var query *core.CatalogQuery
	if q != nil {
		cp := *q
		cp.Limit, cp.Offset = 0, 0
		query = &cp
	}
	cars, err := m.ListCars(ctx, query)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, c := range cars {
		v := get(c)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func fieldGetter(field string) (func(*core.Car) string, error) {
	switch field {
	case core.FieldCompanyName:
		return func(c *core.Car) string { return c.CompanyName }, nil
	case core.FieldCarName:
		return func(c *core.Car) string { return c.CarName }, nil
	case core.FieldEngine:
		return func(c *core.Car) string { return c.Engine }, nil
	}
	return nil, core.NewInvalidInput(core.ModuleStore, fmt.Sprintf("store: unsupported distinct field %q", field))
}

// sortCars 按 company_name、id 排序
func sortCars(cars []*core.Car) {
	sort.Slice(cars, func(i, j int) bool {
		if cars[i].CompanyName != cars[j].CompanyName {
			return cars[i].CompanyName < cars[j].CompanyName
		}
		return cars[i].ID < cars[j].ID
	})
}

func paginate(cars []*core.Car, limit, offset int) []*core.Car {
	if offset > 0 {
		if offset >= len(cars) {
			return cars[:0]
		}
		cars = cars[offset:]
	}
	if limit > 0 && len(cars) > limit {
		cars = cars[:limit]
	}
	return cars
}

// MemoryRatings 是内存实现的 RatingStore。
// (user, car) 唯一，重复写入覆盖旧评分。
type MemoryRatings struct {
	mu      sync.RWMutex
	ratings map[int64]map[int64]core.RatingEntry // user -> car -> entry
}

func NewMemoryRatings() *MemoryRatings {
	return &MemoryRatings{ratings: make(map[int64]map[int64]core.RatingEntry)}
}

func (m *MemoryRatings) Name() string { return "memory" }

func (m *MemoryRatings) SaveRating(_ context.Context, entry core.RatingEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.ratings[entry.UserID]
	if !ok {
		user = make(map[int64]core.RatingEntry)
		m.ratings[entry.UserID] = user
	}
	user[entry.CarID] = entry
	return nil
}

func (m *MemoryRatings) GetUserRatings(_ context.Context, userID int64) (core.RatingProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile(userID), nil
}

func (m *MemoryRatings) GetAllRatings(_ context.Context) (map[int64]core.RatingProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]core.RatingProfile, len(m.ratings))
	for userID, entries := range m.ratings {
		if len(entries) > 0 {
			out[userID] = m.profile(userID)
		}
	}
	return out, nil
}

func (m *MemoryRatings) GetAverageRatings(_ context.Context) (map[int64]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, entries := range m.ratings {
		for carID, e := range entries {
			sums[carID] += float64(e.Rating)
			counts[carID]++
		}
	}
	out := make(map[int64]float64, len(sums))
	for carID, sum := range sums {
		out[carID] = sum / float64(counts[carID])
	}
	return out, nil
}

// profile 返回拷贝（调用方持有读锁）
func (m *MemoryRatings) profile(userID int64) core.RatingProfile {
	entries := m.ratings[userID]
	p := make(core.RatingProfile, len(entries))
	for carID, e := range entries {
		p[carID] = float64(e.Rating)
	}
	return p
}
