package recall

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/store"
)

func quizCatalog() *store.MemoryCatalog {
	c := store.NewMemoryCatalog()
	id := int64(1)
	for _, price := range []float64{
		10000, 20000, 30000, 40000, 50000, // < 100000
		120000, 150000, 180000, 190000, 110000, // [100000, 200000)
		250000, 300000, 400000, 500000, // >= 200000
	} {
		c.Put(newCar(id, "X", 100, 100, price, 4))
		id++
	}
	noPrice := newCar(id, "Y", 100, 100, 0, 4)
	noPrice.Price = nil
	c.Put(noPrice)
	return c
}

func TestQuizSamplerBands(t *testing.T) {
	q := NewQuizSampler(quizCatalog(), rand.New(rand.NewPCG(1, 2)))
	cars, err := q.Sample(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(cars) != 10 {
		t.Fatalf("got %d cars, want 10", len(cars))
	}

	var low, mid, high int
	seen := make(map[int64]bool)
	for _, c := range cars {
		if seen[c.ID] {
			t.Fatalf("duplicate car %d", c.ID)
		}
		seen[c.ID] = true
		switch p := *c.Price; {
		case p < 100000:
			low++
		case p < 200000:
			mid++
		default:
			high++
		}
	}
	if low != 3 || mid != 4 || high != 3 {
		t.Fatalf("bands = %d/%d/%d, want 3/4/3", low, mid, high)
	}
}

func TestQuizSamplerTopsUpShortBands(t *testing.T) {
	c := store.NewMemoryCatalog()
	for id := int64(1); id <= 12; id++ {
		c.Put(newCar(id, "X", 100, 100, 50000, 4))
	}
	q := NewQuizSampler(c, rand.New(rand.NewPCG(3, 4)))
	cars, err := q.Sample(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(cars) != 10 {
		t.Fatalf("got %d cars, want 10", len(cars))
	}
}

func TestQuizSamplerSmallCatalog(t *testing.T) {
	q := NewQuizSampler(store.NewMemoryCatalog(newCar(1, "X", 1, 1, 1, 1)), nil)
	cars, err := q.Sample(context.Background(), 10)
	if err != nil || len(cars) != 1 {
		t.Fatalf("cars=%v err=%v", cars, err)
	}
	if _, err := NewQuizSampler(store.NewMemoryCatalog(), nil).Sample(context.Background(), 10); !core.IsEmptyDataset(err) {
		t.Fatalf("err = %v, want EmptyDataset", err)
	}
}
