package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rushteam/carkit/core"
)

func sampleCars() []*core.Car {
	return []*core.Car{
		{ID: 1, CompanyName: "Toyota", CarName: "Corolla", Engine: "1.8L", FuelType: "Petrol",
			Horsepower: core.Float(139), TotalSpeed: core.Float(180), Price: core.Float(22000), Seats: core.Int(5)},
		{ID: 2, CompanyName: "BMW", CarName: "M3", Engine: "3.0L", FuelType: "Petrol",
			Horsepower: core.Float(473), TotalSpeed: core.Float(250), Price: core.Float(74000), Seats: core.Int(5)},
		{ID: 3, CompanyName: "Toyota", CarName: "Prius", Engine: "1.8L Hybrid", FuelType: "Hybrid",
			Horsepower: core.Float(121), TotalSpeed: core.Float(180), Price: core.Float(28000), Seats: core.Int(5)},
		{ID: 4, CompanyName: "Tesla", CarName: "Model 3", Engine: "Electric", FuelType: "Electric",
			Horsepower: core.Float(283), TotalSpeed: core.Float(225), Price: nil, Seats: core.Int(5)},
		{ID: 5, CompanyName: "toyota", CarName: "corolla", Engine: "2.0L", FuelType: "Petrol",
			Horsepower: core.Float(169), Seats: core.Int(5)},
	}
}

func carIDs(cars []*core.Car) []int64 {
	ids := make([]int64, len(cars))
	for i, c := range cars {
		ids[i] = c.ID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// testCatalog 对任意 CatalogStore 实现执行同一组校验
func testCatalog(t *testing.T, catalog core.CatalogStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("list all ordered by company then id", func(t *testing.T) {
		cars, err := catalog.ListCars(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := []int64{2, 4, 1, 3, 5}
		if got := carIDs(cars); !equalIDs(got, want) {
			t.Errorf("ids = %v, want %v", got, want)
		}
	})

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			name  string
			query *core.CatalogQuery
			want  []int64
		}{
			{"company case-insensitive", &core.CatalogQuery{CompanyNames: []string{"TOYOTA"}}, []int64{1, 3, 5}},
			{"fuel", &core.CatalogQuery{FuelType: "Petrol"}, []int64{2, 1, 5}},
			{"price range skips null", (&core.CatalogQuery{}).WithRange(core.FeaturePrice, core.Float(20000), core.Float(30000)), []int64{1, 3}},
			{"min only", (&core.CatalogQuery{}).WithRange(core.FeatureHorsepower, core.Float(200), nil), []int64{2, 4}},
			{"exclude", (&core.CatalogQuery{CompanyNames: []string{"Toyota"}}).Exclude(1), []int64{3, 5}},
			{"engine", &core.CatalogQuery{Engines: []string{"3.0L", "Electric"}}, []int64{2, 4}},
			{"seats", &core.CatalogQuery{Seats: core.Int(4)}, []int64{}},
			{"limit offset", &core.CatalogQuery{Limit: 2, Offset: 1}, []int64{4, 1}},
			{"offset only", &core.CatalogQuery{Offset: 3}, []int64{3, 5}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cars, err := catalog.ListCars(ctx, tt.query)
				if err != nil {
					t.Fatal(err)
				}
				if got := carIDs(cars); !equalIDs(got, tt.want) {
					t.Errorf("ids = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("get and batch get", func(t *testing.T) {
		c, err := catalog.GetCar(ctx, 4)
		if err != nil {
			t.Fatal(err)
		}
		if c.Price != nil {
			t.Errorf("null price should stay null, got %v", *c.Price)
		}
		if c.Seats == nil || *c.Seats != 5 {
			t.Errorf("seats = %v", c.Seats)
		}
		if _, err := catalog.GetCar(ctx, 99); !core.IsStoreNotFound(err) {
			t.Errorf("GetCar(99) err = %v, want not found", err)
		}
		m, err := catalog.BatchGetCars(ctx, []int64{1, 2, 99})
		if err != nil {
			t.Fatal(err)
		}
		if len(m) != 2 || m[1] == nil || m[2] == nil {
			t.Errorf("BatchGetCars = %v", m)
		}
	})

	t.Run("find car picks lowest id", func(t *testing.T) {
		c, err := catalog.FindCar(ctx, "Toyota", "Corolla")
		if err != nil {
			t.Fatal(err)
		}
		if c.ID != 1 {
			t.Errorf("FindCar id = %d, want 1", c.ID)
		}
		if _, err := catalog.FindCar(ctx, "Toyota", "Supra"); !core.IsStoreNotFound(err) {
			t.Errorf("FindCar missing err = %v", err)
		}
	})

	t.Run("distinct", func(t *testing.T) {
		engines, err := catalog.Distinct(ctx, core.FieldEngine, &core.CatalogQuery{CompanyNames: []string{"Toyota"}})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"1.8L", "1.8L Hybrid", "2.0L"}
		if len(engines) != len(want) {
			t.Fatalf("engines = %v, want %v", engines, want)
		}
		for i := range want {
			if engines[i] != want[i] {
				t.Errorf("engines = %v, want %v", engines, want)
				break
			}
		}
		if _, err := catalog.Distinct(ctx, "price", nil); !core.IsInvalidInput(err) {
			t.Errorf("Distinct(price) err = %v, want invalid input", err)
		}
	})
}

// testRatings 对任意 RatingStore 实现执行同一组校验
func testRatings(t *testing.T, ratings core.RatingStore) {
	t.Helper()
	ctx := context.Background()

	empty, err := ratings.GetUserRatings(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("new user ratings = %v", empty)
	}

	entries := []core.RatingEntry{
		{UserID: 1, CarID: 10, Rating: 5},
		{UserID: 1, CarID: 11, Rating: 3},
		{UserID: 2, CarID: 10, Rating: 2},
		{UserID: 1, CarID: 10, Rating: 4}, // 覆盖
	}
	for _, e := range entries {
		if err := ratings.SaveRating(ctx, e); err != nil {
			t.Fatalf("SaveRating(%+v): %v", e, err)
		}
	}
	if err := ratings.SaveRating(ctx, core.RatingEntry{UserID: 1, CarID: 12, Rating: 6}); !core.IsInvalidInput(err) {
		t.Errorf("out of range rating err = %v", err)
	}

	p, err := ratings.GetUserRatings(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 2 || p[10] != 4 || p[11] != 3 {
		t.Errorf("user 1 profile = %v", p)
	}

	all, err := ratings.GetAllRatings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[2][10] != 2 {
		t.Errorf("all ratings = %v", all)
	}

	avg, err := ratings.GetAverageRatings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if avg[10] != 3 || avg[11] != 3 || len(avg) != 2 {
		t.Errorf("averages = %v", avg)
	}
}

func TestMemoryCatalog(t *testing.T) {
	testCatalog(t, NewMemoryCatalog(sampleCars()...))
}

func accentedCars() []*core.Car {
	return []*core.Car{
		{ID: 1, CompanyName: "Škoda", CarName: "Octavia", FuelType: "Petrol"},
		{ID: 2, CompanyName: "Citroën", CarName: "C4", FuelType: "Diesel"},
	}
}

// testNameFolding 校验名字只折叠 ASCII 大小写，内存与 SQL 存储结果一致
func testNameFolding(t *testing.T, catalog core.CatalogStore) {
	t.Helper()
	ctx := context.Background()

	tests := []struct {
		name    string
		company string
		want    []int64
	}{
		{"exact", "Škoda", []int64{1}},
		{"ascii letters folded", "ŠKODA", []int64{1}},
		{"non-ascii letters kept", "škoda", []int64{}},
		{"mixed", "CITROëN", []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cars, err := catalog.ListCars(ctx, &core.CatalogQuery{CompanyNames: []string{tt.company}})
			if err != nil {
				t.Fatal(err)
			}
			if got := carIDs(cars); !equalIDs(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
			_, err = catalog.FindCar(ctx, tt.company, "OCTAVIA")
			if found := err == nil; found != (len(tt.want) == 1 && tt.want[0] == 1) {
				t.Errorf("FindCar(%q) err = %v", tt.company, err)
			}
		})
	}
}

func TestMemoryCatalog_NameFolding(t *testing.T) {
	testNameFolding(t, NewMemoryCatalog(accentedCars()...))
}

func TestSQLStore_NameFolding(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.PutCars(context.Background(), accentedCars()...); err != nil {
		t.Fatal(err)
	}
	testNameFolding(t, s)
}

func TestFoldName(t *testing.T) {
	if got := core.FoldName("ŠKODA Octavia"); got != "Škoda octavia" {
		t.Errorf("FoldName = %q", got)
	}
}

func TestMemoryRatings(t *testing.T) {
	testRatings(t, NewMemoryRatings())
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQL(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSQLStore_Catalog(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.PutCars(context.Background(), sampleCars()...); err != nil {
		t.Fatal(err)
	}
	testCatalog(t, s)
}

func TestSQLStore_Ratings(t *testing.T) {
	testRatings(t, newSQLiteStore(t))
}

func TestSQLStore_MigrateIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate: %v", err)
	}
}

func TestSQLStore_PutCarsOverwrites(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	car := sampleCars()[0]
	if err := s.PutCars(ctx, car); err != nil {
		t.Fatal(err)
	}
	updated := *car
	updated.Price = core.Float(25000)
	if err := s.PutCars(ctx, &updated); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCar(ctx, car.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Price == nil || *got.Price != 25000 {
		t.Errorf("price = %v, want 25000", got.Price)
	}
}

func TestSQLQuery_Placeholders(t *testing.T) {
	pg := &sqlQuery{driver: DriverPostgres}
	where := pg.where(&core.CatalogQuery{CompanyNames: []string{"a", "b"}, FuelType: "Petrol"})
	want := ` WHERE LOWER(company_name COLLATE "C") IN (LOWER($1 COLLATE "C"), LOWER($2 COLLATE "C")) AND fuel_type = $3`
	if where != want {
		t.Errorf("postgres where = %q, want %q", where, want)
	}
	if len(pg.args) != 3 {
		t.Errorf("args = %v", pg.args)
	}

	lite := &sqlQuery{driver: DriverSQLite}
	if got := lite.in([]int64{1, 2}); got != "?, ?" {
		t.Errorf("sqlite in = %q", got)
	}
	if got := lite.where(nil); got != "" {
		t.Errorf("nil query where = %q", got)
	}
}

func TestRedisRatingStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisRatingStoreFromClient(client, "test")
	testRatings(t, s)

	if !mr.Exists("test:ratings:user:1") {
		t.Error("expected per-user hash key")
	}
	members, err := mr.Members("test:ratings:users")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Errorf("users set = %v", members)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: DriverMemory})
	if err != nil {
		t.Fatal(err)
	}
	if s.Catalog.Name() != "memory" || s.Ratings.Name() != "memory" || s.Writer == nil {
		t.Errorf("memory stores = %s/%s", s.Catalog.Name(), s.Ratings.Name())
	}

	s, err = Open(ctx, Options{Driver: DriverSQLite, DSN: ":memory:", Migrate: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Catalog.Name() != DriverSQLite || s.Ratings.Name() != DriverSQLite {
		t.Errorf("sqlite stores = %s/%s", s.Catalog.Name(), s.Ratings.Name())
	}

	mr := miniredis.RunT(t)
	s2, err := Open(ctx, Options{Driver: DriverMemory, Ratings: DriverRedis, RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if s2.Ratings.Name() != "redis" {
		t.Errorf("ratings = %s", s2.Ratings.Name())
	}

	if _, err := Open(ctx, Options{Driver: "mysql"}); !core.IsInvalidInput(err) {
		t.Errorf("unsupported driver err = %v", err)
	}
	if _, err := Open(ctx, Options{Driver: DriverMemory, Ratings: DriverPostgres}); !core.IsInvalidInput(err) {
		t.Errorf("mismatched ratings err = %v", err)
	}
}
