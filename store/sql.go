package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rushteam/carkit/core"
)

// 支持的 SQL 驱动
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLStore 是 database/sql 实现的 CatalogStore + RatingStore，支持 SQLite 与 PostgreSQL。
//
// 表结构见 Migrate：cars 保存目录，ratings 以 (user_id, car_id) 为主键保证每人每车一条评分。
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQL 打开数据库连接并 Ping。
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, core.NewInvalidInput(core.ModuleStore, fmt.Sprintf("store: unsupported sql driver %q", driver))
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// 内存库每个连接独立，写入也只能串行
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewSQLStore(db, driver), nil
}

// NewSQLStore 包装已有连接
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Name() string { return s.driver }

// DB 返回底层连接
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cars (
		id           BIGINT PRIMARY KEY,
		company_name TEXT NOT NULL,
		car_name     TEXT NOT NULL,
		engine       TEXT NOT NULL DEFAULT '',
		fuel_type    TEXT NOT NULL DEFAULT '',
		horsepower   DOUBLE PRECISION,
		total_speed  DOUBLE PRECISION,
		price        DOUBLE PRECISION,
		seats        INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cars_company ON cars (company_name, id)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		user_id    BIGINT NOT NULL,
		car_id     BIGINT NOT NULL,
		rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, car_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_car ON ratings (car_id)`,
}

// Migrate 建表（幂等）
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const carColumns = "id, company_name, car_name, engine, fuel_type, horsepower, total_speed, price, seats"

// PutCars 写入或覆盖车辆（按 ID）
func (s *SQLStore) PutCars(ctx context.Context, cars ...*core.Car) error {
	if len(cars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := s.newQuery()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO cars (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO UPDATE SET
			company_name = excluded.company_name,
			car_name = excluded.car_name,
			engine = excluded.engine,
			fuel_type = excluded.fuel_type,
			horsepower = excluded.horsepower,
			total_speed = excluded.total_speed,
			price = excluded.price,
			seats = excluded.seats`,
		carColumns,
		q.next(), q.next(), q.next(), q.next(), q.next(),
		q.next(), q.next(), q.next(), q.next(),
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cars {
		var seats sql.NullInt64
		if c.Seats != nil {
			seats = sql.NullInt64{Int64: int64(*c.Seats), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.CompanyName, c.CarName, c.Engine, c.FuelType,
			nullFloat(c.Horsepower), nullFloat(c.TotalSpeed), nullFloat(c.Price), seats,
		); err != nil {
			return fmt.Errorf("put car %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListCars(ctx context.Context, cq *core.CatalogQuery) ([]*core.Car, error) {
	q := s.newQuery()
	where := q.where(cq)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM cars%s ORDER BY company_name, id", carColumns, where)
	if cq != nil {
		if cq.Limit > 0 {
			fmt.Fprintf(&b, " LIMIT %d", cq.Limit)
		} else if cq.Offset > 0 && s.driver == DriverSQLite {
			b.WriteString(" LIMIT -1")
		}
		if cq.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", cq.Offset)
		}
	}
	return s.queryCars(ctx, b.String(), q.args...)
}

func (s *SQLStore) GetCar(ctx context.Context, id int64) (*core.Car, error) {
	q := s.newQuery()
	cars, err := s.queryCars(ctx, fmt.Sprintf("SELECT %s FROM cars WHERE id = %s", carColumns, q.bind(id)), q.args...)
	if err != nil {
		return nil, err
	}
	if len(cars) == 0 {
		return nil, core.ErrStoreNotFound
	}
	return cars[0], nil
}

func (s *SQLStore) BatchGetCars(ctx context.Context, ids []int64) (map[int64]*core.Car, error) {
	out := make(map[int64]*core.Car, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := s.newQuery()
	cars, err := s.queryCars(ctx, fmt.Sprintf("SELECT %s FROM cars WHERE id IN (%s)", carColumns, q.in(ids)), q.args...)
	if err != nil {
		return nil, err
	}
	for _, c := range cars {
		out[c.ID] = c
	}
	return out, nil
}

func (s *SQLStore) FindCar(ctx context.Context, companyName, carName string) (*core.Car, error) {
	q := s.newQuery()
	query := fmt.Sprintf(
		"SELECT %s FROM cars WHERE %s = %s AND %s = %s ORDER BY id LIMIT 1",
		carColumns,
		q.fold("company_name"), q.fold(q.bind(companyName)),
		q.fold("car_name"), q.fold(q.bind(carName)),
	)
	cars, err := s.queryCars(ctx, query, q.args...)
	if err != nil {
		return nil, err
	}
	if len(cars) == 0 {
		return nil, core.ErrStoreNotFound
	}
	return cars[0], nil
}

func (s *SQLStore) Distinct(ctx context.Context, field string, cq *core.CatalogQuery) ([]string, error) {
	switch field {
	case core.FieldCompanyName, core.FieldCarName, core.FieldEngine:
	default:
		return nil, core.NewInvalidInput(core.ModuleStore, fmt.Sprintf("store: unsupported distinct field %q", field))
	}
	q := s.newQuery()
	where := q.where(cq)
	if where == "" {
		where = " WHERE "
	} else {
		where += " AND "
	}
	query := fmt.Sprintf("SELECT DISTINCT %[1]s FROM cars%[2]s%[1]s <> '' ORDER BY %[1]s", field, where)

	rows, err := s.db.QueryContext(ctx, query, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) queryCars(ctx context.Context, query string, args ...any) ([]*core.Car, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := make([]*core.Car, 0)
	for rows.Next() {
		var (
			c                core.Car
			hp, speed, price sql.NullFloat64
			seats            sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.CompanyName, &c.CarName, &c.Engine, &c.FuelType, &hp, &speed, &price, &seats); err != nil {
			return nil, err
		}
		c.Horsepower = floatPtr(hp)
		c.TotalSpeed = floatPtr(speed)
		c.Price = floatPtr(price)
		if seats.Valid {
			c.Seats = core.Int(int(seats.Int64))
		}
		cars = append(cars, &c)
	}
	return cars, rows.Err()
}

func (s *SQLStore) SaveRating(ctx context.Context, entry core.RatingEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	q := s.newQuery()
	query := fmt.Sprintf(
		`INSERT INTO ratings (user_id, car_id, rating, created_at) VALUES (%s, %s, %s, %s)
		ON CONFLICT (user_id, car_id) DO UPDATE SET rating = excluded.rating, created_at = excluded.created_at`,
		q.bind(entry.UserID), q.bind(entry.CarID), q.bind(entry.Rating), q.bind(entry.CreatedAt.UTC()),
	)
	if _, err := s.db.ExecContext(ctx, query, q.args...); err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUserRatings(ctx context.Context, userID int64) (core.RatingProfile, error) {
	q := s.newQuery()
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT car_id, rating FROM ratings WHERE user_id = %s", q.bind(userID)), q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	p := make(core.RatingProfile)
	for rows.Next() {
		var (
			carID  int64
			rating int
		)
		if err := rows.Scan(&carID, &rating); err != nil {
			return nil, err
		}
		p[carID] = float64(rating)
	}
	return p, rows.Err()
}

func (s *SQLStore) GetAllRatings(ctx context.Context) (map[int64]core.RatingProfile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id, car_id, rating FROM ratings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]core.RatingProfile)
	for rows.Next() {
		var (
			userID, carID int64
			rating        int
		)
		if err := rows.Scan(&userID, &carID, &rating); err != nil {
			return nil, err
		}
		p, ok := out[userID]
		if !ok {
			p = make(core.RatingProfile)
			out[userID] = p
		}
		p[carID] = float64(rating)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetAverageRatings(ctx context.Context) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT car_id, AVG(CAST(rating AS DOUBLE PRECISION)) FROM ratings GROUP BY car_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var (
			carID int64
			avg   float64
		)
		if err := rows.Scan(&carID, &avg); err != nil {
			return nil, err
		}
		out[carID] = avg
	}
	return out, rows.Err()
}

// sqlQuery 按驱动生成占位符（sqlite3: ?，postgres: $n）并收集参数。
type sqlQuery struct {
	driver string
	args   []any
	n      int
}

func (s *SQLStore) newQuery() *sqlQuery {
	return &sqlQuery{driver: s.driver}
}

// next 生成下一个占位符
func (q *sqlQuery) next() string {
	if q.driver == DriverPostgres {
		q.n++
		return "$" + strconv.Itoa(q.n)
	}
	return "?"
}

// fold 生成只转换 ASCII 字母的 LOWER 表达式，与 core.FoldName 一致。
// postgres 的 LOWER 按数据库 locale 转换 Unicode，用 C collation 限定为 ASCII。
func (q *sqlQuery) fold(expr string) string {
	if q.driver == DriverPostgres {
		return "LOWER(" + expr + ` COLLATE "C")`
	}
	return "LOWER(" + expr + ")"
}

// bind 追加参数并返回占位符
func (q *sqlQuery) bind(v any) string {
	q.args = append(q.args, v)
	return q.next()
}

func (q *sqlQuery) in(ids []int64) string {
	ph := make([]string, len(ids))
	for i, id := range ids {
		ph[i] = q.bind(id)
	}
	return strings.Join(ph, ", ")
}

// 数值特征对应的列
var featureColumns = map[core.Feature]string{
	core.FeatureHorsepower: "horsepower",
	core.FeatureTotalSpeed: "total_speed",
	core.FeaturePrice:      "price",
	core.FeatureSeats:      "seats",
}

// where 把 CatalogQuery 的结构化条件翻译为 WHERE 子句（含前导空格），没有条件时返回空串。
// NULL 与任何区间比较都不成立，与 CatalogQuery.Match 一致。
func (q *sqlQuery) where(cq *core.CatalogQuery) string {
	if cq == nil {
		return ""
	}
	var clauses []string
	foldIn := func(column string, values []string) {
		ph := make([]string, len(values))
		for i, v := range values {
			ph[i] = q.fold(q.bind(v))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", q.fold(column), strings.Join(ph, ", ")))
	}

	if len(cq.CompanyNames) > 0 {
		foldIn("company_name", cq.CompanyNames)
	}
	if len(cq.CarNames) > 0 {
		foldIn("car_name", cq.CarNames)
	}
	if len(cq.Engines) > 0 {
		ph := make([]string, len(cq.Engines))
		for i, v := range cq.Engines {
			ph[i] = q.bind(v)
		}
		clauses = append(clauses, fmt.Sprintf("engine IN (%s)", strings.Join(ph, ", ")))
	}
	if cq.FuelType != "" {
		clauses = append(clauses, "fuel_type = "+q.bind(cq.FuelType))
	}
	if cq.Seats != nil {
		clauses = append(clauses, "seats = "+q.bind(*cq.Seats))
	}
	for _, f := range core.AllFeatures() {
		r, ok := cq.Ranges[f]
		if !ok {
			continue
		}
		column := featureColumns[f]
		if r.Min != nil {
			clauses = append(clauses, column+" >= "+q.bind(*r.Min))
		}
		if r.Max != nil {
			clauses = append(clauses, column+" <= "+q.bind(*r.Max))
		}
	}
	if len(cq.ExcludeIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("id NOT IN (%s)", q.in(cq.ExcludeIDs)))
	}

	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return core.Float(v.Float64)
}

var (
	_ core.CatalogStore = (*SQLStore)(nil)
	_ core.RatingStore  = (*SQLStore)(nil)
)
