package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rushteam/carkit/core"
)

// 存储后端名称
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Options 打开存储的参数
type Options struct {
	// Driver: memory, sqlite3, postgres
	Driver  string
	DSN     string
	Migrate bool

	// Ratings 评分后端，空表示与 Driver 相同；可为 redis
	Ratings string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Stores 是打开后的目录与评分存储
type Stores struct {
	Catalog core.CatalogStore
	Ratings core.RatingStore
	// Writer 用于导入数据
	Writer CarWriter

	closers []io.Closer
}

// Close 关闭所有底层连接
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open 按配置打开目录与评分存储。
func Open(ctx context.Context, opts Options) (*Stores, error) {
	stores := &Stores{}

	switch opts.Driver {
	case DriverMemory, "":
		catalog := NewMemoryCatalog()
		stores.Catalog = catalog
		stores.Writer = catalog
	case DriverSQLite, DriverPostgres:
		db, err := OpenSQL(ctx, opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, db)
		if opts.Migrate {
			if err := db.Migrate(ctx); err != nil {
				stores.Close()
				return nil, err
			}
		}
		stores.Catalog = db
		stores.Writer = db
		stores.Ratings = db
	default:
		return nil, core.NewInvalidInput(core.ModuleStore, fmt.Sprintf("store: unsupported driver %q", opts.Driver))
	}

	switch opts.Ratings {
	case "", opts.Driver:
		if stores.Ratings == nil {
			stores.Ratings = NewMemoryRatings()
		}
	case DriverRedis:
		r, err := NewRedisRatingStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		stores.closers = append(stores.closers, r)
		stores.Ratings = r
	default:
		stores.Close()
		return nil, core.NewInvalidInput(core.ModuleStore, fmt.Sprintf("store: ratings backend %q does not match driver %q", opts.Ratings, opts.Driver))
	}
	return stores, nil
}
