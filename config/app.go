package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/carkit/pkg/logging"
)

// EnvPrefix 环境变量前缀，嵌套字段用双下划线分隔：CARKIT_SERVER__ADDR -> server.addr
const EnvPrefix = "CARKIT_"

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "CARKIT_CONFIG"

// AppConfig 是 carkit 服务的完整配置。
//
// 加载顺序（后者覆盖前者）：结构体默认值 -> YAML 文件 -> CARKIT_* 环境变量。
type AppConfig struct {
	Server    ServerConfig    `koanf:"server"`
	Log       logging.Config  `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	Redis     RedisConfig     `koanf:"redis"`
	Pipelines PipelinesConfig `koanf:"pipelines"`
	Recommend RecommendConfig `koanf:"recommend"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	// Mode: debug, release, test（gin 模式）
	Mode string `koanf:"mode" validate:"oneof=debug release test"`
}

// StoreConfig 目录与评分存储配置
type StoreConfig struct {
	// Driver: memory, sqlite3, postgres
	Driver string `koanf:"driver" validate:"oneof=memory sqlite3 postgres"`
	DSN    string `koanf:"dsn" validate:"required_unless=Driver memory"`
	// Migrate 启动时建表
	Migrate bool `koanf:"migrate"`
	// Ratings 评分存储后端：默认与 Driver 相同，也可以是 redis
	Ratings string `koanf:"ratings" validate:"omitempty,oneof=memory sqlite3 postgres redis"`
}

// RedisConfig Redis 评分存储配置，Store.Ratings 为 redis 时生效
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
	Prefix   string `koanf:"prefix"`
}

// PipelinesConfig Pipeline 定义文件
type PipelinesConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// RecommendConfig 推荐默认参数，实现 core.RecommendConfig
type RecommendConfig struct {
	TopN     int `koanf:"top_n" validate:"gt=0"`
	K        int `koanf:"k" validate:"gt=0"`
	QuizSize int `koanf:"quiz_size" validate:"gt=0"`
	Workers  int `koanf:"workers" validate:"gt=0"`
}

func (c RecommendConfig) DefaultTopN() int     { return c.TopN }
func (c RecommendConfig) DefaultK() int        { return c.K }
func (c RecommendConfig) DefaultQuizSize() int { return c.QuizSize }
func (c RecommendConfig) DefaultWorkers() int  { return c.Workers }

// DefaultAppConfig 返回默认配置：内存存储、监听 :8080。
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Mode:            "release",
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:  "memory",
			Migrate: true,
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: "carkit",
		},
		Pipelines: PipelinesConfig{
			Path: "configs/pipelines.yaml",
		},
		Recommend: RecommendConfig{
			TopN:     5,
			K:        5,
			QuizSize: 10,
			Workers:  4,
		},
	}
}

// RatingsDriver 返回评分存储实际使用的后端
func (c *AppConfig) RatingsDriver() string {
	if c.Store.Ratings == "" {
		return c.Store.Driver
	}
	return c.Store.Ratings
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.RatingsDriver() == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("invalid config: redis.addr is required when store.ratings is redis")
	}
	if c.Store.Ratings != "" && c.Store.Ratings != "redis" && c.Store.Ratings != c.Store.Driver {
		return fmt.Errorf("invalid config: store.ratings %q must be redis or match store.driver %q", c.Store.Ratings, c.Store.Driver)
	}
	return nil
}

// Load 加载配置。path 为空时读取 CARKIT_CONFIG，仍为空则只使用默认值与环境变量。
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultAppConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CARKIT_STORE__DSN -> store.dsn；CARKIT_CONFIG 本身不是配置项
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == strings.TrimPrefix(ConfigPathEnvVar, EnvPrefix) {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}
