package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("store.driver = %q", cfg.Store.Driver)
	}
	if cfg.Recommend.TopN != 5 || cfg.Recommend.QuizSize != 10 {
		t.Errorf("recommend = %+v", cfg.Recommend)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("shutdown_timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.RatingsDriver() != "memory" {
		t.Errorf("ratings driver = %q", cfg.RatingsDriver())
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carkit.yaml")
	data := `
server:
  addr: ":9090"
store:
  driver: sqlite3
  dsn: "file::memory:?cache=shared"
recommend:
  top_n: 8
  workers: 2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARKIT_RECOMMEND__TOP_N", "3")
	t.Setenv("CARKIT_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Store.Driver != "sqlite3" {
		t.Errorf("store.driver = %q", cfg.Store.Driver)
	}
	if cfg.Recommend.TopN != 3 {
		t.Errorf("env should override file: top_n = %d", cfg.Recommend.TopN)
	}
	if cfg.Recommend.Workers != 2 {
		t.Errorf("workers = %d", cfg.Recommend.Workers)
	}
	if cfg.Recommend.K != 5 {
		t.Errorf("default k should survive: %d", cfg.Recommend.K)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"default", func(c *AppConfig) {}, false},
		{"unknown driver", func(c *AppConfig) { c.Store.Driver = "mysql" }, true},
		{"sqlite without dsn", func(c *AppConfig) { c.Store.Driver = "sqlite3" }, true},
		{"redis ratings", func(c *AppConfig) { c.Store.Ratings = "redis" }, false},
		{"redis ratings without addr", func(c *AppConfig) {
			c.Store.Ratings = "redis"
			c.Redis.Addr = ""
		}, true},
		{"ratings on another sql driver", func(c *AppConfig) { c.Store.Ratings = "postgres" }, true},
		{"zero top_n", func(c *AppConfig) { c.Recommend.TopN = 0 }, true},
		{"bad log level", func(c *AppConfig) { c.Log.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAppConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"CARKIT_SERVER__ADDR":         "server.addr",
		"CARKIT_RECOMMEND__QUIZ_SIZE": "recommend.quiz_size",
		"CARKIT_CONFIG":               "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
