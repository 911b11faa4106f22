// Command carkit 启动车型推荐 HTTP 服务，可选在启动前导入车型 CSV。
//
//	carkit -config configs/carkit.yaml
//	carkit -import data/cars.csv -cp1252
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rushteam/carkit/config"
	_ "github.com/rushteam/carkit/config/builders"
	"github.com/rushteam/carkit/pkg/logging"
	"github.com/rushteam/carkit/server"
	"github.com/rushteam/carkit/service"
	"github.com/rushteam/carkit/store"
)

func main() {
	configPath := flag.String("config", "", "config file path (default $CARKIT_CONFIG)")
	importPath := flag.String("import", "", "import cars from a CSV file before serving")
	cp1252 := flag.Bool("cp1252", false, "CSV file is Windows-1252 encoded")
	importOnly := flag.Bool("import-only", false, "exit after the CSV import")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := store.Open(ctx, store.Options{
		Driver:        cfg.Store.Driver,
		DSN:           cfg.Store.DSN,
		Migrate:       cfg.Store.Migrate,
		Ratings:       cfg.Store.Ratings,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open stores")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logging.Error().Err(err).Msg("close stores")
		}
	}()
	logging.Info().
		Str("catalog", stores.Catalog.Name()).
		Str("ratings", stores.Ratings.Name()).
		Msg("stores opened")

	if *importPath != "" {
		if err := importCars(ctx, stores.Writer, *importPath, *cp1252); err != nil {
			logging.Fatal().Err(err).Str("path", *importPath).Msg("import cars")
		}
		if *importOnly {
			return
		}
	}

	pipelines, err := config.LoadPipelines(cfg.Pipelines.Path, config.Deps{
		Catalog: stores.Catalog,
		Ratings: stores.Ratings,
		Workers: cfg.Recommend.Workers,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("load pipelines")
	}

	rec, err := service.NewRecommender(stores.Catalog, stores.Ratings, pipelines, service.WithConfig(cfg.Recommend))
	if err != nil {
		logging.Fatal().Err(err).Msg("create recommender")
	}

	srv := server.New(rec, server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Mode:         cfg.Server.Mode,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("http server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http server shutdown")
	}
	logging.Info().Msg("carkit stopped")
}

func importCars(ctx context.Context, w store.CarWriter, path string, cp1252 bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	n, err := store.ImportCSV(ctx, w, f, store.CSVOptions{Windows1252: cp1252})
	if err != nil {
		return err
	}
	logging.Info().Int("cars", n).Dur("elapsed", time.Since(start)).Str("path", path).Msg("cars imported")
	return nil
}
