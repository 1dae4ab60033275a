package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/digipin/internal/cache/querycache"
	"github.com/mohammed-shakir/digipin/internal/cache/redisstore"
	"github.com/mohammed-shakir/digipin/internal/core/config"
	"github.com/mohammed-shakir/digipin/internal/core/health"
	"github.com/mohammed-shakir/digipin/internal/core/observability"
	"github.com/mohammed-shakir/digipin/internal/core/router"
	"github.com/mohammed-shakir/digipin/internal/core/server"
	"github.com/mohammed-shakir/digipin/internal/logger"
	digipinmapper "github.com/mohammed-shakir/digipin/internal/mapper/digipin"
	"github.com/mohammed-shakir/digipin/internal/metrics"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/internal/registry/memreg"
	"github.com/mohammed-shakir/digipin/internal/registry/redisreg"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
	"github.com/mohammed-shakir/digipin/pkg/ingest/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// overriding the store driver via flag
	driverFlag := flag.String("store", "", "location store driver (memory|redis)")
	flag.Parse()

	cfg := config.FromEnv()
	if d := strings.ToLower(strings.TrimSpace(*driverFlag)); d == config.DriverMemory || d == config.DriverRedis {
		cfg.StoreDriver = d
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "digipin",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting digipin server",
		"addr", cfg.Addr,
		"version", Version,
		"store", cfg.StoreDriver,
		"ingest", cfg.Ingest.Enabled)

	prov := metrics.Init(metrics.Config{
		Namespace: "digipin",
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	if err := observability.Init(prov.Registerer()); err != nil {
		appLog.Error("metrics registration failed", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		appLog.Error("location store setup failed", "err", err, "driver", cfg.StoreDriver)
		return 1
	}
	defer func() { _ = store.Close() }()

	svc := registry.NewService(store, registry.Options{
		Precision:       digipin.MaxPrecision,
		SearchPrecision: cfg.SearchPrecision,
		OpTimeout:       cfg.StoreOpTimeout,
	})
	api := router.New(appLog, cfg, digipinmapper.New(), svc, querycache.New(cfg.QueryCacheSize))

	ready := health.Readiness(store, nil)
	if cfg.Ingest.Enabled {
		runner := kafka.New(kafka.FromCore(cfg.Ingest), svc, kafka.Options{
			Logger:   appLog.With("component", "ingest"),
			Register: prov.Registerer(),
		})
		if err := runner.Start(ctx); err != nil {
			appLog.Error("ingest runner failed to start", "err", err)
			return 1
		}
		defer runner.Stop()
		ready = health.Readiness(store, runner)
	}

	if err := server.Run(ctx, cfg, appLog, server.Deps{
		API:       api,
		Metrics:   prov.Handler(),
		Readiness: ready,
	}); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func openStore(ctx context.Context, cfg config.Config) (registry.Store, error) {
	if cfg.StoreDriver != config.DriverRedis {
		return memreg.New(), nil
	}
	cli, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	return redisreg.New(cli, cfg.LocationTTL), nil
}
