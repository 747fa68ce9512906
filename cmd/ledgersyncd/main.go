// Command ledgersyncd synchronizes an account catalog with the balance
// ledger and serves the verified balances and debt-payoff projections
// over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ledgersync/pkg/api"
	"ledgersync/pkg/balancecache"
	cachememory "ledgersync/pkg/balancecache/memory"
	cacheredis "ledgersync/pkg/balancecache/redis"
	"ledgersync/pkg/catalog"
	"ledgersync/pkg/events"
	eventskafka "ledgersync/pkg/events/kafka"
	"ledgersync/pkg/gateway"
	gatewaymemory "ledgersync/pkg/gateway/memory"
	gatewaypostgres "ledgersync/pkg/gateway/postgres"
	"ledgersync/pkg/logging"
	"ledgersync/pkg/metrics"
	metricsmemory "ledgersync/pkg/metrics/memory"
	metricsprometheus "ledgersync/pkg/metrics/prometheus"
	"ledgersync/pkg/progress"
	"ledgersync/pkg/resilience"
	"ledgersync/pkg/sync"
)

func main() {
	configPath := flag.String("config", "ledgersync.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	logger, err := logging.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, *configPath); err != nil {
		logger.Error("ledgersyncd exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *logging.Logger, configPath string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	cat, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded",
		zap.String("file", cfg.CatalogFile),
		zap.Int("accounts", len(cat)),
	)

	collector, metricsHandler, snapshot := buildMetrics(cfg)

	gw, err := buildGateway(cfg, logger, collector)
	if err != nil {
		return err
	}
	defer gw.Close()

	publisher := buildPublisher(cfg, logger)
	defer publisher.Close()

	cache := buildCache(cfg, logger, len(cat))
	if cache != nil {
		defer cache.Close()
	}

	syncCfg := cfg.syncConfig()
	syncer, err := sync.New(gw, syncCfg, sync.Options{
		Logger:    logger,
		Metrics:   collector,
		Publisher: publisher,
	})
	if err != nil {
		return err
	}

	readerCfg := progress.Config{
		IDOffset:  syncCfg.IDOffset,
		BatchSize: syncCfg.BatchSize,
		CacheTTL:  time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	}
	reader := progress.NewReader(gw, cat, readerCfg, cache, logger, collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sync.RunOnStart {
		if err := syncer.SyncAccounts(ctx, cat); err != nil {
			return err
		}
	}

	serverCfg := api.DefaultServerConfig()
	if cfg.API.Address != "" {
		serverCfg.Address = cfg.API.Address
	}
	opts := []api.Option{}
	if metricsHandler != nil {
		opts = append(opts, api.WithMetricsHandler(metricsHandler))
	}
	if snapshot != nil {
		opts = append(opts, api.WithSnapshot(snapshot))
	}
	server := api.NewServer(syncer, reader, cat, logger, serverCfg, opts...)
	server.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func buildGateway(cfg appConfig, logger *logging.Logger, collector metrics.Collector) (gateway.Gateway, error) {
	var inner gateway.Gateway
	switch cfg.Gateway.Kind {
	case "postgres":
		dsn := cfg.Gateway.PostgresDSN
		if env := os.Getenv("DATABASE_URL"); env != "" {
			dsn = env
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := gatewaypostgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		inner = pg
	default:
		inner = gatewaymemory.New(gatewaymemory.Config{})
	}

	resilienceCfg := resilience.DefaultConfig()
	if cfg.Gateway.TimeoutMS > 0 {
		resilienceCfg = resilienceCfg.WithTimeout(time.Duration(cfg.Gateway.TimeoutMS) * time.Millisecond)
	}
	return resilience.NewWithMetrics(inner, resilienceCfg, logger, collector), nil
}

func buildPublisher(cfg appConfig, logger *logging.Logger) events.Publisher {
	switch cfg.Events.Kind {
	case "kafka":
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.Events.Brokers))
		return eventskafka.New(cfg.Events.Brokers)
	default:
		return events.Nop{}
	}
}

func buildCache(cfg appConfig, logger *logging.Logger, accounts int) balancecache.Cache {
	var cache balancecache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		redisCfg := cacheredis.DefaultConfig()
		if cfg.Cache.RedisAddr != "" {
			redisCfg.Addr = cfg.Cache.RedisAddr
		}
		c, err := cacheredis.New(redisCfg)
		if err != nil {
			logger.Warn("redis cache unavailable, falling back to memory", zap.Error(err))
			cache = cachememory.New(cachememory.Config{})
		} else {
			cache = c
		}
	case "none":
		return nil
	default:
		cache = cachememory.New(cachememory.Config{})
	}

	if cfg.Cache.Bloom {
		cache = balancecache.NewBloomCache(cache, uint(accounts)*4, 0.01)
	}
	return cache
}

func buildMetrics(cfg appConfig) (metrics.Collector, http.Handler, func() any) {
	switch cfg.Metrics.Kind {
	case "prometheus":
		c := metricsprometheus.New(cfg.Metrics.Namespace)
		return c, c.Handler(), nil
	case "memory":
		c := metricsmemory.New()
		return c, nil, func() any { return c.Snapshot() }
	default:
		return metrics.Nop{}, nil, nil
	}
}
