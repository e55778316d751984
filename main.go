package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/paperbuilder/paper-builder/backend/go-services/internal/config"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/server"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/logger"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// LOG_LEVEL is read again from config in run; this covers config errors
	logger.Init(os.Getenv("LOG_LEVEL"))
	err := run()
	if err != nil {
		logger.Errorf("server stopped: %v", err)
	} else {
		logger.Info("server stopped")
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run owns every resource it opens so deferred cleanup completes before main exits.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Infof("config loaded: env=%s redis=%v rate_limit=%v id_scheme=%s seed=%v",
		cfg.Server.Environment, cfg.Redis.Host != "", cfg.RateLimit.Enabled, cfg.Store.IDScheme, cfg.Store.Seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it changes stay in-process and the limiter is per-replica
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = server.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warnf("continuing without redis: %v", err)
		} else {
			logger.Infof("connected to redis at %s", cfg.Redis.Addr())
			defer func() { _ = rdb.Close() }()
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	srv, err := server.New(cfg, rdb)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	return srv.Run(ctx)
}
