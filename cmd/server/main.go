package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lakshya1112/Buyer-lead-app/internal/config"
	"github.com/lakshya1112/Buyer-lead-app/internal/core"
	"github.com/lakshya1112/Buyer-lead-app/internal/logging"
	"github.com/lakshya1112/Buyer-lead-app/internal/store/memory"
	"github.com/lakshya1112/Buyer-lead-app/internal/store/postgres"
	"github.com/lakshya1112/Buyer-lead-app/internal/web"
	"github.com/lakshya1112/Buyer-lead-app/internal/web/middleware"
)

func main() {
	// Overload lets a local .env win over stale shell exports.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	svcOpts := []core.Option{
		core.WithImportLimiter(limiter),
		core.WithMaxImportRows(cfg.Import.MaxRows),
		core.WithCommitTimeout(cfg.Import.CommitTimeout),
	}
	var serverOpts []web.Option

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svcOpts = append(svcOpts, core.WithMetrics(core.NewMetrics(cfg.Metrics.Namespace, reg)))
		serverOpts = append(serverOpts, web.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	if cfg.Rate.Enabled {
		client, err := middleware.NewRedisClient(ctx, cfg.Rate.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		serverOpts = append(serverOpts, web.WithRateLimiter(middleware.NewRateLimiter(client)))
	}

	service := core.NewService(store, svcOpts...)
	server := web.NewServer(service, cfg, serverOpts...)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to finish", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not finish in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore builds the configured record store and its cleanup func.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	if cfg.Store.Driver == config.StoreMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return postgres.New(pool), pool.Close, nil
}
