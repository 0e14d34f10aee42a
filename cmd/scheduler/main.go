package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"adpulse/internal/config"
	"adpulse/internal/observability"
	"adpulse/internal/scheduler"
	"adpulse/internal/storage"
	chstore "adpulse/internal/storage/clickhouse"
	"adpulse/internal/storage/migrations"
	pgstore "adpulse/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (env vars override)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "scheduler").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("run postgres migrations")
	}

	var facts storage.FactStore = pgstore.NewFactStore(pool)
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("run clickhouse migrations")
		}
		defer conn.Close()
		facts = chstore.NewFactStore(conn)
		logger.Info().Msg("using clickhouse fact store")
	}

	tasks := pgstore.NewTaskStore(pool)
	obs := observability.NewMetrics("adpulse")

	// Metrics server
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", obs.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	sched := scheduler.New(tasks, facts, obs, logger)
	runner := scheduler.NewRunner(sched, tasks, logger)

	logger.Info().Dur("interval", cfg.PassInterval).Msg("scheduler started")

	ticker := time.NewTicker(cfg.PassInterval)
	defer ticker.Stop()
	for {
		start := time.Now()
		result, err := runner.RunPass(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("scheduler stopped")
				return
			}
			logger.Error().Err(err).Msg("scheduler pass failed")
		} else {
			obs.LastSchedulerPass.SetToCurrentTime()
			obs.SplitDuration.Observe(time.Since(start).Seconds())
			logger.Debug().
				Int("split", result.Split).
				Int("failed", result.Failed).
				Int("reclaimed", result.Reclaimed).
				Msg("pass done")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
