// Command ycserver keeps a set of yield curves built from live quotes and
// serves them over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meenmo/ycurve/api"
	"github.com/meenmo/ycurve/config"
	"github.com/meenmo/ycurve/feed"
	"github.com/meenmo/ycurve/logger"
	"github.com/meenmo/ycurve/marketdata"
	"github.com/meenmo/ycurve/service"
	"github.com/meenmo/ycurve/storage"
)

// startServer runs the HTTP server in its own goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown waits for ctx to end, then drains the server and runs cleanup.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	<-ctx.Done()
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// loadDefinitions registers every curve found in path. An empty path is allowed.
func loadDefinitions(svc *service.Service, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()

	defs, err := marketdata.ParseDefinitions(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, def := range defs {
		if err := svc.Define(def); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	engine, err := cfg.Engine.Bootstrap()
	if err != nil {
		return err
	}

	opts := service.Options{
		Engine:       engine,
		Parallel:     cfg.Service.Parallel,
		CacheMaxCost: cfg.Cache.MaxCost,
		CacheTTL:     cfg.Cache.TTL,
		AutoRebuild:  true,
	}

	var db *sql.DB
	if cfg.Postgres.Enabled {
		db, err = storage.Open(cfg.Postgres.DSN())
		if err != nil {
			return err
		}
		repo := storage.NewCurveRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		opts.Store = repo
	}

	svc, err := service.New(opts)
	if err != nil {
		return err
	}
	cleanup := func() {
		svc.Close()
		if db != nil {
			_ = db.Close()
		}
	}

	if err := loadDefinitions(svc, cfg.Service.Definitions); err != nil {
		cleanup()
		return err
	}
	if restored, err := svc.Restore(ctx); err != nil {
		logger.L().Warn().Err(err).Msg("restore from store incomplete")
	} else if len(restored) > 0 {
		logger.L().Info().Strs("curves", restored).Msg("serving stored builds until rebuilt")
	}
	if err := svc.BuildAll(ctx); err != nil {
		logger.L().Warn().Err(err).Msg("initial build incomplete")
	}

	if cfg.Kafka.Enabled {
		cons := feed.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, svc)
		go func() {
			if err := cons.Run(ctx); err != nil && ctx.Err() == nil {
				logger.L().Error().Err(err).Msg("quote feed stopped")
			}
		}()
	}

	router := api.NewRouter(api.NewHandler(svc))
	var ping func() error
	if db != nil {
		ping = db.Ping
	}
	api.NewHealthHandler(ping).Register(router)

	server := startServer(router, cfg.Server.Port)
	gracefulShutdown(ctx, server, cleanup)
	return nil
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.L().Fatal().Err(err).Msg("startup failed")
	}
}
