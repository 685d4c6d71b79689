// Command forecastd serves the forecasting HTTP API: upload, forecast,
// scenario, regroup, and export endpoints over one in-memory Session.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demandforge/invforecast/internal/api"
	"github.com/demandforge/invforecast/internal/cache"
	"github.com/demandforge/invforecast/internal/config"
	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/session"
	"github.com/demandforge/invforecast/internal/storage"
	"github.com/demandforge/invforecast/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)

	bundleCache, err := cache.NewBundleCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("falling back to noop bundle cache")
		bundleCache = cache.NewNoopBundleCache()
	}

	var objectStorage storage.ObjectStorage
	if cfg.Storage.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		objectStorage, err = storage.NewMinIOStorage(ctx, cfg.Storage)
		cancel()
		if err != nil {
			logger.Log.Warn().Err(err).Msg("failed to connect to object storage, exports will not be archived")
		}
	}

	coordinator := session.NewCoordinator(session.New(domain.CleanFrame{}))

	router := api.NewRouter(&api.Services{
		Coordinator: coordinator,
		Cache:       bundleCache,
		Storage:     objectStorage,
		Forecast:    cfg.Forecast,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting forecastd")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down forecastd...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	logger.Log.Info().Msg("forecastd exiting")
}
