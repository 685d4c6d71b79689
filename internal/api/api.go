// Package api wires the HTTP surface: upload → ingest, trigger a
// forecast run, apply a scenario, regroup, and download exports.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/demandforge/invforecast/internal/api/handlers"
	"github.com/demandforge/invforecast/internal/api/middleware"
	"github.com/demandforge/invforecast/internal/cache"
	"github.com/demandforge/invforecast/internal/config"
	"github.com/demandforge/invforecast/internal/session"
	"github.com/demandforge/invforecast/internal/storage"
)

// Services bundles the dependencies handlers need, built once at startup.
type Services struct {
	Coordinator *session.Coordinator
	Cache       cache.BundleCache
	Storage     storage.ObjectStorage
	Forecast    config.ForecastConfig
}

// NewRouter builds the gin engine and mounts every route group.
func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	if services == nil {
		return router
	}

	ingestHandler := handlers.NewIngestHandler(services.Coordinator, services.Forecast)
	forecastHandler := handlers.NewForecastHandler(services.Coordinator, services.Cache, services.Forecast)
	scenarioHandler := handlers.NewScenarioHandler(services.Coordinator, services.Forecast)
	regroupHandler := handlers.NewRegroupHandler(services.Coordinator)
	exportHandler := handlers.NewExportHandler(services.Coordinator, services.Storage)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/ingest", ingestHandler.Upload)
		v1.GET("/ingest/summary", ingestHandler.Summary)

		v1.POST("/forecast", forecastHandler.Run)
		v1.GET("/forecast", forecastHandler.Current)

		v1.POST("/scenario/spike", scenarioHandler.Spike)
		v1.POST("/scenario/delay", scenarioHandler.Delay)
		v1.POST("/scenario/reset", scenarioHandler.Reset)
		v1.GET("/scenario/stockout", scenarioHandler.StockoutRisk)

		v1.POST("/regroup", regroupHandler.Regroup)

		v1.GET("/export/data.csv", exportHandler.Data)
		v1.GET("/export/upper.csv", exportHandler.Upper)
		v1.GET("/export/lower.csv", exportHandler.Lower)
		v1.GET("/export/summary.txt", exportHandler.Summary)
	}

	return router
}
