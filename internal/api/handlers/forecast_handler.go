package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/demandforge/invforecast/internal/cache"
	"github.com/demandforge/invforecast/internal/config"
	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/features"
	"github.com/demandforge/invforecast/internal/forecast"
	"github.com/demandforge/invforecast/internal/forecast/naive"
	"github.com/demandforge/invforecast/internal/session"
)

// ForecastHandler triggers the dispatcher over the session's current
// frame and reports the resulting bundle.
type ForecastHandler struct {
	coordinator *session.Coordinator
	cache       cache.BundleCache
	cfg         config.ForecastConfig
}

// NewForecastHandler builds a ForecastHandler.
func NewForecastHandler(coordinator *session.Coordinator, bundleCache cache.BundleCache, cfg config.ForecastConfig) *ForecastHandler {
	return &ForecastHandler{coordinator: coordinator, cache: bundleCache, cfg: cfg}
}

type runForecastRequest struct {
	HorizonDays int    `json:"horizon_days" binding:"required,min=1"`
	Granularity string `json:"granularity"`
}

// Run fits per-SKU encoders over the current frame, dispatches a forecast
// run, and publishes the resulting bundle on the session.
func (h *ForecastHandler) Run(c *gin.Context) {
	var req runForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	granularity := parseGranularity(req.Granularity)
	current := h.coordinator.Current()

	key := cache.Key(fingerprint(current.Frame), req.HorizonDays, granularity)
	ctx := c.Request.Context()
	if cached, ok, err := h.cache.Get(ctx, key); err == nil && ok {
		c.JSON(http.StatusOK, gin.H{"bundle": cached, "cached": true})
		return
	}

	mgr := features.Fit(current.Frame, current.Frame.AuxColumns, features.Thresholds{
		MinCoverage: h.cfg.MinFeatureCoverage,
		MinVariance: h.cfg.MinFeatureVariance,
	})
	h.coordinator.FitEncoders(mgr)

	bundle, err := h.coordinator.RunForecast(ctx, forecast.Request{
		Frame:       current.Frame,
		HorizonDays: req.HorizonDays,
		Granularity: granularity,
		Strategy:    naive.Strategy{},
	})
	if err != nil {
		log.Error().Err(err).Msg("forecast dispatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.cache.Set(ctx, key, bundle); err != nil {
		log.Warn().Err(err).Msg("failed to cache forecast bundle")
	}

	c.JSON(http.StatusOK, gin.H{"bundle": bundle, "cached": false})
}

// Current returns the session's most recently published bundle.
func (h *ForecastHandler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bundle": h.coordinator.Current().Bundle})
}

func parseGranularity(s string) domain.Granularity {
	switch s {
	case "weekly":
		return domain.Weekly
	case "monthly":
		return domain.Monthly
	case "quarterly":
		return domain.Quarterly
	default:
		return domain.Daily
	}
}

// fingerprint derives a stable identity for a CleanFrame's contents so the
// bundle cache invalidates whenever the underlying data changes.
func fingerprint(frame domain.CleanFrame) string {
	h := sha256.New()
	for _, r := range frame.Records {
		fmt.Fprintf(h, "%s|%s|%g", r.Date.Format(time.RFC3339), r.SKU, r.Quantity)
		for _, col := range frame.AuxColumns {
			fmt.Fprintf(h, "|%+v", r.Auxiliary[col])
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
