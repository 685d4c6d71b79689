package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/demandforge/invforecast/internal/config"
	"github.com/demandforge/invforecast/internal/scenario"
	"github.com/demandforge/invforecast/internal/session"
)

// ScenarioHandler applies demand-spike and supply-delay rewrites to the
// session's frame, and answers stockout-risk queries.
type ScenarioHandler struct {
	coordinator *session.Coordinator
	cfg         config.ForecastConfig
}

// NewScenarioHandler builds a ScenarioHandler.
func NewScenarioHandler(coordinator *session.Coordinator, cfg config.ForecastConfig) *ScenarioHandler {
	return &ScenarioHandler{coordinator: coordinator, cfg: cfg}
}

type spikeRequest struct {
	SKU        string  `json:"sku" binding:"required"`
	Start      string  `json:"start" binding:"required"`
	End        string  `json:"end" binding:"required"`
	Multiplier float64 `json:"multiplier" binding:"required"`
}

// Spike applies DemandSpike after validating the multiplier against the
// configured [MIN_SPIKE, MAX_SPIKE] bounds.
func (h *ScenarioHandler) Spike(c *gin.Context) {
	var req spikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Multiplier < h.cfg.MinSpike || req.Multiplier > h.cfg.MaxSpike {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multiplier out of configured bounds"})
		return
	}
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
		return
	}

	current := h.coordinator.Current()
	rewritten := scenario.DemandSpike(current.Frame, req.SKU, start, end, req.Multiplier)
	entry := scenario.HistoryEntry{
		Kind:      scenario.Spike,
		SKU:       req.SKU,
		Params:    map[string]float64{"multiplier": req.Multiplier},
		AppliedAt: time.Now().UTC(),
	}
	h.coordinator.ApplyScenario(rewritten, entry)

	c.JSON(http.StatusOK, gin.H{"sku": req.SKU, "record_count": len(rewritten.Records)})
}

type delayRequest struct {
	SKU       string `json:"sku" binding:"required"`
	Start     string `json:"start" binding:"required"`
	DelayDays int    `json:"delay_days"`
}

// Delay applies SupplyDelay after validating the delay against the
// configured [MIN_DELAY_DAYS, MAX_DELAY_DAYS] bounds.
func (h *ScenarioHandler) Delay(c *gin.Context) {
	var req delayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DelayDays < h.cfg.MinDelayDays || req.DelayDays > h.cfg.MaxDelayDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delay out of configured bounds"})
		return
	}
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}

	current := h.coordinator.Current()
	rewritten := scenario.SupplyDelay(current.Frame, req.SKU, start, req.DelayDays)
	entry := scenario.HistoryEntry{
		Kind:      scenario.Delay,
		SKU:       req.SKU,
		Params:    map[string]float64{"delay_days": float64(req.DelayDays)},
		AppliedAt: time.Now().UTC(),
	}
	h.coordinator.ApplyScenario(rewritten, entry)

	c.JSON(http.StatusOK, gin.H{"sku": req.SKU, "record_count": len(rewritten.Records)})
}

// Reset restores the session's original CleanFrame and clears history.
func (h *ScenarioHandler) Reset(c *gin.Context) {
	reset := h.coordinator.Reset()
	c.JSON(http.StatusOK, gin.H{"record_count": len(reset.Frame.Records)})
}

type stockoutQuery struct {
	ThresholdDays float64 `form:"threshold_days"`
}

// StockoutRisk evaluates the stockout-risk query over the current frame.
// Current stock levels are supplied per SKU as query parameters of the
// form stock[<sku>]=<value>.
func (h *ScenarioHandler) StockoutRisk(c *gin.Context) {
	var q stockoutQuery
	_ = c.ShouldBindQuery(&q)
	if q.ThresholdDays <= 0 {
		q.ThresholdDays = 1 - h.cfg.PredictionInterval
		if q.ThresholdDays <= 0 {
			q.ThresholdDays = 7
		}
	}

	stock := make(map[string]float64)
	for sku, values := range c.Request.URL.Query() {
		const prefix = "stock["
		if len(sku) > len(prefix)+1 && sku[:len(prefix)] == prefix && sku[len(sku)-1] == ']' {
			name := sku[len(prefix) : len(sku)-1]
			if len(values) > 0 {
				if v, err := strconv.ParseFloat(values[0], 64); err == nil {
					stock[name] = v
				}
			}
		}
	}

	current := h.coordinator.Current()
	flags := scenario.StockoutRisk(current.Frame, stock, q.ThresholdDays)
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}
