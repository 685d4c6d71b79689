package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/regroup"
	"github.com/demandforge/invforecast/internal/session"
)

// RegroupHandler re-aggregates the session's current bundle to a coarser
// granularity without re-running the dispatcher.
type RegroupHandler struct {
	coordinator *session.Coordinator
}

// NewRegroupHandler builds a RegroupHandler.
func NewRegroupHandler(coordinator *session.Coordinator) *RegroupHandler {
	return &RegroupHandler{coordinator: coordinator}
}

type regroupRequest struct {
	Granularity string `json:"granularity" binding:"required"`
}

// Regroup applies the requested granularity to the current bundle.
func (h *RegroupHandler) Regroup(c *gin.Context) {
	var req regroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var g domain.Granularity
	switch req.Granularity {
	case "weekly":
		g = domain.Weekly
	case "monthly":
		g = domain.Monthly
	case "quarterly":
		g = domain.Quarterly
	default:
		g = domain.Daily
	}

	bundle := h.coordinator.Current().Bundle
	regrouped := regroup.Regroup(bundle, g)
	c.JSON(http.StatusOK, gin.H{"bundle": regrouped})
}
