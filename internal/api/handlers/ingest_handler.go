package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/demandforge/invforecast/internal/config"
	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/ingest"
	"github.com/demandforge/invforecast/internal/session"
)

// IngestHandler loads an uploaded file into the current session.
type IngestHandler struct {
	coordinator *session.Coordinator
	cfg         config.ForecastConfig
}

// NewIngestHandler builds an IngestHandler bound to a Coordinator.
func NewIngestHandler(coordinator *session.Coordinator, cfg config.ForecastConfig) *IngestHandler {
	return &IngestHandler{coordinator: coordinator, cfg: cfg}
}

// Upload handles a single-file multipart upload, detecting, validating,
// and cleaning it into a CleanFrame installed as the session's frame. A
// multi-sheet spreadsheet without a "sheet" form field returns its
// candidate sheets instead of ingesting.
func (h *IngestHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	f, err := file.Open()
	if err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer f.Close()

	raw, choices, err := ingest.Load(f, file.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if choices != nil {
		sheet := c.PostForm("sheet")
		if sheet == "" {
			c.JSON(http.StatusOK, gin.H{"sheets": choices})
			return
		}
		raw, err = ingest.LoadSheet(f, file.Size, sheet)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	mapping := ingest.DetectColumns(raw.Header)
	result, err := ingest.ValidateOrError(raw, mapping)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "issues": result.Issues})
		return
	}

	frame, dropped, err := ingest.Clean(raw, mapping, ingest.CleanOptions{
		DateFormat:    result.DateFormat,
		Duplicates:    ingest.DuplicateSum,
		MinDataPoints: h.cfg.MinDataPoints,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.coordinator.Ingest(frame)

	c.JSON(http.StatusOK, gin.H{
		"skus":          frame.SKUs(),
		"record_count":  len(frame.Records),
		"dropped_skus":  dropped,
		"date_format":   frame.DateFormat,
	})
}

// Summary returns per-SKU row counts and date ranges for the current
// session's frame.
func (h *IngestHandler) Summary(c *gin.Context) {
	frame := h.coordinator.Current().Frame
	summaries := domain.Summarize(frame)
	c.JSON(http.StatusOK, gin.H{"skus": summaries})
}
