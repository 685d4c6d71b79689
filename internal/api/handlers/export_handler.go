package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/demandforge/invforecast/internal/export"
	"github.com/demandforge/invforecast/internal/session"
	"github.com/demandforge/invforecast/internal/storage"
)

// ExportHandler serves the three CSV files and text summary, archiving a
// copy to object storage when configured.
type ExportHandler struct {
	coordinator *session.Coordinator
	storage     storage.ObjectStorage
}

// NewExportHandler builds an ExportHandler.
func NewExportHandler(coordinator *session.Coordinator, objectStorage storage.ObjectStorage) *ExportHandler {
	return &ExportHandler{coordinator: coordinator, storage: objectStorage}
}

func (h *ExportHandler) serve(c *gin.Context, filename, contentType string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("export write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.storage != nil {
		key := "exports/" + time.Now().UTC().Format("20060102150405") + "/" + filename
		if err := h.storage.UploadObject(context.Background(), key, buf.Bytes()); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to archive export to object storage")
		}
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Data serves forecast_data.csv.
func (h *ExportHandler) Data(c *gin.Context) {
	bundle := h.coordinator.Current().Bundle
	h.serve(c, "forecast_data.csv", "text/csv", func(buf *bytes.Buffer) error {
		return export.WriteDataCSV(buf, bundle)
	})
}

// Upper serves forecast_upper.csv.
func (h *ExportHandler) Upper(c *gin.Context) {
	bundle := h.coordinator.Current().Bundle
	h.serve(c, "forecast_upper.csv", "text/csv", func(buf *bytes.Buffer) error {
		return export.WriteUpperCSV(buf, bundle)
	})
}

// Lower serves forecast_lower.csv.
func (h *ExportHandler) Lower(c *gin.Context) {
	bundle := h.coordinator.Current().Bundle
	h.serve(c, "forecast_lower.csv", "text/csv", func(buf *bytes.Buffer) error {
		return export.WriteLowerCSV(buf, bundle)
	})
}

// Summary serves summary.txt.
func (h *ExportHandler) Summary(c *gin.Context) {
	bundle := h.coordinator.Current().Bundle
	h.serve(c, "summary.txt", "text/plain", func(buf *bytes.Buffer) error {
		return export.WriteSummary(buf, bundle)
	})
}
