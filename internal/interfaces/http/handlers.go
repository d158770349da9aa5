package http

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/forecast"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/internal/normalizer"
)

// CorrectionStore is the slice of the learning store the API exposes.
type CorrectionStore interface {
	RecordCorrection(clientID, vendorNormalized, glAccount string) (models.Correction, error)
	Corrections(clientID string) ([]models.Correction, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	forecasts   *forecast.Service
	corrections CorrectionStore
	logger      *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(forecasts *forecast.Service, corrections CorrectionStore, logger *zap.Logger) *Handlers {
	return &Handlers{
		forecasts:   forecasts,
		corrections: corrections,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ForecastRequest is the body of POST /api/v1/clients/:client_id/forecast.
type ForecastRequest struct {
	Archetype string `json:"archetype"`
}

// ForecastResponse reports a completed render.
type ForecastResponse struct {
	Report       models.RenderReport `json:"report"`
	WorkbookPath string              `json:"workbook_path"`
}

// CorrectionRequest is the body of POST /api/v1/clients/:client_id/corrections.
type CorrectionRequest struct {
	Vendor    string `json:"vendor" binding:"required"`
	GLAccount string `json:"gl_account" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ListArchetypes handles GET /api/v1/archetypes
func (h *Handlers) ListArchetypes(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.forecasts.Archetypes(),
	})
}

// ValidateArchetype handles POST /api/v1/archetypes/validate. The body is a
// raw archetype YAML document; the response is the validation verdict, with
// every problem listed rather than only the first.
func (h *Handlers) ValidateArchetype(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "request body must be an archetype document",
		})
		return
	}

	var cfg archetype.Config
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		c.JSON(http.StatusOK, Response{
			Success: true,
			Data: archetype.ValidationResult{
				Valid:    false,
				Problems: []string{err.Error()},
			},
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    archetype.CheckConfig(cfg),
	})
}

// GenerateForecast handles POST /api/v1/clients/:client_id/forecast
func (h *Handlers) GenerateForecast(c *gin.Context) {
	clientID := c.Param("client_id")

	var req ForecastRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "invalid request body",
			})
			return
		}
	}

	result, err := h.forecasts.Generate(c.Request.Context(), clientID, req.Archetype)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, archetype.ErrUnknownArchetype):
			status = http.StatusBadRequest
		case errors.Is(err, fs.ErrNotExist):
			// No snapshot on disk means the client is unknown.
			status = http.StatusNotFound
		}
		h.logger.Error("Forecast generation failed",
			zap.String("client_id", clientID),
			zap.Error(err))
		c.JSON(status, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ForecastResponse{
			Report:       result.Report,
			WorkbookPath: result.WorkbookPath,
		},
	})
}

// RecordCorrection handles POST /api/v1/clients/:client_id/corrections
func (h *Handlers) RecordCorrection(c *gin.Context) {
	clientID := c.Param("client_id")

	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "vendor and gl_account are required",
		})
		return
	}

	vendor := normalizer.Normalize(req.Vendor)
	if vendor == normalizer.UnknownVendor {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "vendor does not normalize to a usable name",
		})
		return
	}

	correction, err := h.corrections.RecordCorrection(clientID, vendor, req.GLAccount)
	if err != nil {
		h.logger.Error("Failed to record correction",
			zap.String("client_id", clientID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to record correction",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: correction})
}

// ListCorrections handles GET /api/v1/clients/:client_id/corrections
func (h *Handlers) ListCorrections(c *gin.Context) {
	clientID := c.Param("client_id")

	history, err := h.corrections.Corrections(clientID)
	if err != nil {
		h.logger.Error("Failed to list corrections",
			zap.String("client_id", clientID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to list corrections",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}
