package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/forecast"
	"github.com/finleaf/cashflow-forecast/internal/ledger"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/internal/pipeline"
	"github.com/finleaf/cashflow-forecast/internal/worker"
)

type fakeCorrectionStore struct {
	recorded []models.Correction
	history  []models.Correction
	fail     bool
}

func (s *fakeCorrectionStore) RecordCorrection(clientID, vendor, glAccount string) (models.Correction, error) {
	if s.fail {
		return models.Correction{}, fmt.Errorf("store unavailable")
	}
	c := models.Correction{
		ID:               "corr-1",
		ClientID:         clientID,
		VendorNormalized: vendor,
		GLAccount:        glAccount,
		CorrectedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s.recorded = append(s.recorded, c)
	return c, nil
}

func (s *fakeCorrectionStore) Corrections(string) ([]models.Correction, error) {
	if s.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	return s.history, nil
}

type staticMappings struct{}

func (staticMappings) GetMappings(string) (map[string]models.LearnedMapping, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, store CorrectionStore) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()

	catalog, err := archetype.LoadCatalog("../../../configs/archetypes", logger)
	require.NoError(t, err)

	txDir := t.TempDir()
	txs := []models.Transaction{
		{ID: "tx-1", Date: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), Amount: 100000, VendorRaw: "Alpha Retainer LLC", GLAccount: "4010"},
		{ID: "tx-2", Date: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), Amount: 100000, VendorRaw: "Alpha Retainer LLC", GLAccount: "4010"},
		{ID: "tx-3", Date: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), Amount: 100000, VendorRaw: "Alpha Retainer LLC", GLAccount: "4010"},
	}
	data, err := json.Marshal(txs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(txDir, "client-1.json"), data, 0644))

	forecaster := pipeline.New(logger)
	pool := worker.NewPool(1, 4, forecaster.Render, logger)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Stop)

	svc := forecast.NewService(catalog, ledger.NewFileSource(txDir, logger), staticMappings{}, pool, forecast.Options{
		DefaultArchetype:    "nonprofit",
		DetectionWindowDays: 90,
		OutputDir:           t.TempDir(),
	}, logger)

	server := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, NewHandlers(svc, store, logger), logger)
	return server.Router()
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})
	w := doRequest(router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestListArchetypes(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})
	w := doRequest(router, http.MethodGet, "/api/v1/archetypes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool     `json:"success"`
		Data    []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"agency", "nonprofit"}, resp.Data)
}

func TestGenerateForecastEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})
	w := doRequest(router, http.MethodPost, "/api/v1/clients/client-1/forecast",
		[]byte(`{"archetype": "nonprofit"}`))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool             `json:"success"`
		Data    ForecastResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "client-1", resp.Data.Report.ClientID)
	assert.NotEmpty(t, resp.Data.WorkbookPath)
}

func TestGenerateForecastUnknownClient(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})
	w := doRequest(router, http.MethodPost, "/api/v1/clients/nobody/forecast", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateForecastUnknownArchetype(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})
	w := doRequest(router, http.MethodPost, "/api/v1/clients/client-1/forecast",
		[]byte(`{"archetype": "hedge-fund"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateArchetypeEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})

	doc, err := os.ReadFile("../../../configs/archetypes/nonprofit.yaml")
	require.NoError(t, err)

	w := doRequest(router, http.MethodPost, "/api/v1/archetypes/validate", doc)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data archetype.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Problems)
}

func TestValidateArchetypeReportsProblems(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})

	// Guard row off by one and a bad category type.
	doc := []byte(`
archetype: broken
horizon: 6
beginning_cash_row: 4
sections:
  - key: inflows
    label: Inflows
    start_row: 6
    guard_row: 12
    total_row: 13
    total_formula_template: SUM({col}6:{col}10)
    categories:
      - key: recurring
        label: Recurring
        type: mystery
        row_budget: 3
`)
	w := doRequest(router, http.MethodPost, "/api/v1/archetypes/validate", doc)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data archetype.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Valid)
	assert.NotEmpty(t, resp.Data.Problems)
}

func TestRecordCorrectionEndpoint(t *testing.T) {
	store := &fakeCorrectionStore{}
	router := newTestRouter(t, store)

	w := doRequest(router, http.MethodPost, "/api/v1/clients/client-1/corrections",
		[]byte(`{"vendor": "ACME Corp.", "gl_account": "6200"}`))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.recorded, 1)
	assert.Equal(t, "acme", store.recorded[0].VendorNormalized)
	assert.Equal(t, "6200", store.recorded[0].GLAccount)
}

func TestRecordCorrectionRequiresFields(t *testing.T) {
	router := newTestRouter(t, &fakeCorrectionStore{})
	w := doRequest(router, http.MethodPost, "/api/v1/clients/client-1/corrections",
		[]byte(`{"vendor": "acme"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCorrectionsEndpoint(t *testing.T) {
	store := &fakeCorrectionStore{history: []models.Correction{
		{ID: "corr-1", ClientID: "client-1", VendorNormalized: "acme", GLAccount: "6200"},
	}}
	router := newTestRouter(t, store)

	w := doRequest(router, http.MethodGet, "/api/v1/clients/client-1/corrections", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []models.Correction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "acme", resp.Data[0].VendorNormalized)
}
