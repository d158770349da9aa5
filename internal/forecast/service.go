// Package forecast is the application service behind the HTTP and CLI
// surfaces. It assembles a render request from the client's transaction
// snapshot, learned mappings and chosen archetype, runs it on the render
// pool, and writes the workbook to the output directory.
package forecast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/ledger"
	"github.com/finleaf/cashflow-forecast/internal/learning"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/internal/pipeline"
	"github.com/finleaf/cashflow-forecast/internal/worker"
	"go.uber.org/zap"
)

// Options carries the service's fixed configuration.
type Options struct {
	DefaultArchetype    string
	DetectionWindowDays int
	PayPolicyOffsetDays int
	OutputDir           string
}

// Result is what a completed forecast hands back to the caller.
type Result struct {
	Report       models.RenderReport
	WorkbookPath string
}

// MappingReader is the slice of the learning store the service needs.
type MappingReader interface {
	GetMappings(clientID string) (map[string]models.LearnedMapping, error)
}

// Service generates forecasts end to end.
type Service struct {
	catalog  *archetype.Catalog
	source   ledger.ClientSource
	mappings MappingReader
	pool     *worker.Pool
	opts     Options
	logger   *zap.Logger
}

var _ MappingReader = (*learning.Store)(nil)

// NewService creates a forecast Service.
func NewService(
	catalog *archetype.Catalog,
	source ledger.ClientSource,
	mappings MappingReader,
	pool *worker.Pool,
	opts Options,
	logger *zap.Logger,
) *Service {
	return &Service{
		catalog:  catalog,
		source:   source,
		mappings: mappings,
		pool:     pool,
		opts:     opts,
		logger:   logger,
	}
}

// Generate renders one client's forecast. An empty archetypeName selects the
// configured default.
func (s *Service) Generate(ctx context.Context, clientID, archetypeName string) (Result, error) {
	if archetypeName == "" {
		archetypeName = s.opts.DefaultArchetype
	}
	cfg, err := s.catalog.Get(archetypeName)
	if err != nil {
		return Result{}, err
	}

	txs, err := s.source.FetchTransactions(ctx, clientID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch transactions for %s: %w", clientID, err)
	}

	settings, err := s.source.FetchSettings(ctx, clientID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch settings for %s: %w", clientID, err)
	}

	mappings, err := s.mappings.GetMappings(clientID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load learned mappings for %s: %w", clientID, err)
	}

	offset := s.opts.PayPolicyOffsetDays
	if settings.PayPolicyOffsetDays > 0 {
		offset = settings.PayPolicyOffsetDays
	}
	res := s.pool.Submit(ctx, pipeline.Request{
		ClientID:            clientID,
		Transactions:        txs,
		Chart:               settings.Chart,
		PolicyRules:         settings.PolicyRules,
		PaySchedule:         settings.PaySchedule,
		Mappings:            mappings,
		Archetype:           cfg,
		DetectionWindow:     time.Duration(s.opts.DetectionWindowDays) * 24 * time.Hour,
		PayPolicyOffsetDays: offset,
	})
	if res.Err != nil {
		return Result{}, fmt.Errorf("render failed for %s: %w", clientID, res.Err)
	}

	path, err := s.writeWorkbook(clientID, archetypeName, res.Workbook)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("Forecast generated",
		zap.String("client_id", clientID),
		zap.String("archetype", archetypeName),
		zap.String("render_id", res.Report.RenderID),
		zap.String("path", path))
	return Result{Report: res.Report, WorkbookPath: path}, nil
}

// Archetypes lists the archetype names available for Generate.
func (s *Service) Archetypes() []string {
	return s.catalog.Names()
}

func (s *Service) writeWorkbook(clientID, archetypeName string, workbook []byte) (string, error) {
	if err := os.MkdirAll(s.opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.opts.OutputDir, fmt.Sprintf("%s_%s.xlsx", clientID, archetypeName))
	if err := os.WriteFile(path, workbook, 0644); err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return path, nil
}
