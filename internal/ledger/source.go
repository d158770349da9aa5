// Package ledger abstracts where client transactions come from. The render
// pipeline never talks to an accounting system directly; it receives a
// snapshot fetched through a TransactionSource ahead of time.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/finleaf/cashflow-forecast/internal/models"
	"go.uber.org/zap"
)

// TransactionSource fetches a client's transaction snapshot.
type TransactionSource interface {
	FetchTransactions(ctx context.Context, clientID string) ([]models.Transaction, error)
}

// SettingsSource fetches a client's settings document (chart of accounts,
// pay schedule, policy rules).
type SettingsSource interface {
	FetchSettings(ctx context.Context, clientID string) (models.ClientSettings, error)
}

// ClientSource is what the forecast service consumes: transactions plus the
// client's settings, from the same upstream drop.
type ClientSource interface {
	TransactionSource
	SettingsSource
}

// FileSource reads transaction snapshots from <dir>/<client_id>.json. It is
// the export-drop integration: an upstream sync job writes one JSON array
// per client and this source picks it up.
type FileSource struct {
	dir    string
	logger *zap.Logger
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string, logger *zap.Logger) *FileSource {
	return &FileSource{dir: dir, logger: logger}
}

// FetchTransactions loads the client's snapshot file.
func (s *FileSource) FetchTransactions(ctx context.Context, clientID string) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, clientID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction snapshot: %w", err)
	}

	var txs []models.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("failed to parse transaction snapshot %s: %w", path, err)
	}

	s.logger.Debug("Transaction snapshot loaded",
		zap.String("client_id", clientID),
		zap.Int("transactions", len(txs)))
	return txs, nil
}

// FetchSettings loads the client's settings document from
// <dir>/<client_id>.settings.json. A missing document is normal: the client
// renders with the universal chart, no policy rules and no declared payroll.
func (s *FileSource) FetchSettings(ctx context.Context, clientID string) (models.ClientSettings, error) {
	if err := ctx.Err(); err != nil {
		return models.ClientSettings{}, err
	}

	path := filepath.Join(s.dir, clientID+".settings.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.ClientSettings{}, nil
	}
	if err != nil {
		return models.ClientSettings{}, fmt.Errorf("failed to read client settings: %w", err)
	}

	var settings models.ClientSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return models.ClientSettings{}, fmt.Errorf("failed to parse client settings %s: %w", path, err)
	}

	s.logger.Debug("Client settings loaded",
		zap.String("client_id", clientID),
		zap.String("chart", settings.Chart.Name),
		zap.String("pay_frequency", settings.PaySchedule.Frequency))
	return settings, nil
}
