// Package learning persists per-client vendor corrections. The store is the
// only shared mutable state in the system: the render pipeline reads an
// immutable per-client snapshot, and only the external correction workflow
// writes. Every write appends to the corrections log before updating the
// materialized mapping, so the current state is always auditable.
package learning

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/pkg/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Confidence assigned to a fresh correction. Reconfirming an existing
// mapping resets it to this value and restarts the decay clock.
const correctionConfidence = 0.9

// Store reads and writes learned mappings.
type Store struct {
	db     *database.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a Store.
func NewStore(db *database.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// GetMappings returns the client's learned mappings as a snapshot keyed by
// normalized vendor. The snapshot is safe to hand to a render in progress;
// later corrections do not mutate it.
func (s *Store) GetMappings(clientID string) (map[string]models.LearnedMapping, error) {
	query := `
		SELECT client_id, vendor_normalized, gl_account_override, confidence, last_corrected_at
		FROM learned_mappings
		WHERE client_id = ?
	`
	rows, err := s.db.Query(query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]models.LearnedMapping)
	for rows.Next() {
		var m models.LearnedMapping
		if err := rows.Scan(&m.ClientID, &m.VendorNormalized, &m.GLAccountOverride, &m.Confidence, &m.LastCorrectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learned mapping: %w", err)
		}
		mappings[m.VendorNormalized] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read learned mappings: %w", err)
	}
	return mappings, nil
}

// RecordCorrection appends a correction event and upserts the materialized
// mapping in one transaction, so a reader never observes a mapping without
// its log entry.
func (s *Store) RecordCorrection(clientID, vendorNormalized, glAccount string) (models.Correction, error) {
	correction := models.Correction{
		ID:               uuid.NewString(),
		ClientID:         clientID,
		VendorNormalized: vendorNormalized,
		GLAccount:        glAccount,
		CorrectedAt:      s.now().UTC(),
	}

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO corrections (id, client_id, vendor_normalized, gl_account, corrected_at)
			 VALUES (?, ?, ?, ?, ?)`,
			correction.ID,
			correction.ClientID,
			correction.VendorNormalized,
			correction.GLAccount,
			correction.CorrectedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append correction: %w", err)
		}

		_, err = tx.Exec(
			`INSERT INTO learned_mappings (client_id, vendor_normalized, gl_account_override, confidence, last_corrected_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (client_id, vendor_normalized)
			 DO UPDATE SET gl_account_override = excluded.gl_account_override,
				confidence = excluded.confidence,
				last_corrected_at = excluded.last_corrected_at`,
			correction.ClientID,
			correction.VendorNormalized,
			correction.GLAccount,
			correctionConfidence,
			correction.CorrectedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert learned mapping: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record correction",
			zap.String("client_id", clientID),
			zap.String("vendor", vendorNormalized),
			zap.Error(err))
		return models.Correction{}, err
	}

	s.logger.Info("Correction recorded",
		zap.String("client_id", clientID),
		zap.String("vendor", vendorNormalized),
		zap.String("gl_account", glAccount))
	return correction, nil
}

// Corrections returns the client's append-only correction history, newest
// first.
func (s *Store) Corrections(clientID string) ([]models.Correction, error) {
	query := `
		SELECT id, client_id, vendor_normalized, gl_account, corrected_at
		FROM corrections
		WHERE client_id = ?
		ORDER BY corrected_at DESC, id
	`
	rows, err := s.db.Query(query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	var corrections []models.Correction
	for rows.Next() {
		var c models.Correction
		if err := rows.Scan(&c.ID, &c.ClientID, &c.VendorNormalized, &c.GLAccount, &c.CorrectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}
