// Package classifier assigns each transaction to a cash-flow category using
// the client's general-ledger structure instead of vendor names. Resolution
// runs an ordered strategy chain: external policy-rule suggestions, then the
// client's learned vendor corrections, then the universal GL-band default.
// The first strategy with an opinion wins.
package classifier

import (
	"github.com/finleaf/cashflow-forecast/internal/models"
	"go.uber.org/zap"
)

// GLClassifier resolves transactions through the strategy chain.
type GLClassifier struct {
	strategies []Strategy
	logger     *zap.Logger
}

// New creates a classifier with the standard chain in priority order.
func New(logger *zap.Logger) *GLClassifier {
	return &GLClassifier{
		strategies: []Strategy{
			policyRuleStrategy{},
			learnedMappingStrategy{},
			glDefaultStrategy{},
		},
		logger: logger,
	}
}

// Classify returns exactly one ClassificationResult for the transaction.
// It never fails for a well-formed transaction: the terminal GL-default
// strategy always produces a result.
func (c *GLClassifier) Classify(tx models.Transaction, in Inputs) models.ClassificationResult {
	for _, s := range c.strategies {
		if result, ok := s.Classify(tx, in); ok {
			return result
		}
	}
	// Unreachable while glDefaultStrategy terminates the chain; kept so a
	// misconfigured chain still satisfies the one-result contract.
	c.logger.Warn("classification chain produced no result",
		zap.String("transaction_id", tx.ID))
	return models.ClassificationResult{
		TransactionID: tx.ID,
		Category:      models.CategoryUnclassified,
		Confidence:    unclassifiedConfidence,
		RuleSource:    models.RuleSourceGLDefault,
	}
}

// ClassifyAll classifies every transaction, preserving input order. The
// result slice always has one entry per transaction.
func (c *GLClassifier) ClassifyAll(txs []models.Transaction, in Inputs) []models.ClassificationResult {
	results := make([]models.ClassificationResult, 0, len(txs))
	for _, tx := range txs {
		results = append(results, c.Classify(tx, in))
	}

	byCategory := make(map[string]int, 4)
	for _, r := range results {
		byCategory[r.Category]++
	}
	c.logger.Debug("classification complete",
		zap.Int("transactions", len(txs)),
		zap.Int("inflow", byCategory[models.CategoryInflow]),
		zap.Int("outflow", byCategory[models.CategoryOutflow]),
		zap.Int("payroll", byCategory[models.CategoryPayroll]),
		zap.Int("unclassified", byCategory[models.CategoryUnclassified]))
	return results
}
